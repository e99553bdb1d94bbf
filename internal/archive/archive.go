// Package archive keeps workspace exports in a local SQLite file.
package archive

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"nmr-annotator/internal/project"
)

// ErrNotFound is returned for unknown snapshot ids.
var ErrNotFound = errors.New("snapshot not found")

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	spectrum    TEXT NOT NULL DEFAULT '',
	structure   TEXT NOT NULL DEFAULT '',
	mode        TEXT NOT NULL,
	peaks       INTEGER NOT NULL,
	markers     INTEGER NOT NULL,
	calibrated  INTEGER NOT NULL,
	exported_at TEXT NOT NULL,
	doc         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_name ON snapshots(name);
`

// Entry summarizes one archived snapshot.
type Entry struct {
	ID         int64
	Name       string
	Spectrum   string
	Structure  string
	Mode       string
	Peaks      int
	Markers    int
	Calibrated bool
	ExportedAt time.Time
}

// Store is an open archive.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open opens or creates the archive at path.
func Open(ctx context.Context, path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	// One connection serializes all statements.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			log.Debug("sqlite pragma skipped", zap.String("pragma", pragma), zap.Error(err))
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create archive schema: %w", err)
	}
	log.Debug("archive opened", zap.String("path", path))
	return &Store{db: db, log: log}, nil
}

// Close closes the archive.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores f and returns its id.
func (s *Store) Save(ctx context.Context, f *project.File) (int64, error) {
	if f.Workspace == nil {
		return 0, project.ErrNoWorkspace
	}
	doc, err := f.Marshal()
	if err != nil {
		return 0, fmt.Errorf("encode snapshot: %w", err)
	}
	ws := f.Workspace
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (name, spectrum, structure, mode, peaks, markers, calibrated, exported_at, doc)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.Name, ws.SpectrumName, ws.StructureName, ws.Mode.String(),
		len(ws.Peaks), len(ws.Markers), ws.Calibration.Complete(),
		f.ExportedAt.UTC().Format(time.RFC3339Nano), string(doc))
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	s.log.Info("snapshot archived", zap.Int64("id", id), zap.String("name", f.Name))
	return id, nil
}

// List returns all snapshots, newest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, spectrum, structure, mode, peaks, markers, calibrated, exported_at
		 FROM snapshots ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&e.ID, &e.Name, &e.Spectrum, &e.Structure, &e.Mode,
			&e.Peaks, &e.Markers, &e.Calibrated, &at); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		e.ExportedAt, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get loads snapshot id.
func (s *Store) Get(ctx context.Context, id int64) (*project.File, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM snapshots WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %d: %w", id, err)
	}
	return project.Read(bytes.NewReader([]byte(doc)))
}

// Delete removes snapshot id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete snapshot %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("snapshot %d: %w", id, ErrNotFound)
	}
	return nil
}
