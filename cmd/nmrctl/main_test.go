package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nmr-annotator/internal/archive"
	"nmr-annotator/internal/project"
	"nmr-annotator/internal/qa"
	"nmr-annotator/internal/workspace"
	"nmr-annotator/pkg/geometry"
)

const testConfig = `normalize:
  floor_quantile: 0
  ceil_quantile: 1
`

// run executes nmrctl with args against a config in a temp dir.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(testConfig), 0o644))

	verbose, configPath = false, ""
	calibrateFlag, maxPeaksFlag, jobsFlag = "", 0, 4
	renderOut, renderWidth, renderHeight = "", 0, 0
	archivePath, archiveName, archiveOut = "", "", ""
	qaURL, askTopK, askSearch = "", 0, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", cfgFile}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// peakTrace writes a 30 sample trace with peaks at x=5 and x=20.
func peakTrace(t *testing.T, dir, name string) string {
	t.Helper()
	ys := make([]string, 30)
	for i := range ys {
		ys[i] = "0"
	}
	ys[5], ys[20] = "4", "2"
	content := fmt.Sprintf("##TITLE=%s\n##DELTAX=1\n##XYDATA=(X++(Y..Y))\n0 %s\n##END=\n", name, strings.Join(ys, " "))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseCommand(t *testing.T) {
	path := peakTrace(t, t.TempDir(), "a.jdx")
	out, err := run(t, "parse", path)
	require.NoError(t, err)
	assert.Contains(t, out, "samples: 30")
	assert.Contains(t, out, "x: 0 .. 29")
	assert.Contains(t, out, "TITLE")
}

func TestParseCommandMissingFile(t *testing.T) {
	_, err := run(t, "parse", filepath.Join(t.TempDir(), "none.jdx"))
	assert.Error(t, err)
}

func TestPeaksCommand(t *testing.T) {
	dir := t.TempDir()
	a := peakTrace(t, dir, "a.jdx")
	b := peakTrace(t, dir, "b.jdx")

	out, err := run(t, "peaks", a, b, "--calibrate", "5=10,20=0")
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "a.jdx"), strings.Index(out, "b.jdx"))
	assert.Contains(t, out, "5.0000")
	assert.Contains(t, out, "20.0000")
	assert.Contains(t, out, "10.00")
	assert.Contains(t, out, "aldehyde")
}

func TestPeaksCommandMaxPeaks(t *testing.T) {
	a := peakTrace(t, t.TempDir(), "a.jdx")
	out, err := run(t, "peaks", a, "--max-peaks", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "5.0000")
	assert.NotContains(t, out, "20.0000")
	assert.NotContains(t, out, "region")
}

func TestParseCalibration(t *testing.T) {
	cal, err := parseCalibration("100=10, 300=0")
	require.NoError(t, err)
	v, ok := cal.ShiftAt(200)
	require.True(t, ok)
	assert.InDelta(t, 5.0, v, 1e-12)

	for _, bad := range []string{"", "100=10", "100=10,100=0", "a=1,2=3", "1=x,2=3", "1,2"} {
		_, err := parseCalibration(bad)
		assert.Error(t, err, bad)
	}
}

func TestClassifyCommand(t *testing.T) {
	out, err := run(t, "classify", "7.26", "9.8", "1,2", "abc")
	require.NoError(t, err)
	assert.Contains(t, out, "aromatic")
	assert.Contains(t, out, "aldehyde")
	assert.Contains(t, out, "alkyl")
	assert.Contains(t, out, "unknown")
}

func exportWorkspace(t *testing.T, dir string) string {
	t.Helper()
	ws := workspace.New()
	ws.SpectrumName = "spec.png"
	ws.SpectrumSize = geometry.NewSize(200, 100)
	ws.Peaks = append(ws.Peaks, workspace.Peak{
		ID:            "p1",
		Pos:           geometry.Point2D{X: 50, Y: 50},
		ShiftOverride: "7.26",
		Note:          "CHCl3",
	})
	path := filepath.Join(dir, "ws.json")
	require.NoError(t, project.New("demo", ws).Save(path))
	return path
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	ws := exportWorkspace(t, dir)
	png := filepath.Join(dir, "out.png")

	out, err := run(t, "render", ws, "--out", png, "--width", "100", "--height", "80")
	require.NoError(t, err)
	assert.Contains(t, out, "(200x80)")
	_, err = os.Stat(png)
	assert.NoError(t, err)
}

func TestArchiveCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("NMR_ARCHIVE", filepath.Join(dir, "archive.db"))
	ws := exportWorkspace(t, dir)

	out, err := run(t, "archive", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "archive is empty")

	out, err = run(t, "archive", "save", ws, "--name", "benzene")
	require.NoError(t, err)
	assert.Contains(t, out, "saved snapshot 1")

	out, err = run(t, "archive", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "benzene")
	assert.Contains(t, out, "spec.png")

	out, err = run(t, "archive", "show", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "CHCl3")
	assert.Contains(t, out, "7.26")
	assert.Contains(t, out, "aromatic")

	exported := filepath.Join(dir, "back.json")
	_, err = run(t, "archive", "export", "1", "--out", exported)
	require.NoError(t, err)
	f, err := project.Load(exported)
	require.NoError(t, err)
	assert.Equal(t, "benzene", f.Name)
	require.Len(t, f.Workspace.Peaks, 1)

	_, err = run(t, "archive", "delete", "1")
	require.NoError(t, err)
	_, err = run(t, "archive", "show", "1")
	assert.ErrorIs(t, err, archive.ErrNotFound)

	_, err = run(t, "archive", "show", "x")
	assert.Error(t, err)
}

func TestAskCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ask":
			var req qa.AskRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "where is chloroform", req.Question)
			json.NewEncoder(w).Encode(qa.AskResponse{
				Answer:   "Around 7.26 ppm.",
				Contexts: []qa.Context{{StoredFilename: "shifts.pdf", ChunkID: 3, Score: 0.91, Snippet: "CDCl3\nresidual  7.26"}},
			})
		case "/search":
			json.NewEncoder(w).Encode(qa.SearchResponse{
				Q: r.URL.Query().Get("q"), K: 2,
				Results: []qa.SearchResult{{StoredFilename: "shifts.pdf", ChunkID: 1, Score: 0.5, Text: "TMS reference"}},
			})
		case "/uploads":
			json.NewEncoder(w).Encode(qa.UploadList{Count: 1, Items: []qa.Upload{{StoredFilename: "shifts.pdf", Bytes: 2048}}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	out, err := run(t, "ask", "--url", srv.URL, "where", "is", "chloroform")
	require.NoError(t, err)
	assert.Contains(t, out, "Around 7.26 ppm.")
	assert.Contains(t, out, "shifts.pdf")
	assert.Contains(t, out, "CDCl3 residual 7.26")

	out, err = run(t, "ask", "--url", srv.URL, "--search", "-k", "2", "tms")
	require.NoError(t, err)
	assert.Contains(t, out, "TMS reference")

	out, err = run(t, "uploads", "--url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "1 documents")
	assert.Contains(t, out, "2048")
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "a b", oneLine(" a\n b ", 10))
	assert.Equal(t, "abcd…", oneLine("abcdefgh", 5))
}
