package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"nmr-annotator/internal/archive"
	"nmr-annotator/internal/project"
)

var (
	archivePath string
	archiveName string
	archiveOut  string
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Keep exported workspaces in a local SQLite archive",
}

var archiveSaveCmd = &cobra.Command{
	Use:   "save WORKSPACE.json",
	Short: "Store an exported workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchiveSave,
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived workspaces, newest first",
	Args:  cobra.NoArgs,
	RunE:  runArchiveList,
}

var archiveShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show the peaks of an archived workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchiveShow,
}

var archiveExportCmd = &cobra.Command{
	Use:   "export ID",
	Short: "Write an archived workspace back to a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchiveExport,
}

var archiveDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Remove an archived workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchiveDelete,
}

func init() {
	archiveCmd.PersistentFlags().StringVar(&archivePath, "db", "", "Archive database (default from config)")
	archiveSaveCmd.Flags().StringVar(&archiveName, "name", "", "Name stored with the snapshot")
	archiveExportCmd.Flags().StringVarP(&archiveOut, "out", "o", "", "Output file (required)")
	archiveExportCmd.MarkFlagRequired("out")

	archiveCmd.AddCommand(archiveSaveCmd, archiveListCmd, archiveShowCmd, archiveExportCmd, archiveDeleteCmd)
}

func openArchive(ctx context.Context) (*archive.Store, error) {
	path := archivePath
	if path == "" {
		path = cfg.Archive.Path
	}
	return archive.Open(ctx, path, logger.Named("archive"))
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid snapshot id %q", s)
	}
	return id, nil
}

func runArchiveSave(cmd *cobra.Command, args []string) error {
	f, err := project.Load(args[0])
	if err != nil {
		return err
	}
	if archiveName != "" {
		f.Name = archiveName
	}

	store, err := openArchive(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.Save(cmd.Context(), f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "saved snapshot %d\n", id)
	return nil
}

func runArchiveList(cmd *cobra.Command, args []string) error {
	store, err := openArchive(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("archive is empty"))
		return nil
	}

	t := newTable("", "id", "name", "spectrum", "structure", "mode", "peaks", "markers", "calibrated", "exported")
	for _, e := range entries {
		t.add(
			strconv.FormatInt(e.ID, 10),
			e.Name,
			e.Spectrum,
			e.Structure,
			e.Mode,
			strconv.Itoa(e.Peaks),
			strconv.Itoa(e.Markers),
			strconv.FormatBool(e.Calibrated),
			e.ExportedAt.Local().Format(time.DateTime),
		)
	}
	return t.write(cmd.OutOrStdout())
}

func runArchiveShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	store, err := openArchive(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	f, err := store.Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	title := fmt.Sprintf("#%d %s", id, f.Name)
	return writeWorkspace(cmd.OutOrStdout(), title, f.Workspace)
}

func runArchiveExport(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	store, err := openArchive(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	f, err := store.Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	if err := f.Save(archiveOut); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", archiveOut)
	return nil
}

func runArchiveDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	store, err := openArchive(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted snapshot %d\n", id)
	return nil
}
