package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nmr-annotator/internal/app"
)

var watchCmd = &cobra.Command{
	Use:   "watch FILE",
	Short: "Re-pick peaks whenever a trace file changes",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watchTrace(ctx, cmd, args[0])
}

// watchTrace prints the peaks of path now and after every change until
// ctx ends.
func watchTrace(ctx context.Context, cmd *cobra.Command, path string) error {
	report := func(p string) {
		if err := runPeaks(cmd, []string{p}); err != nil {
			logger.Warn("peak picking failed", zap.String("path", p), zap.Error(err))
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", warnStyle.Render("error:"), err)
		}
	}

	w, err := app.NewSourceWatcher(path, cfg.Watch.Debounce, report, logger.Named("watch"))
	if err != nil {
		return err
	}
	defer w.Close()

	report(path)
	<-ctx.Done()
	return nil
}
