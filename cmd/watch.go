package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cwbudde/analysisexchange/internal/exchange"
	"github.com/spf13/cobra"
)

var (
	watchProblem string
	watchDir     string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Answer request files dropped into a directory",
	Long: `Watches a directory and answers every request file (*.req) with a result
file (*.res) computed by a built-in problem. Requests already present and not
yet answered are handled on startup.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchProblem, "problem", "", "Built-in problem (default from config)")
	watchCmd.Flags().StringVar(&watchDir, "dir", "", "Directory to watch (default: exchange dir from config)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	name := cfg.Problem.Name
	if watchProblem != "" {
		name = watchProblem
	}
	dir := cfg.Exchange.Dir
	if watchDir != "" {
		dir = watchDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create watch directory: %w", err)
	}

	processor, err := newProcessor(name)
	if err != nil {
		return err
	}
	watcher, err := exchange.NewWatcher(dir, processor)
	if err != nil {
		return err
	}
	defer watcher.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting watcher", "dir", dir, "problem", name)
	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	total, failed := processor.Analysis.Evaluations()
	slog.Info("Watcher stopped", "evaluations", total, "failed", failed)
	return nil
}
