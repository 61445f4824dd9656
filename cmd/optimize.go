package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwbudde/analysisexchange/internal/config"
	"github.com/cwbudde/analysisexchange/internal/protocol"
	"github.com/cwbudde/analysisexchange/internal/runner"
	"github.com/cwbudde/analysisexchange/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

var (
	optimizeFlags runFlags
	noTrace       bool
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize [flags] [-- command args...]",
	Short: "Minimize a problem with barrier penalties on its constraints",
	Long: `Runs mayfly optimization on objective + constraint penalties. The problem
is evaluated in process unless an analysis command is given after "--"; the
command is then run once per evaluation with a request file and a result file
appended to its arguments.

Every evaluation is recorded in a JSONL trace and the best point is stored as
a snapshot under the data directory, ready for "results" and "resume".`,
	RunE: runOptimize,
}

func init() {
	optimizeFlags.register(optimizeCmd)
	optimizeCmd.Flags().BoolVar(&noTrace, "no-trace", false, "Do not record the evaluation trace")
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	c := *cfg
	optimizeFlags.apply(cmd, &c)
	if command := commandArgs(cmd, args); len(command) > 0 {
		c.Exchange.Command = command
	}

	run, err := runner.New(uuid.New().String(), c.RunConfig())
	if err != nil {
		return err
	}
	runStore, err := openStore(&c)
	if err != nil {
		return err
	}
	defer runStore.Close()
	return executeRun(cmd.Context(), run, runStore)
}

func openStore(c *config.Config) (store.Store, error) {
	runStore, err := store.Open(c.Store.Backend, c.Store.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return runStore, nil
}

// executeRun runs to completion or until interrupted, then stores the
// snapshot and prints a summary.
func executeRun(ctx context.Context, run *runner.Run, runStore store.Store) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var trace *store.TraceWriter
	if !noTrace {
		var err error
		trace, err = store.NewTraceWriter(runStore.BaseDir(), run.ID, false)
		if err != nil {
			return err
		}
		defer trace.Close()
	}

	every := rate.Sometimes{Interval: 2 * time.Second}
	progress := func(p runner.Progress) {
		every.Do(func() { logProgress(run.ID, p) })
	}

	start := time.Now()
	sol, err := run.Execute(ctx, trace, progress)
	if err != nil {
		return fmt.Errorf("run %s failed: %w", run.ID, err)
	}

	if err := runStore.SaveSnapshot(run.ID, run.Snapshot(sol)); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	fmt.Printf("Run %s (%s, %s)\n", run.ID, run.Problem.Name, run.Analysis.Name())
	fmt.Printf("  Parameters: %v\n", sol.Parameters)
	fmt.Printf("  Merit: %s (penalty %s)\n", protocol.FormatFloat(sol.Merit), protocol.FormatFloat(sol.Penalty))
	fmt.Printf("  Max residual: %s, feasible: %t\n", protocol.FormatFloat(sol.MaxResidual), sol.Feasible)
	fmt.Printf("  Evaluations: %d in %s\n", sol.Evaluations, time.Since(start).Round(time.Millisecond))
	if trace != nil {
		fmt.Printf("  Trace: %s\n", trace.Path())
	}
	return nil
}

// logProgress reports a run's progress. Evaluation indices count from 1.
func logProgress(runID string, p runner.Progress) {
	slog.Info("Progress", "runID", runID, "evaluations", p.Evaluation.Index, "bestMerit", p.BestMerit)
}
