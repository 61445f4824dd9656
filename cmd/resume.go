package main

import (
	"fmt"

	"github.com/cwbudde/analysisexchange/internal/runner"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	resumeFlags    runFlags
	resumeFraction float64
)

var resumeCmd = &cobra.Command{
	Use:   "resume <run-id>",
	Short: "Restart an optimization near a stored snapshot",
	Long: `Starts a new run with the settings of a stored run, searching a box around
its best point. The box spans the given fraction of the original bounds in
every dimension. Iterations, population and seed may be overridden.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeFlags.register(resumeCmd)
	// the problem comes from the snapshot
	resumeCmd.Flags().MarkHidden("problem")
	resumeCmd.Flags().Float64Var(&resumeFraction, "fraction", 0.25, "Width of the search box relative to the original bounds")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	c := *cfg
	resumeFlags.apply(cmd, &c)

	runStore, err := openStore(&c)
	if err != nil {
		return err
	}
	defer runStore.Close()
	snapshot, err := runStore.LoadSnapshot(args[0])
	if err != nil {
		return err
	}

	runCfg := snapshot.Config
	flags := cmd.Flags()
	if flags.Changed("iters") {
		runCfg.Iters = c.Optimizer.Iterations
	}
	if flags.Changed("pop") {
		runCfg.PopSize = c.Optimizer.Population
	}
	if flags.Changed("seed") {
		runCfg.Seed = c.Optimizer.Seed
	}
	if flags.Changed("exchange-dir") {
		runCfg.ExchangeDir = c.Exchange.Dir
	}
	if flags.Changed("keep-files") {
		runCfg.KeepFiles = c.Exchange.KeepFiles
	}
	if err := snapshot.IsCompatible(runCfg); err != nil {
		return err
	}

	run, err := runner.New(uuid.New().String(), runCfg)
	if err != nil {
		return err
	}
	if err := run.Narrow(snapshot.Parameters, resumeFraction); err != nil {
		return fmt.Errorf("failed to narrow bounds: %w", err)
	}
	fmt.Printf("Resuming %s from merit %g\n", snapshot.RunID, snapshot.Merit)
	return executeRun(cmd.Context(), run, runStore)
}
