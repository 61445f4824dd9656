package main

import (
	"github.com/cwbudde/analysisexchange/internal/config"
	"github.com/spf13/cobra"
)

// runFlags are the optimization settings that may override the config file.
type runFlags struct {
	problem     string
	iters       int
	popSize     int
	seed        int64
	dataDir     string
	exchangeDir string
	keepFiles   bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.problem, "problem", "", "Built-in problem providing dimensions and bounds")
	cmd.Flags().IntVar(&f.iters, "iters", 0, "Max iterations")
	cmd.Flags().IntVar(&f.popSize, "pop", 0, "Population size (at least 20)")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Random seed")
	cmd.Flags().StringVar(&f.dataDir, "data-dir", "", "Base directory for snapshots and traces")
	cmd.Flags().StringVar(&f.exchangeDir, "exchange-dir", "", "Directory for request and result files of an external analysis")
	cmd.Flags().BoolVar(&f.keepFiles, "keep-files", false, "Keep exchange files after each evaluation")
}

// apply copies the flags that were set on the command line into c.
func (f *runFlags) apply(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("problem") {
		c.Problem.Name = f.problem
		// bounds in the config belong to the configured problem
		c.Problem.Lower, c.Problem.Upper = nil, nil
	}
	if flags.Changed("iters") {
		c.Optimizer.Iterations = f.iters
	}
	if flags.Changed("pop") {
		c.Optimizer.Population = f.popSize
	}
	if flags.Changed("seed") {
		c.Optimizer.Seed = f.seed
	}
	if flags.Changed("data-dir") {
		c.Store.DataDir = f.dataDir
	}
	if flags.Changed("exchange-dir") {
		c.Exchange.Dir = f.exchangeDir
	}
	if flags.Changed("keep-files") {
		c.Exchange.KeepFiles = f.keepFiles
	}
}

// commandArgs returns the analysis command given after "--", if any.
func commandArgs(cmd *cobra.Command, args []string) []string {
	if at := cmd.ArgsLenAtDash(); at >= 0 {
		return args[at:]
	}
	return nil
}
