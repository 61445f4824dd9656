package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/cwbudde/analysisexchange/internal/exchange"
	"github.com/cwbudde/analysisexchange/internal/opt"
	"github.com/cwbudde/analysisexchange/internal/problems"
	"github.com/spf13/cobra"
)

var evalProblem string

var evalCmd = &cobra.Command{
	Use:   "eval <request-file> [result-file]",
	Short: "Answer one request file with a built-in problem",
	Long: `Reads a request file, evaluates the requested quantities with a built-in
problem and writes the result file. This is the analysis side of the file
protocol, so the command can serve as the external program of "optimize":

  analysisexchange optimize --problem rosenbrock -- analysisexchange eval --problem rosenbrock

The result file defaults to the request file with the .res suffix. An
analysis failure is reported through the error code of the result file.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runEval,
}

func init() {
	evalCmd.Flags().StringVar(&evalProblem, "problem", "", "Built-in problem (default from config)")
	rootCmd.AddCommand(evalCmd)
}

// newProcessor builds a processor for the named built-in problem.
func newProcessor(name string) (*exchange.Processor, error) {
	problem, err := problems.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("%w (known: %s)", err, strings.Join(problems.Names(), ", "))
	}
	an, err := opt.NewAnalysis(problem.Name, problem, problem.NumParameters(), problem.NumConstraints(), problem.NumEqualityConstraints())
	if err != nil {
		return nil, err
	}
	return &exchange.Processor{Analysis: an}, nil
}

func runEval(cmd *cobra.Command, args []string) error {
	name := cfg.Problem.Name
	if evalProblem != "" {
		name = evalProblem
	}
	processor, err := newProcessor(name)
	if err != nil {
		return err
	}

	requestPath := args[0]
	resultPath := exchange.ResultPath(requestPath)
	if len(args) == 2 {
		resultPath = args[1]
	}
	if err := os.Remove(resultPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove old result file: %w", err)
	}

	err = processor.ProcessFile(context.Background(), requestPath, resultPath)
	if err == nil {
		return nil
	}
	if _, statErr := os.Stat(resultPath); statErr != nil {
		return err
	}
	slog.Warn("Analysis failed", "problem", name, "request", requestPath, "error", err)
	return nil
}
