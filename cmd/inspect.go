package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/analysisexchange/internal/protocol"
	"github.com/cwbudde/analysisexchange/internal/runner"
	"github.com/spf13/cobra"
)

var (
	inspectProblem   string
	inspectTolerance float64
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <result-file>",
	Short: "Summarize constraint violations and penalties of a result file",
	Long: `Loads a result file written for the given problem and prints the objective,
each constraint with its residual and penalty term, and the totals the
optimizer would see. Penalties use the barrier settings of the config.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectProblem, "problem", "", "Built-in problem the result belongs to (default from config)")
	inspectCmd.Flags().Float64Var(&inspectTolerance, "tolerance", -1, "Equality tolerance (default from config)")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	runCfg := cfg.RunConfig()
	if inspectProblem != "" {
		runCfg.Problem = inspectProblem
		runCfg.Lower, runCfg.Upper, runCfg.Overrides = nil, nil, nil
	}
	tol := runCfg.EqualityTolerance
	if inspectTolerance >= 0 {
		tol = inspectTolerance
	}

	run, err := runner.New("inspect", runCfg)
	if err != nil {
		return err
	}
	r, err := run.Analysis.NewResult()
	if err != nil {
		return err
	}
	if err := protocol.LoadMath(args[0], r); err != nil {
		return fmt.Errorf("failed to load result: %w", err)
	}

	fmt.Printf("Problem: %s\n", run.Problem.Name)
	fmt.Printf("Parameters: %v\n", r.Parameters())
	fmt.Printf("Error code: %d\n", r.ErrorCode())
	fmt.Printf("Objective: %s\n", protocol.FormatFloat(r.Objective()))
	if r.NumConstraints() == 0 {
		return nil
	}

	terms, err := run.Penalized.Penalty.PenaltyTerms(r)
	if err != nil {
		return fmt.Errorf("failed to evaluate penalties: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nCONSTRAINT\tKIND\tVALUE\tVIOLATED\tPENALTY")
	fmt.Fprintln(w, "----------\t----\t-----\t--------\t-------")
	for k := 0; k < r.NumConstraints(); k++ {
		eq, err := r.IsEqualityConstraint(k)
		if err != nil {
			return err
		}
		value, err := r.Constraint(k)
		if err != nil {
			return err
		}
		violated, err := r.IsViolated(k, tol)
		if err != nil {
			return err
		}
		kind := "c <= 0"
		if eq {
			kind = "c = 0"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%s\n", k, kind, protocol.FormatFloat(value), violated, protocol.FormatFloat(terms[k]))
	}
	w.Flush()

	violated, err := r.NumViolatedConstraints(tol)
	if err != nil {
		return err
	}
	sum, err := r.SumResiduals(tol)
	if err != nil {
		return err
	}
	maxRes, err := r.MaximalResidual(tol)
	if err != nil {
		return err
	}
	var total float64
	for _, t := range terms {
		total += t
	}

	fmt.Printf("\nViolated: %d of %d\n", violated, r.NumConstraints())
	fmt.Printf("Sum of residuals: %s\n", protocol.FormatFloat(sum))
	fmt.Printf("Max residual: %s\n", protocol.FormatFloat(maxRes))
	fmt.Printf("Penalty: %s\n", protocol.FormatFloat(total))
	fmt.Printf("Merit: %s\n", protocol.FormatFloat(r.Objective()+total))
	return nil
}
