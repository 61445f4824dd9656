// Package runner assembles a penalized optimization from a run configuration:
// the problem, its analysis (built-in or external), the penalty evaluator and
// the optimizer.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"time"

	"github.com/cwbudde/analysisexchange/internal/exchange"
	"github.com/cwbudde/analysisexchange/internal/opt"
	"github.com/cwbudde/analysisexchange/internal/penalty"
	"github.com/cwbudde/analysisexchange/internal/problems"
	"github.com/cwbudde/analysisexchange/internal/store"
)

// Run is one prepared optimization.
type Run struct {
	ID     string
	Config store.RunConfig

	Problem   *problems.Problem
	Analysis  *opt.Analysis
	Penalized *opt.Penalized
	Optimizer opt.Optimizer

	// Lower and Upper are the search box.
	Lower, Upper []float64
}

// Progress is reported after every merit evaluation.
type Progress struct {
	Evaluation opt.Evaluation
	BestMerit  float64
}

// New validates config and builds the run.
func New(id string, config store.RunConfig) (*Run, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run config: %w", err)
	}
	problem, err := problems.Lookup(config.Problem)
	if err != nil {
		return nil, err
	}

	var direct opt.DirectAnalysis = problem
	name := problem.Name
	if len(config.Command) > 0 {
		direct = &exchange.External{
			Command:    config.Command[0],
			Args:       config.Command[1:],
			Dir:        config.ExchangeDir,
			ClientData: id,
			KeepFiles:  config.KeepFiles,
		}
		name = filepath.Base(config.Command[0])
	}

	an, err := opt.NewAnalysis(name, direct, problem.NumParameters(), problem.NumConstraints(), problem.NumEqualityConstraints())
	if err != nil {
		return nil, err
	}

	pen, err := penalty.NewDefaultEvaluator(config.BarrierLength, config.BarrierHeight, config.BarrierZero)
	if err != nil {
		return nil, fmt.Errorf("failed to create penalty evaluator: %w", err)
	}
	for _, o := range config.Overrides {
		if o.Constraint >= problem.NumConstraints() {
			return nil, fmt.Errorf("penalty override for constraint %d, problem %s has %d constraints",
				o.Constraint, problem.Name, problem.NumConstraints())
		}
		if err := pen.SetPenaltyFunctionWithZero(o.Constraint, o.Length, o.Height, o.Zero); err != nil {
			return nil, fmt.Errorf("failed to set penalty of constraint %d: %w", o.Constraint, err)
		}
	}

	lower, upper := problem.Lower, problem.Upper
	if len(config.Lower) > 0 {
		if len(config.Lower) != problem.NumParameters() {
			return nil, fmt.Errorf("bounds have %d dimensions, problem %s has %d parameters",
				len(config.Lower), problem.Name, problem.NumParameters())
		}
		lower, upper = config.Lower, config.Upper
	}

	return &Run{
		ID:        id,
		Config:    config,
		Problem:   problem,
		Analysis:  an,
		Penalized: &opt.Penalized{Analysis: an, Penalty: pen, EqualityTolerance: config.EqualityTolerance},
		Optimizer: opt.NewMayfly(config.Iters, config.PopSize, config.Seed),
		Lower:     append([]float64(nil), lower...),
		Upper:     append([]float64(nil), upper...),
	}, nil
}

// Narrow shrinks the search box to a box around center whose width is
// fraction of the current width in every dimension, clipped to the current
// box. Used to restart near a saved point.
func (r *Run) Narrow(center []float64, fraction float64) error {
	if len(center) != len(r.Lower) {
		return fmt.Errorf("center has %d dimensions, run has %d", len(center), len(r.Lower))
	}
	if !(fraction > 0 && fraction <= 1) {
		return fmt.Errorf("fraction must be in (0, 1], got %g", fraction)
	}
	for i, c := range center {
		half := fraction * (r.Upper[i] - r.Lower[i]) / 2
		lo := math.Max(r.Lower[i], c-half)
		hi := math.Min(r.Upper[i], c+half)
		if !(lo < hi) {
			return fmt.Errorf("center %g lies outside [%g, %g] in dimension %d", c, r.Lower[i], r.Upper[i], i)
		}
		r.Lower[i], r.Upper[i] = lo, hi
	}
	return nil
}

// Execute runs the optimization. Every evaluation is appended to trace when
// it is not nil and passed to progress when that is not nil.
func (r *Run) Execute(ctx context.Context, trace *store.TraceWriter, progress func(Progress)) (*opt.Solution, error) {
	best := math.Inf(1)
	r.Penalized.Observe = func(ev opt.Evaluation) {
		best = math.Min(best, ev.Merit)
		if trace != nil {
			entry := store.TraceEntry{
				Evaluation: ev.Index,
				Merit:      store.Finite(ev.Merit),
				Best:       store.Finite(best),
				Timestamp:  time.Now(),
				Params:     ev.Parameters,
			}
			if ev.Err != nil {
				entry.Error = ev.Err.Error()
			} else {
				entry.Objective = store.Finite(ev.Objective)
				entry.Penalty = store.Finite(ev.Penalty)
			}
			if err := trace.Write(entry); err != nil {
				slog.Warn("Failed to write trace entry", "runID", r.ID, "error", err)
			}
		}
		if progress != nil {
			progress(Progress{Evaluation: ev, BestMerit: best})
		}
	}

	slog.Info("Starting run", "runID", r.ID, "problem", r.Problem.Name, "analysis", r.Analysis.Name(),
		"iters", r.Config.Iters, "popSize", r.Config.PopSize)
	start := time.Now()

	sol, err := opt.MinimizePenalized(ctx, r.Optimizer, r.Penalized, r.Lower, r.Upper)
	if trace != nil {
		if ferr := trace.Flush(); ferr != nil {
			slog.Warn("Failed to flush trace", "runID", r.ID, "error", ferr)
		}
	}
	if err != nil {
		return nil, err
	}

	slog.Info("Run completed", "runID", r.ID, "elapsed", time.Since(start), "merit", sol.Merit,
		"feasible", sol.Feasible, "evaluations", sol.Evaluations)
	return sol, nil
}

// Snapshot captures a solution of the run for the store.
func (r *Run) Snapshot(sol *opt.Solution) *store.Snapshot {
	return store.NewSnapshot(r.ID, sol.Parameters, sol.Merit, sol.Penalty, sol.MaxResidual,
		sol.Feasible, sol.Evaluations, sol.Result, r.Config)
}
