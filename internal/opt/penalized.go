package opt

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/cwbudde/analysisexchange/internal/analysis"
	"github.com/cwbudde/analysisexchange/internal/penalty"
)

// Evaluation is one merit evaluation seen during a minimisation. Index counts
// evaluations from 1.
type Evaluation struct {
	Index      int
	Parameters []float64
	Objective  float64
	Penalty    float64
	Merit      float64
	Err        error
}

// Solution is the outcome of MinimizePenalized.
type Solution struct {
	Parameters []float64
	Merit      float64
	Penalty    float64
	// Result holds objective and constraints re-evaluated at Parameters.
	Result      *analysis.Result
	Evaluations int
	// MaxResidual is the largest constraint violation at Parameters.
	MaxResidual float64
	Feasible    bool
}

// Penalized turns a constrained analysis into an unconstrained merit
// function: objective plus the sum of constraint penalties.
type Penalized struct {
	Analysis *Analysis
	Penalty  *penalty.Evaluator

	// EqualityTolerance is used for the feasibility report of the solution.
	EqualityTolerance float64

	// Observe, when set, is called after every merit evaluation. Calls are
	// serialised.
	Observe func(Evaluation)

	mu    sync.Mutex
	count int
}

// Merit evaluates objective + penalties at params. Any failure, including a
// nonzero analysis error code, gives +Inf so the optimizer moves away.
func (p *Penalized) Merit(ctx context.Context, params []float64) float64 {
	ev := Evaluation{Parameters: append([]float64(nil), params...), Merit: math.Inf(1)}

	r, err := p.Analysis.Evaluate(ctx, params, analysis.Objective|analysis.Constraints)
	if err == nil && r.Failed() {
		err = fmt.Errorf("analysis reported error code %d: %s", r.ErrorCode(), r.ErrorString())
	}
	if err == nil {
		ev.Objective = r.Objective()
		ev.Penalty, err = p.Penalty.SumPenaltyTerms(r)
	}
	if err == nil {
		ev.Merit = ev.Objective + ev.Penalty
		if math.IsNaN(ev.Merit) {
			ev.Merit = math.Inf(1)
		}
	}
	ev.Err = err

	p.mu.Lock()
	p.count++
	ev.Index = p.count
	if p.Observe != nil {
		p.Observe(ev)
	}
	p.mu.Unlock()

	return ev.Merit
}

// MinimizePenalized runs o on the penalized merit of a inside the box
// [lower, upper] and re-evaluates the best point.
func MinimizePenalized(ctx context.Context, o Optimizer, p *Penalized, lower, upper []float64) (*Solution, error) {
	if p.Analysis == nil || p.Penalty == nil {
		return nil, fmt.Errorf("penalized problem needs an analysis and a penalty evaluator")
	}
	n, _, _ := p.Analysis.Dimensions()
	if len(lower) != n {
		return nil, fmt.Errorf("bounds have %d dimensions, analysis has %d parameters", len(lower), n)
	}

	best, merit, err := o.Run(ctx, func(x []float64) float64 { return p.Merit(ctx, x) }, lower, upper)
	if err != nil {
		return nil, fmt.Errorf("optimization failed: %w", err)
	}
	bestMerit.WithLabelValues(p.Analysis.Name()).Set(merit)

	r, err := p.Analysis.Evaluate(ctx, best, analysis.Objective|analysis.Constraints)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate solution: %w", err)
	}
	pen, err := p.Penalty.SumPenaltyTerms(r)
	if err != nil {
		return nil, err
	}
	residual, err := r.MaximalResidual(p.EqualityTolerance)
	if err != nil {
		return nil, err
	}
	violated, err := r.NumViolatedConstraints(p.EqualityTolerance)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	count := p.count
	p.mu.Unlock()

	slog.Info("Minimization finished", "analysis", p.Analysis.Name(), "merit", merit, "objective", r.Objective(),
		"penalty", pen, "maxResidual", residual, "evaluations", count)

	return &Solution{
		Parameters:  best,
		Merit:       merit,
		Penalty:     pen,
		Result:      r,
		Evaluations: count,
		MaxResidual: residual,
		Feasible:    violated == 0,
	}, nil
}
