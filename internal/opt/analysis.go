package opt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cwbudde/analysisexchange/internal/analysis"
)

// DirectAnalysis evaluates the requested quantities at the parameters held by
// r and marks what it computed as calculated. Failures the analysis can
// describe go into the error code of r; the returned error is for failures
// that prevent any answer at all.
type DirectAnalysis interface {
	Analyse(ctx context.Context, r *analysis.Result) error
}

// AnalysisFunc adapts a function to DirectAnalysis.
type AnalysisFunc func(ctx context.Context, r *analysis.Result) error

func (f AnalysisFunc) Analyse(ctx context.Context, r *analysis.Result) error {
	return f(ctx, r)
}

// Analysis is the optimizer's handle on a direct analysis. It fixes the
// problem dimensions and counts evaluations. All methods are safe for
// concurrent use.
type Analysis struct {
	mu          sync.Mutex
	name        string
	direct      DirectAnalysis
	numParams   int
	numCons     int
	numEq       int
	evaluations int
	failures    int
}

// NewAnalysis validates the dimensions and returns an Analysis.
func NewAnalysis(name string, direct DirectAnalysis, numParameters, numConstraints, numEqualityConstraints int) (*Analysis, error) {
	if direct == nil {
		return nil, fmt.Errorf("direct analysis cannot be nil")
	}
	// reuse the dimension rules of the result type
	if _, err := analysis.NewWithDimensions(numParameters, numConstraints, numEqualityConstraints); err != nil {
		return nil, err
	}
	return &Analysis{
		name:      name,
		direct:    direct,
		numParams: numParameters,
		numCons:   numConstraints,
		numEq:     numEqualityConstraints,
	}, nil
}

func (a *Analysis) Name() string {
	return a.name
}

func (a *Analysis) Dimensions() (numParameters, numConstraints, numEqualityConstraints int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.numParams, a.numCons, a.numEq
}

// Evaluations returns the number of completed calls and how many of them
// failed.
func (a *Analysis) Evaluations() (total, failed int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.evaluations, a.failures
}

// NewResult returns an empty result with the analysis dimensions.
func (a *Analysis) NewResult() (*analysis.Result, error) {
	p, c, eq := a.Dimensions()
	return analysis.NewWithDimensions(p, c, eq)
}

// Evaluate runs the direct analysis at params for the requested quantities.
// The result is returned even when the analysis reports a failure through
// its error code; an error is returned when the analysis fails outright or
// leaves requested quantities uncalculated without an error code.
func (a *Analysis) Evaluate(ctx context.Context, params []float64, req analysis.Quantity) (*analysis.Result, error) {
	r, err := a.NewResult()
	if err != nil {
		return nil, err
	}
	if len(params) != r.NumParameters() {
		return nil, analysis.Errorf(analysis.InvalidArgument, "Evaluate", "expected %d parameters, got %d", r.NumParameters(), len(params))
	}
	if err := r.SetParameters(params); err != nil {
		return nil, err
	}
	r.SetRequested(req, true)
	r.PrepareResultStorage(true)

	start := time.Now()
	err = a.direct.Analyse(ctx, r)
	evaluationDuration.WithLabelValues(a.name).Observe(time.Since(start).Seconds())

	status := "ok"
	switch {
	case err != nil:
		status = "error"
	case r.Failed():
		status = "failed"
	case !r.Calculated():
		status = "error"
		err = analysis.Errorf(analysis.InvalidState, "Evaluate", "analysis %s left %v uncalculated", a.name, r.Requested()&^r.CalculatedQuantities())
	}
	evaluations.WithLabelValues(a.name, status).Inc()

	a.mu.Lock()
	a.evaluations++
	if status != "ok" {
		a.failures++
	}
	a.mu.Unlock()

	if err != nil {
		slog.Debug("Evaluation failed", "analysis", a.name, "error", err)
		return r, fmt.Errorf("analysis %s failed: %w", a.name, err)
	}
	return r, nil
}
