package opt

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// MayflyAdapter wraps the external Mayfly library to conform to our Optimizer interface
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly creates a new Mayfly optimizer adapter
func NewMayfly(maxIters, popSize int, seed int64) *MayflyAdapter {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
	}
}

// Run executes the Mayfly optimization using the external library.
//
// The library only knows one scalar bound for all dimensions, so the search
// runs in the unit cube and each position is mapped onto [lower, upper]
// before evaluation. Once ctx is done every further evaluation returns +Inf
// and Run reports the context error.
func (m *MayflyAdapter) Run(ctx context.Context, eval func([]float64) float64, lower, upper []float64) ([]float64, float64, error) {
	if err := checkBounds(lower, upper); err != nil {
		return nil, 0, err
	}
	dim := len(lower)

	scale := func(u []float64) []float64 {
		x := make([]float64, dim)
		for i, v := range u {
			v = math.Min(math.Max(v, 0), 1)
			x[i] = lower[i] + v*(upper[i]-lower[i])
		}
		return x
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = func(u []float64) float64 {
		if ctx.Err() != nil {
			return math.Inf(1)
		}
		return eval(scale(u))
	}
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.LowerBound = 0
	config.UpperBound = 1
	config.Rand = rand.New(rand.NewSource(m.seed))

	slog.Debug("Starting mayfly", "dim", dim, "iters", m.maxIters, "pop", m.popSize, "seed", m.seed)
	result, err := mayfly.Optimize(config)
	if err != nil {
		return nil, 0, fmt.Errorf("mayfly optimization failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	return scale(result.GlobalBest.Position), result.GlobalBest.Cost, nil
}

var _ Optimizer = (*MayflyAdapter)(nil)
