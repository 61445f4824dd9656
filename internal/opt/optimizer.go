package opt

import (
	"context"
	"fmt"
)

// Optimizer defines a derivative-free minimisation algorithm.
type Optimizer interface {
	// Run minimises eval inside the box [lower, upper]. The dimension is
	// len(lower). Returns the best parameters and their cost.
	Run(ctx context.Context, eval func([]float64) float64, lower, upper []float64) ([]float64, float64, error)
}

func checkBounds(lower, upper []float64) error {
	if len(lower) == 0 {
		return fmt.Errorf("bounds must have at least one dimension")
	}
	if len(lower) != len(upper) {
		return fmt.Errorf("bounds length mismatch: lower %d, upper %d", len(lower), len(upper))
	}
	for i := range lower {
		if !(lower[i] < upper[i]) {
			return fmt.Errorf("empty bounds in dimension %d: [%g, %g]", i, lower[i], upper[i])
		}
	}
	return nil
}
