// Package problems holds built-in direct analyses: small test problems with
// closed-form objective, constraints and their derivatives. They are used by
// the CLI, the job server and the exchange watcher when no external analysis
// program is configured.
package problems

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/analysisexchange/internal/analysis"
)

// scalar is a function of the parameters with its derivatives. A nil hess
// means the Hessian is zero.
type scalar struct {
	f    func(x []float64) float64
	grad func(x []float64) []float64
	hess func(x []float64) *mat.Dense
}

func (s scalar) hessian(x []float64) *mat.Dense {
	if s.hess == nil {
		return mat.NewDense(len(x), len(x), nil)
	}
	return s.hess(x)
}

// Problem is a constrained minimisation problem. Equality constraints come
// last, matching the layout of analysis.Result.
type Problem struct {
	Name        string
	Description string

	// Lower and Upper bound the search box used by the optimizer.
	Lower, Upper []float64

	// Optimum is the known minimiser.
	Optimum []float64

	numEq       int
	objective   scalar
	constraints []scalar
}

func (p *Problem) NumParameters() int          { return len(p.Lower) }
func (p *Problem) NumConstraints() int         { return len(p.constraints) }
func (p *Problem) NumEqualityConstraints() int { return p.numEq }

// NewResult returns an empty result with the problem's dimensions.
func (p *Problem) NewResult() (*analysis.Result, error) {
	return analysis.NewWithDimensions(p.NumParameters(), p.NumConstraints(), p.numEq)
}

// Analyse computes every requested quantity at the parameters of r and marks
// it calculated.
func (p *Problem) Analyse(ctx context.Context, r *analysis.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	x := r.Parameters()
	if len(x) != p.NumParameters() {
		return analysis.Errorf(analysis.InvalidArgument, "Analyse", "%s expects %d parameters, got %d", p.Name, p.NumParameters(), len(x))
	}
	if r.NumConstraints() != p.NumConstraints() || r.NumEqualityConstraints() != p.numEq {
		if err := r.SetDimensions(p.NumParameters(), 1, p.NumConstraints(), p.numEq); err != nil {
			return err
		}
	}
	r.AllocateRequested()

	if r.IsRequested(analysis.Objective) {
		r.SetObjective(p.objective.f(x))
		r.SetCalculatedQuantity(analysis.Objective, true)
	}
	if r.IsRequested(analysis.ObjectiveGradient) {
		r.SetObjectiveGradient(p.objective.grad(x))
		r.SetCalculatedQuantity(analysis.ObjectiveGradient, true)
	}
	if r.IsRequested(analysis.ObjectiveHessian) {
		r.SetObjectiveHessian(p.objective.hessian(x))
		r.SetCalculatedQuantity(analysis.ObjectiveHessian, true)
	}

	for k, c := range p.constraints {
		if r.IsRequested(analysis.Constraints) {
			if err := r.SetConstraint(k, c.f(x)); err != nil {
				return err
			}
		}
		if r.IsRequested(analysis.ConstraintGradients) {
			if err := r.SetConstraintGradient(k, c.grad(x)); err != nil {
				return err
			}
		}
		if r.IsRequested(analysis.ConstraintHessians) {
			if err := r.SetConstraintHessian(k, c.hessian(x)); err != nil {
				return err
			}
		}
	}
	r.SetCalculatedQuantity(r.Requested()&(analysis.Constraints|analysis.ConstraintGradients|analysis.ConstraintHessians), true)

	slog.Debug("Problem analysed", "problem", p.Name, "requested", r.Requested().String())
	return nil
}

var registry = map[string]*Problem{}

func register(p *Problem) {
	registry[p.Name] = p
}

// Lookup returns the built-in problem with the given name.
func Lookup(name string) (*Problem, error) {
	p, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown problem %q (available: %v)", name, Names())
	}
	return p, nil
}

// Names lists the built-in problems in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func filled(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func scaledIdentity(n int, v float64) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, v)
	}
	return m
}

// sumSquares is the objective sum((x_i - c_i)^2).
func sumSquares(c []float64) scalar {
	c = slices.Clone(c)
	return scalar{
		f: func(x []float64) float64 {
			var sum float64
			for i, v := range x {
				d := v - c[i]
				sum += d * d
			}
			return sum
		},
		grad: func(x []float64) []float64 {
			g := make([]float64, len(x))
			for i, v := range x {
				g[i] = 2 * (v - c[i])
			}
			return g
		},
		hess: func(x []float64) *mat.Dense {
			return scaledIdentity(len(x), 2)
		},
	}
}

// linear is the constraint a·x + b.
func linear(a []float64, b float64) scalar {
	a = slices.Clone(a)
	return scalar{
		f: func(x []float64) float64 {
			return mat.Dot(mat.NewVecDense(len(a), a), mat.NewVecDense(len(x), x)) + b
		},
		grad: func(x []float64) []float64 {
			return slices.Clone(a)
		},
	}
}
