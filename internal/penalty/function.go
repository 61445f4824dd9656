// Package penalty maps constraint infeasibility to penalty terms so that a
// constrained problem can be scored by a single unconstrained merit value.
package penalty

import (
	"math"

	"github.com/cwbudde/analysisexchange/internal/analysis"
)

// Function is a scalar penalty function of the infeasibility magnitude.
// Each of the three evaluations may be undefined for a given variant.
type Function interface {
	Value(x float64) float64
	Derivative(x float64) float64
	SecondDerivative(x float64) float64

	ValueDefined() bool
	DerivativeDefined() bool
	SecondDerivativeDefined() bool
}

// Tunable is implemented by penalty functions whose barrier parameters can be
// changed after construction. Each setter is only valid when its CanSet
// counterpart reports true.
type Tunable interface {
	BarrierLength() float64
	BarrierHeight() float64
	MaxZero() float64

	CanSetBarrierLength() bool
	CanSetBarrierHeight() bool
	CanSetMaxZero() bool

	SetBarrierLength(length float64) error
	SetBarrierHeight(height float64) error
	SetMaxZero(x float64) error
}

// barrierPower is the exponent of the default barrier. The value and its
// first two derivatives are zero at the zero end, so the penalty joins the
// feasible region with continuous second derivative.
const barrierPower = 3

// PowerBarrier is zero up to MaxZero and rises as a cubic afterwards,
// reaching BarrierHeight at MaxZero + BarrierLength:
//
//	p(x) = h * ((x - x0) / l)^3   for x > x0
type PowerBarrier struct {
	length  float64
	height  float64
	zeroEnd float64
}

// NewPowerBarrier creates the default penalty function. Length and height
// must be positive.
func NewPowerBarrier(length, height, zeroEnd float64) (*PowerBarrier, error) {
	b := &PowerBarrier{}
	if err := b.SetMaxZero(zeroEnd); err != nil {
		return nil, err
	}
	if err := b.SetBarrierLength(length); err != nil {
		return nil, err
	}
	if err := b.SetBarrierHeight(height); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *PowerBarrier) t(x float64) float64 {
	return (x - b.zeroEnd) / b.length
}

func (b *PowerBarrier) Value(x float64) float64 {
	t := b.t(x)
	if t <= 0 {
		return 0
	}
	return b.height * t * t * t
}

func (b *PowerBarrier) Derivative(x float64) float64 {
	t := b.t(x)
	if t <= 0 {
		return 0
	}
	return barrierPower * b.height * t * t / b.length
}

func (b *PowerBarrier) SecondDerivative(x float64) float64 {
	t := b.t(x)
	if t <= 0 {
		return 0
	}
	return barrierPower * (barrierPower - 1) * b.height * t / (b.length * b.length)
}

func (b *PowerBarrier) ValueDefined() bool            { return true }
func (b *PowerBarrier) DerivativeDefined() bool       { return true }
func (b *PowerBarrier) SecondDerivativeDefined() bool { return true }

func (b *PowerBarrier) BarrierLength() float64 { return b.length }
func (b *PowerBarrier) BarrierHeight() float64 { return b.height }
func (b *PowerBarrier) MaxZero() float64       { return b.zeroEnd }

func (b *PowerBarrier) CanSetBarrierLength() bool { return true }
func (b *PowerBarrier) CanSetBarrierHeight() bool { return true }
func (b *PowerBarrier) CanSetMaxZero() bool       { return true }

func (b *PowerBarrier) SetBarrierLength(length float64) error {
	if !(length > 0) || math.IsInf(length, 1) {
		return analysis.Errorf(analysis.InvalidArgument, "SetBarrierLength", "barrier length must be positive and finite, got %g", length)
	}
	b.length = length
	return nil
}

func (b *PowerBarrier) SetBarrierHeight(height float64) error {
	if !(height > 0) || math.IsInf(height, 1) {
		return analysis.Errorf(analysis.InvalidArgument, "SetBarrierHeight", "barrier height must be positive and finite, got %g", height)
	}
	b.height = height
	return nil
}

func (b *PowerBarrier) SetMaxZero(x float64) error {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return analysis.Errorf(analysis.InvalidArgument, "SetMaxZero", "zero end must be finite, got %g", x)
	}
	b.zeroEnd = x
	return nil
}

// Func adapts plain functions to Function. A nil field is undefined; calling
// it yields NaN. Func has no tunable barrier parameters.
type Func struct {
	F   func(float64) float64
	DF  func(float64) float64
	D2F func(float64) float64
}

func (f Func) Value(x float64) float64            { return call(f.F, x) }
func (f Func) Derivative(x float64) float64       { return call(f.DF, x) }
func (f Func) SecondDerivative(x float64) float64 { return call(f.D2F, x) }
func (f Func) ValueDefined() bool                 { return f.F != nil }
func (f Func) DerivativeDefined() bool            { return f.DF != nil }
func (f Func) SecondDerivativeDefined() bool      { return f.D2F != nil }

func call(fn func(float64) float64, x float64) float64 {
	if fn == nil {
		return math.NaN()
	}
	return fn(x)
}

var (
	_ Function = (*PowerBarrier)(nil)
	_ Tunable  = (*PowerBarrier)(nil)
	_ Function = Func{}
)
