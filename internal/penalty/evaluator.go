package penalty

import (
	"math"
	"sync"

	"github.com/cwbudde/analysisexchange/internal/analysis"
)

// Constraints is the view of an evaluation the evaluator needs.
// *analysis.Result implements it.
type Constraints interface {
	NumConstraints() int
	IsEqualityConstraint(k int) (bool, error)
	IsCalculated(q analysis.Quantity) bool
	Constraint(k int) (float64, error)
}

var _ Constraints = (*analysis.Result)(nil)

// Evaluator holds one penalty function per constraint. Slots may be left
// empty; with AllowSingleFunction the function in slot 0 serves every empty
// slot.
//
// The function list and the fallback switch are guarded by an internal lock,
// so an Evaluator may be configured and queried from several goroutines.
type Evaluator struct {
	mu          sync.Mutex
	functions   []Function
	allowSingle bool
}

// NewEvaluator returns an evaluator with no functions and fallback enabled.
func NewEvaluator() *Evaluator {
	return &Evaluator{allowSingle: true}
}

// NewDefaultEvaluator returns an evaluator whose slot 0 holds the default
// barrier with the given parameters.
func NewDefaultEvaluator(length, height, zeroEnd float64) (*Evaluator, error) {
	e := NewEvaluator()
	if err := e.SetPenaltyFunctionWithZero(0, length, height, zeroEnd); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Evaluator) AllowSingleFunction() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.allowSingle
}

func (e *Evaluator) SetAllowSingleFunction(allow bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.allowSingle = allow
}

// NumFunctions returns the number of slots, including empty ones.
func (e *Evaluator) NumFunctions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.functions)
}

// PenaltyFunction returns the function used for constraint k.
func (e *Evaluator) PenaltyFunction(k int) (Function, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolve(k)
}

func (e *Evaluator) resolve(k int) (Function, error) {
	const op = "PenaltyFunction"
	if k < 0 {
		return nil, analysis.Errorf(analysis.IndexOutOfRange, op, "negative constraint index %d", k)
	}
	if k < len(e.functions) && e.functions[k] != nil {
		return e.functions[k], nil
	}
	if e.allowSingle && len(e.functions) > 0 && e.functions[0] != nil {
		return e.functions[0], nil
	}
	return nil, analysis.Errorf(analysis.IndexOutOfRange, op, "no penalty function for constraint %d", k)
}

// SetPenaltyFunctionInstance puts f into slot k, growing the list with empty
// slots as needed. A nil f empties the slot.
func (e *Evaluator) SetPenaltyFunctionInstance(k int, f Function) error {
	if k < 0 {
		return analysis.Errorf(analysis.IndexOutOfRange, "SetPenaltyFunctionInstance", "negative constraint index %d", k)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.grow(k)
	e.functions[k] = f
	return nil
}

// SetPenaltyFunction creates the default barrier in slot k, or retunes the
// function already there. The zero end of an existing function is kept; a
// new function starts at zero. A rejected value leaves the function as it
// was.
func (e *Evaluator) SetPenaltyFunction(k int, length, height float64) error {
	return e.setBarrier(k, length, height, 0, false)
}

// SetPenaltyFunctionWithZero is SetPenaltyFunction that also sets the point
// where the penalty starts to rise.
func (e *Evaluator) SetPenaltyFunctionWithZero(k int, length, height, zeroEnd float64) error {
	return e.setBarrier(k, length, height, zeroEnd, true)
}

func (e *Evaluator) setBarrier(k int, length, height, zeroEnd float64, withZero bool) error {
	const op = "SetPenaltyFunction"
	if k < 0 {
		return analysis.Errorf(analysis.IndexOutOfRange, op, "negative constraint index %d", k)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if k >= len(e.functions) || e.functions[k] == nil {
		b, err := NewPowerBarrier(length, height, zeroEnd)
		if err != nil {
			return err
		}
		e.grow(k)
		e.functions[k] = b
		return nil
	}

	t, ok := e.functions[k].(Tunable)
	switch {
	case !ok:
		return analysis.Errorf(analysis.InvalidArgument, op, "penalty function %d has no barrier parameters", k)
	case !t.CanSetBarrierLength():
		return analysis.Errorf(analysis.InvalidArgument, op, "penalty function %d does not allow setting the barrier length", k)
	case !t.CanSetBarrierHeight():
		return analysis.Errorf(analysis.InvalidArgument, op, "penalty function %d does not allow setting the barrier height", k)
	case withZero && !t.CanSetMaxZero():
		return analysis.Errorf(analysis.InvalidArgument, op, "penalty function %d does not allow setting the zero end", k)
	}
	oldLength, oldHeight, oldZero := t.BarrierLength(), t.BarrierHeight(), t.MaxZero()
	if err := retune(t, length, height, zeroEnd, withZero); err != nil {
		// all or nothing
		_ = retune(t, oldLength, oldHeight, oldZero, withZero)
		return err
	}
	return nil
}

func retune(t Tunable, length, height, zeroEnd float64, withZero bool) error {
	if err := t.SetBarrierLength(length); err != nil {
		return err
	}
	if err := t.SetBarrierHeight(height); err != nil {
		return err
	}
	if withZero {
		return t.SetMaxZero(zeroEnd)
	}
	return nil
}

func (e *Evaluator) grow(k int) {
	if k >= len(e.functions) {
		e.functions = append(e.functions, make([]Function, k+1-len(e.functions))...)
	}
}

// magnitude resolves the function for constraint k of c and folds the
// constraint value into the infeasibility magnitude the function expects.
// sign is the derivative of that folding.
func (e *Evaluator) magnitude(c Constraints, k int, value float64) (Function, float64, float64, error) {
	eq, err := c.IsEqualityConstraint(k)
	if err != nil {
		return nil, 0, 0, err
	}
	f, err := e.PenaltyFunction(k)
	if err != nil {
		return nil, 0, 0, err
	}
	if eq && value < 0 {
		return f, -value, -1, nil
	}
	return f, value, 1, nil
}

// PenaltyValue returns the penalty of constraint k of c at the given
// constraint value. Equality constraints are penalised on |value|.
func (e *Evaluator) PenaltyValue(c Constraints, k int, value float64) (float64, error) {
	const op = "PenaltyValue"
	f, x, _, err := e.magnitude(c, k, value)
	if err != nil {
		return 0, err
	}
	if !f.ValueDefined() {
		return 0, analysis.Errorf(analysis.InvalidState, op, "penalty value not defined for constraint %d", k)
	}
	return f.Value(x), nil
}

// PenaltyDerivative returns d(penalty)/d(value) for constraint k.
func (e *Evaluator) PenaltyDerivative(c Constraints, k int, value float64) (float64, error) {
	const op = "PenaltyDerivative"
	f, x, sign, err := e.magnitude(c, k, value)
	if err != nil {
		return 0, err
	}
	if !f.DerivativeDefined() {
		return 0, analysis.Errorf(analysis.InvalidState, op, "penalty derivative not defined for constraint %d", k)
	}
	return sign * f.Derivative(x), nil
}

// PenaltySecondDerivative returns the second derivative of the penalty of
// constraint k with respect to the constraint value.
func (e *Evaluator) PenaltySecondDerivative(c Constraints, k int, value float64) (float64, error) {
	const op = "PenaltySecondDerivative"
	f, x, _, err := e.magnitude(c, k, value)
	if err != nil {
		return 0, err
	}
	if !f.SecondDerivativeDefined() {
		return 0, analysis.Errorf(analysis.InvalidState, op, "penalty second derivative not defined for constraint %d", k)
	}
	return f.SecondDerivative(x), nil
}

// ConstraintPenalty evaluates the penalty of constraint k at the value held
// by c.
func (e *Evaluator) ConstraintPenalty(c Constraints, k int) (float64, error) {
	const op = "ConstraintPenalty"
	if !c.IsCalculated(analysis.Constraints) {
		return 0, analysis.Errorf(analysis.InvalidState, op, "constraints have not been calculated")
	}
	v, err := c.Constraint(k)
	if err != nil {
		return 0, err
	}
	return e.PenaltyValue(c, k, v)
}

// PenaltyTerms returns the penalty of every constraint of c.
func (e *Evaluator) PenaltyTerms(c Constraints) ([]float64, error) {
	n := c.NumConstraints()
	if n == 0 {
		return []float64{}, nil
	}
	if !c.IsCalculated(analysis.Constraints) {
		return nil, analysis.Errorf(analysis.InvalidState, "PenaltyTerms", "constraints have not been calculated")
	}
	terms := make([]float64, n)
	for k := range terms {
		p, err := e.ConstraintPenalty(c, k)
		if err != nil {
			return nil, err
		}
		terms[k] = p
	}
	return terms, nil
}

// SumPenaltyTerms adds the penalties of all constraints of c.
func (e *Evaluator) SumPenaltyTerms(c Constraints) (float64, error) {
	terms, err := e.PenaltyTerms(c)
	if err != nil {
		return 0, err
	}
	sum := 0.0
	for _, p := range terms {
		sum += p
	}
	return sum, nil
}

// MaxPenaltyTerm returns the largest constraint penalty of c, 0 without
// constraints.
func (e *Evaluator) MaxPenaltyTerm(c Constraints) (float64, error) {
	terms, err := e.PenaltyTerms(c)
	if err != nil {
		return 0, err
	}
	maxTerm := 0.0
	for _, p := range terms {
		maxTerm = math.Max(maxTerm, p)
	}
	return maxTerm, nil
}
