package analysis

import "math"

// Constraint conventions: inequality constraints are feasible when c(x) <= 0,
// equality constraints when |c(x)| <= tolerance. Both comparisons are strict
// on the violated side, so a value sitting exactly on the bound is feasible.
//
// All queries below require CalculatedConstraints once there is at least one
// constraint; with no constraints they return the neutral value.

// IsViolated reports whether constraint k is violated.
func (r *Result) IsViolated(k int, equalityTolerance float64) (bool, error) {
	const op = "IsViolated"
	if r.numConstraints == 0 {
		return false, nil
	}
	if err := r.requireConstraints(op); err != nil {
		return false, err
	}
	_, violated, err := r.residual(op, k, equalityTolerance)
	return violated, err
}

// NumViolatedConstraints counts the violated constraints.
func (r *Result) NumViolatedConstraints(equalityTolerance float64) (int, error) {
	const op = "NumViolatedConstraints"
	if r.numConstraints == 0 {
		return 0, nil
	}
	if err := r.requireConstraints(op); err != nil {
		return 0, err
	}
	n := 0
	for k := 0; k < r.numConstraints; k++ {
		_, violated, err := r.residual(op, k, equalityTolerance)
		if err != nil {
			return 0, err
		}
		if violated {
			n++
		}
	}
	return n, nil
}

// SumResiduals adds up the violation magnitudes of the violated constraints.
func (r *Result) SumResiduals(equalityTolerance float64) (float64, error) {
	const op = "SumResiduals"
	if r.numConstraints == 0 {
		return 0, nil
	}
	if err := r.requireConstraints(op); err != nil {
		return 0, err
	}
	sum := 0.0
	for k := 0; k < r.numConstraints; k++ {
		res, violated, err := r.residual(op, k, equalityTolerance)
		if err != nil {
			return 0, err
		}
		if violated {
			sum += res
		}
	}
	return sum, nil
}

// MaximalResidual returns the largest violation magnitude, or 0 when no
// constraint is violated.
func (r *Result) MaximalResidual(equalityTolerance float64) (float64, error) {
	const op = "MaximalResidual"
	if r.numConstraints == 0 {
		return 0, nil
	}
	if err := r.requireConstraints(op); err != nil {
		return 0, err
	}
	maxRes := 0.0
	for k := 0; k < r.numConstraints; k++ {
		res, violated, err := r.residual(op, k, equalityTolerance)
		if err != nil {
			return 0, err
		}
		if violated && res > maxRes {
			maxRes = res
		}
	}
	return maxRes, nil
}

func (r *Result) requireConstraints(op string) error {
	if !r.IsCalculated(Constraints) {
		return Errorf(InvalidState, op, "constraints have not been calculated")
	}
	return nil
}

// residual returns the violation magnitude of constraint k (|c| for equality,
// c for inequality) and whether it counts as violated.
func (r *Result) residual(op string, k int, equalityTolerance float64) (float64, bool, error) {
	if err := r.checkConstraintIndex(op, k); err != nil {
		return 0, false, err
	}
	if k >= len(r.constraints) {
		return 0, false, Errorf(IndexOutOfRange, op, "constraint values not allocated for index %d", k)
	}
	c := r.constraints[k]
	if k >= r.numConstraints-r.numEqualityConstraints {
		res := math.Abs(c)
		return res, res > equalityTolerance, nil
	}
	return c, c > 0, nil
}
