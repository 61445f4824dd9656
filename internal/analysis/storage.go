package analysis

import (
	"slices"

	"gonum.org/v1/gonum/mat"
)

// Allocation never resizes in place: storage of the wrong shape is replaced
// by fresh zeroed storage, storage of the right shape is kept as is.

// AllocateParameters makes sure the parameter vector has NumParameters entries.
func (r *Result) AllocateParameters() {
	r.parameters = fitVector(r.parameters, r.numParameters)
}

// AllocateObjectiveGradient makes sure the objective gradient has
// NumParameters entries.
func (r *Result) AllocateObjectiveGradient() {
	r.objectiveGradient = fitVector(r.objectiveGradient, r.numParameters)
}

// AllocateObjectiveHessian makes sure the objective Hessian is square of
// order NumParameters.
func (r *Result) AllocateObjectiveHessian() {
	r.objectiveHessian = fitMatrix(r.objectiveHessian, r.numParameters)
}

// AllocateConstraints resizes the constraint values to NumConstraints
// entries, padding with zeros.
func (r *Result) AllocateConstraints() {
	r.constraints = resizeList(r.constraints, r.numConstraints)
}

// AllocateConstraintGradients resizes the gradient list to NumConstraints
// entries and gives every entry NumParameters components.
func (r *Result) AllocateConstraintGradients() {
	r.constraintGradients = resizeList(r.constraintGradients, r.numConstraints)
	for k := range r.constraintGradients {
		r.constraintGradients[k] = fitVector(r.constraintGradients[k], r.numParameters)
	}
}

// AllocateConstraintHessians resizes the Hessian list to NumConstraints
// entries and makes every entry square of order NumParameters.
func (r *Result) AllocateConstraintHessians() {
	r.constraintHessians = resizeList(r.constraintHessians, r.numConstraints)
	for k := range r.constraintHessians {
		r.constraintHessians[k] = fitMatrix(r.constraintHessians[k], r.numParameters)
	}
}

// AllocateAll allocates parameters and every result quantity.
func (r *Result) AllocateAll() {
	r.AllocateParameters()
	r.allocate(AllQuantities)
}

// AllocateRequested allocates parameters and exactly the quantities whose
// request flag is set.
func (r *Result) AllocateRequested() {
	r.AllocateParameters()
	r.allocate(r.requested)
}

// allocate covers the array-valued quantities; the objective is a scalar.
func (r *Result) allocate(q Quantity) {
	if q.Has(ObjectiveGradient) {
		r.AllocateObjectiveGradient()
	}
	if q.Has(ObjectiveHessian) {
		r.AllocateObjectiveHessian()
	}
	if q.Has(Constraints) {
		r.AllocateConstraints()
	}
	if q.Has(ConstraintGradients) {
		r.AllocateConstraintGradients()
	}
	if q.Has(ConstraintHessians) {
		r.AllocateConstraintHessians()
	}
}

// PrepareResultStorage allocates the requested quantities before an
// evaluation. Calculated flags of requested quantities are cleared when
// resetFlags is true; calculated flags of quantities that are not requested
// are always cleared.
func (r *Result) PrepareResultStorage(resetFlags bool) {
	r.AllocateRequested()
	if resetFlags {
		r.calculated = NoQuantities
		return
	}
	r.calculated &= r.requested
}

// NullifyAll drops every vector, matrix and list. Dimensions, flags and the
// error status are left alone.
func (r *Result) NullifyAll() {
	r.parameters = nil
	r.objectiveGradient = nil
	r.objectiveHessian = nil
	r.constraints = nil
	r.constraintGradients = nil
	r.constraintHessians = nil
}

func fitVector(v []float64, n int) []float64 {
	if v != nil && len(v) == n {
		return v
	}
	return make([]float64, n)
}

func fitMatrix(m *mat.Dense, n int) *mat.Dense {
	if n <= 0 {
		return nil
	}
	if m != nil {
		if r, c := m.Dims(); r == n && c == n {
			return m
		}
	}
	return mat.NewDense(n, n, nil)
}

// resizeList truncates (dropping spare capacity) or pads with the zero value.
func resizeList[T any](s []T, n int) []T {
	switch {
	case s != nil && len(s) == n:
		return s
	case len(s) > n:
		return slices.Clip(s[:n])
	default:
		return append(s, make([]T, n-len(s))...)
	}
}
