// Package analysis holds the data exchanged between an optimizer and a direct
// analysis for a single evaluation: parameters, objective and constraint
// values with their gradients and Hessians, request and calculated flags, and
// the error status reported by the analysis.
//
// A Result is not safe for concurrent mutation. Callers that share one
// instance across goroutines must hold Locker() around every access.
package analysis

import (
	"sync"

	"gonum.org/v1/gonum/mat"
)

// Result is the in-memory snapshot of one evaluation.
//
// Vectors are plain slices and Hessians are *mat.Dense; a nil value means the
// storage has not been allocated yet. Constraint lists may hold nil entries
// until AllocateConstraintGradients/AllocateConstraintHessians fill them.
type Result struct {
	mu sync.Mutex

	numParameters          int
	numObjectives          int
	numConstraints         int
	numEqualityConstraints int

	parameters          []float64
	objective           float64
	objectiveGradient   []float64
	objectiveHessian    *mat.Dense
	constraints         []float64
	constraintGradients [][]float64
	constraintHessians  []*mat.Dense

	requested  Quantity
	calculated Quantity

	errorCode   int
	errorString string

	copyReferences bool
}

// New returns an empty result with one objective and no parameters or
// constraints.
func New() *Result {
	return &Result{numObjectives: 1}
}

// NewWithDimensions returns a result with the given dimensions already set.
func NewWithDimensions(numParameters, numConstraints, numEqualityConstraints int) (*Result, error) {
	r := New()
	if err := r.SetDimensions(numParameters, 1, numConstraints, numEqualityConstraints); err != nil {
		return nil, err
	}
	return r, nil
}

// Locker returns the per-instance lock for callers sharing the result across
// goroutines. The Result's own methods never acquire it.
func (r *Result) Locker() sync.Locker {
	return &r.mu
}

// ErrorCode returns the status reported by the analysis: 0 is success, negative
// values are analysis-specific failures.
func (r *Result) ErrorCode() int {
	return r.errorCode
}

func (r *Result) SetErrorCode(code int) {
	r.errorCode = code
}

// ErrorString returns the analysis failure description, empty when none.
func (r *Result) ErrorString() string {
	return r.errorString
}

func (r *Result) SetErrorString(s string) {
	r.errorString = s
}

// Failed reports whether the analysis reported a non-zero error code.
func (r *Result) Failed() bool {
	return r.errorCode != 0
}
