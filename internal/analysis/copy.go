package analysis

import (
	"slices"

	"gonum.org/v1/gonum/mat"
)

// CopyReferences reports whether setters alias the values they receive
// instead of copying them.
func (r *Result) CopyReferences() bool {
	return r.copyReferences
}

// SetCopyReferences switches between aliasing and copying setters. Switching
// aliasing off copies every held vector, matrix and list so that nothing is
// shared with callers any more; switching it on only affects later setters.
func (r *Result) SetCopyReferences(on bool) {
	wasOn := r.copyReferences
	r.copyReferences = on
	if wasOn && !on {
		r.takeOwnership()
	}
}

func (r *Result) takeOwnership() {
	r.parameters = cloneVector(r.parameters)
	r.objectiveGradient = cloneVector(r.objectiveGradient)
	r.objectiveHessian = cloneMatrix(r.objectiveHessian)
	r.constraints = cloneVector(r.constraints)
	r.constraintGradients = cloneVectors(r.constraintGradients)
	r.constraintHessians = cloneMatrices(r.constraintHessians)
}

// incoming values pass through these according to the copy mode

func (r *Result) vector(v []float64) []float64 {
	if r.copyReferences {
		return v
	}
	return cloneVector(v)
}

func (r *Result) matrix(m *mat.Dense) *mat.Dense {
	if r.copyReferences {
		return m
	}
	return cloneMatrix(m)
}

func (r *Result) vectors(l [][]float64) [][]float64 {
	if r.copyReferences {
		return l
	}
	return cloneVectors(l)
}

func (r *Result) matrices(l []*mat.Dense) []*mat.Dense {
	if r.copyReferences {
		return l
	}
	return cloneMatrices(l)
}

// Clone returns a deep copy of r. The copy has its own lock.
func (r *Result) Clone() *Result {
	c := &Result{}
	c.CopyFrom(r)
	return c
}

// CopyFrom overwrites r with a deep copy of src, including the copy mode.
func (r *Result) CopyFrom(src *Result) {
	if src == r {
		return
	}
	r.numParameters = src.numParameters
	r.numObjectives = src.numObjectives
	r.numConstraints = src.numConstraints
	r.numEqualityConstraints = src.numEqualityConstraints

	r.parameters = cloneVector(src.parameters)
	r.objective = src.objective
	r.objectiveGradient = cloneVector(src.objectiveGradient)
	r.objectiveHessian = cloneMatrix(src.objectiveHessian)
	r.constraints = cloneVector(src.constraints)
	r.constraintGradients = cloneVectors(src.constraintGradients)
	r.constraintHessians = cloneMatrices(src.constraintHessians)

	r.requested = src.requested
	r.calculated = src.calculated
	r.errorCode = src.errorCode
	r.errorString = src.errorString
	r.copyReferences = src.copyReferences
}

func cloneVector(v []float64) []float64 {
	if v == nil {
		return nil
	}
	return slices.Clone(v)
}

func cloneMatrix(m *mat.Dense) *mat.Dense {
	if m == nil {
		return nil
	}
	return mat.DenseCopyOf(m)
}

func cloneVectors(l [][]float64) [][]float64 {
	if l == nil {
		return nil
	}
	out := make([][]float64, len(l))
	for i, v := range l {
		out[i] = cloneVector(v)
	}
	return out
}

func cloneMatrices(l []*mat.Dense) []*mat.Dense {
	if l == nil {
		return nil
	}
	out := make([]*mat.Dense, len(l))
	for i, m := range l {
		out[i] = cloneMatrix(m)
	}
	return out
}
