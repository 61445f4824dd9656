package analysis

import "gonum.org/v1/gonum/mat"

// Getters return the held storage itself, not a copy. Setters copy or alias
// according to CopyReferences; the *Reference variants always alias.

// Parameters returns the parameter vector, nil when not allocated.
func (r *Result) Parameters() []float64 {
	return r.parameters
}

// SetParameters stores p and adopts its length as the number of parameters.
// A nil p drops the vector and keeps the count.
func (r *Result) SetParameters(p []float64) error {
	return r.setParameters(r.vector(p), p)
}

// SetParametersReference is SetParameters with aliasing.
func (r *Result) SetParametersReference(p []float64) error {
	return r.setParameters(p, p)
}

func (r *Result) setParameters(stored, p []float64) error {
	if p != nil && len(p) != r.numParameters {
		if _, err := r.SetNumParameters(len(p)); err != nil {
			return err
		}
	}
	r.parameters = stored
	return nil
}

// Parameter returns parameter i.
func (r *Result) Parameter(i int) (float64, error) {
	if i < 0 || i >= len(r.parameters) {
		return 0, Errorf(IndexOutOfRange, "Parameter", "parameter index %d outside [0, %d)", i, len(r.parameters))
	}
	return r.parameters[i], nil
}

// SetParameter writes parameter i of an allocated vector.
func (r *Result) SetParameter(i int, v float64) error {
	if i < 0 || i >= len(r.parameters) {
		return Errorf(IndexOutOfRange, "SetParameter", "parameter index %d outside [0, %d)", i, len(r.parameters))
	}
	r.parameters[i] = v
	return nil
}

func (r *Result) Objective() float64 {
	return r.objective
}

func (r *Result) SetObjective(v float64) {
	r.objective = v
}

func (r *Result) ObjectiveGradient() []float64 {
	return r.objectiveGradient
}

func (r *Result) SetObjectiveGradient(g []float64) {
	r.objectiveGradient = r.vector(g)
}

func (r *Result) SetObjectiveGradientReference(g []float64) {
	r.objectiveGradient = g
}

func (r *Result) ObjectiveHessian() *mat.Dense {
	return r.objectiveHessian
}

func (r *Result) SetObjectiveHessian(h *mat.Dense) {
	r.objectiveHessian = r.matrix(h)
}

func (r *Result) SetObjectiveHessianReference(h *mat.Dense) {
	r.objectiveHessian = h
}

// Constraints returns the constraint values, nil when not allocated.
func (r *Result) Constraints() []float64 {
	return r.constraints
}

// SetConstraints stores c and adopts its length as the number of constraints.
// A nil c drops the values and keeps the count.
func (r *Result) SetConstraints(c []float64) error {
	return r.setConstraints(r.vector(c), c)
}

// SetConstraintsReference is SetConstraints with aliasing.
func (r *Result) SetConstraintsReference(c []float64) error {
	return r.setConstraints(c, c)
}

func (r *Result) setConstraints(stored, c []float64) error {
	if c != nil && len(c) != r.numConstraints {
		if err := r.SetNumConstraints(len(c)); err != nil {
			return err
		}
	}
	r.constraints = stored
	return nil
}

// Constraint returns the value of constraint k.
func (r *Result) Constraint(k int) (float64, error) {
	const op = "Constraint"
	if err := r.checkConstraintIndex(op, k); err != nil {
		return 0, err
	}
	if k >= len(r.constraints) {
		return 0, Errorf(IndexOutOfRange, op, "constraint values not allocated for index %d", k)
	}
	return r.constraints[k], nil
}

// SetConstraint writes the value of constraint k into allocated storage.
func (r *Result) SetConstraint(k int, v float64) error {
	const op = "SetConstraint"
	if err := r.checkConstraintIndex(op, k); err != nil {
		return err
	}
	if k >= len(r.constraints) {
		return Errorf(IndexOutOfRange, op, "constraint values not allocated for index %d", k)
	}
	r.constraints[k] = v
	return nil
}

func (r *Result) ConstraintGradients() [][]float64 {
	return r.constraintGradients
}

func (r *Result) SetConstraintGradients(l [][]float64) {
	r.constraintGradients = r.vectors(l)
}

func (r *Result) SetConstraintGradientsReference(l [][]float64) {
	r.constraintGradients = l
}

// ConstraintGradient returns the gradient of constraint k, which may be nil.
func (r *Result) ConstraintGradient(k int) ([]float64, error) {
	if err := r.checkListIndex("ConstraintGradient", k, len(r.constraintGradients)); err != nil {
		return nil, err
	}
	return r.constraintGradients[k], nil
}

func (r *Result) SetConstraintGradient(k int, g []float64) error {
	if err := r.checkListIndex("SetConstraintGradient", k, len(r.constraintGradients)); err != nil {
		return err
	}
	r.constraintGradients[k] = r.vector(g)
	return nil
}

func (r *Result) SetConstraintGradientReference(k int, g []float64) error {
	if err := r.checkListIndex("SetConstraintGradientReference", k, len(r.constraintGradients)); err != nil {
		return err
	}
	r.constraintGradients[k] = g
	return nil
}

func (r *Result) ConstraintHessians() []*mat.Dense {
	return r.constraintHessians
}

func (r *Result) SetConstraintHessians(l []*mat.Dense) {
	r.constraintHessians = r.matrices(l)
}

func (r *Result) SetConstraintHessiansReference(l []*mat.Dense) {
	r.constraintHessians = l
}

// ConstraintHessian returns the Hessian of constraint k, which may be nil.
func (r *Result) ConstraintHessian(k int) (*mat.Dense, error) {
	if err := r.checkListIndex("ConstraintHessian", k, len(r.constraintHessians)); err != nil {
		return nil, err
	}
	return r.constraintHessians[k], nil
}

func (r *Result) SetConstraintHessian(k int, h *mat.Dense) error {
	if err := r.checkListIndex("SetConstraintHessian", k, len(r.constraintHessians)); err != nil {
		return err
	}
	r.constraintHessians[k] = r.matrix(h)
	return nil
}

func (r *Result) SetConstraintHessianReference(k int, h *mat.Dense) error {
	if err := r.checkListIndex("SetConstraintHessianReference", k, len(r.constraintHessians)); err != nil {
		return err
	}
	r.constraintHessians[k] = h
	return nil
}

func (r *Result) checkListIndex(op string, k, length int) error {
	if err := r.checkConstraintIndex(op, k); err != nil {
		return err
	}
	if k >= length {
		return Errorf(IndexOutOfRange, op, "list not allocated for constraint %d (length %d)", k, length)
	}
	return nil
}
