package analysis

// NumParameters returns the number of optimization parameters.
func (r *Result) NumParameters() int {
	return r.numParameters
}

// SetNumParameters changes the number of parameters. A change clears the
// calculated flags of every derivative quantity and drops a parameter vector
// whose length no longer matches. The returned set holds the flags that were
// switched off by this call.
func (r *Result) SetNumParameters(n int) (Quantity, error) {
	if n < 1 {
		return NoQuantities, Errorf(InvalidArgument, "SetNumParameters", "number of parameters must be at least 1, got %d", n)
	}
	if n == r.numParameters {
		return NoQuantities, nil
	}
	r.numParameters = n
	invalidated := r.calculated & Derivatives
	r.calculated &^= Derivatives
	if r.parameters != nil && len(r.parameters) != n {
		r.parameters = nil
	}
	return invalidated, nil
}

// NumObjectives returns the number of objective functions, 0 or 1.
func (r *Result) NumObjectives() int {
	return r.numObjectives
}

func (r *Result) SetNumObjectives(n int) error {
	if n < 0 || n > 1 {
		return Errorf(InvalidArgument, "SetNumObjectives", "number of objectives must be 0 or 1, got %d", n)
	}
	r.numObjectives = n
	return nil
}

// NumConstraints returns the total number of constraints.
func (r *Result) NumConstraints() int {
	return r.numConstraints
}

// SetNumConstraints changes the number of constraints. Lowering it below the
// number of equality constraints lowers that count as well.
func (r *Result) SetNumConstraints(n int) error {
	if n < 0 {
		return Errorf(InvalidArgument, "SetNumConstraints", "number of constraints must not be negative, got %d", n)
	}
	r.numConstraints = n
	if r.numEqualityConstraints > n {
		r.numEqualityConstraints = n
	}
	return nil
}

// NumEqualityConstraints returns the number of equality constraints. They
// always occupy the trailing block of constraint indices.
func (r *Result) NumEqualityConstraints() int {
	return r.numEqualityConstraints
}

// SetNumEqualityConstraints changes the number of equality constraints.
// Raising it above the number of constraints raises that count as well.
func (r *Result) SetNumEqualityConstraints(n int) error {
	if n < 0 {
		return Errorf(InvalidArgument, "SetNumEqualityConstraints", "number of equality constraints must not be negative, got %d", n)
	}
	r.numEqualityConstraints = n
	if r.numConstraints < n {
		r.numConstraints = n
	}
	return nil
}

// NumInequalityConstraints returns the number of leading inequality constraints.
func (r *Result) NumInequalityConstraints() int {
	return r.numConstraints - r.numEqualityConstraints
}

// SetDimensions sets all four counts at once. Unlike the individual setters it
// does not coerce: an equality count above the constraint count is rejected.
// A rejected call changes nothing.
func (r *Result) SetDimensions(numParameters, numObjectives, numConstraints, numEqualityConstraints int) error {
	const op = "SetDimensions"
	switch {
	case numParameters < 1:
		return Errorf(InvalidArgument, op, "number of parameters must be at least 1, got %d", numParameters)
	case numObjectives < 0 || numObjectives > 1:
		return Errorf(InvalidArgument, op, "number of objectives must be 0 or 1, got %d", numObjectives)
	case numConstraints < 0 || numEqualityConstraints < 0:
		return Errorf(InvalidArgument, op, "constraint counts must not be negative (%d, %d)", numConstraints, numEqualityConstraints)
	case numEqualityConstraints > numConstraints:
		return Errorf(InvalidArgument, op, "%d equality constraints exceed %d constraints", numEqualityConstraints, numConstraints)
	}
	if err := r.SetNumObjectives(numObjectives); err != nil {
		return err
	}
	if _, err := r.SetNumParameters(numParameters); err != nil {
		return err
	}
	r.numConstraints = numConstraints
	r.numEqualityConstraints = numEqualityConstraints
	return nil
}

// IsEqualityConstraint reports whether constraint k belongs to the trailing
// equality block.
func (r *Result) IsEqualityConstraint(k int) (bool, error) {
	if err := r.checkConstraintIndex("IsEqualityConstraint", k); err != nil {
		return false, err
	}
	return k >= r.numConstraints-r.numEqualityConstraints, nil
}

func (r *Result) checkConstraintIndex(op string, k int) error {
	if k < 0 || k >= r.numConstraints {
		return Errorf(IndexOutOfRange, op, "constraint index %d outside [0, %d)", k, r.numConstraints)
	}
	return nil
}
