package analysis

import "strings"

// Quantity is a bit set over the six result quantities an analysis can be
// asked to produce.
type Quantity uint8

const (
	Objective Quantity = 1 << iota
	ObjectiveGradient
	ObjectiveHessian
	Constraints
	ConstraintGradients
	ConstraintHessians

	NoQuantities  Quantity = 0
	AllQuantities          = Objective | ObjectiveGradient | ObjectiveHessian |
		Constraints | ConstraintGradients | ConstraintHessians

	// Derivatives is the set invalidated by a change in the number of parameters.
	Derivatives = ObjectiveGradient | ObjectiveHessian | ConstraintGradients | ConstraintHessians
)

var quantityNames = []struct {
	q    Quantity
	name string
}{
	{Objective, "objective"},
	{ObjectiveGradient, "objectiveGradient"},
	{ObjectiveHessian, "objectiveHessian"},
	{Constraints, "constraints"},
	{ConstraintGradients, "constraintGradients"},
	{ConstraintHessians, "constraintHessians"},
}

// Has reports whether every quantity in x is present in q.
func (q Quantity) Has(x Quantity) bool {
	return q&x == x
}

func (q Quantity) String() string {
	if q == NoQuantities {
		return "none"
	}
	var parts []string
	for _, n := range quantityNames {
		if q&n.q != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// Requested returns the set of quantities the caller asked for.
func (r *Result) Requested() Quantity {
	return r.requested
}

// IsRequested reports whether all quantities in q are requested.
func (r *Result) IsRequested(q Quantity) bool {
	return r.requested.Has(q)
}

// SetRequested switches the request flags in q on or off.
func (r *Result) SetRequested(q Quantity, on bool) {
	if on {
		r.requested |= q
	} else {
		r.requested &^= q
	}
}

// CalculatedQuantities returns the set of quantities the producer reported as
// calculated.
func (r *Result) CalculatedQuantities() Quantity {
	return r.calculated
}

// IsCalculated reports whether all quantities in q are flagged as calculated.
func (r *Result) IsCalculated(q Quantity) bool {
	return r.calculated.Has(q)
}

// SetCalculatedQuantity switches the calculated flags in q on or off. Filling a
// value never flips its flag; producers call this after the data is in place.
func (r *Result) SetCalculatedQuantity(q Quantity, on bool) {
	if on {
		r.calculated |= q
	} else {
		r.calculated &^= q
	}
}

// Calculated reports whether every requested quantity has been calculated.
func (r *Result) Calculated() bool {
	return r.calculated&r.requested == r.requested
}

// SetCalculated marks every requested quantity as calculated, or clears all
// six calculated flags.
func (r *Result) SetCalculated(on bool) {
	if on {
		r.calculated |= r.requested
	} else {
		r.calculated = NoQuantities
	}
}

// ResetResults clears the calculated flags and the error status. Numeric
// data is left in place.
func (r *Result) ResetResults() {
	r.calculated = NoQuantities
	r.errorCode = 0
	r.errorString = ""
}
