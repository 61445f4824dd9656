package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Mismatch describes one field in which two results differ.
type Mismatch struct {
	Field string
	A, B  string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: %s != %s", m.Field, m.A, m.B)
}

// Compare lists the differences between a and b. Numbers are equal when they
// differ by at most tol; NaNs compare equal to each other.
func Compare(a, b *Result, tol float64) []Mismatch {
	c := comparer{tol: tol}

	c.integer("numParameters", a.numParameters, b.numParameters)
	c.integer("numObjectives", a.numObjectives, b.numObjectives)
	c.integer("numConstraints", a.numConstraints, b.numConstraints)
	c.integer("numEqualityConstraints", a.numEqualityConstraints, b.numEqualityConstraints)
	if a.requested != b.requested {
		c.add("requested", a.requested.String(), b.requested.String())
	}
	if a.calculated != b.calculated {
		c.add("calculated", a.calculated.String(), b.calculated.String())
	}
	c.integer("errorCode", a.errorCode, b.errorCode)
	if a.errorString != b.errorString {
		c.add("errorString", fmt.Sprintf("%q", a.errorString), fmt.Sprintf("%q", b.errorString))
	}

	c.vector("parameters", a.parameters, b.parameters)
	c.number("objective", a.objective, b.objective)
	c.vector("objectiveGradient", a.objectiveGradient, b.objectiveGradient)
	c.matrix("objectiveHessian", a.objectiveHessian, b.objectiveHessian)
	c.vector("constraints", a.constraints, b.constraints)

	if len(a.constraintGradients) != len(b.constraintGradients) {
		c.integer("len(constraintGradients)", len(a.constraintGradients), len(b.constraintGradients))
	} else {
		for k := range a.constraintGradients {
			c.vector(fmt.Sprintf("constraintGradients[%d]", k), a.constraintGradients[k], b.constraintGradients[k])
		}
	}
	if len(a.constraintHessians) != len(b.constraintHessians) {
		c.integer("len(constraintHessians)", len(a.constraintHessians), len(b.constraintHessians))
	} else {
		for k := range a.constraintHessians {
			c.matrix(fmt.Sprintf("constraintHessians[%d]", k), a.constraintHessians[k], b.constraintHessians[k])
		}
	}
	return c.out
}

type comparer struct {
	tol float64
	out []Mismatch
}

func (c *comparer) add(field, a, b string) {
	c.out = append(c.out, Mismatch{Field: field, A: a, B: b})
}

func (c *comparer) integer(field string, a, b int) {
	if a != b {
		c.add(field, fmt.Sprint(a), fmt.Sprint(b))
	}
}

func (c *comparer) close(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return a == b || math.Abs(a-b) <= c.tol
}

func (c *comparer) number(field string, a, b float64) {
	if !c.close(a, b) {
		c.add(field, fmt.Sprint(a), fmt.Sprint(b))
	}
}

func (c *comparer) vector(field string, a, b []float64) {
	if (a == nil) != (b == nil) {
		c.add(field, nilness(a == nil), nilness(b == nil))
		return
	}
	if len(a) != len(b) {
		c.integer("len("+field+")", len(a), len(b))
		return
	}
	for i := range a {
		c.number(fmt.Sprintf("%s[%d]", field, i), a[i], b[i])
	}
}

func (c *comparer) matrix(field string, a, b *mat.Dense) {
	if (a == nil) != (b == nil) {
		c.add(field, nilness(a == nil), nilness(b == nil))
		return
	}
	if a == nil {
		return
	}
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		c.add("dims("+field+")", fmt.Sprintf("%dx%d", ar, ac), fmt.Sprintf("%dx%d", br, bc))
		return
	}
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			c.number(fmt.Sprintf("%s[%d,%d]", field, i, j), a.At(i, j), b.At(i, j))
		}
	}
}

func nilness(isNil bool) string {
	if isNil {
		return "nil"
	}
	return "allocated"
}
