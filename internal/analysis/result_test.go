package analysis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestDimensionCoercion(t *testing.T) {
	for n := 0; n < 6; n++ {
		r := New()
		require.NoError(t, r.SetNumEqualityConstraints(n+1))
		assert.Equal(t, n+1, r.NumConstraints(), "raising equality count raises constraint count")

		require.NoError(t, r.SetNumConstraints(n))
		assert.Equal(t, n, r.NumEqualityConstraints(), "n=%d", n)
		assert.Equal(t, n, r.NumConstraints())
	}
}

func TestNegativeCountsRejected(t *testing.T) {
	r := New()

	_, err := r.SetNumParameters(0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = r.SetNumParameters(-2)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.ErrorIs(t, r.SetNumConstraints(-1), ErrInvalidArgument)
	assert.ErrorIs(t, r.SetNumEqualityConstraints(-1), ErrInvalidArgument)
	assert.ErrorIs(t, r.SetNumObjectives(2), ErrInvalidArgument)
	assert.ErrorIs(t, r.SetDimensions(2, 1, 1, 2), ErrInvalidArgument)

	assert.Equal(t, 0, r.NumParameters())
	assert.Equal(t, 0, r.NumConstraints())
}

func TestRejectedSetDimensionsChangesNothing(t *testing.T) {
	r, err := NewWithDimensions(3, 2, 1)
	require.NoError(t, err)

	for _, dims := range [][4]int{{0, 0, 0, 0}, {2, 2, 1, 0}, {2, 0, 1, 2}, {2, 0, -1, 0}} {
		assert.ErrorIs(t, r.SetDimensions(dims[0], dims[1], dims[2], dims[3]), ErrInvalidArgument, "%v", dims)
		assert.Equal(t, 3, r.NumParameters())
		assert.Equal(t, 1, r.NumObjectives())
		assert.Equal(t, 2, r.NumConstraints())
		assert.Equal(t, 1, r.NumEqualityConstraints())
	}
}

func TestSetNumParametersInvalidatesDerivatives(t *testing.T) {
	r, err := NewWithDimensions(3, 2, 0)
	require.NoError(t, err)
	r.AllocateParameters()
	r.SetCalculatedQuantity(AllQuantities, true)

	invalidated, err := r.SetNumParameters(3)
	require.NoError(t, err)
	assert.Equal(t, NoQuantities, invalidated, "unchanged count has no side effect")
	assert.NotNil(t, r.Parameters())

	invalidated, err = r.SetNumParameters(4)
	require.NoError(t, err)
	assert.Equal(t, Derivatives, invalidated)
	assert.Equal(t, Objective|Constraints, r.CalculatedQuantities())
	assert.Nil(t, r.Parameters(), "mismatching parameter vector is dropped")
}

func TestEqualityConstraintsTrailingBlock(t *testing.T) {
	r, err := NewWithDimensions(1, 5, 2)
	require.NoError(t, err)

	for k := 0; k < 5; k++ {
		eq, err := r.IsEqualityConstraint(k)
		require.NoError(t, err)
		assert.Equal(t, k >= 3, eq, "constraint %d", k)
	}
	_, err = r.IsEqualityConstraint(5)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = r.IsEqualityConstraint(-1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestErrorKinds(t *testing.T) {
	err := Errorf(InvalidState, "Op", "detail %d", 1)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.NotErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, InvalidState, KindOf(err))
	assert.Equal(t, "Op: invalid state: detail 1", err.Error())

	wrapped := Wrap(ParseFailure, "Parse", ErrNullArgument)
	assert.ErrorIs(t, wrapped, ErrParseFailure)
	assert.True(t, errors.Is(wrapped, ErrNullArgument))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestCopyReferences(t *testing.T) {
	t.Run("aliasing", func(t *testing.T) {
		r := New()
		r.SetCopyReferences(true)
		p := []float64{1, 2, 3}
		require.NoError(t, r.SetParameters(p))
		p[0] = 42
		assert.Equal(t, 42.0, r.Parameters()[0])
	})

	t.Run("copying", func(t *testing.T) {
		r := New()
		p := []float64{1, 2, 3}
		require.NoError(t, r.SetParameters(p))
		p[0] = 42
		assert.Equal(t, 1.0, r.Parameters()[0])
		assert.Equal(t, 3, r.NumParameters())
	})

	t.Run("reference setter always aliases", func(t *testing.T) {
		r := New()
		g := []float64{1, 2}
		r.SetObjectiveGradientReference(g)
		g[1] = 7
		assert.Equal(t, 7.0, r.ObjectiveGradient()[1])

		h := mat.NewDense(2, 2, nil)
		r.SetObjectiveHessianReference(h)
		h.Set(0, 1, 5)
		assert.Equal(t, 5.0, r.ObjectiveHessian().At(0, 1))
	})

	t.Run("switching off takes ownership", func(t *testing.T) {
		r := New()
		r.SetCopyReferences(true)
		p := []float64{1, 2}
		c := []float64{-1, 3}
		grads := [][]float64{{1, 0}, {0, 1}}
		h := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
		require.NoError(t, r.SetParameters(p))
		require.NoError(t, r.SetConstraints(c))
		r.SetConstraintGradients(grads)
		r.SetObjectiveHessian(h)

		r.SetCopyReferences(false)
		p[0], c[0], grads[1][1] = 100, 100, 100
		h.Set(0, 0, 100)

		assert.Equal(t, 1.0, r.Parameters()[0])
		assert.Equal(t, -1.0, r.Constraints()[0])
		assert.Equal(t, 1.0, r.ConstraintGradients()[1][1])
		assert.Equal(t, 1.0, r.ObjectiveHessian().At(0, 0))
	})

	t.Run("switching on has no immediate effect", func(t *testing.T) {
		r := New()
		p := []float64{1, 2}
		require.NoError(t, r.SetParameters(p))
		r.SetCopyReferences(true)
		p[0] = 9
		assert.Equal(t, 1.0, r.Parameters()[0])
	})
}

func TestSetConstraintsAdoptsLength(t *testing.T) {
	r := New()
	require.NoError(t, r.SetNumEqualityConstraints(3))
	require.NoError(t, r.SetConstraints([]float64{1, 2}))
	assert.Equal(t, 2, r.NumConstraints())
	assert.Equal(t, 2, r.NumEqualityConstraints())

	require.NoError(t, r.SetConstraints(nil))
	assert.Nil(t, r.Constraints())
	assert.Equal(t, 2, r.NumConstraints(), "nil keeps the count")
}

func TestElementAccess(t *testing.T) {
	r, err := NewWithDimensions(2, 2, 0)
	require.NoError(t, err)

	_, err = r.Constraint(0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange, "not allocated yet")

	r.AllocateAll()
	require.NoError(t, r.SetConstraint(1, 3.5))
	v, err := r.Constraint(1)
	require.NoError(t, err)
	assert.Equal(t, 3.5, v)
	assert.ErrorIs(t, r.SetConstraint(2, 1), ErrIndexOutOfRange)

	require.NoError(t, r.SetParameter(1, 0.25))
	p, err := r.Parameter(1)
	require.NoError(t, err)
	assert.Equal(t, 0.25, p)
	_, err = r.Parameter(2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	g := []float64{4, 5}
	require.NoError(t, r.SetConstraintGradient(0, g))
	g[0] = 0
	got, err := r.ConstraintGradient(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5}, got)

	h := mat.NewDense(2, 2, []float64{2, 0, 0, 2})
	require.NoError(t, r.SetConstraintHessianReference(1, h))
	gotH, err := r.ConstraintHessian(1)
	require.NoError(t, err)
	assert.Same(t, h, gotH)
}

func TestCloneIsDeep(t *testing.T) {
	r, err := NewWithDimensions(2, 1, 0)
	require.NoError(t, err)
	r.SetRequested(AllQuantities, true)
	r.AllocateRequested()
	r.SetObjective(1.5)
	r.ObjectiveHessian().Set(1, 1, 3)
	r.SetErrorCode(-4)
	r.SetErrorString("diverged")

	c := r.Clone()
	assert.Empty(t, Compare(r, c, 0))

	c.ObjectiveHessian().Set(1, 1, 9)
	c.Parameters()[0] = 8
	assert.Equal(t, 3.0, r.ObjectiveHessian().At(1, 1))
	assert.Equal(t, 0.0, r.Parameters()[0])
}

func TestCompareReportsBothSides(t *testing.T) {
	a, err := NewWithDimensions(2, 1, 0)
	require.NoError(t, err)
	a.AllocateAll()
	b := a.Clone()

	b.SetObjective(1)
	require.NoError(t, b.SetConstraint(0, 2e-9))
	b.SetErrorString("x")

	mismatches := Compare(a, b, 1e-6)
	require.Len(t, mismatches, 2)
	assert.Equal(t, "errorString", mismatches[0].Field)
	assert.Equal(t, "objective", mismatches[1].Field)
	assert.Equal(t, "0", mismatches[1].A)
	assert.Equal(t, "1", mismatches[1].B)
}
