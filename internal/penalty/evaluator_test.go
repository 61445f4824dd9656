package penalty

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/analysisexchange/internal/analysis"
)

// constrained returns a result holding calculated constraint values whose
// last numEq entries are equalities.
func constrained(t *testing.T, values []float64, numEq int) *analysis.Result {
	t.Helper()
	r, err := analysis.NewWithDimensions(1, len(values), numEq)
	require.NoError(t, err)
	require.NoError(t, r.SetConstraints(values))
	r.SetCalculatedQuantity(analysis.Constraints, true)
	return r
}

func TestSingleFunctionFallback(t *testing.T) {
	e := NewEvaluator()
	b, err := NewPowerBarrier(1, 1, 0)
	require.NoError(t, err)
	require.NoError(t, e.SetPenaltyFunctionInstance(0, b))

	f, err := e.PenaltyFunction(3)
	require.NoError(t, err)
	assert.Same(t, b, f)

	e.SetAllowSingleFunction(false)
	_, err = e.PenaltyFunction(3)
	assert.ErrorIs(t, err, analysis.ErrIndexOutOfRange)

	f, err = e.PenaltyFunction(0)
	require.NoError(t, err)
	assert.Same(t, b, f)
}

func TestEmptyEvaluatorHasNoFunction(t *testing.T) {
	e := NewEvaluator()
	assert.True(t, e.AllowSingleFunction())

	_, err := e.PenaltyFunction(0)
	assert.ErrorIs(t, err, analysis.ErrIndexOutOfRange)
	_, err = e.PenaltyFunction(-1)
	assert.ErrorIs(t, err, analysis.ErrIndexOutOfRange)
}

func TestSparseSlots(t *testing.T) {
	e := NewEvaluator()
	require.NoError(t, e.SetPenaltyFunction(2, 1, 5))
	assert.Equal(t, 3, e.NumFunctions())

	// slot 0 is empty, so there is nothing to fall back on
	_, err := e.PenaltyFunction(1)
	assert.ErrorIs(t, err, analysis.ErrIndexOutOfRange)

	f, err := e.PenaltyFunction(2)
	require.NoError(t, err)
	assert.Equal(t, 5.0, f.(Tunable).BarrierHeight())
}

func TestSetPenaltyFunctionTunesInPlace(t *testing.T) {
	e := NewEvaluator()
	require.NoError(t, e.SetPenaltyFunctionWithZero(0, 1, 1, 0.25))
	first, err := e.PenaltyFunction(0)
	require.NoError(t, err)

	require.NoError(t, e.SetPenaltyFunction(0, 2, 8))
	second, err := e.PenaltyFunction(0)
	require.NoError(t, err)

	assert.Same(t, first, second)
	tun := second.(Tunable)
	assert.Equal(t, 2.0, tun.BarrierLength())
	assert.Equal(t, 8.0, tun.BarrierHeight())
	assert.Equal(t, 0.25, tun.MaxZero(), "zero end is kept when not given")
}

func TestFailedRetuneKeepsFunction(t *testing.T) {
	e, err := NewDefaultEvaluator(1, 1, 0)
	require.NoError(t, err)
	require.NoError(t, e.SetPenaltyFunctionWithZero(0, 1, 1, 0.5))

	err = e.SetPenaltyFunction(0, 5, -1)
	assert.ErrorIs(t, err, analysis.ErrInvalidArgument)
	err = e.SetPenaltyFunctionWithZero(0, 3, 4, math.NaN())
	assert.ErrorIs(t, err, analysis.ErrInvalidArgument)

	f, err := e.PenaltyFunction(0)
	require.NoError(t, err)
	tun := f.(Tunable)
	assert.Equal(t, 1.0, tun.BarrierLength())
	assert.Equal(t, 1.0, tun.BarrierHeight())
	assert.Equal(t, 0.5, tun.MaxZero())
}

func TestSetPenaltyFunctionOnFixedFunction(t *testing.T) {
	e := NewEvaluator()
	require.NoError(t, e.SetPenaltyFunctionInstance(0, Func{F: func(x float64) float64 { return x }}))

	err := e.SetPenaltyFunction(0, 1, 1)
	assert.ErrorIs(t, err, analysis.ErrInvalidArgument)
}

func TestPenaltyValueFoldsEqualities(t *testing.T) {
	r := constrained(t, []float64{-2, 2, -2}, 1)
	e, err := NewDefaultEvaluator(1, 1, 0)
	require.NoError(t, err)

	v, err := e.PenaltyValue(r, 0, -2)
	require.NoError(t, err)
	assert.Zero(t, v, "satisfied inequality")

	v, err = e.PenaltyValue(r, 2, -2)
	require.NoError(t, err)
	assert.Equal(t, 8.0, v, "equality penalised on magnitude")

	d, err := e.PenaltyDerivative(r, 2, -2)
	require.NoError(t, err)
	assert.Equal(t, -12.0, d)

	d2, err := e.PenaltySecondDerivative(r, 2, -2)
	require.NoError(t, err)
	assert.Equal(t, 12.0, d2)

	_, err = e.PenaltyValue(r, 3, 1)
	assert.ErrorIs(t, err, analysis.ErrIndexOutOfRange)
}

func TestUndefinedEvaluation(t *testing.T) {
	r := constrained(t, []float64{1}, 0)
	e := NewEvaluator()
	require.NoError(t, e.SetPenaltyFunctionInstance(0, Func{F: func(x float64) float64 { return x }}))

	_, err := e.PenaltyDerivative(r, 0, 1)
	assert.ErrorIs(t, err, analysis.ErrInvalidState)
}

func TestPenaltyAggregates(t *testing.T) {
	r := constrained(t, []float64{1, -1, 2, -0.5}, 1)
	e, err := NewDefaultEvaluator(1, 1, 0)
	require.NoError(t, err)

	terms, err := e.PenaltyTerms(r)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 8, 0.125}, terms)

	sum, err := e.SumPenaltyTerms(r)
	require.NoError(t, err)
	assert.InDelta(t, 9.125, sum, 1e-12)

	maxTerm, err := e.MaxPenaltyTerm(r)
	require.NoError(t, err)
	assert.Equal(t, 8.0, maxTerm)
}

func TestPenaltyAggregatesRequireCalculatedConstraints(t *testing.T) {
	r, err := analysis.NewWithDimensions(1, 2, 0)
	require.NoError(t, err)
	r.AllocateConstraints()
	e, err := NewDefaultEvaluator(1, 1, 0)
	require.NoError(t, err)

	_, err = e.SumPenaltyTerms(r)
	assert.ErrorIs(t, err, analysis.ErrInvalidState)
	_, err = e.ConstraintPenalty(r, 0)
	assert.ErrorIs(t, err, analysis.ErrInvalidState)

	sum, err := e.SumPenaltyTerms(analysis.New())
	require.NoError(t, err)
	assert.Zero(t, sum)
}
