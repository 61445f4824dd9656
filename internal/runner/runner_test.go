package runner

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/analysisexchange/internal/store"
)

func quadraticConfig() store.RunConfig {
	return store.RunConfig{
		Problem:       "quadratic",
		Iters:         60,
		PopSize:       20,
		Seed:          7,
		BarrierLength: 0.1,
		BarrierHeight: 10,
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := quadraticConfig()
	cfg.PopSize = 3
	_, err := New("bad", cfg)
	assert.Error(t, err)

	cfg = quadraticConfig()
	cfg.Problem = "nope"
	_, err = New("bad", cfg)
	assert.ErrorContains(t, err, "unknown problem")

	cfg = quadraticConfig()
	cfg.Lower, cfg.Upper = []float64{0}, []float64{1}
	_, err = New("bad", cfg)
	assert.ErrorContains(t, err, "bounds have 1 dimensions")

	cfg = quadraticConfig()
	cfg.Problem = "rosenbrock"
	cfg.Overrides = []store.PenaltyOverride{{Constraint: 1, Length: 1, Height: 1}}
	_, err = New("bad", cfg)
	assert.ErrorContains(t, err, "constraint 1")
}

func TestNewAppliesOverrides(t *testing.T) {
	cfg := quadraticConfig()
	cfg.Problem = "sphere-eq"
	cfg.Overrides = []store.PenaltyOverride{{Constraint: 1, Length: 0.5, Height: 3}}

	run, err := New("run", cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, run.Penalized.Penalty.NumFunctions())

	n, c, eq := run.Analysis.Dimensions()
	assert.Equal(t, []int{3, 2, 1}, []int{n, c, eq})
	assert.Equal(t, "sphere-eq", run.Analysis.Name())
}

func TestNarrow(t *testing.T) {
	run, err := New("narrow", quadraticConfig())
	require.NoError(t, err)

	require.NoError(t, run.Narrow([]float64{4.5, 0}, 0.2))
	assert.InDeltaSlice(t, []float64{3.5, -1}, run.Lower, 1e-12)
	assert.InDeltaSlice(t, []float64{5, 1}, run.Upper, 1e-12, "clipped to the problem box")

	assert.Error(t, run.Narrow([]float64{0}, 0.2))
	assert.Error(t, run.Narrow([]float64{0, 0}, 0))
	assert.Error(t, run.Narrow([]float64{100, 0}, 0.1))
}

func TestExecuteTracesAndSnapshots(t *testing.T) {
	dir := t.TempDir()
	run, err := New("traced", quadraticConfig())
	require.NoError(t, err)

	trace, err := store.NewTraceWriter(dir, run.ID, false)
	require.NoError(t, err)

	var seen, last int
	best := math.Inf(1)
	sol, err := run.Execute(context.Background(), trace, func(p Progress) {
		seen++
		last = p.Evaluation.Index
		assert.LessOrEqual(t, p.BestMerit, best)
		best = p.BestMerit
	})
	require.NoError(t, err)
	require.NoError(t, trace.Close())

	assert.Equal(t, sol.Evaluations, seen)
	assert.Equal(t, seen, last, "evaluation indices count from 1")
	assert.InDeltaSlice(t, []float64{1, -2}, sol.Parameters, 0.5)
	assert.True(t, sol.Feasible)

	reader, err := store.NewTraceReader(dir, run.ID)
	require.NoError(t, err)
	defer reader.Close()
	entries, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, entries, seen)
	assert.Equal(t, 1, entries[0].Evaluation)
	require.NotNil(t, entries[len(entries)-1].Best)
	assert.Equal(t, best, *entries[len(entries)-1].Best)

	snap := run.Snapshot(sol)
	require.NoError(t, snap.Validate())
	assert.Equal(t, "quadratic", snap.Config.Problem)
	assert.Equal(t, 2, snap.Result.NumParameters)
}

func TestExecuteCancelled(t *testing.T) {
	run, err := New("cancelled", quadraticConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = run.Execute(ctx, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
