package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	run := cfg.RunConfig()
	assert.Equal(t, "rosenbrock", run.Problem)
	assert.Equal(t, 200, run.Iters)
	assert.Equal(t, 30, run.PopSize)
	assert.Equal(t, int64(42), run.Seed)
	assert.Equal(t, 0.1, run.BarrierLength)
	assert.Equal(t, 100.0, run.BarrierHeight)
	assert.Empty(t, run.Command)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
problem:
  name: sphere-eq
  lower: [-2, -2, -2]
  upper: [2, 2, 2]
penalty:
  barrier_length: 0.5
  barrier_height: 1000
  equality_tolerance: 0.001
  overrides:
    - constraint: 1
      length: 0.2
      height: 50
      zero: 0.1
optimizer:
  iterations: 50
exchange:
  dir: /tmp/exchange
  command: [./solver, --quiet]
  keep_files: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// unset keys keep their defaults
	assert.Equal(t, 30, cfg.Optimizer.Population)
	assert.Equal(t, ":8080", cfg.Server.Addr)

	run := cfg.RunConfig()
	assert.Equal(t, "sphere-eq", run.Problem)
	assert.Equal(t, []float64{-2, -2, -2}, run.Lower)
	assert.Equal(t, []float64{2, 2, 2}, run.Upper)
	assert.Equal(t, 50, run.Iters)
	assert.Equal(t, 0.001, run.EqualityTolerance)
	require.Len(t, run.Overrides, 1)
	assert.Equal(t, 1, run.Overrides[0].Constraint)
	assert.Equal(t, 0.1, run.Overrides[0].Zero)
	assert.Equal(t, []string{"./solver", "--quiet"}, run.Command)
	assert.Equal(t, "/tmp/exchange", run.ExchangeDir)
	assert.True(t, run.KeepFiles)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"malformed", "problem: [", "failed to parse config"},
		{"population", "optimizer:\n  population: 5\n", "Population"},
		{"barrier", "penalty:\n  barrier_length: 0\n", "BarrierLength"},
		{"override", "penalty:\n  overrides:\n    - constraint: 0\n      length: 0.1\n      height: 0\n", "Height"},
		{"backend", "store:\n  backend: sqlite\n", "Backend"},
		{"bounds", "problem:\n  name: quadratic\n  lower: [0, 0]\n  upper: [1]\n", "Upper"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = LoadOrDefault(writeConfig(t, "server:\n  addr: 127.0.0.1:9000\n"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Problem.Name = "quadratic"
	cfg.Exchange.Command = []string{"solver"}
	cfg.Optimizer.Seed = 7

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
