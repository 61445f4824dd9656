package store

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestSnapshot_Validate_Valid(t *testing.T) {
	if err := createTestSnapshot(t, "ok").Validate(); err != nil {
		t.Errorf("Expected valid snapshot, got %v", err)
	}
}

func TestSnapshot_Validate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Snapshot)
		field  string
	}{
		{"empty run id", func(s *Snapshot) { s.RunID = "" }, "Snapshot.RunID"},
		{"no parameters", func(s *Snapshot) { s.Parameters = []float64{} }, "Snapshot.Parameters"},
		{"negative penalty", func(s *Snapshot) { s.Penalty = -1 }, "Snapshot.Penalty"},
		{"zero timestamp", func(s *Snapshot) { s.Timestamp = time.Time{} }, "Snapshot.Timestamp"},
		{"missing problem", func(s *Snapshot) { s.Config.Problem = "" }, "Snapshot.Config.Problem"},
		{"small population", func(s *Snapshot) { s.Config.PopSize = 5 }, "Snapshot.Config.PopSize"},
		{"infinite merit", func(s *Snapshot) { s.Merit = math.Inf(1) }, "Merit"},
		{"result dimension", func(s *Snapshot) { s.Result.NumParameters = 3 }, "Result.NumParameters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createTestSnapshot(t, "run")
			tt.mutate(s)

			var verr *ValidationError
			if err := s.Validate(); !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %q, want %q (%v)", verr.Field, tt.field, verr)
			}
		})
	}
}

func TestRunConfig_Validate(t *testing.T) {
	cfg := testConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *RunConfig)
		field  string
	}{
		{"zero height", func(c *RunConfig) { c.BarrierHeight = 0 }, "RunConfig.BarrierHeight"},
		{"bad override", func(c *RunConfig) {
			c.Overrides = []PenaltyOverride{{Constraint: 0, Length: 0, Height: 1}}
		}, "RunConfig.Overrides[0].Length"},
		{"bounds length", func(c *RunConfig) { c.Lower, c.Upper = []float64{0, 0}, []float64{1} }, "RunConfig.Upper"},
		{"empty box", func(c *RunConfig) { c.Lower, c.Upper = []float64{0, 2}, []float64{1, 2} }, "RunConfig.Upper[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			var verr *ValidationError
			if err := cfg.Validate(); !errors.As(err, &verr) || verr.Field != tt.field {
				t.Errorf("Expected %s error, got %v", tt.field, err)
			}
		})
	}
}

func TestSnapshot_IsCompatible(t *testing.T) {
	s := createTestSnapshot(t, "run")

	cfg := testConfig()
	cfg.Iters = 10 // effort settings may change between runs
	if err := s.IsCompatible(cfg); err != nil {
		t.Errorf("Expected compatible, got %v", err)
	}

	cfg.Problem = "quadratic"
	var cerr *CompatibilityError
	if err := s.IsCompatible(cfg); !errors.As(err, &cerr) || cerr.Field != "Problem" {
		t.Errorf("Expected Problem mismatch, got %v", err)
	}

	cfg = testConfig()
	cfg.Command = []string{"./solver"}
	if err := s.IsCompatible(cfg); !errors.As(err, &cerr) || cerr.Field != "Command" {
		t.Errorf("Expected Command mismatch, got %v", err)
	}
}

func TestSnapshot_ToInfo(t *testing.T) {
	s := createTestSnapshot(t, "run-info")
	info := s.ToInfo()

	if info.RunID != "run-info" || info.Problem != "rosenbrock" || info.Merit != s.Merit ||
		info.Evaluations != 4000 || !info.Feasible || !info.Timestamp.Equal(s.Timestamp) {
		t.Errorf("Unexpected info: %+v", info)
	}
}

func TestSnapshot_NoResult(t *testing.T) {
	s := NewSnapshot("bare", []float64{1}, 2, 0, 0, true, 1, nil, testConfig())
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	r, err := s.AnalysisResult()
	if err != nil || r != nil {
		t.Errorf("Expected nil result, got %v, %v", r, err)
	}
}
