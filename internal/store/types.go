package store

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cwbudde/analysisexchange/internal/analysis"
)

// RunConfig holds the settings of an optimization run. Snapshots carry a
// copy so a run can be resumed with the same setup.
type RunConfig struct {
	Problem string `json:"problem" yaml:"problem" validate:"required"`
	// Lower and Upper replace the search box of the problem when set.
	Lower []float64 `json:"lower,omitempty" yaml:"lower,omitempty"`
	Upper []float64 `json:"upper,omitempty" yaml:"upper,omitempty"`

	// Command runs an external analysis instead of the built-in problem
	// evaluation; the problem still supplies dimensions and bounds.
	Command     []string `json:"command,omitempty" yaml:"command,omitempty"`
	ExchangeDir string   `json:"exchangeDir,omitempty" yaml:"exchangeDir,omitempty"`
	KeepFiles   bool     `json:"keepFiles,omitempty" yaml:"keepFiles,omitempty"`

	Iters   int   `json:"iters" yaml:"iters" validate:"gt=0"`
	PopSize int   `json:"popSize" yaml:"popSize" validate:"gte=20"` // mayfly needs at least 20
	Seed    int64 `json:"seed" yaml:"seed"`

	BarrierLength     float64           `json:"barrierLength" yaml:"barrierLength" validate:"gt=0"`
	BarrierHeight     float64           `json:"barrierHeight" yaml:"barrierHeight" validate:"gt=0"`
	BarrierZero       float64           `json:"barrierZero,omitempty" yaml:"barrierZero,omitempty"`
	Overrides         []PenaltyOverride `json:"overrides,omitempty" yaml:"overrides,omitempty" validate:"dive"`
	EqualityTolerance float64           `json:"equalityTolerance,omitempty" yaml:"equalityTolerance,omitempty" validate:"gte=0"`
}

// PenaltyOverride gives one constraint its own barrier.
type PenaltyOverride struct {
	Constraint int     `json:"constraint" yaml:"constraint" validate:"gte=0"`
	Length     float64 `json:"length" yaml:"length" validate:"gt=0"`
	Height     float64 `json:"height" yaml:"height" validate:"gt=0"`
	Zero       float64 `json:"zero,omitempty" yaml:"zero,omitempty"`
}

// Snapshot is the saved outcome of a run: the best parameters found and the
// full analysis result at that point.
//
// Only the best point is kept, not the optimizer population. A run resumed
// from a snapshot starts a fresh population inside a box around the saved
// parameters, so it is a restart near the optimum rather than a continuation.
type Snapshot struct {
	// RunID is the unique identifier for this run
	RunID string `json:"runId" validate:"required"`

	// Parameters is the best point found
	Parameters []float64 `json:"parameters" validate:"required,min=1"`

	// Merit is objective + penalty at Parameters
	Merit float64 `json:"merit"`

	// Penalty is the penalty part of Merit
	Penalty float64 `json:"penalty" validate:"gte=0"`

	MaxResidual float64 `json:"maxResidual" validate:"gte=0"`
	Feasible    bool    `json:"feasible"`

	// Evaluations is the number of merit evaluations spent
	Evaluations int `json:"evaluations" validate:"gte=0"`

	Timestamp time.Time `json:"timestamp" validate:"required"`

	Config RunConfig `json:"config"`

	// Result is the analysis result at Parameters
	Result *analysis.DTO `json:"result,omitempty"`
}

// SnapshotInfo contains metadata about a snapshot without the parameter and
// result data. Used for listing.
type SnapshotInfo struct {
	RunID       string    `json:"runId"`
	Problem     string    `json:"problem"`
	Merit       float64   `json:"merit"`
	Feasible    bool      `json:"feasible"`
	Evaluations int       `json:"evaluations"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewSnapshot creates a snapshot from run state.
func NewSnapshot(runID string, params []float64, merit, pen, maxResidual float64, feasible bool, evaluations int, result *analysis.Result, config RunConfig) *Snapshot {
	s := &Snapshot{
		RunID:       runID,
		Parameters:  params,
		Merit:       merit,
		Penalty:     pen,
		MaxResidual: maxResidual,
		Feasible:    feasible,
		Evaluations: evaluations,
		Timestamp:   time.Now(),
		Config:      config,
	}
	if result != nil {
		s.Result = result.ToDTO()
	}
	return s
}

// ToInfo converts a full Snapshot to SnapshotInfo.
func (s *Snapshot) ToInfo() SnapshotInfo {
	return SnapshotInfo{
		RunID:       s.RunID,
		Problem:     s.Config.Problem,
		Merit:       s.Merit,
		Feasible:    s.Feasible,
		Evaluations: s.Evaluations,
		Timestamp:   s.Timestamp,
	}
}

// AnalysisResult rebuilds the stored analysis result, nil when none was
// saved.
func (s *Snapshot) AnalysisResult() (*analysis.Result, error) {
	if s.Result == nil {
		return nil, nil
	}
	r := analysis.New()
	if err := s.Result.CopyTo(r); err != nil {
		return nil, fmt.Errorf("invalid result in snapshot %s: %w", s.RunID, err)
	}
	return r, nil
}

var validate = validator.New()

// Validate checks if the snapshot has valid data. The first failing field is
// reported as a *ValidationError.
func (s *Snapshot) Validate() error {
	if err := validate.Struct(s); err != nil {
		return toValidationError(err)
	}
	if err := s.Config.Validate(); err != nil {
		return err
	}
	if math.IsNaN(s.Merit) || math.IsInf(s.Merit, 0) {
		return &ValidationError{Field: "Merit", Reason: "must be finite"}
	}
	if s.Result != nil {
		if err := s.Result.Validate(); err != nil {
			return &ValidationError{Field: "Result", Reason: err.Error()}
		}
		if s.Result.NumParameters != len(s.Parameters) {
			return &ValidationError{
				Field:  "Result.NumParameters",
				Reason: fmt.Sprintf("expected %d to match parameters", len(s.Parameters)),
			}
		}
	}
	return nil
}

// Validate checks the run settings.
func (c *RunConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return toValidationError(err)
	}
	if len(c.Lower) != len(c.Upper) {
		return &ValidationError{
			Field:  "RunConfig.Upper",
			Reason: fmt.Sprintf("has %d bounds, lower has %d", len(c.Upper), len(c.Lower)),
		}
	}
	for i := range c.Lower {
		if !(c.Lower[i] < c.Upper[i]) {
			return &ValidationError{Field: fmt.Sprintf("RunConfig.Upper[%d]", i), Reason: "must exceed lower bound"}
		}
	}
	return nil
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		reason := "failed " + fe.Tag()
		if fe.Param() != "" {
			reason += "=" + fe.Param()
		}
		return &ValidationError{Field: fe.StructNamespace(), Reason: reason}
	}
	return &ValidationError{Reason: err.Error()}
}

// ValidationError represents a snapshot validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// IsCompatible checks if this snapshot can be resumed with the given config.
// Returns an error if the configs are incompatible.
func (s *Snapshot) IsCompatible(config RunConfig) error {
	if s.Config.Problem != config.Problem {
		return &CompatibilityError{
			Field:    "Problem",
			Expected: s.Config.Problem,
			Actual:   config.Problem,
		}
	}
	if fmt.Sprint(s.Config.Command) != fmt.Sprint(config.Command) {
		return &CompatibilityError{
			Field:    "Command",
			Expected: fmt.Sprint(s.Config.Command),
			Actual:   fmt.Sprint(config.Command),
		}
	}
	return nil
}

// CompatibilityError represents a snapshot compatibility error.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}
