// Package config loads the YAML configuration shared by the commands.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/cwbudde/analysisexchange/internal/store"
)

// Config is the application configuration.
type Config struct {
	Problem   ProblemConfig   `yaml:"problem"`
	Penalty   PenaltyConfig   `yaml:"penalty"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
	Exchange  ExchangeConfig  `yaml:"exchange"`
	Store     StoreConfig     `yaml:"store"`
	Server    ServerConfig    `yaml:"server"`
}

// ProblemConfig selects the problem and optionally replaces its search box.
type ProblemConfig struct {
	Name  string    `yaml:"name" validate:"required"`
	Lower []float64 `yaml:"lower,omitempty"`
	Upper []float64 `yaml:"upper,omitempty"`
}

// PenaltyConfig configures the default barrier and per-constraint overrides.
type PenaltyConfig struct {
	BarrierLength     float64                 `yaml:"barrier_length" validate:"gt=0"`
	BarrierHeight     float64                 `yaml:"barrier_height" validate:"gt=0"`
	BarrierZero       float64                 `yaml:"barrier_zero"`
	EqualityTolerance float64                 `yaml:"equality_tolerance" validate:"gte=0"`
	Overrides         []store.PenaltyOverride `yaml:"overrides,omitempty" validate:"dive"`
}

type OptimizerConfig struct {
	Iterations int   `yaml:"iterations" validate:"gt=0"`
	Population int   `yaml:"population" validate:"gte=20"`
	Seed       int64 `yaml:"seed"`
}

// ExchangeConfig describes the external analysis program. An empty command
// evaluates the built-in problem in process.
type ExchangeConfig struct {
	Dir       string   `yaml:"dir"`
	Command   []string `yaml:"command,omitempty"`
	KeepFiles bool     `yaml:"keep_files"`
}

// StoreConfig selects where runs are kept. Snapshots go to JSON files
// ("fs") or an embedded BadgerDB ("badger"); traces are files either way.
type StoreConfig struct {
	DataDir string `yaml:"data_dir" validate:"required"`
	Backend string `yaml:"backend" validate:"oneof=fs badger"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Problem: ProblemConfig{Name: "rosenbrock"},
		Penalty: PenaltyConfig{
			BarrierLength: 0.1,
			BarrierHeight: 100,
		},
		Optimizer: OptimizerConfig{
			Iterations: 200,
			Population: 30,
			Seed:       42,
		},
		Exchange: ExchangeConfig{Dir: "./exchange"},
		Store:    StoreConfig{DataDir: "./data", Backend: "fs"},
		Server:   ServerConfig{Addr: ":8080"},
	}
}

// Load reads the configuration at path over the defaults and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads config from path, or returns the default if path is
// empty or does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

var validate = validator.New()

// Validate checks the struct tags and the run settings derived from them.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed %s%s", fe.Namespace(), fe.Tag(), paramSuffix(fe.Param()))
		}
		return err
	}
	run := c.RunConfig()
	return run.Validate()
}

func paramSuffix(p string) string {
	if p == "" {
		return ""
	}
	return "=" + p
}

// RunConfig returns the settings of an optimization run.
func (c *Config) RunConfig() store.RunConfig {
	return store.RunConfig{
		Problem:           c.Problem.Name,
		Lower:             c.Problem.Lower,
		Upper:             c.Problem.Upper,
		Command:           c.Exchange.Command,
		ExchangeDir:       c.Exchange.Dir,
		KeepFiles:         c.Exchange.KeepFiles,
		Iters:             c.Optimizer.Iterations,
		PopSize:           c.Optimizer.Population,
		Seed:              c.Optimizer.Seed,
		BarrierLength:     c.Penalty.BarrierLength,
		BarrierHeight:     c.Penalty.BarrierHeight,
		BarrierZero:       c.Penalty.BarrierZero,
		Overrides:         c.Penalty.Overrides,
		EqualityTolerance: c.Penalty.EqualityTolerance,
	}
}
