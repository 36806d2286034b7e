// Package config holds the Options record that configures one orchestrator
// run: replica/thread counts, epoch budgets, learning schedule, and the
// ambient logging/metrics settings, loaded as YAML with environment-variable
// expansion.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Regularization selects the shrinkage family applied to weights after a
// learning-epoch merge.
type Regularization string

const (
	RegularizationNone Regularization = "none"
	RegularizationL1   Regularization = "l1"
	RegularizationL2   Regularization = "l2"
)

// ParameterServer configures the optional distributed weight-synchronization
// hook.
type ParameterServer struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Options is the enumerated options record for one run, plus the ambient
// logging/metrics settings every run carries.
type Options struct {
	// NDataCopy is the number of NUMA replicas (default 1).
	NDataCopy int `yaml:"n_datacopy"`
	// NThreads is the total worker thread budget across all replicas;
	// per-replica = max(1, n_threads/n_datacopy).
	NThreads int `yaml:"n_threads"`

	NLearningEpoch  int `yaml:"n_learning_epoch"`
	NInferenceEpoch int `yaml:"n_inference_epoch"`

	Stepsize       float64        `yaml:"stepsize"`
	Decay          float64        `yaml:"decay"`
	RegParam       float64        `yaml:"reg_param"`
	Regularization Regularization `yaml:"regularization"`

	ShouldSampleEvidence   bool `yaml:"should_sample_evidence"`
	ShouldLearnNonEvidence bool `yaml:"should_learn_non_evidence"`

	ShouldBeQuiet bool `yaml:"should_be_quiet"`

	ParameterServer *ParameterServer `yaml:"parameter_server,omitempty"`

	Logging LoggingOptions `yaml:"logging"`
	Metrics MetricsOptions `yaml:"metrics"`
}

// LoggingOptions controls the zerolog logger the orchestrator and workers
// write epoch diagnostics through.
type LoggingOptions struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsOptions controls the prometheus registration endpoint that exposes
// per-epoch gauges.
type MetricsOptions struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// PerReplicaThreads returns max(1, n_threads/n_datacopy).
func (o *Options) PerReplicaThreads() int {
	copies := o.NDataCopy
	if copies < 1 {
		copies = 1
	}
	per := o.NThreads / copies
	if per < 1 {
		per = 1
	}
	return per
}

// Default returns an Options record with original_source/src/dimmwitted.cc's
// stated defaults (n_datacopy=1) plus reasonable ambient-stack defaults.
func Default() *Options {
	return &Options{
		NDataCopy:              1,
		NThreads:               1,
		NLearningEpoch:         100,
		NInferenceEpoch:        100,
		Stepsize:               0.1,
		Decay:                  1.0,
		RegParam:               0,
		Regularization:         RegularizationNone,
		ShouldSampleEvidence:   false,
		ShouldLearnNonEvidence: false,
		ShouldBeQuiet:          false,
		Logging: LoggingOptions{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsOptions{
			Enabled: false,
			Addr:    ":9090",
		},
	}
}

// Load reads an Options record from a YAML file, expanding ${VAR}/$VAR
// environment references before parsing. A missing file yields the
// defaults, not an error.
func Load(path string) (*Options, error) {
	opts := Default()
	if path == "" {
		path = "gibbsfg.yaml"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return opts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	expanded := []byte(os.ExpandEnv(string(data)))
	if err := yaml.Unmarshal(expanded, opts); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return opts, nil
}

// Save writes the Options record to path as YAML.
func (o *Options) Save(path string) error {
	data, err := yaml.Marshal(o)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Validate checks the record for values the orchestrator cannot run with.
func (o *Options) Validate() error {
	if o.NDataCopy < 1 {
		return fmt.Errorf("config: n_datacopy must be at least 1")
	}
	if o.NThreads < 1 {
		return fmt.Errorf("config: n_threads must be at least 1")
	}
	if o.NLearningEpoch < 0 || o.NInferenceEpoch < 0 {
		return fmt.Errorf("config: epoch counts must be non-negative")
	}
	if o.Stepsize <= 0 {
		return fmt.Errorf("config: stepsize must be positive")
	}
	if o.Decay <= 0 || o.Decay > 1 {
		return fmt.Errorf("config: decay must be in (0, 1]")
	}
	switch o.Regularization {
	case RegularizationNone, RegularizationL1, RegularizationL2:
	default:
		return fmt.Errorf("config: unsupported regularization %q", o.Regularization)
	}
	if o.RegParam < 0 {
		return fmt.Errorf("config: reg_param must be non-negative")
	}
	return nil
}
