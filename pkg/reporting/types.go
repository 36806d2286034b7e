package reporting

import "time"

// RunSummary is a complete orchestrator run report: metadata, per-epoch
// history, and the final marginal/weight snapshot.
type RunSummary struct {
	RunID     string    `json:"run_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  string    `json:"duration"`

	Status  RunStatus `json:"status"`
	Success bool      `json:"success"`
	Message string    `json:"message,omitempty"`

	NReplicas          int `json:"n_replicas"`
	NThreadsPerReplica int `json:"n_threads_per_replica"`

	LearningEpochs  []EpochStats `json:"learning_epochs,omitempty"`
	InferenceEpochs int          `json:"inference_epochs"`

	FinalWeights []WeightSnapshot `json:"final_weights,omitempty"`

	Errors []string `json:"errors,omitempty"`
}

// RunStatus is the orchestrator's coarse-grained outcome.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusStopped   RunStatus = "stopped"
)

// EpochStats is one learning epoch's diagnostics, the fields the
// orchestrator's merge step computes and logs.
type EpochStats struct {
	Epoch    int           `json:"epoch"`
	Stepsize float64       `json:"stepsize"`
	LMax     float64       `json:"lmax"`
	L2Norm   float64       `json:"l2"`
	Elapsed  time.Duration `json:"elapsed"`
}

// WeightSnapshot is one weight's final learned value, for the diagnostic
// dump restored from original_source/src/inference_result.cc's
// show_weights_snippet.
type WeightSnapshot struct {
	ID      uint64  `json:"id"`
	Value   float64 `json:"value"`
	IsFixed bool    `json:"is_fixed"`
}

// MarginalSnapshot is one variable's estimated marginal, for the diagnostic
// dump restored from inference_result.cc's show_marginal_snippet.
type MarginalSnapshot struct {
	VariableID uint64    `json:"variable_id"`
	NSamples   uint64    `json:"n_samples"`
	Marginals  []float64 `json:"marginals"` // Categorical: P(v=domain value) per dense index; Boolean: one entry, P(v=1)
}
