package reporting

import (
	"encoding/json"
	"fmt"
)

// OutputFormat selects how ProgressReporter renders a line.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// ProgressReporter reports epoch-level run progress through a Logger, in
// either a human-readable text form or a single JSON line per event.
// Textual result rendering to a file or terminal UI is out of scope. Text
// lines go through the logger; JSON lines are printed to standard output.
type ProgressReporter struct {
	format OutputFormat
	logger *Logger
}

// NewProgressReporter returns a reporter writing through logger in format.
func NewProgressReporter(format OutputFormat, logger *Logger) *ProgressReporter {
	return &ProgressReporter{format: format, logger: logger}
}

// ReportEpoch logs one learning epoch's diagnostics.
func (pr *ProgressReporter) ReportEpoch(stats EpochStats) {
	switch pr.format {
	case FormatJSON:
		data, _ := json.Marshal(stats)
		fmt.Println(string(data))
	default:
		pr.logger.WithEpoch(stats.Epoch).Info("learning epoch",
			"stepsize", stats.Stepsize,
			"lmax", stats.LMax,
			"l2", stats.L2Norm,
			"elapsed", stats.Elapsed.String(),
		)
	}
}

// ReportInferenceProgress logs an inference-loop checkpoint.
func (pr *ProgressReporter) ReportInferenceProgress(epoch, total int) {
	switch pr.format {
	case FormatJSON:
		data, _ := json.Marshal(map[string]interface{}{"event": "inference_progress", "epoch": epoch, "total": total})
		fmt.Println(string(data))
	default:
		pr.logger.WithEpoch(epoch).Info("inference epoch", "total", total)
	}
}

// ReportRunCompleted logs the final run summary.
func (pr *ProgressReporter) ReportRunCompleted(summary *RunSummary) {
	switch pr.format {
	case FormatJSON:
		data, _ := json.Marshal(summary)
		fmt.Println(string(data))
	default:
		pr.logger.Info("run completed",
			"run_id", summary.RunID,
			"status", string(summary.Status),
			"success", summary.Success,
			"duration", summary.Duration,
			"learning_epochs", len(summary.LearningEpochs),
			"inference_epochs", summary.InferenceEpochs,
		)
	}
}

// ReportWeightSnippet logs a handful of final weight values, restored from
// original_source/src/inference_result.cc's show_weights_snippet — a
// diagnostic dump via the logger, not file I/O.
func (pr *ProgressReporter) ReportWeightSnippet(weights []WeightSnapshot, limit int) {
	if limit > len(weights) {
		limit = len(weights)
	}
	for _, w := range weights[:limit] {
		pr.logger.Debug("weight", "id", w.ID, "value", w.Value, "is_fixed", w.IsFixed)
	}
}

// ReportMarginalSnippet logs a handful of final marginals, restored from
// inference_result.cc's show_marginal_snippet.
func (pr *ProgressReporter) ReportMarginalSnippet(marginals []MarginalSnapshot, limit int) {
	if limit > len(marginals) {
		limit = len(marginals)
	}
	for _, m := range marginals[:limit] {
		pr.logger.Debug("marginal", "variable_id", m.VariableID, "n_samples", m.NSamples, "marginals", m.Marginals)
	}
}
