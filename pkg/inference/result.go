// Package inference holds InferenceResult, the per-replica mutable state a
// Gibbs sampling epoch reads and writes: current assignments, weight
// values, and sample tallies.
package inference

import (
	"fmt"
	"math"

	"github.com/jihwankim/gibbsfg/pkg/graph/compact"
	"github.com/jihwankim/gibbsfg/pkg/model"
)

// snippetLogger is the minimal logging surface LogSnippet/LogHistogram need,
// satisfied by *reporting.Logger without this package importing reporting
// (reporting doesn't need inference either; keeping the two packages
// independent avoids coupling this package to the ambient logging stack's
// shape).
type snippetLogger interface {
	Debug(msg string, fields ...interface{})
}

// Result is one replica's mutable sampling state. Its slices are sized from
// the CompactFactorGraph it was built for and indexed the same way:
// AssignmentsEvid/Free by variable id, WeightValues/WeightIsFixed by weight
// id, SampleTallies by a variable's NStartITally offset.
//
// Concurrent workers mutate these slices without synchronization within an
// epoch — the races are intentional (Hogwild!); callers must never take a
// lock around a call into the sampler package.
type Result struct {
	AssignmentsEvid []model.VariableValue
	AssignmentsFree []model.VariableValue

	WeightValues  []float64
	WeightIsFixed []bool

	SampleTallies []uint64
	AggNSamples   []uint64
}

// New allocates a Result sized for cfg, with assignments and weights seeded
// from the graph's initial variable/weight values.
func New(cfg *compact.CompactFactorGraph) *Result {
	r := &Result{
		AssignmentsEvid: make([]model.VariableValue, len(cfg.Variables)),
		AssignmentsFree: make([]model.VariableValue, len(cfg.Variables)),
		WeightValues:    make([]float64, len(cfg.Weights)),
		WeightIsFixed:   make([]bool, len(cfg.Weights)),
		SampleTallies:   make([]uint64, tallySize(cfg.Variables)),
		AggNSamples:     make([]uint64, len(cfg.Variables)),
	}
	for i, v := range cfg.Variables {
		r.AssignmentsEvid[i] = v.AssignmentEvid
		r.AssignmentsFree[i] = v.AssignmentFree
	}
	for i, w := range cfg.Weights {
		r.WeightValues[i] = w.Value
		r.WeightIsFixed[i] = w.IsFixed
	}
	return r
}

func tallySize(vars []model.Variable) int {
	total := 0
	for _, v := range vars {
		if v.DomainType == model.Categorical {
			total += int(v.Cardinality)
		} else {
			total++
		}
	}
	return total
}

// ClearTallies zeroes the sample tallies and counts, done once before an
// inference loop.
func (r *Result) ClearTallies() {
	for i := range r.SampleTallies {
		r.SampleTallies[i] = 0
	}
	for i := range r.AggNSamples {
		r.AggNSamples[i] = 0
	}
}

// MergeWeightsFrom adds other's weight values into r elementwise, the first
// half of the learning-epoch replica reduction.
func (r *Result) MergeWeightsFrom(other *Result) {
	for i := range r.WeightValues {
		r.WeightValues[i] += other.WeightValues[i]
	}
}

// AverageWeights divides every weight value by count, completing the
// reduction MergeWeightsFrom started.
func (r *Result) AverageWeights(count int) {
	if count <= 0 {
		return
	}
	inv := 1.0 / float64(count)
	for i := range r.WeightValues {
		r.WeightValues[i] *= inv
	}
}

// Regularize applies an optional post-merge shrinkage to non-fixed weights,
// gated by reg_param > 0. Runs after averaging so shrinkage applies to the
// merged weight once per epoch, not once per replica.
func (r *Result) Regularize(kind Regularization, regParam, stepsize float64) {
	if regParam <= 0 {
		return
	}
	switch kind {
	case L2:
		shrink := 1.0 / (1.0 + regParam*stepsize)
		for i := range r.WeightValues {
			if !r.WeightIsFixed[i] {
				r.WeightValues[i] *= shrink
			}
		}
	case L1:
		delta := regParam * stepsize
		for i := range r.WeightValues {
			if r.WeightIsFixed[i] {
				continue
			}
			if r.WeightValues[i] > delta {
				r.WeightValues[i] -= delta
			} else if r.WeightValues[i] < -delta {
				r.WeightValues[i] += delta
			} else {
				r.WeightValues[i] = 0
			}
		}
	}
}

// Regularization selects the shrinkage family Regularize applies.
type Regularization int

const (
	NoRegularization Regularization = iota
	L1
	L2
)

// CopyWeightsTo overwrites dst's non-fixed weight values with r's, the
// broadcast-back half of the replica merge.
func (r *Result) CopyWeightsTo(dst *Result) {
	for i := range r.WeightValues {
		if !dst.WeightIsFixed[i] {
			dst.WeightValues[i] = r.WeightValues[i]
		}
	}
}

// AggregateMarginalsFrom folds other's sample tallies and counts into r, the
// final inference-loop reduction into replica 0.
func (r *Result) AggregateMarginalsFrom(other *Result) {
	for i := range r.SampleTallies {
		r.SampleTallies[i] += other.SampleTallies[i]
	}
	for i := range r.AggNSamples {
		r.AggNSamples[i] += other.AggNSamples[i]
	}
}

// WeightDeltaNorms returns lmax = max|delta|/stepsize and l2 =
// ||delta||_2/stepsize between r's weights (post-merge) and prev (pre-merge
// snapshot), the per-epoch diagnostics the orchestrator logs.
func WeightDeltaNorms(prev, curr []float64, stepsize float64) (lmax, l2 float64) {
	if stepsize == 0 {
		return 0, 0
	}
	var sumSq float64
	for i := range curr {
		d := curr[i] - prev[i]
		ad := d
		if ad < 0 {
			ad = -ad
		}
		if ad > lmax {
			lmax = ad
		}
		sumSq += d * d
	}
	return lmax / stepsize, math.Sqrt(sumSq) / stepsize
}

// Marginal returns P(v=1) for a Boolean variable, or P(v=value_k) for a
// Categorical variable, from this replica's (presumably aggregated) tallies.
func (r *Result) Marginal(v model.Variable, denseIndex int) (float64, error) {
	n := r.AggNSamples[v.ID]
	if n == 0 {
		return 0, fmt.Errorf("inference: variable %d has zero samples", v.ID)
	}
	if v.DomainType == model.Boolean {
		return float64(r.SampleTallies[v.NStartITally]) / float64(n), nil
	}
	return float64(r.SampleTallies[v.NStartITally+denseIndex]) / float64(n), nil
}

// LogSnippet logs the first limit weights and the first limit query
// variables' marginals, restored from
// original_source/src/inference_result.cc's show_weights_snippet /
// show_marginal_snippet — a quiet-mode-gated diagnostic dump through the
// logger, never a file.
func (r *Result) LogSnippet(logger snippetLogger, vars []model.Variable, limit int) {
	n := len(r.WeightValues)
	if limit < n {
		n = limit
	}
	for i := 0; i < n; i++ {
		logger.Debug("weight", "id", i, "value", r.WeightValues[i], "is_fixed", r.WeightIsFixed[i])
	}

	shown := 0
	for _, v := range vars {
		if v.IsEvidence() || shown >= limit {
			continue
		}
		p, err := r.Marginal(v, 0)
		if err != nil {
			continue
		}
		logger.Debug("marginal", "variable_id", v.ID, "p_value0", p)
		shown++
	}
}

// LogHistogram logs a 10-bin calibration histogram of every query
// variable's Boolean marginal (or its dominant categorical mass), restored
// from inference_result.cc's show_marginal_histogram.
func (r *Result) LogHistogram(logger snippetLogger, vars []model.Variable) {
	const bins = 10
	counts := make([]int, bins)
	for _, v := range vars {
		if v.IsEvidence() {
			continue
		}
		p, err := r.Marginal(v, 0)
		if err != nil {
			continue
		}
		if v.DomainType == model.Categorical {
			for k := 1; k < int(v.Cardinality); k++ {
				if pk, _ := r.Marginal(v, k); pk > p {
					p = pk
				}
			}
		}
		bin := int(p * bins)
		if bin >= bins {
			bin = bins - 1
		}
		if bin < 0 {
			bin = 0
		}
		counts[bin]++
	}
	logger.Debug("marginal histogram", "bins", counts)
}
