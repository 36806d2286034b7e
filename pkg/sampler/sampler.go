// Package sampler implements the single-variable Gibbs kernel: conditional
// sampling over a variable's domain, the contrastive-divergence weight
// update, and the inference tally step. Everything here runs inside a
// worker's partition loop with no locking — the races on shared replica
// state are intentional, the Hogwild! tradeoff traded for lock-free
// throughput.
package sampler

import (
	"math"

	"github.com/jihwankim/gibbsfg/pkg/graph/compact"
	"github.com/jihwankim/gibbsfg/pkg/inference"
	"github.com/jihwankim/gibbsfg/pkg/model"
	"github.com/jihwankim/gibbsfg/pkg/potential"
	"github.com/jihwankim/gibbsfg/pkg/rng"
)

// Kernel binds a CompactFactorGraph and an InferenceResult replica for the
// duration of one epoch. It is not safe to share a Kernel across goroutines
// — each worker constructs its own, all pointing at the same graph and
// result.
type Kernel struct {
	Graph  *compact.CompactFactorGraph
	Result *inference.Result
	Rand   *rng.Source
}

// view selects which assignment slice a candidate score is computed
// against.
type view int

const (
	evidView view = iota
	freeView
)

func (k *Kernel) assignment(v view) potential.Assignment {
	if v == evidView {
		return func(id model.VariableID) model.VariableValue { return k.Result.AssignmentsEvid[id] }
	}
	return func(id model.VariableID) model.VariableValue { return k.Result.AssignmentsFree[id] }
}

// candidateScores computes score(x) for every value x in the variable's
// domain: sum over incident factors of weight(x) * potential(f, ..., v, x).
func (k *Kernel) candidateScores(vid model.VariableID, v view) ([]float64, error) {
	variable := &k.Graph.Variables[vid]
	card := int(variable.Cardinality)
	scores := make([]float64, card)
	assign := k.assignment(v)

	start := variable.NStartIFactors
	end := start + model.EdgeIndex(variable.NFactors)
	for e := start; e < end; e++ {
		f := k.Graph.VarFactors[e]
		vifs := k.Graph.Vifs[f.NStartIVif : f.NStartIVif+model.EdgeIndex(f.NVariables)]
		baseWeight := k.Graph.VarFactorWeightIDs[e]

		for x := 0; x < card; x++ {
			proposal := variable.ValueAt(x)
			pot, err := potential.Eval(f.Func, vifs, assign, vid, proposal)
			if err != nil {
				return nil, err
			}
			if pot == 0 {
				continue
			}
			weight, ok := k.weightFor(f, baseWeight, vifs, assign, vid, proposal)
			if !ok {
				continue // sparse categorical miss: inactive, contributes zero
			}
			scores[x] += k.Result.WeightValues[weight] * pot
		}
	}
	return scores, nil
}

// weightFor resolves the weight id active for factor f when vid takes
// proposal, given the rest of the assignment from assign.
func (k *Kernel) weightFor(f model.Factor, baseWeight model.WeightID, vifs []model.VariableInFactor, assign potential.Assignment, vid model.VariableID, proposal model.VariableValue) (model.WeightID, bool) {
	if !f.Func.IsMultinomial() {
		return baseWeight, true
	}
	cards := make([]model.Cardinality, len(vifs))
	domainIndex := func(slot int, value model.VariableValue) int {
		v := &k.Graph.Variables[vifs[slot].VariableID]
		cards[slot] = v.Cardinality
		return v.DomainIndex(value)
	}
	key := potential.CombinationKey(vifs, cards, domainIndex, assign, vid, proposal)
	return potential.ResolveWeight(f, baseWeight, key)
}

// sampleFromScores draws an index proportional to exp(score), using the
// shift-trick log-sum-exp for numerical stability.
func sampleFromScores(scores []float64, draw func() float64) (int, error) {
	maxScore := scores[0]
	for _, s := range scores {
		if math.IsNaN(s) {
			return 0, model.NewError(model.RuntimeError, 0, "NaN score in conditional sampling")
		}
		if s > maxScore {
			maxScore = s
		}
	}
	weights := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		w := math.Exp(s - maxScore)
		weights[i] = w
		sum += w
	}
	r := draw() * sum
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r < acc {
			return i, nil
		}
	}
	return len(weights) - 1, nil
}

// sample draws a conditional sample for vid against the given view and
// returns the dense index chosen (caller maps back to a domain value via
// Variable.ValueAt).
func (k *Kernel) sample(vid model.VariableID, v view) (int, error) {
	scores, err := k.candidateScores(vid, v)
	if err != nil {
		return 0, err
	}
	return sampleFromScores(scores, k.Rand.Float64)
}

// sampleValue draws a conditional sample and returns it as a domain value.
func (k *Kernel) sampleValue(vid model.VariableID, v view) (model.VariableValue, error) {
	idx, err := k.sample(vid, v)
	if err != nil {
		return 0, err
	}
	return k.Graph.Variables[vid].ValueAt(idx), nil
}

// SampleEvid and SampleFree are the two views callers reach for.
func (k *Kernel) SampleEvid(vid model.VariableID) (model.VariableValue, error) {
	return k.sampleValue(vid, evidView)
}
func (k *Kernel) SampleFree(vid model.VariableID) (model.VariableValue, error) {
	return k.sampleValue(vid, freeView)
}

// Infer performs one inference-step draw for vid: sample against the
// evidence view (unless pinned), store it, and tally it.
func (k *Kernel) Infer(vid model.VariableID, sampleEvidence bool) error {
	variable := &k.Graph.Variables[vid]
	pinned := variable.IsEvidence() && (!sampleEvidence || variable.Evidence == model.IsObservation)

	var val model.VariableValue
	if pinned {
		val = k.Result.AssignmentsEvid[vid]
	} else {
		var err error
		val, err = k.SampleEvid(vid)
		if err != nil {
			return err
		}
		k.Result.AssignmentsEvid[vid] = val
	}
	k.tally(vid, val)
	return nil
}

func (k *Kernel) tally(vid model.VariableID, val model.VariableValue) {
	v := &k.Graph.Variables[vid]
	k.Result.AggNSamples[vid]++
	if v.DomainType == model.Boolean {
		if val == 1 {
			k.Result.SampleTallies[v.NStartITally]++
		}
		return
	}
	k.Result.SampleTallies[v.NStartITally+v.DomainIndex(val)]++
}

// Learn performs one learning-step update for vid at stepsize eta: draw the
// free and evidence-conditioned assignments, update every incident weight
// by the boolean or categorical contrastive gradient, then store both
// assignments.
func (k *Kernel) Learn(vid model.VariableID, eta float64, learnNonEvidence bool, sampleEvidence bool) error {
	variable := &k.Graph.Variables[vid]

	xFree, err := k.SampleFree(vid)
	if err != nil {
		return err
	}

	skipUpdate := variable.IsEvidence() && !learnNonEvidence

	// Observation variables are never resampled, even when sampling
	// evidence is otherwise enabled.
	pinned := variable.IsEvidence() && (!sampleEvidence || variable.Evidence == model.IsObservation)

	var xEvid model.VariableValue
	if pinned {
		xEvid = k.Result.AssignmentsEvid[vid]
	} else {
		xEvid, err = k.SampleEvid(vid)
		if err != nil {
			return err
		}
	}

	if !skipUpdate {
		if err := k.updateWeights(vid, eta, xEvid, xFree); err != nil {
			return err
		}
	}

	k.Result.AssignmentsFree[vid] = xFree
	if !pinned {
		k.Result.AssignmentsEvid[vid] = xEvid
	}
	return nil
}

func (k *Kernel) updateWeights(vid model.VariableID, eta float64, xEvid, xFree model.VariableValue) error {
	variable := &k.Graph.Variables[vid]
	assignEvidAt := func(proposal model.VariableValue) potential.Assignment {
		return func(id model.VariableID) model.VariableValue {
			if id == vid {
				return proposal
			}
			return k.Result.AssignmentsEvid[id]
		}
	}
	assignFreeAt := func(proposal model.VariableValue) potential.Assignment {
		return func(id model.VariableID) model.VariableValue {
			if id == vid {
				return proposal
			}
			return k.Result.AssignmentsFree[id]
		}
	}

	start := variable.NStartIFactors
	end := start + model.EdgeIndex(variable.NFactors)
	for e := start; e < end; e++ {
		f := k.Graph.VarFactors[e]
		vifs := k.Graph.Vifs[f.NStartIVif : f.NStartIVif+model.EdgeIndex(f.NVariables)]
		baseWeight := k.Graph.VarFactorWeightIDs[e]

		potEvid, err := potential.Eval(f.Func, vifs, assignEvidAt(xEvid), vid, xEvid)
		if err != nil {
			return err
		}
		potFree, err := potential.Eval(f.Func, vifs, assignFreeAt(xFree), vid, xFree)
		if err != nil {
			return err
		}

		if !f.Func.IsMultinomial() {
			if !k.Result.WeightIsFixed[baseWeight] {
				k.Result.WeightValues[baseWeight] += eta * (potEvid - potFree)
			}
			continue
		}

		w1, ok1 := k.weightFor(f, baseWeight, vifs, assignEvidAt(xEvid), vid, xEvid)
		w2, ok2 := k.weightFor(f, baseWeight, vifs, assignFreeAt(xFree), vid, xFree)
		equal := ok1 && ok2 && w1 == w2
		eqF := 0.0
		if equal {
			eqF = 1.0
		}
		if ok1 && !k.Result.WeightIsFixed[w1] {
			k.Result.WeightValues[w1] += eta * (potEvid - eqF*potFree)
		}
		if ok2 && !k.Result.WeightIsFixed[w2] {
			k.Result.WeightValues[w2] += eta * (eqF*potEvid - potFree)
		}
	}
	return nil
}
