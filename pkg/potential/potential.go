// Package potential implements the factor potential functions and the
// categorical weight-selection key, the two pieces of pure math every
// sampling and learning step is built from.
package potential

import (
	"math"

	"github.com/jihwankim/gibbsfg/pkg/model"
)

// Assignment resolves a variable's current value; the sampler passes either
// the evidence or the free view, and substitutes proposal for the variable
// under consideration so the evaluator never needs to know which one is
// being probed.
type Assignment func(id model.VariableID) model.VariableValue

// Eval returns a factor's potential when variable `vid` takes the value
// `proposal` and every other variable uses assign. vifs is the factor's
// edge slice (compact.CompactFactorGraph.Vifs[f.NStartIVif:][:f.NVariables]),
// already ordered by ascending NPosition so the last slot is always the
// head of IMPLY/LINEAR/RATIO/LOGICAL style functions.
//
// Grounded on original_source/src/factor.h's potential() switch.
func Eval(fn model.FuncID, vifs []model.VariableInFactor, assign Assignment, vid model.VariableID, proposal model.VariableValue) (float64, error) {
	satisfied := func(vif model.VariableInFactor) bool {
		v := proposal
		if vif.VariableID != vid {
			v = assign(vif.VariableID)
		}
		return vif.SatisfiedUsing(v)
	}

	switch fn {
	case model.FuncAnd:
		for _, vif := range vifs {
			if !satisfied(vif) {
				return 0, nil
			}
		}
		return 1, nil

	case model.FuncOr:
		for _, vif := range vifs {
			if satisfied(vif) {
				return 1, nil
			}
		}
		return 0, nil

	case model.FuncEqual:
		if len(vifs) == 0 {
			return 1, nil
		}
		first := satisfied(vifs[0])
		for _, vif := range vifs[1:] {
			if satisfied(vif) != first {
				return 0, nil
			}
		}
		return 1, nil

	case model.FuncImplyMLN:
		body, head := bodyAndHead(vifs, satisfied)
		if !body {
			return 1, nil
		}
		if head {
			return 1, nil
		}
		return 0, nil

	case model.FuncImplyNeg1_1:
		body, head := bodyAndHead(vifs, satisfied)
		if !body {
			return 0, nil
		}
		if head {
			return 1, nil
		}
		return -1, nil

	case model.FuncOneIsTrue:
		count := 0
		for _, vif := range vifs {
			if satisfied(vif) {
				count++
			}
		}
		if count == 1 {
			return 1, nil
		}
		return -1, nil

	case model.FuncLinear:
		return linearSum(vifs, satisfied), nil

	case model.FuncRatio:
		return math.Log2(1 + linearSum(vifs, satisfied)), nil

	case model.FuncLogical:
		if linearSum(vifs, satisfied) > 0 {
			return 1, nil
		}
		return 0, nil

	case model.FuncMultinomial, model.FuncSparseMultinomial:
		return 1, nil

	default:
		return 0, model.NewError(model.SchemaError, uint64(fn), "unsupported factor function in potential evaluator")
	}
}

// bodyAndHead reports whether every non-head slot is satisfied ("body") and
// whether the last slot (by position order) is satisfied ("head"). A
// single-slot factor has no body, only a head, and is vacuously
// body-satisfied.
func bodyAndHead(vifs []model.VariableInFactor, satisfied func(model.VariableInFactor) bool) (body, head bool) {
	if len(vifs) == 0 {
		return true, false
	}
	body = true
	for _, vif := range vifs[:len(vifs)-1] {
		if !satisfied(vif) {
			body = false
			break
		}
	}
	head = satisfied(vifs[len(vifs)-1])
	return body, head
}

// linearSum implements LINEAR's Σ over body of (¬sat ∨ head_sat), fixed to
// head_sat alone at arity 1.
func linearSum(vifs []model.VariableInFactor, satisfied func(model.VariableInFactor) bool) float64 {
	if len(vifs) == 0 {
		return 0
	}
	if len(vifs) == 1 {
		if satisfied(vifs[0]) {
			return 1
		}
		return 0
	}
	headSat := satisfied(vifs[len(vifs)-1])
	sum := 0.0
	for _, vif := range vifs[:len(vifs)-1] {
		if !satisfied(vif) || headSat {
			sum++
		}
	}
	return sum
}

// CombinationKey computes the mixed-radix key over a factor's variables in
// slot order, the exact offset original_source/src/factor_graph.cc's
// get_multinomial_weight_id accumulates: offset = offset*cardinality(v) +
// domain_index(value), iterated left to right over vifs.
func CombinationKey(vifs []model.VariableInFactor, cardinalities []model.Cardinality, domainIndex func(slot int, value model.VariableValue) int, assign Assignment, vid model.VariableID, proposal model.VariableValue) uint64 {
	var offset uint64
	for i, vif := range vifs {
		v := proposal
		if vif.VariableID != vid {
			v = assign(vif.VariableID)
		}
		offset = offset*uint64(cardinalities[i]) + uint64(domainIndex(i, v))
	}
	return offset
}

// ResolveWeight returns the weight id active for a multinomial factor's
// combination key. AND_CATEGORICAL (FuncSparseMultinomial) looks the key up
// in f.WeightIDs directly, where a miss means "inactive" (ok=false, not an
// error). Dense CATEGORICAL (FuncMultinomial) adds the key to the factor's
// per-edge base weight id.
func ResolveWeight(f model.Factor, baseWeightID model.WeightID, key uint64) (model.WeightID, bool) {
	if f.Func == model.FuncSparseMultinomial {
		wid, ok := f.WeightIDs[key]
		return wid, ok
	}
	return model.WeightID(uint64(baseWeightID) + key), true
}
