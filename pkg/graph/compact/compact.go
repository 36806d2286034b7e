// Package compact implements the immutable, edge-indexed factor graph that
// sampler workers traverse: a single compile pass away from the mutable
// graph.RawFactorGraph, and read-only ever after.
package compact

import (
	"fmt"
	"sort"

	"github.com/jihwankim/gibbsfg/pkg/graph"
	"github.com/jihwankim/gibbsfg/pkg/model"
)

// CompactFactorGraph is the read-only, edge-indexed graph every sampler
// thread shares. Variables and factors keep their own dense arrays; the two
// edge-indexed arrays (Vifs, grouped by factor; and VarFactors/
// VarFactorWeightIDs, grouped by variable) carry every physical edge
// exactly once in each view, per the safety-check invariants.
type CompactFactorGraph struct {
	Variables []model.Variable
	Factors   []model.Factor
	Weights   []model.Weight

	// Vifs is the factor-centric edge array: Vifs[f.NStartIVif:][:f.NVariables]
	// is factor f's edges, ordered by ascending NPosition.
	Vifs []model.VariableInFactor

	// VarFactorIDs[e] and VarFactors[e] are the variable-centric edge
	// array's two parallel lanes: which factor occupies this slot, and
	// that factor's compiled record, for v.NStartIFactors:][:v.NFactors].
	VarFactorIDs []model.FactorID
	VarFactors   []model.Factor
	// VarFactorWeightIDs[e] is the weight id to use at this variable-view
	// slot for non-multinomial functions. Compile stores zero for
	// multinomial functions: the sparse one resolves its weight id through
	// Factor.WeightIDs and the combination key, and the dense one adds the
	// combination key to this (zero) base.
	VarFactorWeightIDs []model.WeightID

	NumEdges int
}

// Compile builds a CompactFactorGraph from a fully-populated RawFactorGraph.
// It is one-shot: the raw graph is consumed and should be discarded
// afterward.
func Compile(raw *graph.RawFactorGraph) (*CompactFactorGraph, error) {
	varIDs, err := raw.SortedVariableIDs()
	if err != nil {
		return nil, err
	}
	factorIDs, err := raw.SortedFactorIDs()
	if err != nil {
		return nil, err
	}
	weightIDs, err := raw.SortedWeightIDs()
	if err != nil {
		return nil, err
	}

	cfg := &CompactFactorGraph{
		Variables: make([]model.Variable, len(varIDs)),
		Factors:   make([]model.Factor, len(factorIDs)),
		Weights:   make([]model.Weight, len(weightIDs)),
	}
	for i, id := range weightIDs {
		w, _ := raw.WeightByID(id)
		cfg.Weights[i] = *w
	}

	numEdges := 0
	for i, id := range factorIDs {
		rf, _ := raw.Factor(id)
		sorted := append([]model.VariableInFactor(nil), rf.Vars...)
		sort.Slice(sorted, func(a, b int) bool { return sorted[a].NPosition < sorted[b].NPosition })
		cfg.Factors[i] = model.Factor{
			ID:         rf.ID,
			Func:       rf.Func,
			NVariables: len(sorted),
			NStartIVif: model.EdgeIndex(numEdges),
			WeightIDs:  rf.WeightIDs,
		}
		cfg.Vifs = append(cfg.Vifs, sorted...)
		numEdges += len(sorted)
	}
	cfg.NumEdges = numEdges

	// Build the variable-view edge arrays by walking the factor-view once
	// more, grouping by variable id.
	varEdges := make([][]int, len(varIDs)) // factor index, per incident edge
	varEdgeWeight := make([][]model.WeightID, len(varIDs))
	for fi, rid := range factorIDs {
		rf, _ := raw.Factor(rid)
		singleWeight := model.WeightID(0)
		if !rf.Func.IsMultinomial() {
			if len(rf.WeightIDs) != 1 {
				return nil, model.NewError(model.SchemaError, uint64(rid), "non-multinomial factor must carry exactly one weight id")
			}
			for _, wid := range rf.WeightIDs {
				singleWeight = wid
			}
		}
		for _, vif := range rf.Vars {
			idx := int(vif.VariableID)
			if idx < 0 || idx >= len(varEdges) {
				return nil, model.NewError(model.InvariantError, uint64(vif.VariableID), "factor references unknown variable id")
			}
			varEdges[idx] = append(varEdges[idx], fi)
			varEdgeWeight[idx] = append(varEdgeWeight[idx], singleWeight)
		}
	}

	offset := 0
	for i, id := range varIDs {
		v, _ := raw.Variable(id)
		stored := *v
		stored.NFactors = len(varEdges[i])
		stored.NStartIFactors = model.EdgeIndex(offset)
		cfg.Variables[i] = stored
		for k, fi := range varEdges[i] {
			cfg.VarFactorIDs = append(cfg.VarFactorIDs, cfg.Factors[fi].ID)
			cfg.VarFactors = append(cfg.VarFactors, cfg.Factors[fi])
			cfg.VarFactorWeightIDs = append(cfg.VarFactorWeightIDs, varEdgeWeight[i][k])
		}
		offset += len(varEdges[i])
	}

	assignTallyOffsets(cfg.Variables)

	if err := safetyCheck(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Descriptor summarizes a compiled graph's size, restored from
// original_source/src/factor_graph.cc's operator<< — logged once at compile
// time instead of written to a file.
type Descriptor struct {
	NumVariables         int
	NumVariablesEvidence int
	NumVariablesQuery    int
	NumFactors           int
	NumWeights           int
	NumEdges             int
}

func (d Descriptor) String() string {
	return fmt.Sprintf("variables=%d (evidence=%d query=%d) factors=%d weights=%d edges=%d",
		d.NumVariables, d.NumVariablesEvidence, d.NumVariablesQuery, d.NumFactors, d.NumWeights, d.NumEdges)
}

// Describe summarizes cfg.
func (cfg *CompactFactorGraph) Describe() Descriptor {
	d := Descriptor{
		NumVariables: len(cfg.Variables),
		NumFactors:   len(cfg.Factors),
		NumWeights:   len(cfg.Weights),
		NumEdges:     cfg.NumEdges,
	}
	for _, v := range cfg.Variables {
		if v.IsEvidence() {
			d.NumVariablesEvidence++
		} else {
			d.NumVariablesQuery++
		}
	}
	return d
}

// assignTallyOffsets lays out the sample-tally array's base offsets:
// Boolean variables need one slot (the running sum of value==1), Categorical
// variables need Cardinality slots.
func assignTallyOffsets(vars []model.Variable) {
	offset := 0
	for i := range vars {
		vars[i].NStartITally = offset
		if vars[i].DomainType == model.Categorical {
			offset += int(vars[i].Cardinality)
		} else {
			offset++
		}
	}
}

// safetyCheck verifies the post-compile structural invariants, mirroring
// original_source/src/factor_graph.cc's FactorGraph::safety_check.
func safetyCheck(cfg *CompactFactorGraph) error {
	sumFactorVars := 0
	for _, f := range cfg.Factors {
		sumFactorVars += f.NVariables
	}
	if sumFactorVars != cfg.NumEdges {
		return model.NewError(model.InvariantError, uint64(sumFactorVars), fmt.Sprintf("sum of factor arities %d != num_edges %d", sumFactorVars, cfg.NumEdges))
	}
	sumVarFactors := 0
	for _, v := range cfg.Variables {
		sumVarFactors += v.NFactors
	}
	if sumVarFactors != cfg.NumEdges {
		return model.NewError(model.InvariantError, uint64(sumVarFactors), fmt.Sprintf("sum of variable degrees %d != num_edges %d", sumVarFactors, cfg.NumEdges))
	}
	for i, v := range cfg.Variables {
		if v.DomainMap == nil {
			continue
		}
		seen := make([]bool, v.Cardinality)
		for _, idx := range v.DomainMap {
			if idx < 0 || idx >= int(v.Cardinality) || seen[idx] {
				return model.NewError(model.InvariantError, uint64(i), "domain_map is not a bijection onto [0, cardinality)")
			}
			seen[idx] = true
		}
	}
	return nil
}
