// Package graph holds the mutable staging representation used while a
// factor graph is being ingested, before it is compiled into the read-only,
// edge-indexed form sampler workers traverse.
package graph

import (
	"fmt"
	"sort"

	"github.com/jihwankim/gibbsfg/pkg/model"
)

// RawFactorGraph accumulates variables, weights, and factors in any order
// during load. It owns per-factor ordered lists of incident variables
// (built incrementally as factors are added); the per-variable lists of
// incident factors are derived from them by compact.Compile.
type RawFactorGraph struct {
	variables map[model.VariableID]*model.Variable
	weights   map[model.WeightID]*model.Weight
	factors   map[model.FactorID]*model.RawFactor

	maxVariableID model.VariableID
	maxFactorID   model.FactorID
	maxWeightID   model.WeightID
	seenAnyVar    bool
	seenAnyFactor bool
	seenAnyWeight bool
}

// NewRawFactorGraph returns an empty builder.
func NewRawFactorGraph() *RawFactorGraph {
	return &RawFactorGraph{
		variables: make(map[model.VariableID]*model.Variable),
		weights:   make(map[model.WeightID]*model.Weight),
		factors:   make(map[model.FactorID]*model.RawFactor),
	}
}

// AddVariable registers a variable. Its domain_map, if any, must already be
// a value->dense-index bijection; domain files are an external collaborator
// concern (§6).
func (g *RawFactorGraph) AddVariable(v model.Variable) error {
	if v.DomainType != model.Boolean && v.DomainType != model.Categorical {
		return model.NewError(model.SchemaError, uint64(v.ID), fmt.Sprintf("unsupported domain type %d", v.DomainType))
	}
	if v.DomainType == model.Boolean && v.Cardinality != 2 {
		return model.NewError(model.SchemaError, uint64(v.ID), "boolean variable must have cardinality 2")
	}
	if v.DomainType == model.Categorical && v.Cardinality < 2 {
		return model.NewError(model.SchemaError, uint64(v.ID), "categorical variable must have cardinality >= 2")
	}
	stored := v
	g.variables[v.ID] = &stored
	if !g.seenAnyVar || v.ID > g.maxVariableID {
		g.maxVariableID = v.ID
	}
	g.seenAnyVar = true
	return nil
}

// AddWeight registers a weight.
func (g *RawFactorGraph) AddWeight(w model.Weight) {
	stored := w
	g.weights[w.ID] = &stored
	if !g.seenAnyWeight || w.ID > g.maxWeightID {
		g.maxWeightID = w.ID
	}
	g.seenAnyWeight = true
}

// AddFactor registers a factor with its ordered edge list. There is no
// separate IS_TRUE tag: an IS_TRUE factor is added as FuncAnd (arity 1),
// and any tag outside the supported FuncID set is rejected.
func (g *RawFactorGraph) AddFactor(f model.RawFactor) error {
	switch f.Func {
	case model.FuncImplyMLN, model.FuncOr, model.FuncAnd, model.FuncEqual,
		model.FuncImplyNeg1_1, model.FuncOneIsTrue, model.FuncLinear,
		model.FuncRatio, model.FuncLogical, model.FuncMultinomial,
		model.FuncSparseMultinomial:
	default:
		return model.NewError(model.SchemaError, uint64(f.ID), fmt.Sprintf("unsupported factor tag %d", f.Func))
	}
	if len(f.Vars) == 0 {
		return model.NewError(model.SchemaError, uint64(f.ID), "factor has no variables")
	}
	stored := f
	stored.Vars = append([]model.VariableInFactor(nil), f.Vars...)
	g.factors[f.ID] = &stored
	if !g.seenAnyFactor || f.ID > g.maxFactorID {
		g.maxFactorID = f.ID
	}
	g.seenAnyFactor = true
	return nil
}

// NumVariables, NumFactors, NumWeights report the builder's current size.
func (g *RawFactorGraph) NumVariables() int { return len(g.variables) }
func (g *RawFactorGraph) NumFactors() int   { return len(g.factors) }
func (g *RawFactorGraph) NumWeights() int   { return len(g.weights) }

// sortedVariableIDs and sortedFactorIDs return ids in ascending order,
// validating the "id equals array index" invariant along the way.
func (g *RawFactorGraph) sortedVariableIDs() ([]model.VariableID, error) {
	ids := make([]model.VariableID, 0, len(g.variables))
	for id := range g.variables {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		if uint64(id) != uint64(i) {
			return nil, model.NewError(model.InvariantError, uint64(id), fmt.Sprintf("variable ids are not sequential starting at 0: expected %d, got %d", i, id))
		}
	}
	return ids, nil
}

func (g *RawFactorGraph) sortedFactorIDs() ([]model.FactorID, error) {
	ids := make([]model.FactorID, 0, len(g.factors))
	for id := range g.factors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		if uint64(id) != uint64(i) {
			return nil, model.NewError(model.InvariantError, uint64(id), fmt.Sprintf("factor ids are not sequential starting at 0: expected %d, got %d", i, id))
		}
	}
	return ids, nil
}

func (g *RawFactorGraph) sortedWeightIDs() ([]model.WeightID, error) {
	ids := make([]model.WeightID, 0, len(g.weights))
	for id := range g.weights {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		if uint64(id) != uint64(i) {
			return nil, model.NewError(model.InvariantError, uint64(id), fmt.Sprintf("weight ids are not sequential starting at 0: expected %d, got %d", i, id))
		}
	}
	return ids, nil
}

// Variable returns the variable with the given id, if present.
func (g *RawFactorGraph) Variable(id model.VariableID) (*model.Variable, bool) {
	v, ok := g.variables[id]
	return v, ok
}

// Factor returns the factor with the given id, if present.
func (g *RawFactorGraph) Factor(id model.FactorID) (*model.RawFactor, bool) {
	f, ok := g.factors[id]
	return f, ok
}

// WeightByID returns the weight with the given id, if present.
func (g *RawFactorGraph) WeightByID(id model.WeightID) (*model.Weight, bool) {
	w, ok := g.weights[id]
	return w, ok
}

// SortedVariableIDs returns every variable id in ascending order, failing if
// ids are not the sequential range [0, n).
func (g *RawFactorGraph) SortedVariableIDs() ([]model.VariableID, error) {
	return g.sortedVariableIDs()
}

// SortedFactorIDs returns every factor id in ascending order, failing if ids
// are not the sequential range [0, n).
func (g *RawFactorGraph) SortedFactorIDs() ([]model.FactorID, error) {
	return g.sortedFactorIDs()
}

// SortedWeightIDs returns every weight id in ascending order, failing if ids
// are not the sequential range [0, n).
func (g *RawFactorGraph) SortedWeightIDs() ([]model.WeightID, error) {
	return g.sortedWeightIDs()
}
