// Package fixtures builds small in-memory factor graphs for the CLI demo and
// for package tests, standing in for the binary-file loader this engine
// deliberately doesn't own.
package fixtures

import (
	"github.com/jihwankim/gibbsfg/pkg/graph"
	"github.com/jihwankim/gibbsfg/pkg/model"
)

// BiasedCoin builds the 18-variable Boolean scenario from the seed test
// suite: variables 0-7 are evidence=true, 8 is evidence=false, 9-17 are free
// query variables. Every variable has one IS_TRUE (AND, arity 1) factor
// sharing weight 0.
func BiasedCoin() (*graph.RawFactorGraph, error) {
	g := graph.NewRawFactorGraph()
	g.AddWeight(model.Weight{ID: 0, Value: 0, IsFixed: false})

	for i := 0; i < 18; i++ {
		vid := model.VariableID(i)
		ev := model.NotEvidence
		var assign model.VariableValue
		switch {
		case i <= 7:
			ev = model.IsEvidence
			assign = 1
		case i == 8:
			ev = model.IsEvidence
			assign = 0
		}
		if err := g.AddVariable(model.Variable{
			ID:             vid,
			DomainType:     model.Boolean,
			Evidence:       ev,
			Cardinality:    2,
			AssignmentEvid: assign,
			AssignmentFree: assign,
		}); err != nil {
			return nil, err
		}
		if err := g.AddFactor(model.RawFactor{
			ID:   model.FactorID(i),
			Func: model.FuncAnd,
			Vars: []model.VariableInFactor{
				{VariableID: vid, NPosition: 0, IsPositive: true, EqualTo: 1},
			},
			WeightIDs: map[uint64]model.WeightID{0: 0},
		}); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// BiasedCoinFixedWeight is BiasedCoin with weight 0 initialized to 5.0 and
// fixed, the seed suite's second scenario.
func BiasedCoinFixedWeight() (*graph.RawFactorGraph, error) {
	g, err := BiasedCoin()
	if err != nil {
		return nil, err
	}
	g.AddWeight(model.Weight{ID: 0, Value: 5.0, IsFixed: true})
	return g, nil
}

// Categorical3Way builds the 1-variable, cardinality-3 scenario from the
// seed test suite: domain {10, 20, 30}, one AND_CATEGORICAL (sparse
// multinomial) factor whose weight map gives each domain value its own
// weight, weights {1, 2, 3}.
func Categorical3Way() (*graph.RawFactorGraph, error) {
	g := graph.NewRawFactorGraph()
	g.AddWeight(model.Weight{ID: 0, Value: 1.0})
	g.AddWeight(model.Weight{ID: 1, Value: 2.0})
	g.AddWeight(model.Weight{ID: 2, Value: 3.0})

	domainMap := map[model.VariableValue]int{10: 0, 20: 1, 30: 2}
	domainValues := []model.VariableValue{10, 20, 30}

	if err := g.AddVariable(model.Variable{
		ID:             0,
		DomainType:     model.Categorical,
		Evidence:       model.NotEvidence,
		Cardinality:    3,
		AssignmentEvid: 10,
		AssignmentFree: 10,
		DomainMap:      domainMap,
		DomainValues:   domainValues,
	}); err != nil {
		return nil, err
	}

	weightIDs := map[uint64]model.WeightID{0: 0, 1: 1, 2: 2}
	if err := g.AddFactor(model.RawFactor{
		ID:   0,
		Func: model.FuncSparseMultinomial,
		Vars: []model.VariableInFactor{
			{VariableID: 0, NPosition: 0, IsPositive: true, EqualTo: 10},
		},
		WeightIDs: weightIDs,
	}); err != nil {
		return nil, err
	}
	return g, nil
}
