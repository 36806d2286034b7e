package graph

import (
	"errors"
	"testing"

	"github.com/jihwankim/gibbsfg/pkg/model"
)

func TestAddVariableRejectsBadBooleanCardinality(t *testing.T) {
	g := NewRawFactorGraph()
	err := g.AddVariable(model.Variable{ID: 0, DomainType: model.Boolean, Cardinality: 3})
	var me *model.Error
	if !errors.As(err, &me) || me.Kind != model.SchemaError {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}

func TestAddVariableRejectsBadCategoricalCardinality(t *testing.T) {
	g := NewRawFactorGraph()
	err := g.AddVariable(model.Variable{ID: 0, DomainType: model.Categorical, Cardinality: 1})
	var me *model.Error
	if !errors.As(err, &me) || me.Kind != model.SchemaError {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}

func TestAddVariableAcceptsValidBoolean(t *testing.T) {
	g := NewRawFactorGraph()
	if err := g.AddVariable(model.Variable{ID: 0, DomainType: model.Boolean, Cardinality: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.NumVariables() != 1 {
		t.Fatalf("NumVariables() = %d, want 1", g.NumVariables())
	}
	v, ok := g.Variable(0)
	if !ok || v.ID != 0 {
		t.Fatalf("Variable(0) = %v, %v", v, ok)
	}
}

func TestAddFactorRejectsUnsupportedTag(t *testing.T) {
	g := NewRawFactorGraph()
	err := g.AddFactor(model.RawFactor{ID: 0, Func: model.FuncID(99), Vars: []model.VariableInFactor{{VariableID: 0}}})
	var me *model.Error
	if !errors.As(err, &me) || me.Kind != model.SchemaError {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}

func TestAddFactorRejectsEmptyVarList(t *testing.T) {
	g := NewRawFactorGraph()
	err := g.AddFactor(model.RawFactor{ID: 0, Func: model.FuncAnd, Vars: nil})
	var me *model.Error
	if !errors.As(err, &me) || me.Kind != model.SchemaError {
		t.Fatalf("expected SchemaError for empty var list, got %v", err)
	}
}

func TestSortedVariableIDsRejectsGap(t *testing.T) {
	g := NewRawFactorGraph()
	g.AddVariable(model.Variable{ID: 0, DomainType: model.Boolean, Cardinality: 2})
	g.AddVariable(model.Variable{ID: 2, DomainType: model.Boolean, Cardinality: 2})
	_, err := g.SortedVariableIDs()
	var me *model.Error
	if !errors.As(err, &me) || me.Kind != model.InvariantError {
		t.Fatalf("expected InvariantError for non-sequential ids, got %v", err)
	}
}

func TestSortedVariableIDsAcceptsSequential(t *testing.T) {
	g := NewRawFactorGraph()
	g.AddVariable(model.Variable{ID: 0, DomainType: model.Boolean, Cardinality: 2})
	g.AddVariable(model.Variable{ID: 1, DomainType: model.Boolean, Cardinality: 2})
	ids, err := g.SortedVariableIDs()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] != 0 || ids[1] != 1 {
		t.Fatalf("SortedVariableIDs() = %v", ids)
	}
}

func TestAddFactorCopiesVarSlice(t *testing.T) {
	g := NewRawFactorGraph()
	vars := []model.VariableInFactor{{VariableID: 0}}
	if err := g.AddFactor(model.RawFactor{ID: 0, Func: model.FuncAnd, Vars: vars}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vars[0].VariableID = 99
	f, _ := g.Factor(0)
	if f.Vars[0].VariableID != 0 {
		t.Fatalf("AddFactor did not defensively copy Vars, mutation leaked: %v", f.Vars[0].VariableID)
	}
}
