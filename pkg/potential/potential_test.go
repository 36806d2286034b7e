package potential

import (
	"math"
	"testing"

	"github.com/jihwankim/gibbsfg/pkg/model"
)

func assign(values map[model.VariableID]model.VariableValue) Assignment {
	return func(id model.VariableID) model.VariableValue { return values[id] }
}

func vif(id model.VariableID, pos int, positive bool, eq model.VariableValue) model.VariableInFactor {
	return model.VariableInFactor{VariableID: id, NPosition: pos, IsPositive: positive, EqualTo: eq}
}

func TestAndAllSatisfied(t *testing.T) {
	vifs := []model.VariableInFactor{
		vif(0, 0, true, 1),
		vif(1, 1, true, 1),
	}
	a := assign(map[model.VariableID]model.VariableValue{1: 1})
	got, err := Eval(model.FuncAnd, vifs, a, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Fatalf("AND all-satisfied = %v, want 1", got)
	}
}

func TestAndOneUnsatisfied(t *testing.T) {
	vifs := []model.VariableInFactor{
		vif(0, 0, true, 1),
		vif(1, 1, true, 1),
	}
	a := assign(map[model.VariableID]model.VariableValue{1: 0})
	got, err := Eval(model.FuncAnd, vifs, a, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Fatalf("AND one-unsatisfied = %v, want 0", got)
	}
}

func TestOrAnySatisfied(t *testing.T) {
	vifs := []model.VariableInFactor{
		vif(0, 0, true, 1),
		vif(1, 1, true, 1),
	}
	a := assign(map[model.VariableID]model.VariableValue{1: 0})
	got, err := Eval(model.FuncOr, vifs, a, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Fatalf("OR any-satisfied = %v, want 1", got)
	}
}

// TestImplyNeg1_1TruthTable verifies all four body/head combinations for
// IMPLY_neg1_1, the seed test suite's scenario 5.
func TestImplyNeg1_1TruthTable(t *testing.T) {
	vifs := []model.VariableInFactor{
		vif(0, 0, true, 1), // body
		vif(1, 1, true, 1), // head
	}
	cases := []struct {
		name     string
		body     model.VariableValue
		head     model.VariableValue
		proposal model.VariableValue
		vid      model.VariableID
		want     float64
	}{
		{"body unsatisfied", 0, 1, 0, 0, 0},
		{"body and head unsatisfied", 0, 0, 0, 0, 0},
		{"body and head satisfied", 1, 1, 1, 1, 1},
		{"body satisfied head unsatisfied", 1, 0, 0, 1, -1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a := assign(map[model.VariableID]model.VariableValue{0: c.body, 1: c.head})
			got, err := Eval(model.FuncImplyNeg1_1, vifs, a, c.vid, c.proposal)
			if err != nil {
				t.Fatal(err)
			}
			if got != c.want {
				t.Fatalf("IMPLY_neg1_1 %s = %v, want %v", c.name, got, c.want)
			}
		})
	}
}

func TestImplyNeg1_1BodyUnsatisfiedViaProposal(t *testing.T) {
	vifs := []model.VariableInFactor{
		vif(0, 0, true, 1),
		vif(1, 1, true, 1),
	}
	a := assign(map[model.VariableID]model.VariableValue{1: 1})
	got, err := Eval(model.FuncImplyNeg1_1, vifs, a, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Fatalf("IMPLY_neg1_1 body-unsatisfied-via-proposal = %v, want 0", got)
	}
}

func TestRatioIsLog2OfLinearPlusOne(t *testing.T) {
	vifs := []model.VariableInFactor{vif(0, 0, true, 1)}
	a := assign(nil)
	got, err := Eval(model.FuncRatio, vifs, a, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := math.Log2(2) // linearSum at arity 1 = head_sat = 1
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("RATIO arity1 head-satisfied = %v, want %v", got, want)
	}
}

func TestCombinationKeyMixedRadix(t *testing.T) {
	vifs := []model.VariableInFactor{
		vif(0, 0, true, 0),
		vif(1, 1, true, 0),
	}
	cards := []model.Cardinality{2, 3}
	domainIndex := func(slot int, v model.VariableValue) int { return int(v) }
	a := assign(map[model.VariableID]model.VariableValue{0: 1, 1: 2})
	key := CombinationKey(vifs, cards, domainIndex, a, 10, 0)
	// offset = 0*2+1 = 1; offset = 1*3+2 = 5
	if key != 5 {
		t.Fatalf("CombinationKey = %d, want 5", key)
	}
}

func TestResolveWeightSparseMiss(t *testing.T) {
	f := model.Factor{Func: model.FuncSparseMultinomial, WeightIDs: map[uint64]model.WeightID{0: 7}}
	if _, ok := ResolveWeight(f, 0, 1); ok {
		t.Fatalf("expected sparse miss to be inactive")
	}
	if wid, ok := ResolveWeight(f, 0, 0); !ok || wid != 7 {
		t.Fatalf("expected hit wid=7, got wid=%d ok=%v", wid, ok)
	}
}

func TestResolveWeightDenseAlwaysActive(t *testing.T) {
	f := model.Factor{Func: model.FuncMultinomial}
	wid, ok := ResolveWeight(f, 100, 5)
	if !ok || wid != 105 {
		t.Fatalf("dense resolve = (%d,%v), want (105,true)", wid, ok)
	}
}

func TestUnsupportedFuncFails(t *testing.T) {
	_, err := Eval(model.FuncID(200), nil, assign(nil), 0, 0)
	if err == nil {
		t.Fatal("expected error for unsupported factor function")
	}
}
