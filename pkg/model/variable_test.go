package model

import "testing"

func TestDomainIndexDense(t *testing.T) {
	v := Variable{Cardinality: 3}
	if got := v.DomainIndex(2); got != 2 {
		t.Fatalf("dense DomainIndex(2) = %d, want 2", got)
	}
}

func TestDomainIndexSparseBijection(t *testing.T) {
	v := Variable{
		Cardinality:  3,
		DomainMap:    map[VariableValue]int{10: 0, 20: 1, 30: 2},
		DomainValues: []VariableValue{10, 20, 30},
	}
	if got := v.DomainIndex(20); got != 1 {
		t.Fatalf("DomainIndex(20) = %d, want 1", got)
	}
	if got := v.ValueAt(1); got != 20 {
		t.Fatalf("ValueAt(1) = %d, want 20", got)
	}
}

func TestDomainIndexPanicsOnUnknownValue(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for value outside declared domain")
		}
	}()
	v := Variable{DomainMap: map[VariableValue]int{10: 0}}
	v.DomainIndex(99)
}

func TestIsEvidence(t *testing.T) {
	cases := []struct {
		ev   Evidence
		want bool
	}{
		{NotEvidence, false},
		{IsEvidence, true},
		{IsObservation, true},
	}
	for _, c := range cases {
		v := Variable{Evidence: c.ev}
		if got := v.IsEvidence(); got != c.want {
			t.Fatalf("IsEvidence() for %v = %v, want %v", c.ev, got, c.want)
		}
	}
}
