package worker

import "testing"

func TestPartitionCoversEveryVariableExactlyOnce(t *testing.T) {
	nvar, nshards := 17, 4
	seen := make([]int, nvar)
	for i := 0; i < nshards; i++ {
		start, end := Partition(nvar, nshards, i)
		for v := start; v < end; v++ {
			seen[v]++
		}
	}
	for v, count := range seen {
		if count != 1 {
			t.Fatalf("variable %d covered %d times, want 1", v, count)
		}
	}
}

func TestPartitionEmptyShardsWhenMoreWorkersThanVars(t *testing.T) {
	nvar, nshards := 2, 8
	for i := 0; i < nshards; i++ {
		start, end := Partition(nvar, nshards, i)
		if start > nvar || end > nvar {
			t.Fatalf("worker %d range [%d,%d) exceeds nvar=%d", i, start, end, nvar)
		}
	}
}

func TestPartitionSingleWorkerTakesAll(t *testing.T) {
	start, end := Partition(10, 1, 0)
	if start != 0 || end != 10 {
		t.Fatalf("single worker got [%d,%d), want [0,10)", start, end)
	}
}
