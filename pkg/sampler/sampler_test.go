package sampler

import (
	"math"
	"testing"

	"github.com/jihwankim/gibbsfg/pkg/fixtures"
	"github.com/jihwankim/gibbsfg/pkg/graph/compact"
	"github.com/jihwankim/gibbsfg/pkg/inference"
	"github.com/jihwankim/gibbsfg/pkg/model"
	"github.com/jihwankim/gibbsfg/pkg/rng"
)

func biasedCoinKernel(t *testing.T) *Kernel {
	t.Helper()
	raw, err := fixtures.BiasedCoin()
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := compact.Compile(raw)
	if err != nil {
		t.Fatal(err)
	}
	return &Kernel{Graph: cfg, Result: inference.New(cfg), Rand: rng.New(1, 2, 3)}
}

func TestInferPinsEvidenceWhenSampleEvidenceDisabled(t *testing.T) {
	k := biasedCoinKernel(t)
	before := append([]model.VariableValue(nil), k.Result.AssignmentsEvid...)
	for epoch := 0; epoch < 50; epoch++ {
		for vid := model.VariableID(0); vid < model.VariableID(len(k.Graph.Variables)); vid++ {
			if err := k.Infer(vid, false); err != nil {
				t.Fatal(err)
			}
		}
	}
	for i := 0; i <= 8; i++ {
		if k.Result.AssignmentsEvid[i] != before[i] {
			t.Fatalf("evidence variable %d changed from %v to %v with sample_evidence disabled", i, before[i], k.Result.AssignmentsEvid[i])
		}
	}
}

func TestInferTalliesQueryVariable(t *testing.T) {
	k := biasedCoinKernel(t)
	vid := model.VariableID(9)
	for epoch := 0; epoch < 20; epoch++ {
		if err := k.Infer(vid, false); err != nil {
			t.Fatal(err)
		}
	}
	if k.Result.AggNSamples[vid] != 20 {
		t.Fatalf("AggNSamples[%d] = %d, want 20", vid, k.Result.AggNSamples[vid])
	}
}

func TestLearnMovesWeightTowardEvidence(t *testing.T) {
	k := biasedCoinKernel(t)
	k.Result.WeightValues[0] = 0
	// Variable 0 is pinned evidence=true; its free sample starts unbiased
	// at weight 0, so the contrastive update should push the weight up.
	for epoch := 0; epoch < 200; epoch++ {
		for vid := model.VariableID(0); vid < 9; vid++ {
			if err := k.Learn(vid, 0.1, true, false); err != nil {
				t.Fatal(err)
			}
		}
	}
	if k.Result.WeightValues[0] <= 0 {
		t.Fatalf("weight did not move toward the evidence-satisfying direction: %v", k.Result.WeightValues[0])
	}
}

func TestLearnSkipsFixedWeight(t *testing.T) {
	raw, err := fixtures.BiasedCoinFixedWeight()
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := compact.Compile(raw)
	if err != nil {
		t.Fatal(err)
	}
	k := &Kernel{Graph: cfg, Result: inference.New(cfg), Rand: rng.New(4, 5, 6)}
	if k.Result.WeightValues[0] != 5.0 {
		t.Fatalf("fixture did not seed fixed weight to 5.0: %v", k.Result.WeightValues[0])
	}
	for epoch := 0; epoch < 20; epoch++ {
		for vid := model.VariableID(0); vid < model.VariableID(len(cfg.Variables)); vid++ {
			if err := k.Learn(vid, 0.1, true, false); err != nil {
				t.Fatal(err)
			}
		}
	}
	if k.Result.WeightValues[0] != 5.0 {
		t.Fatalf("fixed weight changed: %v, want 5.0", k.Result.WeightValues[0])
	}
}

func TestCandidateScoresBooleanArity(t *testing.T) {
	k := biasedCoinKernel(t)
	k.Result.WeightValues[0] = 2.0
	scores, err := k.candidateScores(9, evidView)
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 2 {
		t.Fatalf("len(scores) = %d, want 2", len(scores))
	}
	// value 1 satisfies the IS_TRUE factor (contributes weight*1), value 0
	// does not (contributes weight*0).
	if scores[1] != 2.0 || scores[0] != 0 {
		t.Fatalf("scores = %v, want [0, 2.0]", scores)
	}
}

func TestSampleFromScoresDegenerateHighScore(t *testing.T) {
	scores := []float64{0, 1000, 0}
	draws := []float64{0.0, 0.5, 0.999}
	for _, d := range draws {
		idx, err := sampleFromScores(scores, func() float64 { return d })
		if err != nil {
			t.Fatal(err)
		}
		if idx != 1 {
			t.Fatalf("draw=%v: sampleFromScores with dominant score = %d, want 1", d, idx)
		}
	}
}

func TestSampleFromScoresRejectsNaN(t *testing.T) {
	scores := []float64{0, math.NaN()}
	if _, err := sampleFromScores(scores, func() float64 { return 0.5 }); err == nil {
		t.Fatal("expected an error for a NaN score")
	}
}

func TestSampleFromScoresUniform(t *testing.T) {
	scores := []float64{0, 0}
	idx, err := sampleFromScores(scores, func() float64 { return 0.9 })
	if err != nil {
		t.Fatal(err)
	}
	if idx != 1 {
		t.Fatalf("uniform scores, draw=0.9: idx = %d, want 1", idx)
	}
	idx, err = sampleFromScores(scores, func() float64 { return 0.1 })
	if err != nil {
		t.Fatal(err)
	}
	if idx != 0 {
		t.Fatalf("uniform scores, draw=0.1: idx = %d, want 0", idx)
	}
}

func TestCategorical3WayCandidateScoresSoftmax(t *testing.T) {
	raw, err := fixtures.Categorical3Way()
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := compact.Compile(raw)
	if err != nil {
		t.Fatal(err)
	}
	res := inference.New(cfg)
	k := &Kernel{Graph: cfg, Result: res, Rand: rng.New(7, 8, 9)}
	scores, err := k.candidateScores(0, evidView)
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 3 {
		t.Fatalf("len(scores) = %d, want 3", len(scores))
	}
	want := []float64{1.0, 2.0, 3.0}
	for i := range want {
		if scores[i] != want[i] {
			t.Fatalf("scores[%d] = %v, want %v", i, scores[i], want[i])
		}
	}
}
