package detector

import (
	"math"
	"testing"

	"urchin/internal/classes"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDecideMaleDominance(t *testing.T) {
	verdict := Decide([]Detection{
		{ClassID: classes.MalePapilla, Confidence: 0.9},
		{ClassID: classes.MalePapilla, Confidence: 0.7},
		{ClassID: classes.FemalePapilla, Confidence: 0.6},
	})

	if verdict.Gender != GenderMale {
		t.Fatalf("expected male, got %s", verdict.Gender)
	}
	if !almostEqual(verdict.Confidence, 0.8) {
		t.Fatalf("expected confidence 0.8, got %v", verdict.Confidence)
	}
	want := map[string]int{"male": 2, "female": 1, "madreporite": 0, "anus": 0}
	for key, value := range want {
		if verdict.Counts[key] != value {
			t.Fatalf("count %s: expected %d, got %d", key, value, verdict.Counts[key])
		}
	}
}

func TestDecideFemaleDominance(t *testing.T) {
	verdict := Decide([]Detection{
		{ClassID: classes.FemalePapilla, Confidence: 0.5},
		{ClassID: classes.FemalePapilla, Confidence: 0.9},
		{ClassID: classes.Anus, Confidence: 0.4},
	})

	if verdict.Gender != GenderFemale {
		t.Fatalf("expected female, got %s", verdict.Gender)
	}
	if !almostEqual(verdict.Confidence, 0.7) {
		t.Fatalf("expected confidence 0.7, got %v", verdict.Confidence)
	}
	if verdict.Counts["anus"] != 1 {
		t.Fatalf("anus count missing: %v", verdict.Counts)
	}
}

func TestDecideNoPapillae(t *testing.T) {
	verdict := Decide([]Detection{
		{ClassID: classes.Madreporite, Confidence: 0.8},
	})

	if verdict.Gender != GenderUnknown {
		t.Fatalf("expected unknown, got %s", verdict.Gender)
	}
	if verdict.Confidence != 0 {
		t.Fatalf("expected zero confidence, got %v", verdict.Confidence)
	}
	if verdict.Message == "" {
		t.Fatal("expected an explanatory message")
	}
	if verdict.Counts["madreporite"] != 1 || verdict.Counts["male"] != 0 || verdict.Counts["female"] != 0 {
		t.Fatalf("unexpected counts: %v", verdict.Counts)
	}
}

func TestDecideTie(t *testing.T) {
	verdict := Decide([]Detection{
		{ClassID: classes.MalePapilla, Confidence: 0.9},
		{ClassID: classes.FemalePapilla, Confidence: 0.9},
	})

	if verdict.Gender != GenderUnknown {
		t.Fatalf("expected unknown on tie, got %s", verdict.Gender)
	}
	if verdict.Confidence != 0 {
		t.Fatalf("expected zero confidence on tie, got %v", verdict.Confidence)
	}
	if verdict.Message == "" {
		t.Fatal("expected an explanatory message")
	}
}

func TestDecideEmpty(t *testing.T) {
	verdict := Decide(nil)
	if verdict.Gender != GenderUnknown || verdict.Confidence != 0 {
		t.Fatalf("unexpected verdict for empty input: %+v", verdict)
	}
	if len(verdict.Counts) != 4 {
		t.Fatalf("counts must cover the full vocabulary: %v", verdict.Counts)
	}
}

func TestDecideIgnoresUnknownClassIDs(t *testing.T) {
	verdict := Decide([]Detection{
		{ClassID: 42, Confidence: 0.99},
		{ClassID: classes.MalePapilla, Confidence: 0.6},
	})
	if verdict.Gender != GenderMale {
		t.Fatalf("expected male, got %s", verdict.Gender)
	}
	if !almostEqual(verdict.Confidence, 0.6) {
		t.Fatalf("unknown class leaked into confidence: %v", verdict.Confidence)
	}
}
