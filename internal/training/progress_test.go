package training

import "testing"

func TestParseLineEpoch(t *testing.T) {
	update := parseLine("      3/99      2.1G     0.045     0.031     0.012")
	if !update.hasEpoch {
		t.Fatal("epoch line not recognized")
	}
	// Output epochs are zero-based.
	if update.currentEpoch != 4 || update.totalEpochs != 100 {
		t.Fatalf("expected 4/100, got %d/%d", update.currentEpoch, update.totalEpochs)
	}
}

func TestParseLineMetrics(t *testing.T) {
	update := parseLine("                 all        128        929      0.712      0.643      0.681      0.454")
	if !update.hasMetrics {
		t.Fatal("metrics line not recognized")
	}
	m := update.metrics
	if m.Precision != 0.712 || m.Recall != 0.643 || m.MAP50 != 0.681 || m.MAP5095 != 0.454 {
		t.Fatalf("unexpected metrics: %+v", m)
	}
}

func TestParseLineIgnoresNoise(t *testing.T) {
	lines := []string{
		"",
		"Starting training for 100 epochs...",
		"Model summary: 213 layers",
		"10/5     current beyond total",
		"all words but no numbers",
		"  all 1 2 three 0.4 0.5 0.6",
	}
	for _, line := range lines {
		update := parseLine(line)
		if update.hasEpoch || update.hasMetrics {
			t.Fatalf("line %q should not produce an update: %+v", line, update)
		}
	}
}

func TestMetricsMap(t *testing.T) {
	m := Metrics{Precision: 0.7, Recall: 0.6, MAP50: 0.5, MAP5095: 0.4}
	out := m.Map()
	if out["precision"] != 0.7 || out["recall"] != 0.6 || out["map_50"] != 0.5 || out["map_50_95"] != 0.4 {
		t.Fatalf("unexpected map: %v", out)
	}
}
