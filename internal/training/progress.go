package training

import (
	"regexp"
	"strconv"
	"strings"
)

// Metrics holds the latest per-epoch validation summary.
type Metrics struct {
	Precision float64
	Recall    float64
	MAP50     float64
	MAP5095   float64
}

// Map renders metrics as the wire form used in task results.
func (m Metrics) Map() map[string]float64 {
	return map[string]float64{
		"precision": m.Precision,
		"recall":    m.Recall,
		"map_50":    m.MAP50,
		"map_50_95": m.MAP5095,
	}
}

var (
	// Per-epoch lines start with "<current>/<total>" after indentation,
	// e.g. "     3/99     2.1G   0.045 ...".
	epochPattern = regexp.MustCompile(`^\s*(\d+)/(\d+)\s`)

	// The validation summary row:
	// "  all   128   929   0.71   0.64   0.68   0.45"
	metricsPattern = regexp.MustCompile(`^\s*all\s+\d+\s+\d+\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)`)
)

// lineUpdate is what a single output line contributed, if anything.
type lineUpdate struct {
	hasEpoch     bool
	currentEpoch int
	totalEpochs  int

	hasMetrics bool
	metrics    Metrics
}

// parseLine extracts progress from one line of detector output. It
// never fails; unrecognized lines yield a zero update.
func parseLine(line string) lineUpdate {
	var update lineUpdate

	if m := epochPattern.FindStringSubmatch(line); m != nil {
		current, err1 := strconv.Atoi(m[1])
		total, err2 := strconv.Atoi(m[2])
		if err1 == nil && err2 == nil && total > 0 && current <= total {
			update.hasEpoch = true
			// The detector logs zero-based epochs.
			update.currentEpoch = current + 1
			update.totalEpochs = total + 1
		}
	}

	if m := metricsPattern.FindStringSubmatch(line); m != nil {
		values := make([]float64, 0, 4)
		ok := true
		for _, field := range m[1:] {
			value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				ok = false
				break
			}
			values = append(values, value)
		}
		if ok {
			update.hasMetrics = true
			update.metrics = Metrics{
				Precision: values[0],
				Recall:    values[1],
				MAP50:     values[2],
				MAP5095:   values[3],
			}
		}
	}

	return update
}
