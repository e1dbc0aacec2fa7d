package annotations

import (
	"strconv"
	"strings"

	"urchin/internal/api"
	"urchin/internal/classes"
)

// Box is one normalized bounding box from a label file.
type Box struct {
	ClassID int
	CX      float64
	CY      float64
	W       float64
	H       float64
}

// ParseLabelLine parses a single "class_id cx cy w h" line. The class id
// must be a non-negative integer; geometry must lie in [0, 1].
func ParseLabelLine(line string) (Box, error) {
	fields := strings.Fields(line)
	if len(fields) != 5 {
		return Box{}, api.E(api.KindInvalidInput, "label line needs 5 fields, got %d", len(fields))
	}

	classID, err := strconv.Atoi(fields[0])
	if err != nil || classID < 0 {
		return Box{}, api.E(api.KindInvalidInput, "invalid class id %q", fields[0])
	}

	var geom [4]float64
	for i, field := range fields[1:] {
		value, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return Box{}, api.E(api.KindInvalidInput, "invalid geometry value %q", field)
		}
		if value < 0 || value > 1 {
			return Box{}, api.E(api.KindInvalidInput, "geometry value %v outside [0, 1]", value)
		}
		geom[i] = value
	}

	return Box{ClassID: classID, CX: geom[0], CY: geom[1], W: geom[2], H: geom[3]}, nil
}

// ValidateLabelText checks every non-empty line of a label file for
// write. Class ids outside the vocabulary are rejected rather than
// silently remapped.
func ValidateLabelText(text string) error {
	for i, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		box, err := ParseLabelLine(line)
		if err != nil {
			return api.E(api.KindInvalidInput, "line %d: %v", i+1, err)
		}
		if !classes.Known(box.ClassID) {
			return api.E(api.KindInvalidInput, "line %d: class id %d outside vocabulary", i+1, box.ClassID)
		}
	}
	return nil
}

// CountClasses recomputes annotation statistics from label text. Lines
// that fail to parse or reference unknown class ids are skipped; readers
// tolerate historic label files written against older vocabularies.
func CountClasses(text string) (int, map[string]int) {
	counts := make(map[string]int)
	total := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		box, err := ParseLabelLine(line)
		if err != nil {
			continue
		}
		total++
		if name := classes.Name(box.ClassID); name != "" {
			counts[name]++
		}
	}
	return total, counts
}
