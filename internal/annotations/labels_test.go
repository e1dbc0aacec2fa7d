package annotations

import (
	"strings"
	"testing"

	"urchin/internal/api"
)

func TestParseLabelLine(t *testing.T) {
	box, err := ParseLabelLine("1 0.5 0.5 0.2 0.3")
	if err != nil {
		t.Fatalf("parse valid line: %v", err)
	}
	if box.ClassID != 1 || box.CX != 0.5 || box.H != 0.3 {
		t.Fatalf("unexpected box: %+v", box)
	}
}

func TestParseLabelLineRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"too few fields":     "0 0.5 0.5",
		"too many fields":    "0 0.5 0.5 0.2 0.3 0.9",
		"negative class":     "-1 0.5 0.5 0.2 0.3",
		"non-numeric class":  "x 0.5 0.5 0.2 0.3",
		"geometry above one": "0 1.5 0.5 0.2 0.3",
		"negative geometry":  "0 0.5 -0.1 0.2 0.3",
		"non-numeric value":  "0 0.5 abc 0.2 0.3",
	}
	for name, line := range cases {
		if _, err := ParseLabelLine(line); err == nil {
			t.Errorf("%s: expected error for %q", name, line)
		} else if api.KindOf(err) != api.KindInvalidInput {
			t.Errorf("%s: expected invalid_input, got %s", name, api.KindOf(err))
		}
	}
}

func TestValidateLabelText(t *testing.T) {
	valid := "0 0.5 0.5 0.2 0.3\n1 0.1 0.1 0.05 0.05\n"
	if err := ValidateLabelText(valid); err != nil {
		t.Fatalf("valid text rejected: %v", err)
	}
	if err := ValidateLabelText(""); err != nil {
		t.Fatalf("empty text rejected: %v", err)
	}
	if err := ValidateLabelText("\n\n"); err != nil {
		t.Fatalf("blank lines rejected: %v", err)
	}
}

func TestValidateLabelTextRejectsUnknownClass(t *testing.T) {
	err := ValidateLabelText("7 0.5 0.5 0.2 0.3\n")
	if err == nil {
		t.Fatal("expected error for class id outside vocabulary")
	}
	if api.KindOf(err) != api.KindInvalidInput {
		t.Fatalf("expected invalid_input, got %s", api.KindOf(err))
	}
	if !strings.Contains(err.Error(), "vocabulary") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestCountClasses(t *testing.T) {
	text := strings.Join([]string{
		"0 0.5 0.5 0.2 0.3",
		"0 0.2 0.2 0.1 0.1",
		"1 0.8 0.8 0.1 0.1",
		"2 0.3 0.3 0.1 0.1",
		"garbage line",
		"",
	}, "\n")

	total, counts := CountClasses(text)
	if total != 4 {
		t.Fatalf("expected 4 parsed boxes, got %d", total)
	}
	if counts["male_papillae"] != 2 || counts["female_papillae"] != 1 || counts["madreporite"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestCountClassesSkipsUnknownIDs(t *testing.T) {
	total, counts := CountClasses("9 0.5 0.5 0.2 0.3\n0 0.5 0.5 0.2 0.3\n")
	if total != 2 {
		t.Fatalf("expected 2 parsed boxes, got %d", total)
	}
	if len(counts) != 1 || counts["male_papillae"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}
