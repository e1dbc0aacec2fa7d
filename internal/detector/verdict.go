package detector

import (
	"gonum.org/v1/gonum/stat"

	"urchin/internal/classes"
)

// Detection is one detector output box in pixel space.
type Detection struct {
	Box        [4]int
	Confidence float64
	ClassID    int
}

// Gender values a verdict can carry.
const (
	GenderMale    = "male"
	GenderFemale  = "female"
	GenderUnknown = "unknown"
)

// Verdict is the aggregated classification outcome for one image.
type Verdict struct {
	Gender     string
	Confidence float64
	Counts     map[string]int
	Message    string
	Detections []Detection
}

// Decide maps a detection list to a verdict. Only papilla classes are
// decisive; madreporite and anus detections are counted but ignored by
// the gender rule.
func Decide(detections []Detection) Verdict {
	counts := map[string]int{
		"male":        0,
		"female":      0,
		"madreporite": 0,
		"anus":        0,
	}
	confidences := map[int][]float64{}

	for _, d := range detections {
		switch d.ClassID {
		case classes.MalePapilla:
			counts["male"]++
		case classes.FemalePapilla:
			counts["female"]++
		case classes.Madreporite:
			counts["madreporite"]++
		case classes.Anus:
			counts["anus"]++
		default:
			continue
		}
		confidences[d.ClassID] = append(confidences[d.ClassID], d.Confidence)
	}

	verdict := Verdict{
		Gender:     GenderUnknown,
		Counts:     counts,
		Detections: detections,
	}

	male, female := counts["male"], counts["female"]
	switch {
	case male == 0 && female == 0:
		verdict.Message = "no papillae detected"
	case male > female:
		verdict.Gender = GenderMale
		verdict.Confidence = stat.Mean(confidences[classes.MalePapilla], nil)
	case female > male:
		verdict.Gender = GenderFemale
		verdict.Confidence = stat.Mean(confidences[classes.FemalePapilla], nil)
	default:
		verdict.Message = "equal male and female papilla counts"
	}
	return verdict
}
