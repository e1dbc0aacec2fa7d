package detector

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"urchin/internal/classes"
)

var classColors = map[int]color.RGBA{
	classes.MalePapilla:   {B: 255, A: 255},
	classes.FemalePapilla: {R: 255, B: 255, A: 255},
	classes.Madreporite:   {G: 255, A: 255},
	classes.Anus:          {R: 255, G: 165, A: 255},
}

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Draw overlays detection boxes, class labels, the frame rate, and the
// detection count on frame in place.
func Draw(frame *gocv.Mat, detections []Detection, fps float64) {
	for _, d := range detections {
		boxColor, ok := classColors[d.ClassID]
		if !ok {
			boxColor = white
		}
		rect := image.Rect(d.Box[0], d.Box[1], d.Box[2], d.Box[3])
		gocv.Rectangle(frame, rect, boxColor, 2)

		label := fmt.Sprintf("%s: %.2f", classes.Name(d.ClassID), d.Confidence)
		size := gocv.GetTextSize(label, gocv.FontHersheySimplex, 0.5, 1)
		labelTop := rect.Min.Y - size.Y - 6
		if labelTop < 0 {
			labelTop = rect.Min.Y
		}
		gocv.Rectangle(frame, image.Rect(rect.Min.X, labelTop, rect.Min.X+size.X+4, labelTop+size.Y+6), boxColor, -1)
		gocv.PutText(frame, label, image.Pt(rect.Min.X+2, labelTop+size.Y+2), gocv.FontHersheySimplex, 0.5, white, 1)
	}

	status := fmt.Sprintf("fps=%.1f detections=%d", fps, len(detections))
	gocv.PutText(frame, status, image.Pt(10, 25), gocv.FontHersheySimplex, 0.7, white, 2)
}
