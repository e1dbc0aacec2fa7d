package extractor

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"

	"urchin/internal/api"
	"urchin/internal/config"
	"urchin/internal/logging"
)

// Result reports what an extraction run produced.
type Result struct {
	SavedFiles []string
	FramesRead int
}

// Extractor runs the frame retention pipeline.
type Extractor struct {
	params config.Extractor
	logger *slog.Logger
}

// New constructs an extractor with the given parameters.
func New(params config.Extractor, logger *slog.Logger) *Extractor {
	return &Extractor{
		params: params,
		logger: logging.NewComponentLogger(logger, "extractor"),
	}
}

const similarityWidth, similarityHeight = 160, 120

// Run processes videoPath and writes retained frames into outDir.
// progress receives percent-complete updates; cancellation is observed
// once per processed frame.
func (e *Extractor) Run(ctx context.Context, videoPath, outDir string, maxImages int, progress func(float64, string)) (Result, error) {
	if maxImages <= 0 {
		maxImages = e.params.MaxImages
	}
	if progress == nil {
		progress = func(float64, string) {}
	}

	capture, err := gocv.VideoCaptureFile(videoPath)
	if err != nil {
		return Result{}, api.Wrap(api.KindIOError, err, fmt.Sprintf("open video %s", filepath.Base(videoPath)))
	}
	defer capture.Close()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Result{}, api.Wrap(api.KindIOError, err, "create output directory")
	}

	totalFrames := capture.Get(gocv.VideoCaptureFrameCount)
	frame := gocv.NewMat()
	defer frame.Close()

	var result Result
	g := newGate(maxImages, e.params.MinFramesBetweenCapture, e.params.SimilarityThreshold)

	for frameIdx := 0; ; frameIdx++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if g.full() {
			break
		}
		if ok := capture.Read(&frame); !ok || frame.Empty() {
			break
		}
		result.FramesRead++

		if frameIdx%e.params.FrameInterval != 0 {
			continue
		}
		if totalFrames > 0 {
			progress(float64(frameIdx)/totalFrames*100, fmt.Sprintf("frame %d", frameIdx))
		}

		contours, focus, keep := e.evaluate(frame)
		if !keep {
			contours.Close()
			continue
		}

		signature := frameSignature(frame)
		if !g.admit(frameIdx, signature) {
			contours.Close()
			continue
		}

		path := filepath.Join(outDir, fmt.Sprintf("papillae_%s_frame%d.jpg", time.Now().UTC().Format("20060102_150405"), frameIdx))
		if saved := e.saveAnnotated(frame, contours, focus, path); saved {
			result.SavedFiles = append(result.SavedFiles, path)
			g.record(frameIdx, signature)
		}
		contours.Close()
	}

	e.logger.Info("extraction finished",
		logging.Int("frames_read", result.FramesRead),
		logging.Int("retained", len(result.SavedFiles)),
		logging.String("video", filepath.Base(videoPath)))
	return result, nil
}

// evaluate runs the candidate and focus gates. The returned contours are
// owned by the caller.
func (e *Extractor) evaluate(frame gocv.Mat) (gocv.PointsVector, float64, bool) {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)

	enhanced := gocv.NewMat()
	defer enhanced.Close()
	clahe := gocv.NewCLAHE()
	clahe.Apply(gray, &enhanced)
	clahe.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(enhanced, &blurred, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(blurred, &thresh, 0, 255, gocv.ThresholdBinary+gocv.ThresholdOtsu)

	all := gocv.FindContours(thresh, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	candidates := gocv.NewPointsVector()
	for i := 0; i < all.Size(); i++ {
		contour := all.At(i)
		if gocv.ContourArea(contour) >= float64(e.params.MinContourArea) {
			candidates.Append(contour)
		}
	}
	all.Close()

	if candidates.Size() == 0 {
		return candidates, 0, false
	}

	focus := focusMeasure(gray)
	if focus < e.params.FocusThreshold {
		return candidates, focus, false
	}
	return candidates, focus, true
}

// focusMeasure is the variance of the Laplacian of the grayscale frame.
func focusMeasure(gray gocv.Mat) float64 {
	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(gray, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)

	data, err := lap.DataPtrFloat64()
	if err != nil || len(data) == 0 {
		return 0
	}
	return stat.Variance(data, nil)
}

// frameSignature downsamples the frame to a small grayscale intensity
// slice used for structural comparison.
func frameSignature(frame gocv.Mat) []float64 {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)

	small := gocv.NewMat()
	defer small.Close()
	gocv.Resize(gray, &small, image.Pt(similarityWidth, similarityHeight), 0, 0, gocv.InterpolationArea)

	bytes := small.ToBytes()
	signature := make([]float64, len(bytes))
	for i, b := range bytes {
		signature[i] = float64(b)
	}
	return signature
}

// saveAnnotated writes the frame with a semi-transparent contour overlay
// and a focus/count caption.
func (e *Extractor) saveAnnotated(frame gocv.Mat, contours gocv.PointsVector, focus float64, path string) bool {
	overlay := frame.Clone()
	defer overlay.Close()
	gocv.DrawContours(&overlay, contours, -1, color.RGBA{G: 255, A: 255}, -1)

	blended := gocv.NewMat()
	defer blended.Close()
	gocv.AddWeighted(overlay, 0.3, frame, 0.7, 0, &blended)

	caption := fmt.Sprintf("focus=%.0f candidates=%d", focus, contours.Size())
	gocv.PutText(&blended, caption, image.Pt(10, 30), gocv.FontHersheySimplex, 0.8, color.RGBA{R: 255, G: 255, B: 255, A: 255}, 2)

	if ok := gocv.IMWrite(path, blended); !ok {
		e.logger.Warn("failed to write retained frame",
			logging.String("path", path),
			logging.String(logging.FieldEventType, "frame_write_failed"))
		return false
	}
	return true
}
