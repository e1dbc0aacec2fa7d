package extractor

import "gonum.org/v1/gonum/stat"

// SSIM constants for 8-bit dynamic range.
const (
	ssimC1 = (0.01 * 255) * (0.01 * 255)
	ssimC2 = (0.03 * 255) * (0.03 * 255)
)

// ssim computes a global structural similarity index between two
// equal-length grayscale intensity slices. Result is in [-1, 1]; 1 means
// identical.
func ssim(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	meanA := stat.Mean(a, nil)
	meanB := stat.Mean(b, nil)
	varA := stat.Variance(a, nil)
	varB := stat.Variance(b, nil)
	cov := stat.Covariance(a, b, nil)

	numerator := (2*meanA*meanB + ssimC1) * (2*cov + ssimC2)
	denominator := (meanA*meanA + meanB*meanB + ssimC1) * (varA + varB + ssimC2)
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

// maxSimilarity returns the highest SSIM between candidate and any
// retained frame, or 0 when nothing has been retained yet.
func maxSimilarity(candidate []float64, retained [][]float64) float64 {
	best := 0.0
	for _, prev := range retained {
		if s := ssim(candidate, prev); s > best {
			best = s
		}
	}
	return best
}

// passesSpacing reports whether enough frames elapsed since the last
// capture. lastCaptured is -1 before the first capture.
func passesSpacing(frameIdx, lastCaptured, minGap int) bool {
	if lastCaptured < 0 {
		return true
	}
	return frameIdx-lastCaptured >= minGap
}
