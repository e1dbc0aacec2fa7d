package extractor

// gate holds the retention state threaded through one extraction run:
// the image cap, capture spacing, and similarity against everything
// already retained.
type gate struct {
	maxImages    int
	minGap       int
	simThreshold float64

	saved        int
	lastCaptured int
	retained     [][]float64
}

func newGate(maxImages, minGap int, simThreshold float64) *gate {
	return &gate{
		maxImages:    maxImages,
		minGap:       minGap,
		simThreshold: simThreshold,
		lastCaptured: -1,
	}
}

// full reports whether the cap has been reached. No frame is admitted
// past it.
func (g *gate) full() bool {
	return g.saved >= g.maxImages
}

// admit decides whether the frame at frameIdx may be retained.
func (g *gate) admit(frameIdx int, signature []float64) bool {
	if g.full() {
		return false
	}
	if !passesSpacing(frameIdx, g.lastCaptured, g.minGap) {
		return false
	}
	return maxSimilarity(signature, g.retained) <= g.simThreshold
}

// record commits a retained frame. Call only after admit returned true
// and the frame was written.
func (g *gate) record(frameIdx int, signature []float64) {
	g.saved++
	g.lastCaptured = frameIdx
	g.retained = append(g.retained, signature)
}
