package extractor

import (
	"math"
	"testing"
)

func gradientFrame(n int, offset float64) []float64 {
	frame := make([]float64, n)
	for i := range frame {
		frame[i] = math.Mod(float64(i)*3+offset, 256)
	}
	return frame
}

func TestSSIMIdenticalFrames(t *testing.T) {
	frame := gradientFrame(256, 0)
	if s := ssim(frame, frame); math.Abs(s-1) > 1e-9 {
		t.Fatalf("identical frames should score 1, got %v", s)
	}
}

func TestSSIMDissimilarFrames(t *testing.T) {
	dark := make([]float64, 256)
	bright := make([]float64, 256)
	for i := range bright {
		bright[i] = 250
	}
	same := ssim(dark, dark)
	cross := ssim(dark, bright)
	if cross >= same {
		t.Fatalf("dissimilar frames should score below identical ones: %v >= %v", cross, same)
	}
}

func TestSSIMDegenerateInput(t *testing.T) {
	if s := ssim(nil, nil); s != 0 {
		t.Fatalf("empty input should score 0, got %v", s)
	}
	if s := ssim([]float64{1, 2, 3}, []float64{1, 2}); s != 0 {
		t.Fatalf("length mismatch should score 0, got %v", s)
	}
}

func TestMaxSimilarity(t *testing.T) {
	candidate := gradientFrame(128, 0)
	if s := maxSimilarity(candidate, nil); s != 0 {
		t.Fatalf("no retained frames should score 0, got %v", s)
	}

	retained := [][]float64{
		gradientFrame(128, 90),
		gradientFrame(128, 0),
		gradientFrame(128, 200),
	}
	if s := maxSimilarity(candidate, retained); math.Abs(s-1) > 1e-9 {
		t.Fatalf("expected the identical retained frame to dominate, got %v", s)
	}
}

func TestPassesSpacing(t *testing.T) {
	if !passesSpacing(0, -1, 10) {
		t.Fatal("first capture must always pass")
	}
	if passesSpacing(14, 10, 5) {
		t.Fatal("gap of 4 should fail a min gap of 5")
	}
	if !passesSpacing(15, 10, 5) {
		t.Fatal("gap of 5 should pass a min gap of 5")
	}
}
