package facematch

import (
	"math"
	"testing"
)

func TestSimilarity_IdenticalVectors(t *testing.T) {
	v := []float32{0.3, 0.4, 0.5}
	if got := Similarity(v, v); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("expected 1.0, got %f", got)
	}
}

func TestSimilarity_OrthogonalVectors(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	if got := Similarity(a, b); got != 0 {
		t.Errorf("expected 0, got %f", got)
	}
}

func TestSimilarity_OppositeVectorsClampToZero(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{-1, 0}
	if got := Similarity(a, b); got != 0 {
		t.Errorf("expected negative cosine clamped to 0, got %f", got)
	}
}

func TestSimilarity_DegenerateInputs(t *testing.T) {
	if got := Similarity(nil, nil); got != 0 {
		t.Errorf("expected 0 for empty vectors, got %f", got)
	}
	if got := Similarity([]float32{1, 2}, []float32{1}); got != 0 {
		t.Errorf("expected 0 for mismatched lengths, got %f", got)
	}
	if got := Similarity([]float32{0, 0}, []float32{1, 1}); got != 0 {
		t.Errorf("expected 0 for zero-norm vector, got %f", got)
	}
}

func TestSimilarity_KnownAngle(t *testing.T) {
	// 45 degrees: cosine is sqrt(2)/2.
	a := []float32{1, 0}
	b := []float32{1, 1}
	want := math.Sqrt2 / 2
	if got := Similarity(a, b); math.Abs(got-want) > 1e-6 {
		t.Errorf("expected %f, got %f", want, got)
	}
}
