package vision

import (
	"math"
	"testing"
)

func TestIOU_IdenticalBoxes(t *testing.T) {
	box := [4]float32{10, 10, 50, 50}
	if got := iou(box, box); math.Abs(float64(got)-1.0) > 1e-6 {
		t.Errorf("expected IoU 1.0, got %f", got)
	}
}

func TestIOU_DisjointBoxes(t *testing.T) {
	a := [4]float32{0, 0, 10, 10}
	b := [4]float32{20, 20, 30, 30}
	if got := iou(a, b); got != 0 {
		t.Errorf("expected IoU 0, got %f", got)
	}
}

func TestIOU_PartialOverlap(t *testing.T) {
	// Two 10x10 boxes sharing a 5x10 strip: inter 50, union 150.
	a := [4]float32{0, 0, 10, 10}
	b := [4]float32{5, 0, 15, 10}
	want := float32(50.0 / 150.0)
	if got := iou(a, b); math.Abs(float64(got-want)) > 1e-6 {
		t.Errorf("expected IoU %f, got %f", want, got)
	}
}

func TestIOU_DegenerateBox(t *testing.T) {
	a := [4]float32{10, 10, 10, 10}
	b := [4]float32{0, 0, 5, 5}
	if got := iou(a, b); got != 0 {
		t.Errorf("expected IoU 0 for zero-area box, got %f", got)
	}
}

func TestNMS_SuppressesOverlaps(t *testing.T) {
	detections := []Detection{
		{BBox: [4]float32{0, 0, 10, 10}, Confidence: 0.9},
		{BBox: [4]float32{1, 1, 11, 11}, Confidence: 0.8}, // overlaps the first
		{BBox: [4]float32{50, 50, 60, 60}, Confidence: 0.7},
	}

	result := nms(detections, 0.4)

	if len(result) != 2 {
		t.Fatalf("expected 2 detections after NMS, got %d", len(result))
	}
	// Highest confidence survivor comes first.
	if result[0].Confidence != 0.9 {
		t.Errorf("expected first confidence 0.9, got %f", result[0].Confidence)
	}
	if result[1].Confidence != 0.7 {
		t.Errorf("expected second confidence 0.7, got %f", result[1].Confidence)
	}
}

func TestNMS_KeepsDistinctFaces(t *testing.T) {
	detections := []Detection{
		{BBox: [4]float32{0, 0, 10, 10}, Confidence: 0.6},
		{BBox: [4]float32{100, 100, 110, 110}, Confidence: 0.95},
		{BBox: [4]float32{200, 0, 210, 10}, Confidence: 0.8},
	}

	result := nms(detections, 0.4)

	if len(result) != 3 {
		t.Fatalf("expected all 3 detections kept, got %d", len(result))
	}
}

func TestNMS_Empty(t *testing.T) {
	if got := nms(nil, 0.4); len(got) != 0 {
		t.Errorf("expected empty result, got %d", len(got))
	}
}

func TestClampF(t *testing.T) {
	if got := clampF(-5, 0, 10); got != 0 {
		t.Errorf("expected 0, got %f", got)
	}
	if got := clampF(15, 0, 10); got != 10 {
		t.Errorf("expected 10, got %f", got)
	}
	if got := clampF(5, 0, 10); got != 5 {
		t.Errorf("expected 5, got %f", got)
	}
}
