package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/your-org/snapmatch/internal/config"
	"github.com/your-org/snapmatch/internal/observability"
)

// LocalExtractor runs face detection and embedding in-process with ONNX
// Runtime: RetinaFace (det_10g) for detection, ArcFace (w600k_r50) for
// the 512-d embedding.
type LocalExtractor struct {
	detector *Detector
	embedder *Embedder
}

// NewLocalExtractor loads both ONNX models from cfg.ModelsDir.
func NewLocalExtractor(cfg config.VisionConfig) (*LocalExtractor, error) {
	detPath := filepath.Join(cfg.ModelsDir, "det_10g.onnx")
	embPath := filepath.Join(cfg.ModelsDir, "w600k_r50.onnx")

	slog.Info("loading detection model", "path", detPath)
	det, err := NewDetector(detPath, float32(cfg.DetectionThreshold), nil)
	if err != nil {
		return nil, fmt.Errorf("load detector: %w", err)
	}

	slog.Info("loading embedding model", "path", embPath)
	emb, err := NewEmbedder(embPath)
	if err != nil {
		det.Close()
		return nil, fmt.Errorf("load embedder: %w", err)
	}

	return &LocalExtractor{detector: det, embedder: emb}, nil
}

// Extract decodes the image, detects faces, and embeds each detected
// face. Faces come back ordered by descending detection confidence.
// A face whose crop or embedding fails is dropped with a log line; the
// remaining faces are still returned.
func (e *LocalExtractor) Extract(ctx context.Context, imageData []byte) ([]Face, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ExtractionError{Stage: "cancelled", Err: err}
	}

	img, err := jpeg.Decode(bytes.NewReader(imageData))
	if err != nil {
		img, _, err = image.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, &ExtractionError{Stage: "decode", Err: err}
		}
	}

	bounds := img.Bounds()
	origW := bounds.Dx()
	origH := bounds.Dy()

	start := time.Now()
	detInput := preprocessForDetection(img, e.detector.inputW, e.detector.inputH)
	observability.InferenceDuration.WithLabelValues("preprocess").Observe(time.Since(start).Seconds())

	start = time.Now()
	detections, err := e.detector.Detect(detInput, origW, origH)
	if err != nil {
		return nil, &ExtractionError{Stage: "detect", Err: err}
	}
	observability.InferenceDuration.WithLabelValues("detect").Observe(time.Since(start).Seconds())

	if len(detections) == 0 {
		return nil, nil
	}

	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].Confidence > detections[j].Confidence
	})

	faces := make([]Face, 0, len(detections))
	for _, det := range detections {
		crop := cropFace(img, det.BBox)
		if crop == nil {
			continue
		}

		start = time.Now()
		embInput := preprocessForEmbedding(crop, e.embedder.inputW, e.embedder.inputH)
		embedding, err := e.embedder.Extract(embInput)
		observability.InferenceDuration.WithLabelValues("embed").Observe(time.Since(start).Seconds())
		if err != nil {
			slog.Warn("embed face", "error", err, "confidence", det.Confidence)
			continue
		}

		raw, _ := json.Marshal(map[string]any{
			"bbox":      det.BBox,
			"landmarks": det.Landmarks,
		})

		faces = append(faces, Face{
			Embedding:  embedding,
			Confidence: det.Confidence,
			Raw:        raw,
		})
	}

	observability.FacesDetected.WithLabelValues("local").Add(float64(len(faces)))
	return faces, nil
}

// Close releases the ONNX sessions.
func (e *LocalExtractor) Close() {
	if e.detector != nil {
		e.detector.Close()
	}
	if e.embedder != nil {
		e.embedder.Close()
	}
}
