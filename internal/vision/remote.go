package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/your-org/snapmatch/internal/observability"
)

// RemoteExtractor calls an external vision endpoint that accepts raw
// image bytes and responds with detected faces. The annotation shape is
// provider-specific and kept opaque.
type RemoteExtractor struct {
	url    string
	client *http.Client
}

type remoteFace struct {
	Confidence  float32         `json:"confidence"`
	Embedding   []float32       `json:"embedding,omitempty"`
	Landmarks   []float32       `json:"landmarks,omitempty"`
	Annotations json.RawMessage `json:"annotations,omitempty"`
}

type remoteResponse struct {
	Faces []remoteFace `json:"faces"`
}

func NewRemoteExtractor(url string) *RemoteExtractor {
	return &RemoteExtractor{
		url: url,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Extract posts the image to the detect endpoint. Faces without an
// embedding fall back to their landmark coordinates as the comparison
// key, normalised so cosine similarity remains meaningful.
func (e *RemoteExtractor) Extract(ctx context.Context, imageData []byte) ([]Face, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(imageData))
	if err != nil {
		return nil, &ExtractionError{Stage: "request", Err: err}
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &ExtractionError{Stage: "transport", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ExtractionError{Stage: "read", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ExtractionError{
			Stage: "status",
			Err:   fmt.Errorf("detect endpoint returned %d: %s", resp.StatusCode, body),
		}
	}

	var parsed remoteResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &ExtractionError{Stage: "parse", Err: err}
	}

	faces := make([]Face, 0, len(parsed.Faces))
	for _, rf := range parsed.Faces {
		embedding := rf.Embedding
		if len(embedding) == 0 && len(rf.Landmarks) > 0 {
			embedding = normalized(rf.Landmarks)
		}
		if len(embedding) == 0 {
			continue
		}
		faces = append(faces, Face{
			Embedding:  embedding,
			Confidence: rf.Confidence,
			Raw:        rf.Annotations,
		})
	}

	// Highest confidence first, same contract as the local extractor.
	sort.SliceStable(faces, func(i, j int) bool {
		return faces[i].Confidence > faces[j].Confidence
	})

	observability.FacesDetected.WithLabelValues("remote").Add(float64(len(faces)))
	return faces, nil
}

func normalized(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	normalize(out)
	return out
}
