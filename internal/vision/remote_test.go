package vision

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRemoteExtractor_ParsesAndSortsFaces(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		if ct := r.Header.Get("Content-Type"); ct != "application/octet-stream" {
			t.Errorf("unexpected content type %q", ct)
		}
		_ = json.NewEncoder(w).Encode(remoteResponse{
			Faces: []remoteFace{
				{Confidence: 0.6, Embedding: []float32{0, 1}},
				{Confidence: 0.95, Embedding: []float32{1, 0}},
			},
		})
	}))
	defer srv.Close()

	extractor := NewRemoteExtractor(srv.URL)
	faces, err := extractor.Extract(context.Background(), []byte("raw-jpeg"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if string(gotBody) != "raw-jpeg" {
		t.Errorf("expected raw image bytes forwarded, got %q", gotBody)
	}
	if len(faces) != 2 {
		t.Fatalf("expected 2 faces, got %d", len(faces))
	}
	// Highest confidence first.
	if faces[0].Confidence != 0.95 {
		t.Errorf("expected first confidence 0.95, got %f", faces[0].Confidence)
	}
	if faces[1].Confidence != 0.6 {
		t.Errorf("expected second confidence 0.6, got %f", faces[1].Confidence)
	}
}

func TestRemoteExtractor_LandmarkFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(remoteResponse{
			Faces: []remoteFace{
				{Confidence: 0.8, Landmarks: []float32{3, 4}},
			},
		})
	}))
	defer srv.Close()

	extractor := NewRemoteExtractor(srv.URL)
	faces, err := extractor.Extract(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if len(faces) != 1 {
		t.Fatalf("expected 1 face, got %d", len(faces))
	}
	// Landmarks are L2-normalised before use as a comparison key.
	emb := faces[0].Embedding
	if len(emb) != 2 {
		t.Fatalf("expected 2-d embedding, got %d", len(emb))
	}
	if math.Abs(float64(emb[0])-0.6) > 1e-6 || math.Abs(float64(emb[1])-0.8) > 1e-6 {
		t.Errorf("expected normalised [0.6 0.8], got %v", emb)
	}
}

func TestRemoteExtractor_SkipsFacesWithoutComparisonKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(remoteResponse{
			Faces: []remoteFace{{Confidence: 0.9}},
		})
	}))
	defer srv.Close()

	extractor := NewRemoteExtractor(srv.URL)
	faces, err := extractor.Extract(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(faces) != 0 {
		t.Errorf("expected no usable faces, got %d", len(faces))
	}
}

func TestRemoteExtractor_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	extractor := NewRemoteExtractor(srv.URL)
	_, err := extractor.Extract(context.Background(), []byte("img"))

	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if extErr.Stage != "status" {
		t.Errorf("expected status stage, got %q", extErr.Stage)
	}
}

func TestRemoteExtractor_TransportError(t *testing.T) {
	extractor := NewRemoteExtractor("http://127.0.0.1:1/detect")

	_, err := extractor.Extract(context.Background(), []byte("img"))
	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
}
