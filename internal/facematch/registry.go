package facematch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/snapmatch/internal/models"
	"github.com/your-org/snapmatch/internal/observability"
	"github.com/your-org/snapmatch/internal/vision"
)

// Registry stores a guest's reference photo and its face descriptor.
type Registry struct {
	blobs       BlobStore
	descriptors DescriptorStore
	extractor   vision.Extractor
}

// Registration is the outcome of a successful reference registration.
type Registration struct {
	DescriptorID uuid.UUID
	ImagePath    string
	ImageURL     string
	Confidence   float32
}

func NewRegistry(blobs BlobStore, descriptors DescriptorStore, extractor vision.Extractor) *Registry {
	return &Registry{
		blobs:       blobs,
		descriptors: descriptors,
		extractor:   extractor,
	}
}

// Register stores the raw image under a per-owner path, extracts faces,
// and persists one descriptor from the primary (highest-confidence)
// face. Zero faces fails with ErrNoFaceDetected; the stored image is
// retained so the upload can be inspected or re-processed.
// Repeated registrations create new, independent descriptor rows.
func (r *Registry) Register(ctx context.Context, imageData []byte, ownerID, filename, contentType string) (*Registration, error) {
	if len(imageData) == 0 {
		return nil, fmt.Errorf("empty image")
	}
	if ownerID == "" {
		return nil, fmt.Errorf("empty owner id")
	}

	imagePath := fmt.Sprintf("references/%s/%d_%s", ownerID, time.Now().Unix(), filename)
	if err := r.blobs.PutObject(ctx, imagePath, imageData, contentType); err != nil {
		return nil, fmt.Errorf("store reference image: %w", err)
	}

	faces, err := r.extractor.Extract(ctx, imageData)
	if err != nil {
		return nil, fmt.Errorf("extract reference: %w", err)
	}
	if len(faces) == 0 {
		return nil, ErrNoFaceDetected
	}

	// Multi-face reference photos are treated as containing one primary
	// face; only faces[0] (highest detection confidence) is kept.
	primary := faces[0]

	descriptor := &models.FaceDescriptor{
		OwnerID:    ownerID,
		ImagePath:  imagePath,
		Embedding:  primary.Embedding,
		Confidence: primary.Confidence,
		Metadata:   primary.Raw,
	}
	if err := r.descriptors.InsertDescriptor(ctx, descriptor); err != nil {
		return nil, fmt.Errorf("persist descriptor: %w", err)
	}

	observability.ReferencesRegistered.Inc()

	return &Registration{
		DescriptorID: descriptor.ID,
		ImagePath:    imagePath,
		ImageURL:     r.blobs.PublicURL(imagePath),
		Confidence:   primary.Confidence,
	}, nil
}
