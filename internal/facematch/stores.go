package facematch

import (
	"context"

	"github.com/google/uuid"

	"github.com/your-org/snapmatch/internal/models"
)

// DescriptorStore persists face descriptors and answers ranked
// similarity queries. FindSimilar must return only candidates with
// similarity >= threshold, ranked most-similar first and truncated to
// limit; the engine still applies its own deterministic tie-breaking.
type DescriptorStore interface {
	InsertDescriptor(ctx context.Context, d *models.FaceDescriptor) error
	GetDescriptor(ctx context.Context, id uuid.UUID) (*models.FaceDescriptor, error)
	FindSimilar(ctx context.Context, embedding []float32, threshold float64, limit int) ([]models.SimilarFace, error)
}

// PhotoStore exposes the candidate photos of an event.
type PhotoStore interface {
	ListEventPhotos(ctx context.Context, eventID uuid.UUID) ([]models.Photo, error)
	MarkPhotoMatched(ctx context.Context, photoID uuid.UUID, guestFolder string) error
}

// MatchStore is the append-only match ledger.
type MatchStore interface {
	AppendMatch(ctx context.Context, rec *models.MatchRecord) error
}

// BlobStore is the path-addressed object store holding raw images and
// delivered guest copies.
type BlobStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	CopyObject(ctx context.Context, srcKey, dstKey string) error
	ListObjects(ctx context.Context, prefix string) ([]string, error)
	EnsureFolder(ctx context.Context, prefix string) error
	PublicURL(key string) string
}
