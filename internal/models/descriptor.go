package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// FaceDescriptor is the stored, comparable representation of one face:
// an L2-normalised embedding plus the detector's own confidence that the
// region is a face. Rows are immutable; re-registering the same owner
// creates a new row rather than updating this one.
type FaceDescriptor struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	OwnerID    string          `json:"owner_id" db:"owner_id"`
	ImagePath  string          `json:"image_path" db:"image_path"`
	Embedding  []float32       `json:"-" db:"embedding"`
	Confidence float32         `json:"confidence_score" db:"confidence_score"`
	Metadata   json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// SimilarFace is one ranked candidate returned by the vector search.
type SimilarFace struct {
	ID         uuid.UUID `json:"id"`
	OwnerID    string    `json:"owner_id"`
	ImagePath  string    `json:"image_path"`
	Similarity float64   `json:"similarity"`
	Confidence float32   `json:"confidence_score"`
	CreatedAt  time.Time `json:"created_at"`
}
