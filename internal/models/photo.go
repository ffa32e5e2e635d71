package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is a named collection of photographer-uploaded photos
// (a wedding, a conference day, ...).
type Event struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Photo is one candidate photo inside an event. IsMatched and
// GuestFolder are only ever set by the batch orchestrator after a
// successful delivery; the row is never deleted by the pipeline.
type Photo struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	EventID     uuid.UUID       `json:"event_id" db:"event_id"`
	StoragePath string          `json:"storage_path" db:"storage_path"`
	MimeType    string          `json:"mime_type" db:"mime_type"`
	SizeBytes   int64           `json:"size_bytes" db:"size_bytes"`
	IsMatched   bool            `json:"is_matched" db:"is_matched"`
	GuestFolder *string         `json:"guest_folder_path,omitempty" db:"guest_folder_path"`
	Metadata    json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
