package dto

import (
	"github.com/google/uuid"

	"github.com/your-org/snapmatch/internal/models"
)

type CreateEventRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type EventResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   string    `json:"created_at"`
}

type PhotoResponse struct {
	ID          uuid.UUID `json:"id"`
	EventID     uuid.UUID `json:"event_id"`
	StoragePath string    `json:"storage_path"`
	URL         string    `json:"url,omitempty"`
	MimeType    string    `json:"mime_type"`
	SizeBytes   int64     `json:"size_bytes"`
	IsMatched   bool      `json:"is_matched"`
	GuestFolder *string   `json:"guest_folder_path,omitempty"`
	CreatedAt   string    `json:"created_at"`
}

// MatchJobResponse acknowledges an enqueued batch match job.
type MatchJobResponse struct {
	JobID     uuid.UUID `json:"job_id"`
	EventID   uuid.UUID `json:"event_id"`
	GuestName string    `json:"guest_name"`
	Status    string    `json:"status"`
}

type MatchRecordResponse struct {
	ID          uuid.UUID `json:"id"`
	ReferenceID uuid.UUID `json:"reference_id"`
	CandidateID uuid.UUID `json:"candidate_id"`
	Similarity  float64   `json:"similarity_score"`
	Confidence  float32   `json:"confidence_score"`
	CreatedAt   string    `json:"created_at"`
}

// WSEvent is a WebSocket message for gallery clients.
type WSEvent struct {
	Type    string                 `json:"type"` // match_job_completed, match_job_failed
	EventID uuid.UUID              `json:"event_id"`
	Data    *models.MatchJobResult `json:"data,omitempty"`
}
