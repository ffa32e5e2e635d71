package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchJob is the message published to NATS for a batch matching run.
// The reference image travels through MinIO, not the queue payload.
type MatchJob struct {
	JobID        uuid.UUID `json:"job_id"`
	EventID      uuid.UUID `json:"event_id"`
	GuestName    string    `json:"guest_name"`
	ReferenceKey string    `json:"reference_key"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// MatchJobResult is published by the worker when a batch run finishes,
// successfully or not. The API broadcasts it to gallery clients.
type MatchJobResult struct {
	JobID          uuid.UUID `json:"job_id"`
	EventID        uuid.UUID `json:"event_id"`
	GuestName      string    `json:"guest_name"`
	GuestFolder    string    `json:"guest_folder,omitempty"`
	DeliveredCount int       `json:"delivered_count"`
	ProcessedCount int       `json:"processed_count"`
	MatchedCount   int       `json:"matched_count"`
	Error          string    `json:"error,omitempty"`
	CompletedAt    time.Time `json:"completed_at"`
}
