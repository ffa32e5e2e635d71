package dto

import (
	"time"

	"github.com/google/uuid"
)

// ProcessFaceResponse is the payload of POST /process-face.
type ProcessFaceResponse struct {
	Success    bool    `json:"success"`
	FilePath   string  `json:"filePath,omitempty"`
	ImageURL   string  `json:"imageUrl,omitempty"`
	Confidence float32 `json:"confidence,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// FindMatchesRequest is the payload of POST /find-matches. Threshold
// and Limit are optional; omitted fields fall back to the server
// defaults (0.6 / 10). An explicit threshold of 0 keeps every ranked
// candidate.
type FindMatchesRequest struct {
	ReferenceImageID string   `json:"referenceImageId"`
	Threshold        *float64 `json:"threshold,omitempty"`
	Limit            *int     `json:"limit,omitempty"`
}

type MatchResult struct {
	CandidateID uuid.UUID `json:"candidateId"`
	OwnerID     string    `json:"ownerId"`
	ImagePath   string    `json:"imagePath"`
	Similarity  float64   `json:"similarity"`
	Confidence  float32   `json:"confidence"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FindMatchesResponse reports the ranked, truncated matches.
// ProcessingTime is in milliseconds; TotalMatches is the truncated
// count (the pre-truncation count is not available).
type FindMatchesResponse struct {
	Matches        []MatchResult `json:"matches"`
	ProcessingTime float64       `json:"processingTime"`
	TotalMatches   int           `json:"totalMatches"`
}
