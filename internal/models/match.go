package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MatchRecord is one row of the append-only match ledger. The ledger is
// never updated or deleted: re-running a search or a batch job appends
// fresh rows for the same (reference, candidate) pair.
type MatchRecord struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	ReferenceID uuid.UUID       `json:"reference_id" db:"reference_id"`
	CandidateID uuid.UUID       `json:"candidate_id" db:"candidate_id"`
	Similarity  float64         `json:"similarity_score" db:"similarity_score"`
	Confidence  float32         `json:"confidence_score" db:"confidence_score"`
	Details     json.RawMessage `json:"match_details,omitempty" db:"match_details"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	ProcessedAt time.Time       `json:"processed_at" db:"processed_at"`
}
