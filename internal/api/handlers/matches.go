package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/snapmatch/internal/models"
	"github.com/your-org/snapmatch/pkg/dto"
)

// MatchLedger reads the append-only match history.
type MatchLedger interface {
	ListMatchesForReference(ctx context.Context, referenceID uuid.UUID) ([]models.MatchRecord, error)
}

// MatchHandler serves recorded match history for a reference descriptor.
type MatchHandler struct {
	ledger MatchLedger
}

func NewMatchHandler(ledger MatchLedger) *MatchHandler {
	return &MatchHandler{ledger: ledger}
}

// ListForReference handles GET /v1/references/:id/matches. Records are
// returned in insertion order; re-running a search appends duplicates,
// and those duplicates are part of the history.
func (h *MatchHandler) ListForReference(c *gin.Context) {
	referenceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reference id"})
		return
	}

	records, err := h.ledger.ListMatchesForReference(c.Request.Context(), referenceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.MatchRecordResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, dto.MatchRecordResponse{
			ID:          rec.ID,
			ReferenceID: rec.ReferenceID,
			CandidateID: rec.CandidateID,
			Similarity:  rec.Similarity,
			Confidence:  rec.Confidence,
			CreatedAt:   rec.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"matches": resp})
}
