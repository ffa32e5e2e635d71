package facematch

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/snapmatch/internal/models"
	"github.com/your-org/snapmatch/internal/observability"
)

// Engine answers interactive similarity searches: one stored reference
// descriptor against the whole indexed descriptor corpus.
type Engine struct {
	descriptors DescriptorStore
	matches     MatchStore

	// Defaults applied when a request leaves threshold or limit unset.
	DefaultThreshold float64
	DefaultLimit     int
}

// Match is one ranked search result.
type Match struct {
	CandidateID uuid.UUID `json:"candidateId"`
	OwnerID     string    `json:"ownerId"`
	ImagePath   string    `json:"imagePath"`
	Similarity  float64   `json:"similarity"`
	Confidence  float32   `json:"confidence"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SearchResult carries the ranked, truncated matches. Only the
// truncated count is available; the pre-truncation count is not
// reported by the underlying ranking query.
type SearchResult struct {
	Matches        []Match
	Timestamp      time.Time
	ProcessingTime time.Duration
}

func NewEngine(descriptors DescriptorStore, matches MatchStore, threshold float64, limit int) *Engine {
	return &Engine{
		descriptors:      descriptors,
		matches:          matches,
		DefaultThreshold: threshold,
		DefaultLimit:     limit,
	}
}

// FindMatches resolves the reference, ranks candidates at or above the
// threshold, truncates to limit, and appends one match record per
// returned candidate. Calling it twice with overlapping results appends
// duplicate records; the ledger is append-only.
//
// A negative threshold or a non-positive limit selects the configured
// default. Threshold 0 is an explicit value: it keeps every ranked
// candidate.
//
// Ordering is deterministic: similarity descending, then detection
// confidence descending, then candidate id ascending.
func (e *Engine) FindMatches(ctx context.Context, referenceID uuid.UUID, threshold float64, limit int) (*SearchResult, error) {
	start := time.Now()

	if threshold < 0 {
		threshold = e.DefaultThreshold
	}
	if limit <= 0 {
		limit = e.DefaultLimit
	}

	reference, err := e.descriptors.GetDescriptor(ctx, referenceID)
	if err != nil {
		return nil, fmt.Errorf("resolve reference: %w", err)
	}
	if reference == nil {
		return nil, ErrReferenceNotFound
	}

	candidates, err := e.descriptors.FindSimilar(ctx, reference.Embedding, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.ID.String() < b.ID.String()
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	details, _ := json.Marshal(map[string]any{
		"source":    "interactive",
		"threshold": threshold,
	})

	result := &SearchResult{
		Matches:   make([]Match, 0, len(candidates)),
		Timestamp: time.Now().UTC(),
	}

	for _, c := range candidates {
		rec := &models.MatchRecord{
			ReferenceID: referenceID,
			CandidateID: c.ID,
			Similarity:  c.Similarity,
			Confidence:  c.Confidence,
			Details:     details,
		}
		if err := e.matches.AppendMatch(ctx, rec); err != nil {
			return nil, fmt.Errorf("record match %s: %w", c.ID, err)
		}
		observability.MatchesRecorded.WithLabelValues("interactive").Inc()

		result.Matches = append(result.Matches, Match{
			CandidateID: c.ID,
			OwnerID:     c.OwnerID,
			ImagePath:   c.ImagePath,
			Similarity:  c.Similarity,
			Confidence:  c.Confidence,
			CreatedAt:   c.CreatedAt,
		})
	}

	result.ProcessingTime = time.Since(start)
	observability.SearchDuration.Observe(result.ProcessingTime.Seconds())

	return result, nil
}
