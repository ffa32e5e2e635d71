package facematch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/snapmatch/internal/models"
)

func seedReference(t *testing.T, descriptors *memDescriptors) uuid.UUID {
	t.Helper()
	ref := &models.FaceDescriptor{
		OwnerID:   "user-1",
		ImagePath: "references/user-1/ref.jpg",
		Embedding: []float32{1, 0, 0},
	}
	if err := descriptors.InsertDescriptor(context.Background(), ref); err != nil {
		t.Fatalf("insert reference: %v", err)
	}
	return ref.ID
}

func TestFindMatches_AppliesDefaults(t *testing.T) {
	descriptors := newMemDescriptors()
	matches := &memMatches{}
	engine := NewEngine(descriptors, matches, 0.6, 10)
	refID := seedReference(t, descriptors)

	if _, err := engine.FindMatches(context.Background(), refID, -1, 0); err != nil {
		t.Fatalf("find matches: %v", err)
	}

	if descriptors.lastThreshold != 0.6 {
		t.Errorf("expected default threshold 0.6, got %f", descriptors.lastThreshold)
	}
	if descriptors.lastLimit != 10 {
		t.Errorf("expected default limit 10, got %d", descriptors.lastLimit)
	}
}

func TestFindMatches_ZeroThresholdIsExplicit(t *testing.T) {
	descriptors := newMemDescriptors()
	engine := NewEngine(descriptors, &memMatches{}, 0.6, 10)
	refID := seedReference(t, descriptors)

	descriptors.candidates = []models.SimilarFace{
		{ID: uuid.New(), Similarity: 0.95},
		{ID: uuid.New(), Similarity: 0.1},
	}

	result, err := engine.FindMatches(context.Background(), refID, 0, 10)
	if err != nil {
		t.Fatalf("find matches: %v", err)
	}

	// Zero means "no filtering", not "use the default".
	if descriptors.lastThreshold != 0 {
		t.Errorf("expected threshold 0 passed through, got %f", descriptors.lastThreshold)
	}
	if len(result.Matches) != 2 {
		t.Errorf("expected both candidates kept, got %d", len(result.Matches))
	}
}

func TestFindMatches_UnknownReference(t *testing.T) {
	engine := NewEngine(newMemDescriptors(), &memMatches{}, 0.6, 10)

	_, err := engine.FindMatches(context.Background(), uuid.New(), 0, 0)
	if !errors.Is(err, ErrReferenceNotFound) {
		t.Fatalf("expected ErrReferenceNotFound, got %v", err)
	}
}

func TestFindMatches_RankingAndTruncation(t *testing.T) {
	descriptors := newMemDescriptors()
	matches := &memMatches{}
	engine := NewEngine(descriptors, matches, 0.6, 10)
	refID := seedReference(t, descriptors)

	idA := uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000000")
	idB := uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000000")
	idC := uuid.MustParse("cccccccc-0000-0000-0000-000000000000")
	idD := uuid.MustParse("dddddddd-0000-0000-0000-000000000000")
	descriptors.candidates = []models.SimilarFace{
		{ID: idA, Similarity: 0.9},
		{ID: idB, Similarity: 0.7},
		{ID: idC, Similarity: 0.5},
		{ID: idD, Similarity: 0.95},
	}

	result, err := engine.FindMatches(context.Background(), refID, 0.6, 2)
	if err != nil {
		t.Fatalf("find matches: %v", err)
	}

	if len(result.Matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(result.Matches))
	}
	if result.Matches[0].CandidateID != idD {
		t.Errorf("expected first match %s, got %s", idD, result.Matches[0].CandidateID)
	}
	if result.Matches[1].CandidateID != idA {
		t.Errorf("expected second match %s, got %s", idA, result.Matches[1].CandidateID)
	}
}

func TestFindMatches_RaisingThresholdNarrowsResults(t *testing.T) {
	descriptors := newMemDescriptors()
	engine := NewEngine(descriptors, &memMatches{}, 0.6, 10)
	refID := seedReference(t, descriptors)

	descriptors.candidates = []models.SimilarFace{
		{ID: uuid.New(), Similarity: 0.95},
		{ID: uuid.New(), Similarity: 0.8},
		{ID: uuid.New(), Similarity: 0.65},
	}

	loose, err := engine.FindMatches(context.Background(), refID, 0.6, 10)
	if err != nil {
		t.Fatalf("find matches: %v", err)
	}
	strict, err := engine.FindMatches(context.Background(), refID, 0.9, 10)
	if err != nil {
		t.Fatalf("find matches: %v", err)
	}

	if len(loose.Matches) != 3 {
		t.Errorf("expected 3 loose matches, got %d", len(loose.Matches))
	}
	if len(strict.Matches) != 1 {
		t.Errorf("expected 1 strict match, got %d", len(strict.Matches))
	}
	for _, m := range strict.Matches {
		found := false
		for _, l := range loose.Matches {
			if l.CandidateID == m.CandidateID {
				found = true
			}
		}
		if !found {
			t.Errorf("strict match %s missing from loose results", m.CandidateID)
		}
	}
}

func TestFindMatches_SelfMatchSurvivesMaxThreshold(t *testing.T) {
	descriptors := newMemDescriptors()
	engine := NewEngine(descriptors, &memMatches{}, 0.6, 10)
	refID := seedReference(t, descriptors)

	// An identical stored copy of the reference scores 1.0 and is the
	// only candidate left at threshold 1.0.
	selfID := uuid.New()
	descriptors.candidates = []models.SimilarFace{
		{ID: selfID, Similarity: 1.0},
		{ID: uuid.New(), Similarity: 0.97},
	}

	result, err := engine.FindMatches(context.Background(), refID, 1.0, 10)
	if err != nil {
		t.Fatalf("find matches: %v", err)
	}

	if len(result.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(result.Matches))
	}
	if result.Matches[0].CandidateID != selfID {
		t.Errorf("expected self-match %s, got %s", selfID, result.Matches[0].CandidateID)
	}
}

func TestFindMatches_TieBreaking(t *testing.T) {
	descriptors := newMemDescriptors()
	engine := NewEngine(descriptors, &memMatches{}, 0.6, 10)
	refID := seedReference(t, descriptors)

	idLow := uuid.MustParse("11111111-0000-0000-0000-000000000000")
	idHigh := uuid.MustParse("22222222-0000-0000-0000-000000000000")
	idTie := uuid.MustParse("33333333-0000-0000-0000-000000000000")
	descriptors.candidates = []models.SimilarFace{
		{ID: idTie, Similarity: 0.8, Confidence: 0.7},
		{ID: idHigh, Similarity: 0.8, Confidence: 0.9},
		{ID: idLow, Similarity: 0.8, Confidence: 0.7},
	}

	result, err := engine.FindMatches(context.Background(), refID, 0.6, 10)
	if err != nil {
		t.Fatalf("find matches: %v", err)
	}

	if len(result.Matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(result.Matches))
	}
	// Same similarity: higher confidence first, then id ascending.
	if result.Matches[0].CandidateID != idHigh {
		t.Errorf("expected %s first, got %s", idHigh, result.Matches[0].CandidateID)
	}
	if result.Matches[1].CandidateID != idLow {
		t.Errorf("expected %s second, got %s", idLow, result.Matches[1].CandidateID)
	}
	if result.Matches[2].CandidateID != idTie {
		t.Errorf("expected %s third, got %s", idTie, result.Matches[2].CandidateID)
	}
}

func TestFindMatches_AppendsLedgerRecords(t *testing.T) {
	descriptors := newMemDescriptors()
	matches := &memMatches{}
	engine := NewEngine(descriptors, matches, 0.6, 10)
	refID := seedReference(t, descriptors)

	descriptors.candidates = []models.SimilarFace{
		{ID: uuid.New(), Similarity: 0.9},
		{ID: uuid.New(), Similarity: 0.8},
	}

	if _, err := engine.FindMatches(context.Background(), refID, 0.6, 10); err != nil {
		t.Fatalf("first search: %v", err)
	}
	if _, err := engine.FindMatches(context.Background(), refID, 0.6, 10); err != nil {
		t.Fatalf("second search: %v", err)
	}

	// Append-only: the second run records duplicates.
	records := matches.all()
	if len(records) != 4 {
		t.Fatalf("expected 4 ledger records, got %d", len(records))
	}
	for _, rec := range records {
		if rec.ReferenceID != refID {
			t.Errorf("expected reference %s, got %s", refID, rec.ReferenceID)
		}
	}
}

func TestFindMatches_LedgerFailureFailsSearch(t *testing.T) {
	descriptors := newMemDescriptors()
	matches := &memMatches{appendErr: errors.New("ledger down")}
	engine := NewEngine(descriptors, matches, 0.6, 10)
	refID := seedReference(t, descriptors)

	descriptors.candidates = []models.SimilarFace{{ID: uuid.New(), Similarity: 0.9}}

	if _, err := engine.FindMatches(context.Background(), refID, 0.6, 10); err == nil {
		t.Fatal("expected error when ledger append fails")
	}
}

func TestFindMatches_ReportsProcessingTime(t *testing.T) {
	descriptors := newMemDescriptors()
	engine := NewEngine(descriptors, &memMatches{}, 0.6, 10)
	refID := seedReference(t, descriptors)

	result, err := engine.FindMatches(context.Background(), refID, 0.6, 10)
	if err != nil {
		t.Fatalf("find matches: %v", err)
	}

	if result.ProcessingTime < 0 {
		t.Errorf("expected non-negative processing time, got %v", result.ProcessingTime)
	}
	if result.Timestamp.After(time.Now().Add(time.Second)) {
		t.Errorf("timestamp in the future: %v", result.Timestamp)
	}
}
