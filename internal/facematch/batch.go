package facematch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/your-org/snapmatch/internal/config"
	"github.com/your-org/snapmatch/internal/models"
	"github.com/your-org/snapmatch/internal/observability"
	"github.com/your-org/snapmatch/internal/vision"
)

// Orchestrator runs a whole-event batch match: one guest reference
// against every candidate photo of an event, delivering positive
// matches into a guest-scoped folder.
type Orchestrator struct {
	extractor   vision.Extractor
	blobs       BlobStore
	photos      PhotoStore
	descriptors DescriptorStore
	matches     MatchStore
	cfg         config.MatchingConfig
}

// BatchResult summarises one orchestrator run. DeliveredCount comes
// from listing the guest folder afterwards, so it counts successfully
// copied files only; a candidate can be matched yet undelivered when
// its copy step failed.
type BatchResult struct {
	GuestFolder    string `json:"guest_folder"`
	DeliveredCount int    `json:"delivered_count"`
	ProcessedCount int    `json:"processed_count"`
	MatchedCount   int    `json:"matched_count"`
	SkippedCount   int    `json:"skipped_count"`
}

// candidate outcomes, also used as metric labels.
const (
	outcomeDelivered       = "delivered"
	outcomeNoFace          = "no_face"
	outcomeBelowConfidence = "below_confidence"
	outcomeExtractionError = "extraction_error"
	outcomeDeliveryFailed  = "delivery_failed"
)

func NewOrchestrator(
	extractor vision.Extractor,
	blobs BlobStore,
	photos PhotoStore,
	descriptors DescriptorStore,
	matches MatchStore,
	cfg config.MatchingConfig,
) *Orchestrator {
	return &Orchestrator{
		extractor:   extractor,
		blobs:       blobs,
		photos:      photos,
		descriptors: descriptors,
		matches:     matches,
		cfg:         cfg,
	}
}

// MatchEvent extracts the guest's reference face, then walks every
// photo of the event through a bounded worker pool. Each candidate is
// processed independently: extraction errors, timeouts, and delivery
// failures are logged and skipped without aborting the batch. Only a
// missing face in the reference image itself is a hard failure.
//
// Cancelling ctx stops handing out new candidates; in-flight candidates
// run to completion so no copy lands without its match record being
// attempted. Re-running the whole operation is safe and reprocesses
// every candidate from scratch (appending fresh match records).
func (o *Orchestrator) MatchEvent(ctx context.Context, eventID uuid.UUID, referenceImage []byte, referencePath, guestName string) (*BatchResult, error) {
	if guestName == "" {
		return nil, fmt.Errorf("empty guest name")
	}

	faces, err := o.extractor.Extract(ctx, referenceImage)
	if err != nil {
		return nil, fmt.Errorf("extract reference: %w", err)
	}
	if len(faces) == 0 {
		return nil, ErrNoFaceDetected
	}
	reference := faces[0]

	// Persist the reference descriptor so every match record points at
	// a resolvable reference.
	descriptor := &models.FaceDescriptor{
		OwnerID:    "guest:" + GuestSlug(guestName),
		ImagePath:  referencePath,
		Embedding:  reference.Embedding,
		Confidence: reference.Confidence,
		Metadata:   reference.Raw,
	}
	if err := o.descriptors.InsertDescriptor(ctx, descriptor); err != nil {
		return nil, fmt.Errorf("persist reference descriptor: %w", err)
	}

	photos, err := o.photos.ListEventPhotos(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list event photos: %w", err)
	}

	guestFolder := fmt.Sprintf("events/%s/matches/%s", eventID, GuestSlug(guestName))

	run := &batchRun{
		o:           o,
		eventID:     eventID,
		referenceID: descriptor.ID,
		refEmbed:    reference.Embedding,
		guestFolder: guestFolder,
	}

	concurrency := o.cfg.BatchConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	jobs := make(chan models.Photo)
	var wg sync.WaitGroup

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				run.process(ctx, p)
			}
		}()
	}

feed:
	for _, p := range photos {
		select {
		case jobs <- p:
		case <-ctx.Done():
			slog.Warn("batch cancelled, draining in-flight candidates",
				"event_id", eventID, "guest", guestName)
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	// The accounting listing also survives cancellation so a drained
	// run still reports what it delivered.
	delivered, err := o.blobs.ListObjects(context.WithoutCancel(ctx), guestFolder+"/")
	if err != nil {
		return nil, fmt.Errorf("list guest folder: %w", err)
	}

	result := &BatchResult{
		GuestFolder:    guestFolder,
		DeliveredCount: len(delivered),
		ProcessedCount: int(run.processed.Load()),
		MatchedCount:   int(run.matched.Load()),
		SkippedCount:   int(run.skipped.Load()),
	}

	slog.Info("batch match complete",
		"event_id", eventID,
		"guest", guestName,
		"processed", result.ProcessedCount,
		"matched", result.MatchedCount,
		"delivered", result.DeliveredCount,
		"skipped", result.SkippedCount,
	)

	return result, nil
}

// batchRun holds the shared state of one MatchEvent invocation.
type batchRun struct {
	o           *Orchestrator
	eventID     uuid.UUID
	referenceID uuid.UUID
	refEmbed    []float32
	guestFolder string

	folderOnce sync.Once
	folderErr  error

	processed atomic.Int64
	matched   atomic.Int64
	skipped   atomic.Int64
}

// process handles one candidate photo under its own timeout. Every
// failure path logs, bumps a counter, and returns without propagating.
func (r *batchRun) process(ctx context.Context, p models.Photo) {
	r.processed.Add(1)

	// Candidates that already started run to completion on a detached
	// context; only the feed loop observes batch cancellation. The
	// per-candidate timeout still applies.
	cctx := context.WithoutCancel(ctx)
	if r.o.cfg.CandidateTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(cctx, r.o.cfg.CandidateTimeout)
		defer cancel()
	}

	data, err := r.o.blobs.GetObject(cctx, p.StoragePath)
	if err != nil {
		r.skip(outcomeExtractionError, p, "load candidate", err)
		return
	}

	faces, err := r.o.extractor.Extract(cctx, data)
	if err != nil {
		r.skip(outcomeExtractionError, p, "extract candidate", err)
		return
	}
	if len(faces) == 0 {
		observability.BatchCandidates.WithLabelValues(outcomeNoFace).Inc()
		return
	}

	// Match decision: the primary face must clear the delivery
	// confidence bound, strictly.
	primary := faces[0]
	if float64(primary.Confidence) <= r.o.cfg.DeliveryConfidence {
		observability.BatchCandidates.WithLabelValues(outcomeBelowConfidence).Inc()
		return
	}

	r.matched.Add(1)

	r.folderOnce.Do(func() {
		r.folderErr = r.o.blobs.EnsureFolder(cctx, r.guestFolder)
	})
	if r.folderErr != nil {
		r.skip(outcomeDeliveryFailed, p, "ensure guest folder", r.folderErr)
		return
	}

	dstKey := r.guestFolder + "/" + path.Base(p.StoragePath)
	if err := r.o.blobs.CopyObject(cctx, p.StoragePath, dstKey); err != nil {
		r.skip(outcomeDeliveryFailed, p, "copy to guest folder", err)
		return
	}

	if err := r.o.photos.MarkPhotoMatched(cctx, p.ID, r.guestFolder); err != nil {
		// The copy already landed; the folder listing will count it.
		slog.Error("mark photo matched", "photo_id", p.ID, "error", err)
	}

	similarity := Similarity(r.refEmbed, primary.Embedding)
	details, _ := json.Marshal(map[string]any{
		"source":       "batch",
		"event_id":     r.eventID,
		"photo_path":   p.StoragePath,
		"guest_folder": r.guestFolder,
	})
	rec := &models.MatchRecord{
		ReferenceID: r.referenceID,
		CandidateID: p.ID,
		Similarity:  similarity,
		Confidence:  primary.Confidence,
		Details:     details,
	}
	if err := r.o.matches.AppendMatch(cctx, rec); err != nil {
		slog.Error("append match record", "photo_id", p.ID, "error", err)
		return
	}
	observability.MatchesRecorded.WithLabelValues("batch").Inc()
	observability.BatchCandidates.WithLabelValues(outcomeDelivered).Inc()
}

func (r *batchRun) skip(outcome string, p models.Photo, stage string, err error) {
	r.skipped.Add(1)
	observability.BatchCandidates.WithLabelValues(outcome).Inc()
	slog.Warn("candidate skipped",
		"stage", stage,
		"photo_id", p.ID,
		"path", p.StoragePath,
		"outcome", outcome,
		"error", err,
	)
}
