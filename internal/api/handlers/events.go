package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/snapmatch/internal/models"
	"github.com/your-org/snapmatch/internal/observability"
	"github.com/your-org/snapmatch/internal/vision"
	"github.com/your-org/snapmatch/pkg/dto"
)

// EventStore is the subset of the Postgres store the event handlers use.
type EventStore interface {
	CreateEvent(ctx context.Context, name, description string) (*models.Event, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	CreatePhoto(ctx context.Context, p *models.Photo) error
	ListEventPhotos(ctx context.Context, eventID uuid.UUID) ([]models.Photo, error)
	InsertDescriptor(ctx context.Context, d *models.FaceDescriptor) error
}

// PhotoBlobs is the subset of the object store the event handlers use.
type PhotoBlobs interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	PresignedGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// JobPublisher enqueues batch match jobs.
type JobPublisher interface {
	PublishJob(ctx context.Context, eventID string, data interface{}) error
}

// EventHandler manages events, their photo uploads, and batch match
// job submission.
type EventHandler struct {
	db        EventStore
	blobs     PhotoBlobs
	jobs      JobPublisher
	extractor vision.Extractor
	signedTTL time.Duration
}

func NewEventHandler(db EventStore, blobs PhotoBlobs, jobs JobPublisher, extractor vision.Extractor, signedTTL time.Duration) *EventHandler {
	return &EventHandler{
		db:        db,
		blobs:     blobs,
		jobs:      jobs,
		extractor: extractor,
		signedTTL: signedTTL,
	}
}

// Create handles POST /v1/events.
func (h *EventHandler) Create(c *gin.Context) {
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ev, err := h.db.CreateEvent(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, eventResponse(ev))
}

// List handles GET /v1/events.
func (h *EventHandler) List(c *gin.Context) {
	events, err := h.db.ListEvents(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.EventResponse, 0, len(events))
	for i := range events {
		resp = append(resp, eventResponse(&events[i]))
	}
	c.JSON(http.StatusOK, gin.H{"events": resp})
}

// Get handles GET /v1/events/:id.
func (h *EventHandler) Get(c *gin.Context) {
	ev, ok := h.resolveEvent(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, eventResponse(ev))
}

// UploadPhoto handles POST /v1/events/:id/photos: multipart {photo}.
// The stored photo is also indexed into the descriptor corpus so it can
// surface in interactive similarity searches; indexing failures do not
// fail the upload.
func (h *EventHandler) UploadPhoto(c *gin.Context) {
	ev, ok := h.resolveEvent(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read photo failed"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	key := fmt.Sprintf("events/%s/photos/%d_%s", ev.ID, time.Now().Unix(), header.Filename)
	if err := h.blobs.PutObject(c.Request.Context(), key, data, contentType); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	photo := &models.Photo{
		EventID:     ev.ID,
		StoragePath: key,
		MimeType:    contentType,
		SizeBytes:   int64(len(data)),
	}
	if err := h.db.CreatePhoto(c.Request.Context(), photo); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if h.extractor != nil {
		h.indexPhoto(c.Request.Context(), photo, data)
	}

	c.JSON(http.StatusCreated, photoResponse(photo, ""))
}

// indexPhoto extracts the primary face of an uploaded photo and stores
// its descriptor under the owning event. Best effort.
func (h *EventHandler) indexPhoto(ctx context.Context, photo *models.Photo, data []byte) {
	faces, err := h.extractor.Extract(ctx, data)
	if err != nil {
		slog.Warn("index photo failed", "photo_id", photo.ID, "error", err)
		return
	}
	if len(faces) == 0 {
		return
	}
	observability.FacesDetected.WithLabelValues("upload").Add(float64(len(faces)))

	primary := faces[0]
	d := &models.FaceDescriptor{
		OwnerID:    "event:" + photo.EventID.String(),
		ImagePath:  photo.StoragePath,
		Embedding:  primary.Embedding,
		Confidence: primary.Confidence,
		Metadata:   primary.Raw,
	}
	if err := h.db.InsertDescriptor(ctx, d); err != nil {
		slog.Warn("store photo descriptor failed", "photo_id", photo.ID, "error", err)
	}
}

// ListPhotos handles GET /v1/events/:id/photos. Photo URLs are signed
// and short-lived.
func (h *EventHandler) ListPhotos(c *gin.Context) {
	ev, ok := h.resolveEvent(c)
	if !ok {
		return
	}

	photos, err := h.db.ListEventPhotos(c.Request.Context(), ev.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.PhotoResponse, 0, len(photos))
	for i := range photos {
		url, err := h.blobs.PresignedGet(c.Request.Context(), photos[i].StoragePath, h.signedTTL)
		if err != nil {
			slog.Warn("presign photo failed", "key", photos[i].StoragePath, "error", err)
			url = ""
		}
		resp = append(resp, photoResponse(&photos[i], url))
	}
	c.JSON(http.StatusOK, gin.H{"photos": resp})
}

// Match handles POST /v1/events/:id/match: multipart {image, guestName}.
// The reference image is staged in the object store and a batch match
// job is enqueued; the caller gets a 202 and watches results over
// WebSocket.
func (h *EventHandler) Match(c *gin.Context) {
	ev, ok := h.resolveEvent(c)
	if !ok {
		return
	}

	guestName := c.PostForm("guestName")
	if guestName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "guestName is required"})
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read image failed"})
		return
	}

	jobID := uuid.New()
	refKey := fmt.Sprintf("events/%s/references/%s_%s", ev.ID, jobID, header.Filename)
	if err := h.blobs.PutObject(c.Request.Context(), refKey, data, header.Header.Get("Content-Type")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	job := models.MatchJob{
		JobID:        jobID,
		EventID:      ev.ID,
		GuestName:    guestName,
		ReferenceKey: refKey,
		SubmittedAt:  time.Now().UTC(),
	}
	if err := h.jobs.PublishJob(c.Request.Context(), ev.ID.String(), job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	slog.Info("batch match job enqueued", "job_id", jobID, "event_id", ev.ID, "guest", guestName)

	c.JSON(http.StatusAccepted, dto.MatchJobResponse{
		JobID:     jobID,
		EventID:   ev.ID,
		GuestName: guestName,
		Status:    "queued",
	})
}

func (h *EventHandler) resolveEvent(c *gin.Context) (*models.Event, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return nil, false
	}

	ev, err := h.db.GetEvent(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	if ev == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return nil, false
	}
	return ev, true
}

func eventResponse(ev *models.Event) dto.EventResponse {
	return dto.EventResponse{
		ID:          ev.ID,
		Name:        ev.Name,
		Description: ev.Description,
		CreatedAt:   ev.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func photoResponse(p *models.Photo, url string) dto.PhotoResponse {
	return dto.PhotoResponse{
		ID:          p.ID,
		EventID:     p.EventID,
		StoragePath: p.StoragePath,
		URL:         url,
		MimeType:    p.MimeType,
		SizeBytes:   p.SizeBytes,
		IsMatched:   p.IsMatched,
		GuestFolder: p.GuestFolder,
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
	}
}
