package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/snapmatch/internal/facematch"
	"github.com/your-org/snapmatch/internal/vision"
	"github.com/your-org/snapmatch/pkg/dto"
)

// Registrar registers a guest reference photo and returns its
// descriptor. Implemented by *facematch.Registry.
type Registrar interface {
	Register(ctx context.Context, imageData []byte, ownerID, filename, contentType string) (*facematch.Registration, error)
}

// Matcher runs an interactive similarity search. Implemented by
// *facematch.Engine.
type Matcher interface {
	FindMatches(ctx context.Context, referenceID uuid.UUID, threshold float64, limit int) (*facematch.SearchResult, error)
}

// FaceHandler serves the two public matching entry points.
type FaceHandler struct {
	registry Registrar
	engine   Matcher
}

func NewFaceHandler(registry Registrar, engine Matcher) *FaceHandler {
	return &FaceHandler{registry: registry, engine: engine}
}

// ProcessFace handles POST /process-face: multipart {image, userId}.
func (h *FaceHandler) ProcessFace(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ProcessFaceResponse{Error: "image file required"})
		return
	}
	defer file.Close()

	userID := c.PostForm("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, dto.ProcessFaceResponse{Error: "userId is required"})
		return
	}

	imageData, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ProcessFaceResponse{Error: "read image failed"})
		return
	}

	reg, err := h.registry.Register(c.Request.Context(), imageData, userID, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		var extErr *vision.ExtractionError
		switch {
		case errors.Is(err, facematch.ErrNoFaceDetected):
			c.JSON(http.StatusBadRequest, dto.ProcessFaceResponse{Error: "no face detected in image"})
		case errors.As(err, &extErr):
			c.JSON(http.StatusInternalServerError, dto.ProcessFaceResponse{Error: "face detection unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, dto.ProcessFaceResponse{Error: err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ProcessFaceResponse{
		Success:    true,
		FilePath:   reg.ImagePath,
		ImageURL:   reg.ImageURL,
		Confidence: reg.Confidence,
	})
}

// FindMatches handles POST /find-matches: JSON
// {referenceImageId, threshold?, limit?}.
func (h *FaceHandler) FindMatches(c *gin.Context) {
	var req dto.FindMatchesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if req.ReferenceImageID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "referenceImageId is required"})
		return
	}

	referenceID, err := uuid.Parse(req.ReferenceImageID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid referenceImageId"})
		return
	}

	// Omitted fields defer to the engine defaults; present fields must
	// be in range. Threshold 0 is valid and passes through as-is.
	threshold := -1.0
	if req.Threshold != nil {
		if *req.Threshold < 0 || *req.Threshold > 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "threshold must be between 0 and 1"})
			return
		}
		threshold = *req.Threshold
	}
	limit := 0
	if req.Limit != nil {
		if *req.Limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = *req.Limit
	}

	result, err := h.engine.FindMatches(c.Request.Context(), referenceID, threshold, limit)
	if err != nil {
		if errors.Is(err, facematch.ErrReferenceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "reference image not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	matches := make([]dto.MatchResult, 0, len(result.Matches))
	for _, m := range result.Matches {
		matches = append(matches, dto.MatchResult{
			CandidateID: m.CandidateID,
			OwnerID:     m.OwnerID,
			ImagePath:   m.ImagePath,
			Similarity:  m.Similarity,
			Confidence:  m.Confidence,
			CreatedAt:   m.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, dto.FindMatchesResponse{
		Matches:        matches,
		ProcessingTime: float64(result.ProcessingTime.Microseconds()) / 1000.0,
		TotalMatches:   len(matches),
	})
}
