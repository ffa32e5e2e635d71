package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// CtxPinger checks a dependency that takes a context (Postgres, MinIO).
type CtxPinger interface {
	Ping(ctx context.Context) error
}

// ConnPinger checks a connection-oriented dependency (NATS).
type ConnPinger interface {
	Ping() error
}

// SystemHandler serves liveness and readiness probes.
type SystemHandler struct {
	db    CtxPinger
	blobs CtxPinger
	queue ConnPinger
}

func NewSystemHandler(db, blobs CtxPinger, queue ConnPinger) *SystemHandler {
	return &SystemHandler{db: db, blobs: blobs, queue: queue}
}

// Healthz always reports ok while the process is up.
func (h *SystemHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz reports 503 with per-dependency detail when any backing
// service is unreachable.
func (h *SystemHandler) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := gin.H{}
	ready := true

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			checks["postgres"] = err.Error()
			ready = false
		} else {
			checks["postgres"] = "ok"
		}
	}
	if h.blobs != nil {
		if err := h.blobs.Ping(ctx); err != nil {
			checks["minio"] = err.Error()
			ready = false
		} else {
			checks["minio"] = "ok"
		}
	}
	if h.queue != nil {
		if err := h.queue.Ping(); err != nil {
			checks["nats"] = err.Error()
			ready = false
		} else {
			checks["nats"] = "ok"
		}
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"ready": ready, "checks": checks})
}
