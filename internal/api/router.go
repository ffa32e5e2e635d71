package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/snapmatch/internal/api/handlers"
	"github.com/your-org/snapmatch/internal/api/ws"
	"github.com/your-org/snapmatch/internal/auth"
	"github.com/your-org/snapmatch/internal/facematch"
	"github.com/your-org/snapmatch/internal/queue"
	"github.com/your-org/snapmatch/internal/storage"
	"github.com/your-org/snapmatch/internal/vision"
)

// RouterConfig carries everything the HTTP surface depends on.
type RouterConfig struct {
	APIKey       string
	DB           *storage.PostgresStore
	Blobs        *storage.MinIOStore
	Producer     *queue.Producer
	Hub          *ws.Hub
	Registry     *facematch.Registry
	Engine       *facematch.Engine
	Extractor    vision.Extractor
	SignedURLTTL time.Duration
}

// NewRouter wires all HTTP routes. The two matching entry points stay
// outside /v1 and unauthenticated; the management surface under /v1 is
// protected by the API key when one is configured.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	faces := handlers.NewFaceHandler(cfg.Registry, cfg.Engine)
	events := handlers.NewEventHandler(cfg.DB, cfg.Blobs, cfg.Producer, cfg.Extractor, cfg.SignedURLTTL)
	matches := handlers.NewMatchHandler(cfg.DB)
	system := handlers.NewSystemHandler(cfg.DB, cfg.Blobs, cfg.Producer)

	r.POST("/process-face", faces.ProcessFace)
	r.POST("/find-matches", faces.FindMatches)

	r.GET("/healthz", system.Healthz)
	r.GET("/readyz", system.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))
	{
		v1.POST("/events", events.Create)
		v1.GET("/events", events.List)
		v1.GET("/events/:id", events.Get)
		v1.POST("/events/:id/photos", events.UploadPhoto)
		v1.GET("/events/:id/photos", events.ListPhotos)
		v1.POST("/events/:id/match", events.Match)
		v1.GET("/references/:id/matches", matches.ListForReference)
	}

	if cfg.Hub != nil {
		r.GET("/ws", cfg.Hub.HandleWS)
	}

	return r
}
