package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/snapmatch/internal/config"
	"github.com/your-org/snapmatch/internal/facematch"
	"github.com/your-org/snapmatch/internal/models"
	"github.com/your-org/snapmatch/internal/observability"
	"github.com/your-org/snapmatch/internal/queue"
	"github.com/your-org/snapmatch/internal/storage"
	"github.com/your-org/snapmatch/internal/vision"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting snapmatch batch worker",
		"workers", cfg.Matching.WorkerCount,
		"cpu_cores", runtime.NumCPU(),
	)

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to MinIO
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	// Face extractor
	var extractor vision.Extractor
	if cfg.Vision.Extractor == "remote" {
		extractor = vision.NewRemoteExtractor(cfg.Vision.RemoteURL)
		slog.Info("using remote extractor", "url", cfg.Vision.RemoteURL)
	} else {
		ort.SetSharedLibraryPath(getONNXLibPath())
		if err := ort.InitializeEnvironment(); err != nil {
			slog.Error("init onnx runtime", "error", err)
			os.Exit(1)
		}
		defer ort.DestroyEnvironment()

		local, err := vision.NewLocalExtractor(cfg.Vision)
		if err != nil {
			slog.Error("init local extractor", "error", err)
			os.Exit(1)
		}
		defer local.Close()
		extractor = local
	}

	orchestrator := facematch.NewOrchestrator(extractor, minioStore, db, db, db, cfg.Matching)

	// Create NATS consumer
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start consuming batch match jobs. Failed jobs are not redelivered:
	// the failure result reaches the guest over WebSocket and the match
	// operation is safe to resubmit.
	err = consumer.ConsumeJobs(ctx, "match-workers", func(ctx context.Context, msg jetstream.Msg) error {
		var job models.MatchJob
		if err := json.Unmarshal(msg.Data(), &job); err != nil {
			slog.Error("unmarshal match job", "error", err)
			return nil // Don't retry on unmarshal errors
		}

		result := runJob(ctx, orchestrator, minioStore, job)

		if err := producer.PublishResult(ctx, job.EventID.String(), result); err != nil {
			slog.Error("publish job result", "job_id", job.JobID, "error", err)
		}
		return nil
	}, cfg.Matching.WorkerCount)
	if err != nil {
		slog.Error("start job consumer", "error", err)
		os.Exit(1)
	}

	// Metrics endpoint
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		slog.Info("worker metrics listening", "addr", ":8082")
		if err := http.ListenAndServe(":8082", mux); err != nil {
			slog.Error("metrics server error", "error", err)
		}
	}()

	// Periodically report queue depth
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				depth, err := producer.QueueDepth(ctx)
				if err == nil {
					observability.QueueDepth.Set(float64(depth))
				}
			}
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down worker...")
	cancel()
	time.Sleep(2 * time.Second)
	slog.Info("worker stopped")
}

// runJob executes one batch match job and folds any failure into the
// result message.
func runJob(ctx context.Context, orchestrator *facematch.Orchestrator, blobs *storage.MinIOStore, job models.MatchJob) models.MatchJobResult {
	result := models.MatchJobResult{
		JobID:     job.JobID,
		EventID:   job.EventID,
		GuestName: job.GuestName,
	}

	slog.Info("batch match job started",
		"job_id", job.JobID,
		"event_id", job.EventID,
		"guest", job.GuestName,
	)

	referenceImage, err := blobs.GetObject(ctx, job.ReferenceKey)
	if err != nil {
		result.Error = fmt.Sprintf("load reference image: %v", err)
		result.CompletedAt = time.Now().UTC()
		return result
	}

	batch, err := orchestrator.MatchEvent(ctx, job.EventID, referenceImage, job.ReferenceKey, job.GuestName)
	if err != nil {
		if errors.Is(err, facematch.ErrNoFaceDetected) {
			result.Error = "no face detected in reference image"
		} else {
			result.Error = err.Error()
		}
		result.CompletedAt = time.Now().UTC()
		return result
	}

	result.GuestFolder = batch.GuestFolder
	result.DeliveredCount = batch.DeliveredCount
	result.ProcessedCount = batch.ProcessedCount
	result.MatchedCount = batch.MatchedCount
	result.CompletedAt = time.Now().UTC()
	return result
}

// getONNXLibPath returns the ONNX Runtime shared library path
// based on the operating system.
func getONNXLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}
