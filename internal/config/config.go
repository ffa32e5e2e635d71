package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	MinIO    MinIOConfig    `yaml:"minio"`
	Vision   VisionConfig   `yaml:"vision"`
	Matching MatchingConfig `yaml:"matching"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type VisionConfig struct {
	// Extractor selects the face detection backend: "local" runs the
	// bundled ONNX models, "remote" calls an external detect endpoint.
	Extractor          string  `yaml:"extractor"`
	ModelsDir          string  `yaml:"models_dir"`
	RemoteURL          string  `yaml:"remote_url"`
	DetectionThreshold float64 `yaml:"detection_threshold"`
}

type MatchingConfig struct {
	// SimilarityThreshold is the default minimum similarity for
	// interactive search; callers may override per request.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	// DeliveryConfidence is the strict lower bound on detection
	// confidence for a batch candidate to count as a match.
	DeliveryConfidence float64       `yaml:"delivery_confidence"`
	DefaultLimit       int           `yaml:"default_limit"`
	BatchConcurrency   int           `yaml:"batch_concurrency"`
	CandidateTimeout   time.Duration `yaml:"candidate_timeout"`
	SignedURLTTL       time.Duration `yaml:"signed_url_ttl"`
	WorkerCount        int           `yaml:"worker_count"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Vision.Extractor == "" {
		cfg.Vision.Extractor = "local"
	}
	if cfg.Vision.DetectionThreshold == 0 {
		cfg.Vision.DetectionThreshold = 0.5
	}
	if cfg.Matching.SimilarityThreshold == 0 {
		cfg.Matching.SimilarityThreshold = 0.6
	}
	if cfg.Matching.DeliveryConfidence == 0 {
		cfg.Matching.DeliveryConfidence = 0.8
	}
	if cfg.Matching.DefaultLimit == 0 {
		cfg.Matching.DefaultLimit = 10
	}
	if cfg.Matching.BatchConcurrency == 0 {
		cfg.Matching.BatchConcurrency = 4
	}
	if cfg.Matching.CandidateTimeout == 0 {
		cfg.Matching.CandidateTimeout = 30 * time.Second
	}
	if cfg.Matching.SignedURLTTL == 0 {
		cfg.Matching.SignedURLTTL = 5 * time.Minute
	}
	if cfg.Matching.WorkerCount == 0 {
		cfg.Matching.WorkerCount = 2
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SM_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SM_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("SM_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("SM_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("SM_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("SM_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("SM_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("SM_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("SM_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("SM_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("SM_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("SM_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("SM_MODELS_DIR"); v != "" {
		cfg.Vision.ModelsDir = v
	}
	if v := os.Getenv("SM_EXTRACTOR"); v != "" {
		cfg.Vision.Extractor = v
	}
	if v := os.Getenv("SM_EXTRACTOR_URL"); v != "" {
		cfg.Vision.RemoteURL = v
	}
	if v := os.Getenv("SM_BATCH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Matching.BatchConcurrency = n
		}
	}
	if v := os.Getenv("SM_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Matching.WorkerCount = n
		}
	}
}
