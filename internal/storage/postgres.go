package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/snapmatch/internal/config"
	"github.com/your-org/snapmatch/internal/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Events ---

func (s *PostgresStore) CreateEvent(ctx context.Context, name, description string) (*models.Event, error) {
	ev := &models.Event{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO events (id, name, description) VALUES ($1, $2, $3) RETURNING created_at, updated_at`,
		ev.ID, ev.Name, ev.Description,
	).Scan(&ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return ev, nil
}

func (s *PostgresStore) GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	ev := &models.Event{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, description, created_at, updated_at FROM events WHERE id = $1`, id,
	).Scan(&ev.ID, &ev.Name, &ev.Description, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

func (s *PostgresStore) ListEvents(ctx context.Context) ([]models.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, description, created_at, updated_at FROM events ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var ev models.Event
		if err := rows.Scan(&ev.ID, &ev.Name, &ev.Description, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// --- Photos ---

func (s *PostgresStore) CreatePhoto(ctx context.Context, p *models.Photo) error {
	p.ID = uuid.New()
	if p.Metadata == nil {
		p.Metadata = json.RawMessage("{}")
	}
	return s.pool.QueryRow(ctx,
		`INSERT INTO photos (id, event_id, storage_path, mime_type, size_bytes, is_matched, metadata)
		 VALUES ($1, $2, $3, $4, $5, false, $6) RETURNING created_at`,
		p.ID, p.EventID, p.StoragePath, p.MimeType, p.SizeBytes, p.Metadata,
	).Scan(&p.CreatedAt)
}

func (s *PostgresStore) ListEventPhotos(ctx context.Context, eventID uuid.UUID) ([]models.Photo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, event_id, storage_path, mime_type, size_bytes, is_matched, guest_folder_path, metadata, created_at
		 FROM photos WHERE event_id = $1 ORDER BY created_at`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	var photos []models.Photo
	for rows.Next() {
		var p models.Photo
		if err := rows.Scan(&p.ID, &p.EventID, &p.StoragePath, &p.MimeType, &p.SizeBytes,
			&p.IsMatched, &p.GuestFolder, &p.Metadata, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		photos = append(photos, p)
	}
	return photos, nil
}

// MarkPhotoMatched flags a photo as delivered into the given guest folder.
func (s *PostgresStore) MarkPhotoMatched(ctx context.Context, photoID uuid.UUID, guestFolder string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE photos SET is_matched = true, guest_folder_path = $1 WHERE id = $2`,
		guestFolder, photoID)
	if err != nil {
		return fmt.Errorf("mark photo matched: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("photo %s not found", photoID)
	}
	return nil
}

// --- Face descriptors ---

func (s *PostgresStore) InsertDescriptor(ctx context.Context, d *models.FaceDescriptor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Metadata == nil {
		d.Metadata = json.RawMessage("{}")
	}
	vec := pgvector.NewVector(d.Embedding)
	err := s.pool.QueryRow(ctx,
		`INSERT INTO face_embeddings (id, owner_id, image_path, embedding, confidence_score, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`,
		d.ID, d.OwnerID, d.ImagePath, vec, d.Confidence, d.Metadata,
	).Scan(&d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert descriptor: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDescriptor(ctx context.Context, id uuid.UUID) (*models.FaceDescriptor, error) {
	d := &models.FaceDescriptor{}
	var vec pgvector.Vector
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, image_path, embedding, confidence_score, metadata, created_at
		 FROM face_embeddings WHERE id = $1`, id,
	).Scan(&d.ID, &d.OwnerID, &d.ImagePath, &vec, &d.Confidence, &d.Metadata, &d.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get descriptor: %w", err)
	}
	d.Embedding = vec.Slice()
	return d, nil
}

// FindSimilar returns stored descriptors at or above the similarity
// threshold, ranked by cosine similarity. The pgvector <=> operator is
// cosine distance, so similarity = 1 - distance.
func (s *PostgresStore) FindSimilar(ctx context.Context, embedding []float32, threshold float64, limit int) ([]models.SimilarFace, error) {
	if limit <= 0 {
		limit = 10
	}
	vec := pgvector.NewVector(embedding)

	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, image_path, confidence_score, created_at, 1 - (embedding <=> $1) AS similarity
		 FROM face_embeddings
		 WHERE 1 - (embedding <=> $1) >= $2
		 ORDER BY embedding <=> $1, confidence_score DESC, id
		 LIMIT $3`,
		vec, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("find similar: %w", err)
	}
	defer rows.Close()

	var matches []models.SimilarFace
	for rows.Next() {
		var m models.SimilarFace
		if err := rows.Scan(&m.ID, &m.OwnerID, &m.ImagePath, &m.Confidence, &m.CreatedAt, &m.Similarity); err != nil {
			return nil, fmt.Errorf("scan similar face: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// --- Match ledger ---

// AppendMatch inserts one row into the append-only match ledger.
func (s *PostgresStore) AppendMatch(ctx context.Context, rec *models.MatchRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Details == nil {
		rec.Details = json.RawMessage("{}")
	}
	if rec.ProcessedAt.IsZero() {
		rec.ProcessedAt = time.Now().UTC()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO face_matches (id, reference_id, candidate_id, similarity_score, confidence_score, match_details, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`,
		rec.ID, rec.ReferenceID, rec.CandidateID, rec.Similarity, rec.Confidence, rec.Details, rec.ProcessedAt,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("append match: %w", err)
	}
	return nil
}

// ListMatchesForReference returns match records in insertion order.
// Consumers sort further by score on their side.
func (s *PostgresStore) ListMatchesForReference(ctx context.Context, referenceID uuid.UUID) ([]models.MatchRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, reference_id, candidate_id, similarity_score, confidence_score, match_details, created_at, processed_at
		 FROM face_matches WHERE reference_id = $1 ORDER BY seq`, referenceID)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var records []models.MatchRecord
	for rows.Next() {
		var rec models.MatchRecord
		if err := rows.Scan(&rec.ID, &rec.ReferenceID, &rec.CandidateID, &rec.Similarity,
			&rec.Confidence, &rec.Details, &rec.CreatedAt, &rec.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan match record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}
