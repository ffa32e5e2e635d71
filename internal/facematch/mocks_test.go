package facematch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/your-org/snapmatch/internal/models"
	"github.com/your-org/snapmatch/internal/vision"
)

// fakeExtractor returns canned faces keyed by image content.
type fakeExtractor struct {
	faces map[string][]vision.Face
	errs  map[string]error
}

func (f *fakeExtractor) Extract(_ context.Context, imageData []byte) ([]vision.Face, error) {
	key := string(imageData)
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	return f.faces[key], nil
}

// memBlobs is an in-memory BlobStore.
type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	copyErr error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: make(map[string][]byte)}
}

func (b *memBlobs) PutObject(_ context.Context, key string, data []byte, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return nil
}

func (b *memBlobs) GetObject(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return data, nil
}

func (b *memBlobs) CopyObject(_ context.Context, srcKey, dstKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.copyErr != nil {
		return b.copyErr
	}
	data, ok := b.objects[srcKey]
	if !ok {
		return fmt.Errorf("object %s not found", srcKey)
	}
	b.objects[dstKey] = data
	return nil
}

func (b *memBlobs) ListObjects(_ context.Context, prefix string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var keys []string
	for k := range b.objects {
		if strings.HasPrefix(k, prefix) && !strings.HasSuffix(k, "/.keep") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *memBlobs) EnsureFolder(_ context.Context, prefix string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[strings.TrimSuffix(prefix, "/")+"/.keep"] = nil
	return nil
}

func (b *memBlobs) PublicURL(key string) string {
	return "http://blobs.local/snapmatch/" + key
}

// memDescriptors stores descriptors and serves canned similarity
// results, filtered and truncated like the real store.
type memDescriptors struct {
	mu         sync.Mutex
	rows       map[uuid.UUID]*models.FaceDescriptor
	candidates []models.SimilarFace

	lastThreshold float64
	lastLimit     int
}

func newMemDescriptors() *memDescriptors {
	return &memDescriptors{rows: make(map[uuid.UUID]*models.FaceDescriptor)}
}

func (d *memDescriptors) InsertDescriptor(_ context.Context, desc *models.FaceDescriptor) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if desc.ID == uuid.Nil {
		desc.ID = uuid.New()
	}
	d.rows[desc.ID] = desc
	return nil
}

func (d *memDescriptors) GetDescriptor(_ context.Context, id uuid.UUID) (*models.FaceDescriptor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rows[id], nil
}

func (d *memDescriptors) FindSimilar(_ context.Context, _ []float32, threshold float64, limit int) ([]models.SimilarFace, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastThreshold = threshold
	d.lastLimit = limit

	var out []models.SimilarFace
	for _, c := range d.candidates {
		if c.Similarity >= threshold {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (d *memDescriptors) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rows)
}

// memMatches is an in-memory append-only ledger.
type memMatches struct {
	mu        sync.Mutex
	records   []models.MatchRecord
	appendErr error
}

func (m *memMatches) AppendMatch(_ context.Context, rec *models.MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	m.records = append(m.records, *rec)
	return nil
}

func (m *memMatches) all() []models.MatchRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.MatchRecord, len(m.records))
	copy(out, m.records)
	return out
}

// memPhotos is an in-memory PhotoStore.
type memPhotos struct {
	mu      sync.Mutex
	photos  []models.Photo
	matched map[uuid.UUID]string
}

func newMemPhotos(photos ...models.Photo) *memPhotos {
	return &memPhotos{photos: photos, matched: make(map[uuid.UUID]string)}
}

func (p *memPhotos) ListEventPhotos(_ context.Context, eventID uuid.UUID) ([]models.Photo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.Photo
	for _, photo := range p.photos {
		if photo.EventID == eventID {
			out = append(out, photo)
		}
	}
	return out, nil
}

func (p *memPhotos) MarkPhotoMatched(_ context.Context, photoID uuid.UUID, guestFolder string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.matched[photoID] = guestFolder
	return nil
}
