// Package memory provides in-process vector stores backed by brute-force
// scans. They serve tests and single-node development; production uses the
// milvus driver.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/kart-io/mediasearch/internal/model"
	"github.com/kart-io/mediasearch/internal/store"
	"github.com/kart-io/mediasearch/pkg/utils/errors"
)

// l2Distance computes the Euclidean distance between two equal-length
// vectors.
func l2Distance(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return float32(math.Sqrt(sum))
}

type entry struct {
	vec []float32
	hit model.Hit
}

// base is the shared keyed map plus kNN scan.
type base struct {
	mu      sync.RWMutex
	dim     int
	entries map[string]entry
}

func newBase(dim int) base {
	return base{dim: dim, entries: make(map[string]entry)}
}

func (b *base) put(key string, vec []float32, hit model.Hit) error {
	if err := model.ValidateEmbedding(vec, b.dim); err != nil {
		return errors.ErrDimensionMismatch.WithMessage("%v", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[key] = entry{vec: vec, hit: hit}
	return nil
}

func (b *base) kNearest(query []float32, limit int) ([]model.Hit, error) {
	if err := model.ValidateEmbedding(query, b.dim); err != nil {
		return nil, errors.ErrDimensionMismatch.WithMessage("%v", err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	hits := make([]model.Hit, 0, len(b.entries))
	for _, e := range b.entries {
		h := e.hit
		h.Distance = l2Distance(query, e.vec)
		hits = append(hits, h)
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })

	if limit < len(hits) {
		hits = hits[:limit]
	}
	return hits, nil
}

func (b *base) count() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return int64(len(b.entries))
}

// TextStore is an in-memory text fragment store.
type TextStore struct {
	base
}

var _ store.TextStore = (*TextStore)(nil)
var _ store.Counter = (*TextStore)(nil)

// NewTextStore creates an in-memory text store for embeddings of dimension
// dim.
func NewTextStore(dim int) *TextStore {
	return &TextStore{base: newBase(dim)}
}

// Insert adds a new text record keyed by rec.Key.
func (s *TextStore) Insert(_ context.Context, rec *model.TextRecord) error {
	return s.put(rec.Key, rec.Embedding, model.Hit{
		Modality:      model.ModalityText,
		Content:       rec.Content,
		SourcePageURL: rec.SourcePageURL,
	})
}

// KNearest returns up to limit hits ordered by ascending distance.
func (s *TextStore) KNearest(_ context.Context, query []float32, limit int) ([]model.Hit, error) {
	return s.kNearest(query, limit)
}

// Count returns the number of stored records.
func (s *TextStore) Count(_ context.Context) (int64, error) {
	return s.count(), nil
}

// ImageStore is an in-memory image store keyed by asset URL.
type ImageStore struct {
	base
}

var _ store.ImageStore = (*ImageStore)(nil)
var _ store.Counter = (*ImageStore)(nil)

// NewImageStore creates an in-memory image store for embeddings of dimension
// dim.
func NewImageStore(dim int) *ImageStore {
	return &ImageStore{base: newBase(dim)}
}

// Upsert inserts or replaces the record for rec.AssetURL.
func (s *ImageStore) Upsert(_ context.Context, rec *model.ImageRecord) error {
	return s.put(rec.Key(), rec.Embedding, model.Hit{
		Modality:      model.ModalityImage,
		AssetURL:      rec.AssetURL,
		AltText:       rec.AltText,
		SourcePageURL: rec.SourcePageURL,
	})
}

// KNearest returns up to limit hits ordered by ascending distance.
func (s *ImageStore) KNearest(_ context.Context, query []float32, limit int) ([]model.Hit, error) {
	return s.kNearest(query, limit)
}

// Count returns the number of stored records.
func (s *ImageStore) Count(_ context.Context) (int64, error) {
	return s.count(), nil
}

// AudioStore is an in-memory audio chunk store keyed by (asset URL, begin).
type AudioStore struct {
	base
}

var _ store.AudioStore = (*AudioStore)(nil)
var _ store.Counter = (*AudioStore)(nil)

// NewAudioStore creates an in-memory audio store for embeddings of dimension
// dim.
func NewAudioStore(dim int) *AudioStore {
	return &AudioStore{base: newBase(dim)}
}

// Upsert inserts or replaces the record for (rec.AssetURL, rec.Begin).
func (s *AudioStore) Upsert(_ context.Context, rec *model.AudioRecord) error {
	return s.put(rec.Key(), rec.Embedding, model.Hit{
		Modality:      model.ModalityAudio,
		AssetURL:      rec.AssetURL,
		SourcePageURL: rec.SourcePageURL,
		Begin:         rec.Begin,
		End:           rec.End,
	})
}

// KNearest returns up to limit hits ordered by ascending distance.
func (s *AudioStore) KNearest(_ context.Context, query []float32, limit int) ([]model.Hit, error) {
	return s.kNearest(query, limit)
}

// Count returns the number of stored records.
func (s *AudioStore) Count(_ context.Context) (int64, error) {
	return s.count(), nil
}

// NewStores builds a full in-memory store bundle.
func NewStores(textDim, imageDim, audioDim int) *store.Stores {
	return &store.Stores{
		Text:  NewTextStore(textDim),
		Image: NewImageStore(imageDim),
		Audio: NewAudioStore(audioDim),
	}
}
