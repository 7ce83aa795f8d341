// Package store defines the vector store interfaces the indexer writes to
// and the API server queries.
package store

import (
	"context"

	"github.com/kart-io/mediasearch/internal/model"
)

// TextStore holds text fragment embeddings. Text records are append-only.
type TextStore interface {
	// Insert adds a new text record.
	Insert(ctx context.Context, rec *model.TextRecord) error
	// KNearest returns up to limit records ordered by ascending L2 distance
	// to query.
	KNearest(ctx context.Context, query []float32, limit int) ([]model.Hit, error)
}

// ImageStore holds image embeddings keyed by asset URL.
type ImageStore interface {
	// Upsert inserts or replaces the record for rec.AssetURL.
	Upsert(ctx context.Context, rec *model.ImageRecord) error
	KNearest(ctx context.Context, query []float32, limit int) ([]model.Hit, error)
}

// AudioStore holds audio chunk embeddings keyed by (asset URL, begin offset).
type AudioStore interface {
	// Upsert inserts or replaces the record for (rec.AssetURL, rec.Begin).
	Upsert(ctx context.Context, rec *model.AudioRecord) error
	KNearest(ctx context.Context, query []float32, limit int) ([]model.Hit, error)
}

// Counter reports the number of stored records, for stats reporting.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// Stores bundles the per-modality stores.
type Stores struct {
	Text  TextStore
	Image ImageStore
	Audio AudioStore
}

// Counts is a per-modality record count snapshot.
type Counts struct {
	Text  int64 `json:"text"`
	Image int64 `json:"image"`
	Audio int64 `json:"audio"`
}

// CountAll collects per-modality record counts. Stores that do not implement
// Counter report zero.
func (s *Stores) CountAll(ctx context.Context) (Counts, error) {
	var c Counts
	if tc, ok := s.Text.(Counter); ok {
		n, err := tc.Count(ctx)
		if err != nil {
			return c, err
		}
		c.Text = n
	}
	if ic, ok := s.Image.(Counter); ok {
		n, err := ic.Count(ctx)
		if err != nil {
			return c, err
		}
		c.Image = n
	}
	if ac, ok := s.Audio.(Counter); ok {
		n, err := ac.Count(ctx)
		if err != nil {
			return c, err
		}
		c.Audio = n
	}
	return c, nil
}
