// Package biz implements the cross-modal retrieval service.
package biz

import (
	"bytes"
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path"
	"strings"
	"time"

	"github.com/kart-io/mediasearch/internal/embedding"
	"github.com/kart-io/mediasearch/internal/model"
	"github.com/kart-io/mediasearch/internal/pkg/audio"
	"github.com/kart-io/mediasearch/internal/pkg/metrics"
	"github.com/kart-io/mediasearch/internal/store"
	modalityopts "github.com/kart-io/mediasearch/pkg/options/modality"
	"github.com/kart-io/mediasearch/pkg/utils/errors"
)

// Query limits.
const (
	MaxQueryLength = 200
	MinLimit       = 1
	MaxLimit       = 50
	DefaultLimit   = 10
)

// SearchService answers k-nearest-neighbor queries against the per-modality
// stores.
type SearchService struct {
	extractor *embedding.Extractor
	stores    *store.Stores
	modality  *modalityopts.Options
	metrics   *metrics.Metrics
}

// NewSearchService creates the retrieval service.
func NewSearchService(extractor *embedding.Extractor, stores *store.Stores, modality *modalityopts.Options) *SearchService {
	return &SearchService{
		extractor: extractor,
		stores:    stores,
		modality:  modality,
		metrics:   metrics.Get(),
	}
}

// NormalizeLimit clamps a requested result count into the allowed range,
// substituting the default for zero.
func NormalizeLimit(limit int) (int, error) {
	if limit == 0 {
		return DefaultLimit, nil
	}
	if limit < MinLimit || limit > MaxLimit {
		return 0, errors.ErrBadRequest.WithMessage("limit must be between %d and %d", MinLimit, MaxLimit)
	}
	return limit, nil
}

// QueryByText embeds a text query and searches the store for the requested
// modality. Text queries reach every modality because the embedding spaces
// are aligned.
func (s *SearchService) QueryByText(ctx context.Context, q string, mod model.Modality, limit int) ([]model.Hit, error) {
	start := time.Now()
	hits, err := s.queryByText(ctx, q, mod, limit)
	s.metrics.RecordSearch(time.Since(start), err)
	return hits, err
}

func (s *SearchService) queryByText(ctx context.Context, q string, mod model.Modality, limit int) ([]model.Hit, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, errors.ErrBadRequest.WithMessage("query must not be empty")
	}
	if len(q) > MaxQueryLength {
		return nil, errors.ErrBadRequest.WithMessage("query longer than %d characters", MaxQueryLength)
	}
	if !mod.Valid() {
		return nil, errors.ErrInvalidSearchType.WithMessage("unknown search type %q", string(mod))
	}
	limit, err := NormalizeLimit(limit)
	if err != nil {
		return nil, err
	}

	// Each modality has its own embedding space: cross-modal text queries go
	// through the target model's text tower, not the text model.
	switch mod {
	case model.ModalityText:
		vec, err := s.extractor.Text.EmbedText(ctx, q)
		if err != nil {
			return nil, err
		}
		return s.stores.Text.KNearest(ctx, vec, limit)
	case model.ModalityImage:
		vec, err := s.extractor.Image.EmbedTextInImageSpace(ctx, q)
		if err != nil {
			return nil, err
		}
		return s.stores.Image.KNearest(ctx, vec, limit)
	default:
		vec, err := s.extractor.Audio.EmbedTextInAudioSpace(ctx, q)
		if err != nil {
			return nil, err
		}
		return s.stores.Audio.KNearest(ctx, vec, limit)
	}
}

// QueryByImageFile embeds an uploaded image and searches the image store.
func (s *SearchService) QueryByImageFile(ctx context.Context, data []byte, limit int) ([]model.Hit, error) {
	start := time.Now()
	hits, err := s.queryByImageFile(ctx, data, limit)
	s.metrics.RecordSearch(time.Since(start), err)
	return hits, err
}

func (s *SearchService) queryByImageFile(ctx context.Context, data []byte, limit int) ([]model.Hit, error) {
	limit, err := NormalizeLimit(limit)
	if err != nil {
		return nil, err
	}
	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		return nil, errors.ErrMalformedContent.WithMessage("decode uploaded image: %v", err)
	}

	vec, err := s.extractor.Image.EmbedImage(ctx, data)
	if err != nil {
		return nil, err
	}
	return s.stores.Image.KNearest(ctx, vec, limit)
}

// QueryByAudioFile embeds an uploaded audio clip and searches the audio
// store. Clips longer than one chunk are represented by their first chunk.
func (s *SearchService) QueryByAudioFile(ctx context.Context, filename string, data []byte, limit int) ([]model.Hit, error) {
	start := time.Now()
	hits, err := s.queryByAudioFile(ctx, filename, data, limit)
	s.metrics.RecordSearch(time.Since(start), err)
	return hits, err
}

func (s *SearchService) queryByAudioFile(ctx context.Context, filename string, data []byte, limit int) ([]model.Hit, error) {
	limit, err := NormalizeLimit(limit)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(path.Ext(filename))
	if ext != ".wav" && ext != ".mp3" {
		return nil, errors.ErrMalformedContent.WithMessage("unsupported audio upload extension %q", ext)
	}

	tmp, err := os.CreateTemp("", "mediasearch-query-*"+ext)
	if err != nil {
		return nil, errors.ErrInternal.WithMessage("create temp file: %v", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, errors.ErrInternal.WithMessage("write temp file: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, errors.ErrInternal.WithMessage("close temp file: %v", err)
	}

	samples, err := audio.DecodeFile(tmp.Name(), s.modality.AudioSampleRate)
	if err != nil {
		return nil, err
	}

	chunker := audio.NewChunker(samples, s.modality.AudioSampleRate, s.modality.AudioChunkSeconds)
	chunk, ok := chunker.Next()
	if !ok {
		return nil, errors.ErrMalformedContent.WithMessage("audio upload contains no samples")
	}

	vec, err := s.extractor.Audio.EmbedAudio(ctx, chunk.Samples, s.modality.AudioSampleRate)
	if err != nil {
		return nil, err
	}
	return s.stores.Audio.KNearest(ctx, vec, limit)
}

// Stats reports store record counts plus service counters.
func (s *SearchService) Stats(ctx context.Context) (map[string]interface{}, error) {
	counts, err := s.stores.CountAll(ctx)
	if err != nil {
		return nil, err
	}

	stats := s.metrics.Stats()
	stats["records"] = counts
	return stats, nil
}
