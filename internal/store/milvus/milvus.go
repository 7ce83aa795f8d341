// Package milvus implements the vector stores on Milvus collections, one
// collection per modality.
package milvus

import (
	"context"

	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/kart-io/mediasearch/internal/model"
	"github.com/kart-io/mediasearch/internal/store"
	"github.com/kart-io/mediasearch/pkg/component/milvus"
	"github.com/kart-io/mediasearch/pkg/utils/errors"
)

const (
	fieldContent   = "content"
	fieldAssetURL  = "asset_url"
	fieldAltText   = "alt_text"
	fieldSourceURL = "source_page_url"
	fieldBegin     = "chunk_begin"
	fieldEnd       = "chunk_end"

	urlMaxLen  = 2048
	textMaxLen = 8192
)

// Config describes one modality collection.
type Config struct {
	Collection string
	Dimension  int
}

func ensure(ctx context.Context, c *milvus.Client, cfg Config, desc string, meta []milvus.MetaField) error {
	return c.EnsureCollection(ctx, &milvus.CollectionSchema{
		Name:        cfg.Collection,
		Description: desc,
		Dimension:   cfg.Dimension,
		MetaFields:  meta,
	})
}

// TextStore stores text fragments in a Milvus collection.
type TextStore struct {
	client *milvus.Client
	cfg    Config
}

var _ store.TextStore = (*TextStore)(nil)
var _ store.Counter = (*TextStore)(nil)

// NewTextStore ensures the text collection exists and returns a store over
// it.
func NewTextStore(ctx context.Context, client *milvus.Client, cfg Config) (*TextStore, error) {
	meta := []milvus.MetaField{
		{Name: fieldContent, DataType: entity.FieldTypeVarChar, MaxLen: textMaxLen},
		{Name: fieldSourceURL, DataType: entity.FieldTypeVarChar, MaxLen: urlMaxLen},
	}
	if err := ensure(ctx, client, cfg, "text fragment embeddings", meta); err != nil {
		return nil, errors.ErrStore.WithMessage("ensure text collection: %v", err)
	}
	return &TextStore{client: client, cfg: cfg}, nil
}

// Insert adds a new text record.
func (s *TextStore) Insert(ctx context.Context, rec *model.TextRecord) error {
	if err := model.ValidateEmbedding(rec.Embedding, s.cfg.Dimension); err != nil {
		return errors.ErrDimensionMismatch.WithMessage("%v", err)
	}
	err := s.client.Upsert(ctx, s.cfg.Collection, &milvus.UpsertData{
		Keys:       []string{rec.Key},
		Embeddings: [][]float32{rec.Embedding},
		Metadata: map[string][]any{
			fieldContent:   {rec.Content},
			fieldSourceURL: {rec.SourcePageURL},
		},
	})
	if err != nil {
		return errors.ErrStore.WithMessage("insert text record: %v", err)
	}
	return nil
}

// KNearest returns up to limit text hits by ascending L2 distance.
func (s *TextStore) KNearest(ctx context.Context, query []float32, limit int) ([]model.Hit, error) {
	if err := model.ValidateEmbedding(query, s.cfg.Dimension); err != nil {
		return nil, errors.ErrDimensionMismatch.WithMessage("%v", err)
	}
	results, err := s.client.Search(ctx, s.cfg.Collection, query, limit, []string{fieldContent, fieldSourceURL})
	if err != nil {
		return nil, errors.ErrStore.WithMessage("search text: %v", err)
	}

	hits := make([]model.Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, model.Hit{
			Modality:      model.ModalityText,
			Distance:      r.Score,
			Content:       metaString(r.Metadata, fieldContent),
			SourcePageURL: metaString(r.Metadata, fieldSourceURL),
		})
	}
	return hits, nil
}

// Count returns the number of stored text records.
func (s *TextStore) Count(ctx context.Context) (int64, error) {
	return s.client.GetCollectionStats(ctx, s.cfg.Collection)
}

// ImageStore stores image embeddings keyed by asset URL.
type ImageStore struct {
	client *milvus.Client
	cfg    Config
}

var _ store.ImageStore = (*ImageStore)(nil)
var _ store.Counter = (*ImageStore)(nil)

// NewImageStore ensures the image collection exists and returns a store over
// it.
func NewImageStore(ctx context.Context, client *milvus.Client, cfg Config) (*ImageStore, error) {
	meta := []milvus.MetaField{
		{Name: fieldAssetURL, DataType: entity.FieldTypeVarChar, MaxLen: urlMaxLen},
		{Name: fieldAltText, DataType: entity.FieldTypeVarChar, MaxLen: textMaxLen},
		{Name: fieldSourceURL, DataType: entity.FieldTypeVarChar, MaxLen: urlMaxLen},
	}
	if err := ensure(ctx, client, cfg, "image embeddings", meta); err != nil {
		return nil, errors.ErrStore.WithMessage("ensure image collection: %v", err)
	}
	return &ImageStore{client: client, cfg: cfg}, nil
}

// Upsert inserts or replaces the record for rec.AssetURL.
func (s *ImageStore) Upsert(ctx context.Context, rec *model.ImageRecord) error {
	if err := model.ValidateEmbedding(rec.Embedding, s.cfg.Dimension); err != nil {
		return errors.ErrDimensionMismatch.WithMessage("%v", err)
	}
	err := s.client.Upsert(ctx, s.cfg.Collection, &milvus.UpsertData{
		Keys:       []string{rec.Key()},
		Embeddings: [][]float32{rec.Embedding},
		Metadata: map[string][]any{
			fieldAssetURL:  {rec.AssetURL},
			fieldAltText:   {rec.AltText},
			fieldSourceURL: {rec.SourcePageURL},
		},
	})
	if err != nil {
		return errors.ErrStore.WithMessage("upsert image record: %v", err)
	}
	return nil
}

// KNearest returns up to limit image hits by ascending L2 distance.
func (s *ImageStore) KNearest(ctx context.Context, query []float32, limit int) ([]model.Hit, error) {
	if err := model.ValidateEmbedding(query, s.cfg.Dimension); err != nil {
		return nil, errors.ErrDimensionMismatch.WithMessage("%v", err)
	}
	results, err := s.client.Search(ctx, s.cfg.Collection, query, limit, []string{fieldAssetURL, fieldAltText, fieldSourceURL})
	if err != nil {
		return nil, errors.ErrStore.WithMessage("search image: %v", err)
	}

	hits := make([]model.Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, model.Hit{
			Modality:      model.ModalityImage,
			Distance:      r.Score,
			AssetURL:      metaString(r.Metadata, fieldAssetURL),
			AltText:       metaString(r.Metadata, fieldAltText),
			SourcePageURL: metaString(r.Metadata, fieldSourceURL),
		})
	}
	return hits, nil
}

// Count returns the number of stored image records.
func (s *ImageStore) Count(ctx context.Context) (int64, error) {
	return s.client.GetCollectionStats(ctx, s.cfg.Collection)
}

// AudioStore stores audio chunk embeddings keyed by (asset URL, begin).
type AudioStore struct {
	client *milvus.Client
	cfg    Config
}

var _ store.AudioStore = (*AudioStore)(nil)
var _ store.Counter = (*AudioStore)(nil)

// NewAudioStore ensures the audio collection exists and returns a store over
// it.
func NewAudioStore(ctx context.Context, client *milvus.Client, cfg Config) (*AudioStore, error) {
	meta := []milvus.MetaField{
		{Name: fieldAssetURL, DataType: entity.FieldTypeVarChar, MaxLen: urlMaxLen},
		{Name: fieldSourceURL, DataType: entity.FieldTypeVarChar, MaxLen: urlMaxLen},
		{Name: fieldBegin, DataType: entity.FieldTypeInt64},
		{Name: fieldEnd, DataType: entity.FieldTypeInt64},
	}
	if err := ensure(ctx, client, cfg, "audio chunk embeddings", meta); err != nil {
		return nil, errors.ErrStore.WithMessage("ensure audio collection: %v", err)
	}
	return &AudioStore{client: client, cfg: cfg}, nil
}

// Upsert inserts or replaces the record for (rec.AssetURL, rec.Begin).
func (s *AudioStore) Upsert(ctx context.Context, rec *model.AudioRecord) error {
	if err := model.ValidateEmbedding(rec.Embedding, s.cfg.Dimension); err != nil {
		return errors.ErrDimensionMismatch.WithMessage("%v", err)
	}
	err := s.client.Upsert(ctx, s.cfg.Collection, &milvus.UpsertData{
		Keys:       []string{rec.Key()},
		Embeddings: [][]float32{rec.Embedding},
		Metadata: map[string][]any{
			fieldAssetURL:  {rec.AssetURL},
			fieldSourceURL: {rec.SourcePageURL},
			fieldBegin:     {int64(rec.Begin)},
			fieldEnd:       {int64(rec.End)},
		},
	})
	if err != nil {
		return errors.ErrStore.WithMessage("upsert audio record: %v", err)
	}
	return nil
}

// KNearest returns up to limit audio hits by ascending L2 distance.
func (s *AudioStore) KNearest(ctx context.Context, query []float32, limit int) ([]model.Hit, error) {
	if err := model.ValidateEmbedding(query, s.cfg.Dimension); err != nil {
		return nil, errors.ErrDimensionMismatch.WithMessage("%v", err)
	}
	results, err := s.client.Search(ctx, s.cfg.Collection, query, limit, []string{fieldAssetURL, fieldSourceURL, fieldBegin, fieldEnd})
	if err != nil {
		return nil, errors.ErrStore.WithMessage("search audio: %v", err)
	}

	hits := make([]model.Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, model.Hit{
			Modality:      model.ModalityAudio,
			Distance:      r.Score,
			AssetURL:      metaString(r.Metadata, fieldAssetURL),
			SourcePageURL: metaString(r.Metadata, fieldSourceURL),
			Begin:         int(metaInt64(r.Metadata, fieldBegin)),
			End:           int(metaInt64(r.Metadata, fieldEnd)),
		})
	}
	return hits, nil
}

// Count returns the number of stored audio records.
func (s *AudioStore) Count(ctx context.Context) (int64, error) {
	return s.client.GetCollectionStats(ctx, s.cfg.Collection)
}

// NewStores builds the full Milvus store bundle, creating collections as
// needed. Collection names are prefix + modality.
func NewStores(ctx context.Context, client *milvus.Client, prefix string, textDim, imageDim, audioDim int) (*store.Stores, error) {
	text, err := NewTextStore(ctx, client, Config{Collection: prefix + "text", Dimension: textDim})
	if err != nil {
		return nil, err
	}
	img, err := NewImageStore(ctx, client, Config{Collection: prefix + "image", Dimension: imageDim})
	if err != nil {
		return nil, err
	}
	audio, err := NewAudioStore(ctx, client, Config{Collection: prefix + "audio", Dimension: audioDim})
	if err != nil {
		return nil, err
	}
	return &store.Stores{Text: text, Image: img, Audio: audio}, nil
}

func metaString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func metaInt64(m map[string]any, key string) int64 {
	if v, ok := m[key].(int64); ok {
		return v
	}
	return 0
}
