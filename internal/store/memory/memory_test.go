package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/mediasearch/internal/model"
	"github.com/kart-io/mediasearch/pkg/utils/errors"
)

func TestTextStoreKNearestOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewTextStore(2)

	recs := []*model.TextRecord{
		{Key: "a", Content: "far", Embedding: []float32{10, 0}},
		{Key: "b", Content: "near", Embedding: []float32{1, 0}},
		{Key: "c", Content: "middle", Embedding: []float32{5, 0}},
	}
	for _, r := range recs {
		require.NoError(t, s.Insert(ctx, r))
	}

	hits, err := s.KNearest(ctx, []float32{0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "near", hits[0].Content)
	assert.Equal(t, "middle", hits[1].Content)
	assert.Less(t, hits[0].Distance, hits[1].Distance)
}

func TestTextStoreKNearestLimitExceedsSize(t *testing.T) {
	ctx := context.Background()
	s := NewTextStore(2)
	require.NoError(t, s.Insert(ctx, &model.TextRecord{Key: "only", Embedding: []float32{1, 1}}))

	hits, err := s.KNearest(ctx, []float32{0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestImageStoreUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewImageStore(2)

	rec := &model.ImageRecord{AssetURL: "http://x/a.png", AltText: "v1", Embedding: []float32{1, 0}}
	require.NoError(t, s.Upsert(ctx, rec))

	rec2 := &model.ImageRecord{AssetURL: "http://x/a.png", AltText: "v2", Embedding: []float32{0, 1}}
	require.NoError(t, s.Upsert(ctx, rec2))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	hits, err := s.KNearest(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "v2", hits[0].AltText)
}

func TestAudioStoreUpsertKeyedByOffset(t *testing.T) {
	ctx := context.Background()
	s := NewAudioStore(2)

	// Same asset, different offsets: distinct records.
	require.NoError(t, s.Upsert(ctx, &model.AudioRecord{AssetURL: "http://x/a.wav", Begin: 0, End: 20, Embedding: []float32{1, 0}}))
	require.NoError(t, s.Upsert(ctx, &model.AudioRecord{AssetURL: "http://x/a.wav", Begin: 20, End: 40, Embedding: []float32{0, 1}}))
	// Same asset and offset: replaces.
	require.NoError(t, s.Upsert(ctx, &model.AudioRecord{AssetURL: "http://x/a.wav", Begin: 0, End: 20, Embedding: []float32{2, 0}}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestDimensionMismatchRejected(t *testing.T) {
	ctx := context.Background()
	s := NewTextStore(3)

	err := s.Insert(ctx, &model.TextRecord{Key: "bad", Embedding: []float32{1, 2}})
	require.Error(t, err)
	assert.True(t, errors.ErrDimensionMismatch.Is(err))

	_, err = s.KNearest(ctx, []float32{1}, 5)
	require.Error(t, err)
	assert.True(t, errors.ErrDimensionMismatch.Is(err))
}

func TestKNearestEmptyStore(t *testing.T) {
	ctx := context.Background()
	s := NewAudioStore(2)

	hits, err := s.KNearest(ctx, []float32{0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
