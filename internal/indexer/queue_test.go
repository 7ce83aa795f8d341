package indexer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/mediasearch/internal/embedding"
	"github.com/kart-io/mediasearch/internal/store"
	"github.com/kart-io/mediasearch/internal/store/memory"
	queueopts "github.com/kart-io/mediasearch/pkg/options/queue"
)

func newTestQueue(t *testing.T, fe *fakeEmbedder, maxAttempts int) (*Queue, *store.Stores) {
	t.Helper()
	m := testModality()
	stores := memory.NewStores(m.TextDim, m.ImageDim, m.AudioDim)
	ext := &embedding.Extractor{Text: fe, Image: fe, Audio: fe}
	pipeline := NewPipeline(ext, stores, m)

	opts := queueopts.NewOptions()
	opts.Workers = 2
	opts.MaxAttempts = maxAttempts
	opts.RetryBackoff = 10 * time.Millisecond
	opts.TaskTimeout = 5 * time.Second

	q, err := NewQueue(pipeline, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close(time.Second) })
	return q, stores
}

func TestQueueRetriesTransientFailure(t *testing.T) {
	fe := &fakeEmbedder{dim: 4, failures: 1}
	q, stores := newTestQueue(t, fe, 3)

	require.NoError(t, q.EnqueueText("retry me", "http://site/a"))
	q.Drain()

	n, err := stores.Text.(*memory.TextStore).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, int32(2), fe.calls.Load())
}

func TestQueueDropsAfterMaxAttempts(t *testing.T) {
	fe := &fakeEmbedder{dim: 4, failures: 100}
	q, stores := newTestQueue(t, fe, 2)

	require.NoError(t, q.EnqueueText("never works", "http://site/a"))
	q.Drain()

	n, err := stores.Text.(*memory.TextStore).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.Equal(t, int32(2), fe.calls.Load())
}

func TestQueueDoesNotRetryTerminalFailure(t *testing.T) {
	// Wrong-dimension embeddings are a validation failure, not an outage.
	fe := &fakeEmbedder{dim: 7}
	q, stores := newTestQueue(t, fe, 3)

	require.NoError(t, q.EnqueueText("bad dims", "http://site/a"))
	q.Drain()

	n, err := stores.Text.(*memory.TextStore).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.Equal(t, int32(1), fe.calls.Load())
}

// panicEmbedder panics on text embeds, as a stand-in for a decoder blowing
// up on adversarial crawled content.
type panicEmbedder struct {
	fakeEmbedder
}

func (p *panicEmbedder) EmbedText(context.Context, string) ([]float32, error) {
	p.calls.Add(1)
	panic("corrupt input")
}

func TestQueuePanicReachesTerminalOutcome(t *testing.T) {
	fe := &panicEmbedder{fakeEmbedder: fakeEmbedder{dim: 4}}
	m := testModality()
	stores := memory.NewStores(m.TextDim, m.ImageDim, m.AudioDim)
	ext := &embedding.Extractor{Text: fe, Image: &fe.fakeEmbedder, Audio: &fe.fakeEmbedder}
	pipeline := NewPipeline(ext, stores, m)

	opts := queueopts.NewOptions()
	opts.Workers = 2
	opts.MaxAttempts = 2
	opts.RetryBackoff = 10 * time.Millisecond
	opts.TaskTimeout = 5 * time.Second

	q, err := NewQueue(pipeline, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close(time.Second) })

	require.NoError(t, q.EnqueueText("boom", "http://site/a"))

	done := make(chan struct{})
	go func() {
		q.Drain()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Drain did not return for a panicking task")
	}

	// Panics count as transient failures: retried, then dropped.
	assert.Equal(t, int32(2), fe.calls.Load())
	n, err := stores.Text.(*memory.TextStore).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestQueueDrainWaitsForAllTasks(t *testing.T) {
	fe := &fakeEmbedder{dim: 4}
	q, stores := newTestQueue(t, fe, 3)

	for i := 0; i < 20; i++ {
		require.NoError(t, q.EnqueueText("fragment", "http://site/a"))
	}
	q.Drain()

	n, err := stores.Text.(*memory.TextStore).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(20), n)
}
