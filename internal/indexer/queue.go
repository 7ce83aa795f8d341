package indexer

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/mediasearch/internal/pkg/metrics"
	"github.com/kart-io/mediasearch/pkg/infra/pool"
	queueopts "github.com/kart-io/mediasearch/pkg/options/queue"
	"github.com/kart-io/mediasearch/pkg/utils/errors"
)

// Queue runs ingestion tasks asynchronously on a worker pool with bounded
// retry. Enqueue methods are fire-and-forget: a failed task never reaches
// back to the producer.
type Queue struct {
	pipeline *Pipeline
	pool     *pool.Pool
	opts     *queueopts.Options
	metrics  *metrics.Metrics

	// wg tracks tasks from first enqueue to terminal outcome, across
	// retries, so Drain sees retried tasks through.
	wg sync.WaitGroup
}

// NewQueue creates the ingestion queue over its own worker pool.
func NewQueue(pipeline *Pipeline, opts *queueopts.Options) (*Queue, error) {
	p, err := pool.NewPool("ingest", pool.IngestPool, pool.IngestPoolConfig(opts.Workers))
	if err != nil {
		return nil, err
	}
	return &Queue{
		pipeline: pipeline,
		pool:     p,
		opts:     opts,
		metrics:  metrics.Get(),
	}, nil
}

// EnqueueText schedules a text fragment for ingestion.
func (q *Queue) EnqueueText(content, sourcePageURL string) error {
	return q.enqueue(NewTextTask(content, sourcePageURL))
}

// EnqueueImage schedules an image asset for ingestion.
func (q *Queue) EnqueueImage(assetURL, altText, sourcePageURL string) error {
	return q.enqueue(NewImageTask(assetURL, altText, sourcePageURL))
}

// EnqueueAudio schedules an audio asset for ingestion.
func (q *Queue) EnqueueAudio(assetURL, sourcePageURL string) error {
	return q.enqueue(NewAudioTask(assetURL, sourcePageURL))
}

func (q *Queue) enqueue(task Task) error {
	q.wg.Add(1)
	if err := q.submit(task); err != nil {
		q.wg.Done()
		return err
	}
	return nil
}

func (q *Queue) submit(task Task) error {
	return q.pool.Submit(func() {
		q.run(task)
	})
}

func (q *Queue) run(task Task) {
	task.Attempt++

	err := q.process(task)
	if err == nil {
		q.wg.Done()
		return
	}

	if isTerminal(err) {
		logger.Warnw("ingestion task rejected",
			"task", task.ID,
			"kind", task.Kind,
			"attempt", task.Attempt,
			"error", err.Error(),
		)
		q.metrics.RecordIngestDropped()
		q.wg.Done()
		return
	}

	if task.Attempt >= q.opts.MaxAttempts {
		logger.Errorw("ingestion task dropped after max attempts",
			"task", task.ID,
			"kind", task.Kind,
			"attempts", task.Attempt,
			"error", err.Error(),
		)
		q.metrics.RecordIngestDropped()
		q.wg.Done()
		return
	}

	logger.Warnw("ingestion task failed, scheduling retry",
		"task", task.ID,
		"kind", task.Kind,
		"attempt", task.Attempt,
		"backoff", q.opts.RetryBackoff.String(),
		"error", err.Error(),
	)
	q.metrics.RecordIngestRetry()

	// Fixed backoff off the worker goroutine: the timer resubmits so a
	// sleeping retry never occupies a pool slot.
	time.AfterFunc(q.opts.RetryBackoff, func() {
		if err := q.submit(task); err != nil {
			logger.Errorw("failed to resubmit ingestion task", "task", task.ID, "error", err.Error())
			q.metrics.RecordIngestDropped()
			q.wg.Done()
		}
	})
}

// process runs one attempt. A panic while decoding crawled content becomes a
// retriable error so the task still reaches a terminal outcome and Drain does
// not block forever on it.
func (q *Queue) process(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.ErrInternal.WithMessage("ingestion panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), q.opts.TaskTimeout)
	defer cancel()
	return q.pipeline.Process(ctx, task)
}

// isTerminal reports whether err is a permanent task failure that retrying
// cannot fix (malformed content, validation errors).
func isTerminal(err error) bool {
	return errors.FromError(err).HTTP == http.StatusBadRequest
}

// Drain blocks until every enqueued task reaches a terminal outcome,
// including scheduled retries.
func (q *Queue) Drain() {
	q.wg.Wait()
}

// Close drains the queue and releases the worker pool.
func (q *Queue) Close(timeout time.Duration) error {
	q.Drain()
	return q.pool.ReleaseTimeout(timeout)
}

// Stats returns worker pool statistics.
func (q *Queue) Stats() pool.Stats {
	return q.pool.Stats()
}
