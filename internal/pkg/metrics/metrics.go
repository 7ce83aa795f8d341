// Package metrics collects business metrics across the crawler, indexer,
// and search services.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds service counters.
type Metrics struct {
	// Crawl counters
	pagesCrawled        uint64
	pagesFailed         uint64
	fragmentsDispatched uint64

	// Ingestion counters
	ingestAttempts  uint64
	ingestSucceeded uint64
	ingestRetried   uint64
	ingestDropped   uint64

	// Search counters
	searchRequests uint64
	searchErrors   uint64
	searchDuration float64 // seconds

	startTime  time.Time
	durationMu sync.Mutex
}

var (
	global *Metrics
	once   sync.Once
)

// Get returns the process-wide metrics instance.
func Get() *Metrics {
	once.Do(func() {
		global = &Metrics{startTime: time.Now()}
	})
	return global
}

// RecordPageCrawl records one dequeued page. failed marks fetch or parse
// failures; either way the page consumed crawl budget.
func (m *Metrics) RecordPageCrawl(failed bool) {
	atomic.AddUint64(&m.pagesCrawled, 1)
	if failed {
		atomic.AddUint64(&m.pagesFailed, 1)
	}
}

// RecordFragmentsDispatched records fragments handed to the ingestion queue.
func (m *Metrics) RecordFragmentsDispatched(n int) {
	if n > 0 {
		atomic.AddUint64(&m.fragmentsDispatched, uint64(n))
	}
}

// RecordIngestAttempt records one ingestion attempt and its outcome.
func (m *Metrics) RecordIngestAttempt(err error) {
	atomic.AddUint64(&m.ingestAttempts, 1)
	if err == nil {
		atomic.AddUint64(&m.ingestSucceeded, 1)
	}
}

// RecordIngestRetry records a task scheduled for another attempt.
func (m *Metrics) RecordIngestRetry() {
	atomic.AddUint64(&m.ingestRetried, 1)
}

// RecordIngestDropped records a task abandoned after exhausting attempts.
func (m *Metrics) RecordIngestDropped() {
	atomic.AddUint64(&m.ingestDropped, 1)
}

// RecordSearch records one search request.
func (m *Metrics) RecordSearch(duration time.Duration, err error) {
	atomic.AddUint64(&m.searchRequests, 1)
	if err != nil {
		atomic.AddUint64(&m.searchErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.searchDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// Stats returns a snapshot for the stats API.
func (m *Metrics) Stats() map[string]interface{} {
	m.durationMu.Lock()
	searchDuration := m.searchDuration
	m.durationMu.Unlock()

	searchTotal := atomic.LoadUint64(&m.searchRequests)
	avgSearchDuration := 0.0
	if searchTotal > 0 {
		avgSearchDuration = searchDuration / float64(searchTotal)
	}

	return map[string]interface{}{
		"crawl": map[string]interface{}{
			"pages_crawled":        atomic.LoadUint64(&m.pagesCrawled),
			"pages_failed":         atomic.LoadUint64(&m.pagesFailed),
			"fragments_dispatched": atomic.LoadUint64(&m.fragmentsDispatched),
		},
		"ingest": map[string]interface{}{
			"attempts":  atomic.LoadUint64(&m.ingestAttempts),
			"succeeded": atomic.LoadUint64(&m.ingestSucceeded),
			"retried":   atomic.LoadUint64(&m.ingestRetried),
			"dropped":   atomic.LoadUint64(&m.ingestDropped),
		},
		"search": map[string]interface{}{
			"requests":            searchTotal,
			"errors":              atomic.LoadUint64(&m.searchErrors),
			"total_duration_secs": searchDuration,
			"avg_duration_secs":   avgSearchDuration,
		},
		"uptime_seconds": time.Since(m.startTime).Seconds(),
	}
}

// Reset clears all counters. Test use only.
func (m *Metrics) Reset() {
	atomic.StoreUint64(&m.pagesCrawled, 0)
	atomic.StoreUint64(&m.pagesFailed, 0)
	atomic.StoreUint64(&m.fragmentsDispatched, 0)
	atomic.StoreUint64(&m.ingestAttempts, 0)
	atomic.StoreUint64(&m.ingestSucceeded, 0)
	atomic.StoreUint64(&m.ingestRetried, 0)
	atomic.StoreUint64(&m.ingestDropped, 0)
	atomic.StoreUint64(&m.searchRequests, 0)
	atomic.StoreUint64(&m.searchErrors, 0)

	m.durationMu.Lock()
	m.searchDuration = 0
	m.startTime = time.Now()
	m.durationMu.Unlock()
}
