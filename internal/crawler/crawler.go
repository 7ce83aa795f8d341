// Package crawler implements the breadth-first same-origin page crawler
// that feeds the ingestion queue.
package crawler

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/mediasearch/internal/pkg/metrics"
	"github.com/kart-io/mediasearch/pkg/utils/errors"
)

// maxPageBytes bounds a single page download.
const maxPageBytes = 32 << 20

// Dispatcher receives extracted fragments. Dispatch is fire-and-forget: the
// crawler never waits for ingestion and never learns its outcome.
type Dispatcher interface {
	EnqueueText(content, sourcePageURL string) error
	EnqueueImage(assetURL, altText, sourcePageURL string) error
	EnqueueAudio(assetURL, sourcePageURL string) error
}

// Config controls one crawl.
type Config struct {
	// Limit is the page budget: the maximum number of pages dequeued,
	// whether or not their fetch succeeds.
	Limit int
	// Delay is the pause between page fetches.
	Delay time.Duration
	// FetchTimeout bounds a single page fetch.
	FetchTimeout time.Duration
}

// Crawler walks pages breadth-first from a seed URL, staying on the seed's
// origin, and dispatches extracted fragments.
type Crawler struct {
	cfg        Config
	extractor  *Extractor
	dispatcher Dispatcher
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// New creates a crawler.
func New(cfg Config, extractor *Extractor, dispatcher Dispatcher) *Crawler {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	return &Crawler{
		cfg:        cfg,
		extractor:  extractor,
		dispatcher: dispatcher,
		httpClient: &http.Client{Timeout: cfg.FetchTimeout},
		metrics:    metrics.Get(),
	}
}

// Result summarizes one finished crawl.
type Result struct {
	PagesCrawled int
	PagesFailed  int
	Dispatched   int
}

// Run crawls from seedURL until the page budget is spent or the frontier is
// empty. Fetch failures consume budget but do not stop the crawl.
func (c *Crawler) Run(ctx context.Context, seedURL string) (*Result, error) {
	seed, err := url.Parse(seedURL)
	if err != nil || (seed.Scheme != "http" && seed.Scheme != "https") {
		return nil, errors.ErrBadRequest.WithMessage("invalid seed url %q", seedURL)
	}

	visited := map[string]bool{seed.String(): true}
	frontier := []string{seed.String()}
	res := &Result{}

	for len(frontier) > 0 && res.PagesCrawled < c.cfg.Limit {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		pageURL := frontier[0]
		frontier = frontier[1:]
		res.PagesCrawled++

		content, err := c.fetchAndExtract(ctx, pageURL)
		if err != nil {
			// The page still consumed budget; move on.
			logger.Warnw("page crawl failed", "url", pageURL, "error", err.Error())
			res.PagesFailed++
			c.metrics.RecordPageCrawl(true)
		} else {
			dispatched := c.dispatch(content, pageURL)
			res.Dispatched += dispatched
			c.metrics.RecordPageCrawl(false)
			c.metrics.RecordFragmentsDispatched(dispatched)

			for _, link := range content.Links {
				if !visited[link] {
					visited[link] = true
					frontier = append(frontier, link)
				}
			}

			logger.Infow("page crawled",
				"url", pageURL,
				"texts", len(content.Texts),
				"images", len(content.Images),
				"audios", len(content.Audios),
				"links", len(content.Links),
				"frontier", len(frontier),
			)
		}

		if c.cfg.Delay > 0 && len(frontier) > 0 && res.PagesCrawled < c.cfg.Limit {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(c.cfg.Delay):
			}
		}
	}

	return res, nil
}

func (c *Crawler) fetchAndExtract(ctx context.Context, pageURL string) (*PageContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.ErrTransient.WithMessage("fetch %s: %v", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.ErrTransient.WithMessage("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	return c.extractor.Extract(u, io.LimitReader(resp.Body, maxPageBytes))
}

// dispatch hands the page's fragments to the ingestion queue and returns how
// many were accepted.
func (c *Crawler) dispatch(content *PageContent, pageURL string) int {
	n := 0
	for _, text := range content.Texts {
		if err := c.dispatcher.EnqueueText(text, pageURL); err != nil {
			logger.Warnw("text dispatch failed", "url", pageURL, "error", err.Error())
		} else {
			n++
		}
	}
	for _, img := range content.Images {
		if err := c.dispatcher.EnqueueImage(img.URL, img.Alt, pageURL); err != nil {
			logger.Warnw("image dispatch failed", "asset", img.URL, "error", err.Error())
		} else {
			n++
		}
	}
	for _, a := range content.Audios {
		if err := c.dispatcher.EnqueueAudio(a, pageURL); err != nil {
			logger.Warnw("audio dispatch failed", "asset", a, "error", err.Error())
		} else {
			n++
		}
	}
	return n
}
