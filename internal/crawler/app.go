package crawler

import (
	"context"
	"fmt"
	"os"

	"github.com/kart-io/logger"
	"github.com/spf13/cobra"

	"github.com/kart-io/mediasearch/internal/embedding"
	"github.com/kart-io/mediasearch/internal/indexer"
	"github.com/kart-io/mediasearch/internal/store"
	memorystore "github.com/kart-io/mediasearch/internal/store/memory"
	milvusstore "github.com/kart-io/mediasearch/internal/store/milvus"
	milvuscomp "github.com/kart-io/mediasearch/pkg/component/milvus"
	"github.com/kart-io/mediasearch/pkg/infra/app"
	storeopts "github.com/kart-io/mediasearch/pkg/options/store"
)

const (
	appName        = "mediasearch-crawler"
	appDescription = `MediaSearch Crawler

Breadth-first same-origin crawler feeding the ingestion pipeline.

Usage:
  mediasearch-crawler SEED_URL [flags]

The seed URL may also be supplied via the SEED_URL environment variable.`
)

// NewApp creates the crawler application.
func NewApp() *app.App {
	opts := NewOptions()

	return app.NewApp(
		app.WithName(appName),
		app.WithDescription(appDescription),
		app.WithOptions(opts),
		app.WithArgs(cobra.MaximumNArgs(1)),
		app.WithRunFunc(func(args []string) error {
			seed := os.Getenv("SEED_URL")
			if len(args) > 0 {
				seed = args[0]
			}
			if seed == "" {
				return fmt.Errorf("a seed URL is required (argument or SEED_URL)")
			}
			return Run(opts, seed)
		}),
	)
}

// Run crawls from seed, then drains the ingestion queue before returning.
func Run(opts *Options, seed string) error {
	opts.Log.AddInitialField("service.name", appName)
	opts.Log.AddInitialField("service.version", app.GetVersion())
	if err := opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Infow("Starting crawler", "seed", seed, "limit", opts.Limit)

	stores, cleanup, err := buildStores(opts)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	extractor := embedding.NewExtractor(opts.Embedding)
	pipeline := indexer.NewPipeline(extractor, stores, opts.Modality)
	queue, err := indexer.NewQueue(pipeline, opts.Queue)
	if err != nil {
		return fmt.Errorf("failed to create ingestion queue: %w", err)
	}

	c := New(Config{
		Limit:        opts.Limit,
		Delay:        opts.Delay,
		FetchTimeout: opts.FetchTimeout,
	}, NewExtractor(opts.Modality.ImageExtensions, opts.Modality.AudioExtensions), queue)

	res, err := c.Run(context.Background(), seed)
	if err != nil {
		// Ingestion of already-dispatched fragments still finishes.
		logger.Errorw("crawl aborted", "error", err.Error())
	}
	if res != nil {
		logger.Infow("crawl finished",
			"pages_crawled", res.PagesCrawled,
			"pages_failed", res.PagesFailed,
			"fragments_dispatched", res.Dispatched,
		)
	}

	logger.Info("waiting for ingestion queue to drain...")
	if cerr := queue.Close(opts.Queue.TaskTimeout); cerr != nil {
		logger.Warnw("queue close failed", "error", cerr.Error())
	}
	logger.Info("ingestion queue drained")

	return err
}

// buildStores selects the store driver. The returned cleanup closes backend
// connections and may be nil.
func buildStores(opts *Options) (*store.Stores, func(), error) {
	switch opts.Store.Driver {
	case storeopts.DriverMemory:
		return memorystore.NewStores(opts.Modality.TextDim, opts.Modality.ImageDim, opts.Modality.AudioDim), nil, nil
	default:
		client, err := milvuscomp.New(opts.Milvus)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize milvus: %w", err)
		}
		stores, err := milvusstore.NewStores(
			context.Background(),
			client,
			opts.Store.CollectionPrefix,
			opts.Modality.TextDim,
			opts.Modality.ImageDim,
			opts.Modality.AudioDim,
		)
		if err != nil {
			_ = client.Close(context.Background())
			return nil, nil, err
		}
		cleanup := func() { _ = client.Close(context.Background()) }
		return stores, cleanup, nil
	}
}
