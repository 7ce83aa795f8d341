package indexer

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/mediasearch/internal/embedding"
	"github.com/kart-io/mediasearch/internal/store"
	memorystore "github.com/kart-io/mediasearch/internal/store/memory"
	milvusstore "github.com/kart-io/mediasearch/internal/store/milvus"
	milvuscomp "github.com/kart-io/mediasearch/pkg/component/milvus"
	"github.com/kart-io/mediasearch/pkg/infra/app"
	storeopts "github.com/kart-io/mediasearch/pkg/options/store"
)

const (
	appName        = "mediasearch-indexer"
	appDescription = `MediaSearch Indexer

One-shot ingestion of a single fragment, bypassing the queue. Useful for
backfills and for re-indexing individual assets.`
)

// NewApp creates the indexer application.
func NewApp() *app.App {
	opts := NewOptions()

	return app.NewApp(
		app.WithName(appName),
		app.WithDescription(appDescription),
		app.WithOptions(opts),
		app.WithRunFunc(func(_ []string) error {
			return Run(opts)
		}),
	)
}

// Run executes one ingestion synchronously.
func Run(opts *Options) error {
	opts.Log.AddInitialField("service.name", appName)
	opts.Log.AddInitialField("service.version", app.GetVersion())
	if err := opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	stores, cleanup, err := buildStores(opts)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	extractor := embedding.NewExtractor(opts.Embedding)
	pipeline := NewPipeline(extractor, stores, opts.Modality)

	ctx := context.Background()
	switch Kind(opts.Kind) {
	case KindText:
		err = pipeline.IngestText(ctx, opts.Content, opts.SourcePageURL)
	case KindImage:
		err = pipeline.IngestImage(ctx, opts.AssetURL, opts.AltText, opts.SourcePageURL)
	case KindAudio:
		err = pipeline.IngestAudio(ctx, opts.AssetURL, opts.SourcePageURL)
	default:
		err = fmt.Errorf("unknown kind %q", opts.Kind)
	}
	if err != nil {
		return err
	}

	logger.Infow("ingestion complete", "kind", opts.Kind)
	return nil
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
