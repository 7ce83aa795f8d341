// Package apiserver provides the search API server application.
package apiserver

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/mediasearch/internal/apiserver/biz"
	"github.com/kart-io/mediasearch/internal/apiserver/handler"
	"github.com/kart-io/mediasearch/internal/apiserver/router"
	"github.com/kart-io/mediasearch/internal/embedding"
	"github.com/kart-io/mediasearch/internal/store"
	memorystore "github.com/kart-io/mediasearch/internal/store/memory"
	milvusstore "github.com/kart-io/mediasearch/internal/store/milvus"
	milvuscomp "github.com/kart-io/mediasearch/pkg/component/milvus"
	"github.com/kart-io/mediasearch/pkg/infra/app"
	storeopts "github.com/kart-io/mediasearch/pkg/options/store"
)

const (
	appName        = "mediasearch-apiserver"
	appDescription = `MediaSearch API Server

Cross-modal search over crawled web content.

This server provides:
  - Text queries against text, image, and audio embedding spaces
  - File queries (image or audio uploads) against their own modality
  - Index statistics and health endpoints`
)

// NewApp creates the API server application.
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

// Run runs the API server with the given options.
func Run(opts *Options) error {
	opts.Log.AddInitialField("service.name", appName)
	opts.Log.AddInitialField("service.version", app.GetVersion())
	if err := opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting API server...")

	stores, cleanup, err := buildStores(opts)
	if err != nil {
		return err
	}
	logger.Infow("vector stores initialized", "driver", opts.Store.Driver)

	embedClient := embedding.NewClient(opts.Embedding)
	if err := embedClient.Ping(context.Background()); err != nil {
		// Queries will fail until the extraction service comes up; keep
		// starting so the healthz endpoint is reachable.
		logger.Warnw("embedding service unreachable", "base_url", opts.Embedding.BaseURL, "error", err.Error())
	}
	extractor := &embedding.Extractor{Text: embedClient, Image: embedClient, Audio: embedClient}

	var redisClient *goredis.Client
	if opts.Cache.Enabled {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:     opts.Cache.Addr,
			Password: opts.Cache.Password,
			DB:       opts.Cache.Database,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warnw("failed to connect to redis, query cache disabled", "error", err.Error())
			_ = redisClient.Close()
			redisClient = nil
		} else {
			extractor.Text = embedding.NewCachedTextEmbedder(extractor.Text, redisClient, opts.Cache)
			logger.Infow("query embedding cache initialized", "addr", opts.Cache.Addr, "ttl", opts.Cache.TTL)
		}
	}

	searchService := biz.NewSearchService(extractor, stores, opts.Modality)
	searchHandler := handler.NewSearchHandler(searchService)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	router.Register(engine, searchHandler)

	srv := NewServer(engine, opts.HTTP)
	if cleanup != nil {
		srv.OnShutdown(cleanup)
	}
	if redisClient != nil {
		srv.OnShutdown(func() { _ = redisClient.Close() })
	}

	logger.Info("API server is ready")
	return srv.Run()
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
