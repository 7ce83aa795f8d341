// Package indexer implements the ingestion side of the search engine: it
// turns dispatched page fragments into embedding records in the vector
// stores, asynchronously and with bounded retry.
package indexer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kart-io/logger"

	"github.com/kart-io/mediasearch/internal/embedding"
	"github.com/kart-io/mediasearch/internal/model"
	"github.com/kart-io/mediasearch/internal/pkg/audio"
	"github.com/kart-io/mediasearch/internal/pkg/metrics"
	"github.com/kart-io/mediasearch/internal/store"
	modalityopts "github.com/kart-io/mediasearch/pkg/options/modality"
	"github.com/kart-io/mediasearch/pkg/utils/errors"
)

// maxAssetBytes bounds a single media download.
const maxAssetBytes = 256 << 20

// Pipeline executes ingestion tasks synchronously. The queue wraps it for
// asynchronous execution; the indexer CLI calls it directly.
type Pipeline struct {
	extractor  *embedding.Extractor
	stores     *store.Stores
	modality   *modalityopts.Options
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(extractor *embedding.Extractor, stores *store.Stores, modality *modalityopts.Options) *Pipeline {
	return &Pipeline{
		extractor:  extractor,
		stores:     stores,
		modality:   modality,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		metrics:    metrics.Get(),
	}
}

// Process dispatches a task to the modality-specific ingestion routine.
func (p *Pipeline) Process(ctx context.Context, task Task) error {
	var err error
	switch task.Kind {
	case KindText:
		err = p.IngestText(ctx, task.Content, task.SourcePageURL)
	case KindImage:
		err = p.IngestImage(ctx, task.AssetURL, task.AltText, task.SourcePageURL)
	case KindAudio:
		err = p.IngestAudio(ctx, task.AssetURL, task.SourcePageURL)
	default:
		err = errors.ErrBadRequest.WithMessage("unknown task kind %q", task.Kind)
	}
	p.metrics.RecordIngestAttempt(err)
	return err
}

// IngestText embeds a text fragment and appends a new record. Blank content
// is skipped without error.
func (p *Pipeline) IngestText(ctx context.Context, content, sourcePageURL string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	vec, err := p.extractor.Text.EmbedText(ctx, content)
	if err != nil {
		return err
	}
	if err := model.ValidateEmbedding(vec, p.modality.TextDim); err != nil {
		return errors.ErrDimensionMismatch.WithMessage("text: %v", err)
	}

	rec := &model.TextRecord{
		Key:           uuid.NewString(),
		Content:       content,
		SourcePageURL: sourcePageURL,
		Embedding:     vec,
		CreatedAt:     time.Now(),
	}
	if err := p.stores.Text.Insert(ctx, rec); err != nil {
		return err
	}

	logger.Debugw("text fragment indexed", "source", sourcePageURL, "length", len(content))
	return nil
}

// IngestImage downloads, validates, embeds, and upserts an image asset.
// Repeated ingestion of the same asset URL replaces the previous record.
func (p *Pipeline) IngestImage(ctx context.Context, assetURL, altText, sourcePageURL string) error {
	data, err := p.download(ctx, assetURL)
	if err != nil {
		return err
	}

	// Reject content that is not actually a decodable image, whatever its
	// extension claimed.
	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		return errors.ErrMalformedContent.WithMessage("decode image %s: %v", assetURL, err)
	}

	vec, err := p.extractor.Image.EmbedImage(ctx, data)
	if err != nil {
		return err
	}
	if err := model.ValidateEmbedding(vec, p.modality.ImageDim); err != nil {
		return errors.ErrDimensionMismatch.WithMessage("image: %v", err)
	}

	rec := &model.ImageRecord{
		AssetURL:      assetURL,
		AltText:       altText,
		SourcePageURL: sourcePageURL,
		Embedding:     vec,
		UpdatedAt:     time.Now(),
	}
	if err := p.stores.Image.Upsert(ctx, rec); err != nil {
		return err
	}

	logger.Debugw("image indexed", "asset", assetURL, "source", sourcePageURL)
	return nil
}

// IngestAudio downloads an audio asset, splits it into fixed-duration
// chunks, and upserts one record per chunk keyed by (asset URL, offset).
func (p *Pipeline) IngestAudio(ctx context.Context, assetURL, sourcePageURL string) error {
	data, err := p.download(ctx, assetURL)
	if err != nil {
		return err
	}

	// The audio decoders work on files; stage the download in a temp file
	// carrying the original extension.
	tmp, err := os.CreateTemp("", "mediasearch-*"+strings.ToLower(path.Ext(assetURL)))
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	samples, err := audio.DecodeFile(tmp.Name(), p.modality.AudioSampleRate)
	if err != nil {
		return err
	}

	chunker := audio.NewChunker(samples, p.modality.AudioSampleRate, p.modality.AudioChunkSeconds)
	indexed := 0
	for {
		chunk, ok := chunker.Next()
		if !ok {
			break
		}

		vec, err := p.extractor.Audio.EmbedAudio(ctx, chunk.Samples, p.modality.AudioSampleRate)
		if err != nil {
			return err
		}
		if err := model.ValidateEmbedding(vec, p.modality.AudioDim); err != nil {
			return errors.ErrDimensionMismatch.WithMessage("audio: %v", err)
		}

		rec := &model.AudioRecord{
			AssetURL:      assetURL,
			SourcePageURL: sourcePageURL,
			Begin:         chunk.Begin,
			End:           chunk.End,
			Embedding:     vec,
			UpdatedAt:     time.Now(),
		}
		if err := p.stores.Audio.Upsert(ctx, rec); err != nil {
			return err
		}
		indexed++
	}

	logger.Debugw("audio indexed", "asset", assetURL, "source", sourcePageURL, "chunks", indexed)
	return nil
}

// download fetches an asset with a bounded body size. Network failures and
// non-2xx statuses are transient.
func (p *Pipeline) download(ctx context.Context, assetURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
	if err != nil {
		return nil, errors.ErrBadRequest.WithMessage("build request for %s: %v", assetURL, err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, errors.ErrTransient.WithMessage("fetch %s: %v", assetURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.ErrTransient.WithMessage("fetch %s: status %d", assetURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes))
	if err != nil {
		return nil, errors.ErrTransient.WithMessage("read %s: %v", assetURL, err)
	}
	return data, nil
}
