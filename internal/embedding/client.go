package embedding

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	embeddingopts "github.com/kart-io/mediasearch/pkg/options/embedding"
	"github.com/kart-io/mediasearch/pkg/utils/errors"
)

// Client talks to the feature-extraction service over HTTP. It implements
// all three embedder interfaces.
type Client struct {
	opts       *embeddingopts.Options
	httpClient *http.Client
}

var (
	_ TextEmbedder  = (*Client)(nil)
	_ ImageEmbedder = (*Client)(nil)
	_ AudioEmbedder = (*Client)(nil)
)

// NewClient creates a feature-extraction client.
func NewClient(opts *embeddingopts.Options) *Client {
	return &Client{
		opts: opts,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
	}
}

// NewExtractor builds the full extractor over a single client.
func NewExtractor(opts *embeddingopts.Options) *Extractor {
	c := NewClient(opts)
	return &Extractor{Text: c, Image: c, Audio: c}
}

type textRequest struct {
	Text string `json:"text"`
}

type imageRequest struct {
	ImageB64 string `json:"image_b64"`
}

type audioRequest struct {
	WaveformB64 string `json:"waveform_b64"`
	SampleRate  int    `json:"sample_rate"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// EmbedText maps text into the text embedding space.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return c.embed(ctx, "/embed/text", textRequest{Text: text})
}

// EmbedImage maps raw image bytes into the image embedding space.
func (c *Client) EmbedImage(ctx context.Context, data []byte) ([]float32, error) {
	return c.embed(ctx, "/embed/image", imageRequest{ImageB64: base64.StdEncoding.EncodeToString(data)})
}

// EmbedTextInImageSpace maps text into the image embedding space through the
// image model's text tower.
func (c *Client) EmbedTextInImageSpace(ctx context.Context, text string) ([]float32, error) {
	return c.embed(ctx, "/embed/image/text", textRequest{Text: text})
}

// EmbedAudio maps a mono waveform into the audio embedding space.
func (c *Client) EmbedAudio(ctx context.Context, samples []float32, sampleRate int) ([]float32, error) {
	return c.embed(ctx, "/embed/audio", audioRequest{
		WaveformB64: EncodeWaveform(samples),
		SampleRate:  sampleRate,
	})
}

// EmbedTextInAudioSpace maps text into the audio embedding space through the
// audio model's text tower.
func (c *Client) EmbedTextInAudioSpace(ctx context.Context, text string) ([]float32, error) {
	return c.embed(ctx, "/embed/audio/text", textRequest{Text: text})
}

func (c *Client) embed(ctx context.Context, path string, reqBody any) ([]float32, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.doRequestWithRetry(ctx, c.opts.BaseURL+path, body)
	if err != nil {
		return nil, errors.ErrExtractor.WithMessage("request %s: %v", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, errors.ErrExtractor.WithMessage("request %s: status %d: %s", path, resp.StatusCode, string(bodyBytes))
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, errors.ErrExtractor.WithMessage("decode response: %v", err)
	}
	if len(embedResp.Embedding) == 0 {
		return nil, errors.ErrExtractor.WithMessage("empty embedding from %s", path)
	}

	return embedResp.Embedding, nil
}

// doRequestWithRetry posts body, rebuilding the request each attempt so the
// body reader is fresh.
func (c *Client) doRequestWithRetry(ctx context.Context, url string, body []byte) (*http.Response, error) {
	var lastErr error
	for i := 0; i <= c.opts.MaxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if i < c.opts.MaxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(i+1) * 500 * time.Millisecond):
			}
		}
	}
	return nil, lastErr
}

// Ping checks that the extraction service is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service unavailable, status %d", resp.StatusCode)
	}

	return nil
}
