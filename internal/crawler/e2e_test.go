package crawler

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/mediasearch/internal/apiserver/biz"
	"github.com/kart-io/mediasearch/internal/embedding"
	"github.com/kart-io/mediasearch/internal/indexer"
	"github.com/kart-io/mediasearch/internal/model"
	"github.com/kart-io/mediasearch/internal/store/memory"
	modalityopts "github.com/kart-io/mediasearch/pkg/options/modality"
	queueopts "github.com/kart-io/mediasearch/pkg/options/queue"
)

// lengthEmbedder embeds text by its length so retrieval ordering is
// predictable without a model.
type lengthEmbedder struct{}

func (lengthEmbedder) vec(n float32) []float32 { return []float32{n, 0, 0, 0} }

func (e lengthEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	return e.vec(float32(len(text))), nil
}

func (e lengthEmbedder) EmbedTextInImageSpace(_ context.Context, text string) ([]float32, error) {
	return e.vec(float32(len(text))), nil
}

func (e lengthEmbedder) EmbedTextInAudioSpace(_ context.Context, text string) ([]float32, error) {
	return e.vec(float32(len(text))), nil
}

func (e lengthEmbedder) EmbedImage(context.Context, []byte) ([]float32, error) {
	return e.vec(1000), nil
}

func (e lengthEmbedder) EmbedAudio(context.Context, []float32, int) ([]float32, error) {
	return e.vec(2000), nil
}

// Crawl a two-page site, drain ingestion, then query the stored records.
func TestCrawlIngestSearch(t *testing.T) {
	var pic bytes.Buffer
	require.NoError(t, png.Encode(&pic, image.NewRGBA(image.Rect(0, 0, 2, 2))))

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<body><p>alpha snippet</p><p>beta</p><img src="/pic.png" alt="pic"><a href="/two"></a></body>`)
	})
	mux.HandleFunc("/two", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<body><p>gamma</p></body>`)
	})
	mux.HandleFunc("/pic.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(pic.Bytes())
	})

	m := modalityopts.NewOptions()
	m.TextDim = 4
	m.ImageDim = 4
	m.AudioDim = 4

	stores := memory.NewStores(4, 4, 4)
	ext := &embedding.Extractor{Text: lengthEmbedder{}, Image: lengthEmbedder{}, Audio: lengthEmbedder{}}
	pipeline := indexer.NewPipeline(ext, stores, m)

	qopts := queueopts.NewOptions()
	qopts.Workers = 4
	qopts.MaxAttempts = 1
	qopts.RetryBackoff = 10 * time.Millisecond
	queue, err := indexer.NewQueue(pipeline, qopts)
	require.NoError(t, err)

	res, err := New(Config{Limit: 5}, testExtractor(), queue).Run(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	require.NoError(t, queue.Close(5*time.Second))

	assert.Equal(t, 2, res.PagesCrawled)
	assert.Equal(t, 4, res.Dispatched)

	counts, err := stores.CountAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts.Text)
	assert.Equal(t, int64(1), counts.Image)
	assert.Equal(t, int64(0), counts.Audio)

	svc := biz.NewSearchService(ext, stores, m)
	hits, err := svc.QueryByText(context.Background(), "alpha snippet", model.ModalityText, 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "alpha snippet", hits[0].Content)
	assert.Equal(t, srv.URL+"/", hits[0].SourcePageURL)
}
