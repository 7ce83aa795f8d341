package indexer

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	gosndaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/mediasearch/internal/embedding"
	"github.com/kart-io/mediasearch/internal/store"
	"github.com/kart-io/mediasearch/internal/store/memory"
	modalityopts "github.com/kart-io/mediasearch/pkg/options/modality"
	"github.com/kart-io/mediasearch/pkg/utils/errors"
)

// fakeEmbedder returns constant vectors, optionally failing the first
// failures calls.
type fakeEmbedder struct {
	dim      int
	failures int32
	calls    atomic.Int32
}

func (f *fakeEmbedder) vec() []float32 {
	v := make([]float32, f.dim)
	v[0] = 1
	return v
}

func (f *fakeEmbedder) embed() ([]float32, error) {
	if f.calls.Add(1) <= f.failures {
		return nil, errors.ErrExtractor.WithMessage("simulated outage")
	}
	return f.vec(), nil
}

func (f *fakeEmbedder) EmbedText(context.Context, string) ([]float32, error) {
	return f.embed()
}

func (f *fakeEmbedder) EmbedImage(context.Context, []byte) ([]float32, error) {
	return f.embed()
}

func (f *fakeEmbedder) EmbedAudio(context.Context, []float32, int) ([]float32, error) {
	return f.embed()
}

func (f *fakeEmbedder) EmbedTextInImageSpace(context.Context, string) ([]float32, error) {
	return f.embed()
}

func (f *fakeEmbedder) EmbedTextInAudioSpace(context.Context, string) ([]float32, error) {
	return f.embed()
}

func testModality() *modalityopts.Options {
	opts := modalityopts.NewOptions()
	opts.TextDim = 4
	opts.ImageDim = 4
	opts.AudioDim = 4
	opts.AudioSampleRate = 8
	opts.AudioChunkSeconds = 2
	return opts
}

func newTestPipeline(t *testing.T, failures int32) (*Pipeline, *store.Stores) {
	t.Helper()
	m := testModality()
	stores := memory.NewStores(m.TextDim, m.ImageDim, m.AudioDim)
	fe := &fakeEmbedder{dim: 4, failures: failures}
	ext := &embedding.Extractor{Text: fe, Image: fe, Audio: fe}
	return NewPipeline(ext, stores, m), stores
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func wavBytes(t *testing.T, rate int, samples []int) []byte {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "*.wav")
	require.NoError(t, err)

	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	require.NoError(t, enc.Write(&gosndaudio.IntBuffer{
		Format:         &gosndaudio.Format{NumChannels: 1, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	return data
}

func TestIngestTextStoresRecord(t *testing.T) {
	p, stores := newTestPipeline(t, 0)

	require.NoError(t, p.IngestText(context.Background(), "  hello world  ", "http://site/page"))

	tc := stores.Text.(*memory.TextStore)
	n, err := tc.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	hits, err := stores.Text.KNearest(context.Background(), []float32{1, 0, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "hello world", hits[0].Content)
	assert.Equal(t, "http://site/page", hits[0].SourcePageURL)
}

func TestIngestTextSkipsBlank(t *testing.T) {
	p, stores := newTestPipeline(t, 0)

	require.NoError(t, p.IngestText(context.Background(), "   \n\t ", "http://site/page"))

	n, err := stores.Text.(*memory.TextStore).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestIngestImageUpsertsByAssetURL(t *testing.T) {
	img := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(img)
	}))
	defer srv.Close()

	p, stores := newTestPipeline(t, 0)
	assetURL := srv.URL + "/pic.png"

	require.NoError(t, p.IngestImage(context.Background(), assetURL, "first", "http://site/a"))
	require.NoError(t, p.IngestImage(context.Background(), assetURL, "second", "http://site/b"))

	n, err := stores.Image.(*memory.ImageStore).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	hits, err := stores.Image.KNearest(context.Background(), []float32{1, 0, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "second", hits[0].AltText)
}

func TestIngestImageRejectsCorruptContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not an image"))
	}))
	defer srv.Close()

	p, _ := newTestPipeline(t, 0)

	err := p.IngestImage(context.Background(), srv.URL+"/pic.png", "", "http://site/a")
	require.Error(t, err)
	assert.True(t, errors.ErrMalformedContent.Is(err))
	assert.True(t, isTerminal(err))
}

func TestIngestImageFetchFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, _ := newTestPipeline(t, 0)

	err := p.IngestImage(context.Background(), srv.URL+"/pic.png", "", "http://site/a")
	require.Error(t, err)
	assert.True(t, errors.ErrTransient.Is(err))
	assert.False(t, isTerminal(err))
}

func TestIngestAudioOneRecordPerChunk(t *testing.T) {
	// 5s of audio at 8 Hz with 2s chunks: chunks at 0, 2, 4.
	data := wavBytes(t, 8, make([]int, 40))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer srv.Close()

	p, stores := newTestPipeline(t, 0)

	require.NoError(t, p.IngestAudio(context.Background(), srv.URL+"/clip.wav", "http://site/a"))

	n, err := stores.Audio.(*memory.AudioStore).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	hits, err := stores.Audio.KNearest(context.Background(), []float32{1, 0, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	begins := map[int]int{}
	for _, h := range hits {
		begins[h.Begin] = h.End
	}
	assert.Equal(t, map[int]int{0: 2, 2: 4, 4: 6}, begins)
}

func TestIngestAudioReingestReplacesChunks(t *testing.T) {
	data := wavBytes(t, 8, make([]int, 32))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer srv.Close()

	p, stores := newTestPipeline(t, 0)
	assetURL := srv.URL + "/clip.wav"

	require.NoError(t, p.IngestAudio(context.Background(), assetURL, "http://site/a"))
	require.NoError(t, p.IngestAudio(context.Background(), assetURL, "http://site/a"))

	n, err := stores.Audio.(*memory.AudioStore).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
