package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/mediasearch/internal/apiserver/biz"
	"github.com/kart-io/mediasearch/internal/apiserver/handler"
	"github.com/kart-io/mediasearch/internal/apiserver/router"
	"github.com/kart-io/mediasearch/internal/embedding"
	"github.com/kart-io/mediasearch/internal/model"
	"github.com/kart-io/mediasearch/internal/store/memory"
	modalityopts "github.com/kart-io/mediasearch/pkg/options/modality"
)

const testDim = 4

// fixedEmbedder returns the same vector for every input.
type fixedEmbedder struct {
	vec []float32
}

func (f *fixedEmbedder) EmbedText(context.Context, string) ([]float32, error)  { return f.vec, nil }
func (f *fixedEmbedder) EmbedImage(context.Context, []byte) ([]float32, error) { return f.vec, nil }
func (f *fixedEmbedder) EmbedAudio(context.Context, []float32, int) ([]float32, error) {
	return f.vec, nil
}

func (f *fixedEmbedder) EmbedTextInImageSpace(context.Context, string) ([]float32, error) {
	return f.vec, nil
}

func (f *fixedEmbedder) EmbedTextInAudioSpace(context.Context, string) ([]float32, error) {
	return f.vec, nil
}

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := modalityopts.NewOptions()
	m.TextDim = testDim
	m.ImageDim = testDim
	m.AudioDim = testDim

	stores := memory.NewStores(testDim, testDim, testDim)
	for i := 0; i < 3; i++ {
		require.NoError(t, stores.Text.Insert(context.Background(), &model.TextRecord{
			Key:           fmt.Sprintf("t%d", i),
			Content:       fmt.Sprintf("fragment %d", i),
			SourcePageURL: "http://site/page",
			Embedding:     []float32{float32(i), 0, 0, 0},
		}))
	}
	require.NoError(t, stores.Image.Upsert(context.Background(), &model.ImageRecord{
		AssetURL:  "http://site/pic.png",
		AltText:   "a picture",
		Embedding: []float32{1, 0, 0, 0},
	}))

	fe := &fixedEmbedder{vec: []float32{0.1, 0, 0, 0}}
	svc := biz.NewSearchService(&embedding.Extractor{Text: fe, Image: fe, Audio: fe}, stores, m)

	engine := gin.New()
	router.Register(engine, handler.NewSearchHandler(svc))
	return engine
}

func doRequest(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestSearchReturnsOrderedHits(t *testing.T) {
	engine := newTestEngine(t)

	w := doRequest(engine, httptest.NewRequest(http.MethodGet, "/v1/search?q=hello&type=text&limit=2", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int         `json:"code"`
		Data []model.Hit `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	require.Len(t, resp.Data, 2)
	// Query embeds at 0.1 on the first axis: fragment 0 then 1 are closest.
	assert.Equal(t, "fragment 0", resp.Data[0].Content)
	assert.Equal(t, "fragment 1", resp.Data[1].Content)
}

func TestSearchMissingQuery(t *testing.T) {
	engine := newTestEngine(t)

	w := doRequest(engine, httptest.NewRequest(http.MethodGet, "/v1/search?type=text", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchUnknownType(t *testing.T) {
	engine := newTestEngine(t)

	w := doRequest(engine, httptest.NewRequest(http.MethodGet, "/v1/search?q=x&type=video", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp handler.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 400002, resp.Code)
}

func TestSearchLimitOutOfRange(t *testing.T) {
	engine := newTestEngine(t)

	w := doRequest(engine, httptest.NewRequest(http.MethodGet, "/v1/search?q=x&type=text&limit=51", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchQueryTooLong(t *testing.T) {
	engine := newTestEngine(t)

	q := make([]byte, biz.MaxQueryLength+1)
	for i := range q {
		q[i] = 'a'
	}
	w := doRequest(engine, httptest.NewRequest(http.MethodGet, "/v1/search?q="+string(q)+"&type=text", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func multipartUpload(t *testing.T, field, filename string, content []byte, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range extra {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestSearchByImageFile(t *testing.T) {
	engine := newTestEngine(t)

	var imgBuf bytes.Buffer
	require.NoError(t, png.Encode(&imgBuf, image.NewRGBA(image.Rect(0, 0, 2, 2))))

	body, contentType := multipartUpload(t, "file", "query.png", imgBuf.Bytes(), map[string]string{"type": "image"})
	req := httptest.NewRequest(http.MethodPost, "/v1/search/file", body)
	req.Header.Set("Content-Type", contentType)

	w := doRequest(engine, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []model.Hit `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "http://site/pic.png", resp.Data[0].AssetURL)
}

func TestSearchByFileRejectsTextModality(t *testing.T) {
	engine := newTestEngine(t)

	body, contentType := multipartUpload(t, "file", "query.txt", []byte("hello"), map[string]string{"type": "text"})
	req := httptest.NewRequest(http.MethodPost, "/v1/search/file", body)
	req.Header.Set("Content-Type", contentType)

	w := doRequest(engine, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchByFileCorruptImage(t *testing.T) {
	engine := newTestEngine(t)

	body, contentType := multipartUpload(t, "file", "query.png", []byte("not an image"), map[string]string{"type": "image"})
	req := httptest.NewRequest(http.MethodPost, "/v1/search/file", body)
	req.Header.Set("Content-Type", contentType)

	w := doRequest(engine, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStats(t *testing.T) {
	engine := newTestEngine(t)

	w := doRequest(engine, httptest.NewRequest(http.MethodGet, "/v1/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Records struct {
				Text  int64 `json:"text"`
				Image int64 `json:"image"`
				Audio int64 `json:"audio"`
			} `json:"records"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp.Data.Records.Text)
	assert.Equal(t, int64(1), resp.Data.Records.Image)
}

func TestHealthz(t *testing.T) {
	engine := newTestEngine(t)

	w := doRequest(engine, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
