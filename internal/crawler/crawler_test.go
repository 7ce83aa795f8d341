package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDispatcher captures dispatched fragments.
type recordingDispatcher struct {
	mu     sync.Mutex
	texts  []string
	images []string
	audios []string
}

func (d *recordingDispatcher) EnqueueText(content, _ string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.texts = append(d.texts, content)
	return nil
}

func (d *recordingDispatcher) EnqueueImage(assetURL, _, _ string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.images = append(d.images, assetURL)
	return nil
}

func (d *recordingDispatcher) EnqueueAudio(assetURL, _ string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.audios = append(d.audios, assetURL)
	return nil
}

func newTestCrawler(limit int, d Dispatcher) *Crawler {
	return New(Config{Limit: limit}, testExtractor(), d)
}

func TestCrawlTwoPageSite(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<body><p>home page</p><img src="/logo.png" alt="logo"><a href="/about">about</a></body>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<body><p>about us</p><audio src="/theme.mp3"></audio><a href="/">home</a></body>`)
	})

	d := &recordingDispatcher{}
	res, err := newTestCrawler(10, d).Run(context.Background(), srv.URL+"/")
	require.NoError(t, err)

	assert.Equal(t, 2, res.PagesCrawled)
	assert.Equal(t, 0, res.PagesFailed)
	assert.ElementsMatch(t, []string{"home page", "about", "about us", "home"}, d.texts)
	assert.Equal(t, []string{srv.URL + "/logo.png"}, d.images)
	assert.Equal(t, []string{srv.URL + "/theme.mp3"}, d.audios)
}

func TestCrawlRespectsBudget(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	// Every page links to two fresh pages, so the frontier never empties.
	page := 0
	var mu sync.Mutex
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		page += 2
		a, b := page-1, page
		mu.Unlock()
		fmt.Fprintf(w, `<body><a href="/p%d">a</a><a href="/p%d">b</a></body>`, a, b)
	})

	d := &recordingDispatcher{}
	res, err := newTestCrawler(5, d).Run(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, 5, res.PagesCrawled)
}

func TestCrawlCycleSafe(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<body><a href="/b">b</a></body>`)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<body><a href="/a">a</a><a href="/b">self</a></body>`)
	})

	d := &recordingDispatcher{}
	res, err := newTestCrawler(100, d).Run(context.Background(), srv.URL+"/a")
	require.NoError(t, err)
	assert.Equal(t, 2, res.PagesCrawled)
}

func TestCrawlFetchFailureConsumesBudget(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<body><a href="/missing">broken</a><a href="/ok">fine</a></body>`)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<body><p>still here</p></body>`)
	})

	d := &recordingDispatcher{}
	res, err := newTestCrawler(10, d).Run(context.Background(), srv.URL+"/")
	require.NoError(t, err)

	assert.Equal(t, 3, res.PagesCrawled)
	assert.Equal(t, 1, res.PagesFailed)
	assert.Contains(t, d.texts, "still here")
}

func TestCrawlStaysOnOrigin(t *testing.T) {
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("crawler left its origin")
	}))
	defer other.Close()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<body><a href="%s/external">off-site</a></body>`, other.URL)
	})

	d := &recordingDispatcher{}
	res, err := newTestCrawler(10, d).Run(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, 1, res.PagesCrawled)
}

func TestCrawlRejectsBadSeed(t *testing.T) {
	d := &recordingDispatcher{}
	_, err := newTestCrawler(10, d).Run(context.Background(), "ftp://example.com/")
	assert.Error(t, err)
}
