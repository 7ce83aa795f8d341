package crawler

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testExtractor() *Extractor {
	return NewExtractor([]string{".jpg", ".jpeg", ".png"}, []string{".wav", ".mp3"})
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestExtractTextSkipsScriptAndStyle(t *testing.T) {
	doc := `<html><head><title>ignored</title><style>p{color:red}</style></head>
	<body><p>visible   text</p><script>var hidden = 1;</script><div>more</div></body></html>`

	content, err := testExtractor().Extract(mustParse(t, "http://site/page"), strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"visible text", "more"}, content.Texts)
}

func TestExtractImagesResolvedAndFiltered(t *testing.T) {
	doc := `<body>
	<img src="/a.png" alt="first">
	<img src="http://site/b.jpeg">
	<img src="c.gif" alt="wrong format">
	<img src="">
	</body>`

	content, err := testExtractor().Extract(mustParse(t, "http://site/dir/page"), strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, content.Images, 2)
	assert.Equal(t, ImageRef{URL: "http://site/a.png", Alt: "first"}, content.Images[0])
	assert.Equal(t, ImageRef{URL: "http://site/b.jpeg", Alt: ""}, content.Images[1])
}

func TestExtractAudioFromTagsAndLinks(t *testing.T) {
	doc := `<body>
	<audio src="/clip.wav"></audio>
	<audio><source src="/other.mp3"></audio>
	<a href="/linked.mp3">download</a>
	<a href="/clip.wav">duplicate</a>
	</body>`

	content, err := testExtractor().Extract(mustParse(t, "http://site/page"), strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"http://site/clip.wav", "http://site/other.mp3", "http://site/linked.mp3"}, content.Audios)
}

func TestExtractLinksSameOriginOnly(t *testing.T) {
	doc := `<body>
	<a href="/next">ok</a>
	<a href="http://site/other?q=1">ok too</a>
	<a href="http://elsewhere.example/page">cross origin</a>
	<a href="https://site/secure">different scheme</a>
	<a href="http://site:8080/port">different port</a>
	<a href="mailto:x@site">mail</a>
	<a href="javascript:void(0)">js</a>
	<a href="/next#section">fragment dropped</a>
	</body>`

	content, err := testExtractor().Extract(mustParse(t, "http://site/page"), strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"http://site/next", "http://site/other?q=1"}, content.Links)
}

func TestExtractRelativeLinksResolved(t *testing.T) {
	doc := `<body><a href="sibling">rel</a><a href="../up">up</a></body>`

	content, err := testExtractor().Extract(mustParse(t, "http://site/a/b/page"), strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"http://site/a/b/sibling", "http://site/a/up"}, content.Links)
}
