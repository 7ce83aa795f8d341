package crawler

import (
	"io"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
)

// ImageRef is an image asset discovered on a page.
type ImageRef struct {
	URL string
	Alt string
}

// PageContent holds everything extracted from one HTML page: the visible
// text snippets in document order, recognized media assets with absolute
// URLs, and same-origin links for the frontier.
type PageContent struct {
	Texts  []string
	Images []ImageRef
	Audios []string
	Links  []string
}

// Extractor pulls fragments out of HTML documents. The zero value is not
// usable; construct with NewExtractor.
type Extractor struct {
	imageExts map[string]bool
	audioExts map[string]bool
}

// NewExtractor creates an extractor recognizing the given media extensions
// (lowercase, dot-prefixed, e.g. ".png").
func NewExtractor(imageExts, audioExts []string) *Extractor {
	e := &Extractor{
		imageExts: make(map[string]bool, len(imageExts)),
		audioExts: make(map[string]bool, len(audioExts)),
	}
	for _, ext := range imageExts {
		e.imageExts[strings.ToLower(ext)] = true
	}
	for _, ext := range audioExts {
		e.audioExts[strings.ToLower(ext)] = true
	}
	return e
}

// Extract parses the HTML document in r and returns its fragments. Asset and
// link URLs are resolved against pageURL; only http(s) links on the same
// origin as pageURL are returned.
func (e *Extractor) Extract(pageURL *url.URL, r io.Reader) (*PageContent, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	content := &PageContent{}
	seenImages := make(map[string]bool)
	seenAudios := make(map[string]bool)
	seenLinks := make(map[string]bool)

	var walk func(n *html.Node, skipText bool)
	walk = func(n *html.Node, skipText bool) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "head", "title", "meta", "noscript":
				skipText = true
			case "img":
				if u := e.resolveAsset(pageURL, attr(n, "src"), e.imageExts); u != "" && !seenImages[u] {
					seenImages[u] = true
					content.Images = append(content.Images, ImageRef{URL: u, Alt: attr(n, "alt")})
				}
			case "audio", "source":
				if u := e.resolveAsset(pageURL, attr(n, "src"), e.audioExts); u != "" && !seenAudios[u] {
					seenAudios[u] = true
					content.Audios = append(content.Audios, u)
				}
			case "a":
				href := attr(n, "href")
				// Audio files are often linked rather than embedded.
				if u := e.resolveAsset(pageURL, href, e.audioExts); u != "" && !seenAudios[u] {
					seenAudios[u] = true
					content.Audios = append(content.Audios, u)
				} else if u := e.resolveAsset(pageURL, href, e.imageExts); u != "" && !seenImages[u] {
					seenImages[u] = true
					content.Images = append(content.Images, ImageRef{URL: u})
				} else if u := resolveSameOrigin(pageURL, href); u != "" && !seenLinks[u] {
					seenLinks[u] = true
					content.Links = append(content.Links, u)
				}
			}
		case html.TextNode:
			if !skipText {
				if t := strings.TrimSpace(n.Data); t != "" {
					content.Texts = append(content.Texts, collapseSpace(t))
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, skipText)
		}
	}
	walk(doc, false)

	return content, nil
}

// resolveAsset resolves ref against base and returns the absolute URL when
// its path extension is in exts, else "".
func (e *Extractor) resolveAsset(base *url.URL, ref string, exts map[string]bool) string {
	if ref == "" {
		return ""
	}
	u, err := base.Parse(ref)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if !exts[strings.ToLower(path.Ext(u.Path))] {
		return ""
	}
	u.Fragment = ""
	return u.String()
}

// resolveSameOrigin resolves ref against base and returns the absolute URL
// when it shares base's origin (scheme, host, and port), else "".
func resolveSameOrigin(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := base.Parse(ref)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Scheme != base.Scheme || u.Host != base.Host {
		return ""
	}
	u.Fragment = ""
	return u.String()
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
