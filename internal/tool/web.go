package tool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"golang.org/x/net/html"
)

const (
	fetchTimeout     = 20 * time.Second
	maxBodyBytes     = 2 << 20 // 2 MiB
	maxResultChars   = 8000
	minBlockChars    = 40
	maxLinkDensity   = 0.5
	maxContentBlocks = 30
)

type webFetchParams struct {
	URL string `json:"url" jsonschema:"description=Absolute http(s) URL of the page to fetch"`
}

func webFetchSchema() *jsonschema.Schema {
	return reflectSchema(&webFetchParams{})
}

// nonContentTags never hold readable page content.
var nonContentTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "svg": true,
	"iframe": true, "nav": true, "header": true, "footer": true, "aside": true,
}

func (e *Executor) runWebFetch(ctx context.Context, params map[string]any) (string, error) {
	pageURL := stringParam(params, "url")
	if !strings.HasPrefix(pageURL, "http://") && !strings.HasPrefix(pageURL, "https://") {
		return "", errors.Errorf("invalid url %q", pageURL)
	}

	reqCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "building request")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "fetching page")
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("fetching page: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", errors.Wrap(err, "parsing page")
	}
	return renderReadableText(doc, pageURL), nil
}

// renderReadableText extracts the page title and its dense text blocks,
// filtering navigation chrome by tag and link density.
func renderReadableText(doc *goquery.Document, pageURL string) string {
	var b strings.Builder
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		fmt.Fprintf(&b, "# %s\n", title)
	}
	fmt.Fprintf(&b, "URL: %s\n\n", pageURL)

	count := 0
	doc.Find("p, li, pre, blockquote, h1, h2, h3").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if count >= maxContentBlocks || b.Len() >= maxResultChars {
			return false
		}
		if len(s.Nodes) > 0 && insideChrome(s.Nodes[0]) {
			return true
		}
		text := collapseWhitespace(strings.TrimSpace(s.Text()))
		if len(text) < minBlockChars {
			return true
		}
		if linkDensity(s, text) >= maxLinkDensity {
			return true
		}
		b.WriteString(text)
		b.WriteString("\n\n")
		count++
		return true
	})

	out := b.String()
	if len(out) > maxResultChars {
		out = out[:maxResultChars] + "…"
	}
	return out
}

// insideChrome reports whether any ancestor element is page chrome.
func insideChrome(n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && nonContentTags[p.Data] {
			return true
		}
	}
	return false
}

// linkDensity is the fraction of a block's text that sits inside links.
func linkDensity(s *goquery.Selection, text string) float64 {
	if len(text) == 0 {
		return 0
	}
	var linkChars int
	s.Find("a").Each(func(_ int, a *goquery.Selection) {
		linkChars += len(strings.TrimSpace(a.Text()))
	})
	return float64(linkChars) / float64(len(text))
}

// collapseWhitespace squeezes runs of whitespace into single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
