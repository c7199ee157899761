// Package web provides the fetch collaborator used by scraping and
// research agents.
package web

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
)

// Document is the parsed result of fetching a page.
type Document struct {
	// URL is the fetched URL.
	URL string `json:"url"`
	// StatusCode is the HTTP status of the response.
	StatusCode int `json:"status_code"`
	// Title is the document title, if any.
	Title string `json:"title"`
	// Text is the visible text content, whitespace-collapsed.
	Text string `json:"text"`
	// Links lists the href targets found in the document, resolved
	// against the page URL where possible.
	Links []string `json:"links"`
}

// Fetcher retrieves and parses a web page.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*Document, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, pageURL string) (*Document, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, pageURL string) (*Document, error) {
	return f(ctx, pageURL)
}

// userAgents is the rotation pool for outbound requests.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
}

// HTTPConfig contains tuning for the HTTP fetcher.
type HTTPConfig struct {
	// Timeout is the per-request timeout. Defaults to 30s.
	Timeout time.Duration
	// RateLimitDelay is the minimum gap between requests. Zero disables it.
	RateLimitDelay time.Duration
	// RotateUserAgent picks a random user agent per request.
	RotateUserAgent bool
	// MaxBodyBytes caps the response body read. Defaults to 2MiB.
	MaxBodyBytes int64
}

// HTTPFetcher fetches pages over HTTP and parses them with x/net/html.
type HTTPFetcher struct {
	client *http.Client
	cfg    HTTPConfig

	mu          sync.Mutex
	lastRequest time.Time
}

// NewHTTPFetcher creates a fetcher with the given tuning.
func NewHTTPFetcher(cfg HTTPConfig) *HTTPFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 2 << 20
	}
	return &HTTPFetcher{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
	}
}

// Fetch retrieves pageURL and returns the parsed document.
// Non-2xx responses are errors carrying the HTTP status.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (*Document, error) {
	f.rateLimit()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent())

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: HTTP %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", pageURL, err)
	}

	doc, err := ParseDocument(pageURL, strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	doc.StatusCode = resp.StatusCode
	return doc, nil
}

// userAgent returns the request user agent, rotating when configured.
func (f *HTTPFetcher) userAgent() string {
	if f.cfg.RotateUserAgent {
		return userAgents[rand.Intn(len(userAgents))]
	}
	return userAgents[0]
}

// rateLimit enforces the configured minimum gap between requests.
func (f *HTTPFetcher) rateLimit() {
	if f.cfg.RateLimitDelay <= 0 {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if since := time.Since(f.lastRequest); since < f.cfg.RateLimitDelay {
		time.Sleep(f.cfg.RateLimitDelay - since)
	}
	f.lastRequest = time.Now()
}

// ParseDocument parses HTML from r into a Document for pageURL.
func ParseDocument(pageURL string, r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	doc := &Document{URL: pageURL}
	base, _ := url.Parse(pageURL)

	var text strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "script", "style":
				return
			case "title":
				if n.FirstChild != nil && doc.Title == "" {
					doc.Title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "a":
				for _, attr := range n.Attr {
					if attr.Key == "href" && attr.Val != "" {
						doc.Links = append(doc.Links, resolveLink(base, attr.Val))
					}
				}
			}
		case html.TextNode:
			if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
				if text.Len() > 0 {
					text.WriteByte(' ')
				}
				text.WriteString(trimmed)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)

	doc.Text = text.String()
	return doc, nil
}

// resolveLink resolves href against the page URL, returning href unchanged
// when it cannot be parsed.
func resolveLink(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
