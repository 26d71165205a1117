// Package fetch downloads pages and media for scanning. It centralizes
// HTTP client configuration (user agent, body limits, per-site headers)
// so the extractor and detection client never build requests themselves.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Fetcher downloads pages and media.
//
// Design decision: We use a struct with the http.Client rather than
// passing the client on each call because client configuration should
// be consistent, connection pooling works better with a shared client,
// and it is easier to test with a mock transport.
type Fetcher struct {
	// client is the shared HTTP client.
	client *http.Client

	// userAgent is sent with every request.
	userAgent string

	// maxBodySize limits response bodies to prevent memory exhaustion.
	maxBodySize int64

	// headers are extra headers applied to every page request,
	// typically per-site auth from the config file.
	headers map[string]string
}

// Page is a fetched and parsed page.
type Page struct {
	// URL is the requested page URL.
	URL string

	// StatusCode is the HTTP response status.
	StatusCode int

	// ContentType is the response Content-Type header.
	ContentType string

	// Doc is the parsed document.
	Doc *goquery.Document

	// FetchedAt is when the response was received.
	FetchedAt time.Time
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		f.maxBodySize = size
	}
}

// WithHeaders sets extra headers applied to every page request.
func WithHeaders(headers map[string]string) Option {
	return func(f *Fetcher) {
		f.headers = headers
	}
}

// New creates a Fetcher using the given HTTP client.
// Passing the client in (rather than constructing one) keeps timeout
// policy with the caller and lets tests inject a stub transport.
func New(client *http.Client, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      client,
		userAgent:   "verifyscan/1.0",
		maxBodySize: 5 * 1024 * 1024,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch downloads and parses the page at the given URL.
// Non-2xx statuses are returned as errors: a page that cannot be read
// cannot be scanned, unlike classification failures which degrade.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	if !strings.HasPrefix(pageURL, "http://") && !strings.HasPrefix(pageURL, "https://") {
		pageURL = "https://" + pageURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, pageURL)
	}

	// html.Parse tolerates malformed markup, which is the common case
	// on real pages; goquery then wraps the node tree for selection.
	node, err := html.Parse(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}

	return &Page{
		URL:         pageURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Doc:         goquery.NewDocumentFromNode(node),
		FetchedAt:   time.Now(),
	}, nil
}

// FetchBytes downloads a media resource (image, video, audio) for
// upload to the detection API. Returns the body and content type.
func (f *Fetcher) FetchBytes(ctx context.Context, mediaURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch %s: %w", mediaURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, mediaURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", mediaURL, err)
	}

	return body, resp.Header.Get("Content-Type"), nil
}
