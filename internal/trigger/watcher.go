package trigger

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/verifyhq/verifyscan/internal/extract"
	"github.com/verifyhq/verifyscan/internal/fetch"
)

// DefaultWatchInterval is how often watched pages are refetched.
const DefaultWatchInterval = 15 * time.Second

// Watcher polls a set of pages and offers events to a funnel: a
// PageLoad when a page is first observed, a ContentChanged when the
// fingerprint of its extracted text drifts afterwards.
//
// Design decision: the fingerprint covers extracted passages only, not
// the raw HTML. Rotating ads, timestamps, and session tokens churn the
// markup on every fetch; what matters for rescanning is whether the
// content a scan would actually classify has changed.
type Watcher struct {
	fetcher  *fetch.Fetcher
	funnel   *Funnel
	interval time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	pages map[string]*watchedPage
}

type watchedPage struct {
	url         string
	fingerprint [32]byte
	seen        bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval.
func WithInterval(interval time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.interval = interval
	}
}

// WithWatcherLogger sets the watcher's logger.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// NewWatcher returns a watcher delivering events through funnel.
func NewWatcher(fetcher *fetch.Fetcher, funnel *Funnel, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		fetcher:  fetcher,
		funnel:   funnel,
		interval: DefaultWatchInterval,
		logger:   slog.Default(),
		pages:    make(map[string]*watchedPage),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Add registers a page under a tab ID. The first poll emits a
// PageLoad event for it.
func (w *Watcher) Add(tabID, url string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pages[tabID] = &watchedPage{url: url}
}

// Remove stops watching a tab.
func (w *Watcher) Remove(tabID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.pages, tabID)
}

// Run polls watched pages until ctx is cancelled. The first tick fires
// immediately so freshly added pages do not wait a full interval.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll refetches every watched page once and offers events for
// observed changes. Fetch failures are logged and retried next tick.
func (w *Watcher) poll(ctx context.Context) {
	w.mu.Lock()
	snapshot := make(map[string]*watchedPage, len(w.pages))
	for tabID, page := range w.pages {
		snapshot[tabID] = page
	}
	w.mu.Unlock()

	for tabID, page := range snapshot {
		if ctx.Err() != nil {
			return
		}

		fingerprint, err := w.fingerprint(ctx, page.url)
		if err != nil {
			w.logger.Warn("watch poll failed",
				slog.String("url", page.url),
				slog.String("error", err.Error()))
			continue
		}

		w.mu.Lock()
		current, still := w.pages[tabID]
		if !still || current != page {
			w.mu.Unlock()
			continue
		}
		changed := page.seen && fingerprint != page.fingerprint
		first := !page.seen
		page.fingerprint = fingerprint
		page.seen = true
		w.mu.Unlock()

		switch {
		case first:
			w.funnel.Offer(Event{Kind: PageLoad, TabID: tabID, URL: page.url, At: time.Now()})
		case changed:
			w.funnel.Offer(Event{Kind: ContentChanged, TabID: tabID, URL: page.url, At: time.Now()})
		}
	}
}

// fingerprint fetches the page and hashes its extracted passages.
func (w *Watcher) fingerprint(ctx context.Context, url string) ([32]byte, error) {
	page, err := w.fetcher.Fetch(ctx, url)
	if err != nil {
		return [32]byte{}, err
	}

	extractor, err := extract.New(page.URL, extract.WithLogger(w.logger))
	if err != nil {
		return [32]byte{}, err
	}

	var builder strings.Builder
	for _, item := range extractor.ExtractTexts(page.Doc) {
		builder.WriteString(item.Payload)
		builder.WriteByte('\n')
	}
	return sha3.Sum256([]byte(builder.String())), nil
}
