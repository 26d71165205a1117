// Package trigger decides when a page deserves a scan.
//
// Events arrive from the watcher or from the CLI and pass through a
// funnel that debounces them per-kind before the orchestrator's
// cooldown gate ever sees them. The funnel absorbs bursty signals
// (rapid scrolling, repeated content mutations) so the gate only
// arbitrates genuinely distinct scan requests.
package trigger

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Kind identifies what caused a scan request.
type Kind string

// Trigger kinds, ordered roughly by how strongly they suggest new content.
const (
	// PageLoad fires when a page finishes loading.
	PageLoad Kind = "page_load"

	// ContentChanged fires when the page's extracted content drifts
	// from the last observed fingerprint.
	ContentChanged Kind = "content_changed"

	// VisibilityRegained fires when a backgrounded page becomes
	// visible again.
	VisibilityRegained Kind = "visibility_regained"

	// Scroll fires after sustained scrolling past the threshold.
	Scroll Kind = "scroll"

	// Manual fires for user-initiated scans. Manual events skip the
	// funnel delay entirely.
	Manual Kind = "manual"
)

// ScrollThreshold is the minimum scroll distance, in pixels, before a
// scroll event is considered at all.
const ScrollThreshold = 500

// defaultDelays debounce each trigger kind. Content mutations settle
// quickly; a fresh page load gets the longest delay because late
// hydration keeps rewriting the DOM for a few seconds.
var defaultDelays = map[Kind]time.Duration{
	PageLoad:           3 * time.Second,
	ContentChanged:     2 * time.Second,
	VisibilityRegained: 1 * time.Second,
	Scroll:             2 * time.Second,
	Manual:             0,
}

// Event is a single scan request candidate.
type Event struct {
	// Kind is what caused the event.
	Kind Kind

	// TabID identifies the page the event belongs to.
	TabID string

	// URL is the page address at event time.
	URL string

	// ScrollDelta is the scroll distance in pixels. Only meaningful
	// for Scroll events.
	ScrollDelta int

	// At is when the event was observed.
	At time.Time
}

// Funnel debounces events per tab and kind. When a kind's delay
// elapses without a newer event of the same kind for the same tab, the
// pending event is delivered to the sink. A newer event restarts the
// timer, so a burst collapses to its last member.
type Funnel struct {
	mu      sync.Mutex
	pending map[funnelKey]*time.Timer
	delays  map[Kind]time.Duration
	sink    func(Event)
	logger  *slog.Logger
}

type funnelKey struct {
	tabID string
	kind  Kind
}

// FunnelOption configures a Funnel.
type FunnelOption func(*Funnel)

// WithDelays overrides the per-kind debounce delays. Used in tests.
func WithDelays(delays map[Kind]time.Duration) FunnelOption {
	return func(f *Funnel) {
		f.delays = delays
	}
}

// WithFunnelLogger sets the funnel's logger.
func WithFunnelLogger(logger *slog.Logger) FunnelOption {
	return func(f *Funnel) {
		f.logger = logger
	}
}

// NewFunnel returns a funnel that delivers settled events to sink.
// The sink is called from timer goroutines and must be safe for
// concurrent use.
func NewFunnel(sink func(Event), opts ...FunnelOption) *Funnel {
	f := &Funnel{
		pending: make(map[funnelKey]*time.Timer),
		delays:  defaultDelays,
		sink:    sink,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Offer submits an event to the funnel. Sub-threshold scrolls are
// dropped; manual events bypass debouncing and fire immediately.
func (f *Funnel) Offer(event Event) {
	if event.Kind == Scroll && event.ScrollDelta < ScrollThreshold {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}

	delay, ok := f.delays[event.Kind]
	if !ok {
		f.logger.Warn("dropping event of unknown kind", slog.String("kind", string(event.Kind)))
		return
	}
	if delay == 0 {
		f.sink(event)
		return
	}

	key := funnelKey{tabID: event.TabID, kind: event.Kind}

	f.mu.Lock()
	defer f.mu.Unlock()

	if timer, ok := f.pending[key]; ok {
		timer.Stop()
	}
	f.pending[key] = time.AfterFunc(delay, func() {
		f.mu.Lock()
		delete(f.pending, key)
		f.mu.Unlock()
		f.sink(event)
	})
}

// Stop cancels all pending timers. Events already delivered to the
// sink are unaffected.
func (f *Funnel) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, timer := range f.pending {
		timer.Stop()
		delete(f.pending, key)
	}
}

// Watch ties the funnel's lifetime to ctx, stopping pending timers
// when the context is cancelled.
func (f *Funnel) Watch(ctx context.Context) {
	go func() {
		<-ctx.Done()
		f.Stop()
	}()
}
