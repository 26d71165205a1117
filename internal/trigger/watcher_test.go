package trigger

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/verifyhq/verifyscan/internal/fetch"
)

// mutablePage serves an article whose body can be swapped between polls.
type mutablePage struct {
	mu   sync.Mutex
	body string
}

func (p *mutablePage) set(body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.body = body
}

func (p *mutablePage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	body := p.body
	p.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<html><body><article><p>%s</p></article></body></html>", body)
}

func articleText(version int) string {
	return fmt.Sprintf("Version %d of the story. ", version) +
		strings.Repeat("Each revision rewrites the article body with new claims and details. ", 2)
}

func TestWatcher(t *testing.T) {
	t.Parallel()

	t.Run("emits page load then content changed", func(t *testing.T) {
		t.Parallel()

		page := &mutablePage{}
		page.set(articleText(1))
		srv := httptest.NewServer(page)
		defer srv.Close()

		c := &collector{}
		funnel := NewFunnel(c.sink, WithDelays(shortDelays()))
		watcher := NewWatcher(fetch.New(srv.Client()), funnel,
			WithInterval(25*time.Millisecond))
		watcher.Add("tab-1", srv.URL)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go watcher.Run(ctx)

		events := c.waitFor(t, 1, 2*time.Second)
		if events[0].Kind != PageLoad {
			t.Fatalf("first event = %q, want page_load", events[0].Kind)
		}
		if events[0].TabID != "tab-1" || events[0].URL != srv.URL {
			t.Errorf("unexpected event: %+v", events[0])
		}

		page.set(articleText(2))

		events = c.waitFor(t, 2, 2*time.Second)
		if events[1].Kind != ContentChanged {
			t.Errorf("second event = %q, want content_changed", events[1].Kind)
		}
	})

	t.Run("unchanged content emits nothing after the first poll", func(t *testing.T) {
		t.Parallel()

		page := &mutablePage{}
		page.set(articleText(1))
		srv := httptest.NewServer(page)
		defer srv.Close()

		c := &collector{}
		funnel := NewFunnel(c.sink, WithDelays(shortDelays()))
		watcher := NewWatcher(fetch.New(srv.Client()), funnel,
			WithInterval(25*time.Millisecond))
		watcher.Add("tab-1", srv.URL)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go watcher.Run(ctx)

		c.waitFor(t, 1, 2*time.Second)
		// Several polls later the page is still byte-identical.
		time.Sleep(200 * time.Millisecond)
		if events := c.snapshot(); len(events) != 1 {
			t.Errorf("stable page delivered %d events, want 1", len(events))
		}
	})

	t.Run("removed tab stops producing events", func(t *testing.T) {
		t.Parallel()

		page := &mutablePage{}
		page.set(articleText(1))
		srv := httptest.NewServer(page)
		defer srv.Close()

		c := &collector{}
		funnel := NewFunnel(c.sink, WithDelays(shortDelays()))
		watcher := NewWatcher(fetch.New(srv.Client()), funnel,
			WithInterval(25*time.Millisecond))
		watcher.Add("tab-1", srv.URL)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go watcher.Run(ctx)

		c.waitFor(t, 1, 2*time.Second)

		watcher.Remove("tab-1")
		page.set(articleText(2))

		time.Sleep(200 * time.Millisecond)
		if events := c.snapshot(); len(events) != 1 {
			t.Errorf("removed tab delivered %d events, want 1", len(events))
		}
	})

	t.Run("fetch failures are retried without events", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusBadGateway)
		}))
		defer srv.Close()

		c := &collector{}
		funnel := NewFunnel(c.sink, WithDelays(shortDelays()))
		watcher := NewWatcher(fetch.New(srv.Client()), funnel,
			WithInterval(25*time.Millisecond))
		watcher.Add("tab-1", srv.URL)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go watcher.Run(ctx)

		time.Sleep(200 * time.Millisecond)
		if events := c.snapshot(); len(events) != 0 {
			t.Errorf("failing page delivered %d events", len(events))
		}
	})

	t.Run("run stops on context cancellation", func(t *testing.T) {
		t.Parallel()

		c := &collector{}
		funnel := NewFunnel(c.sink, WithDelays(shortDelays()))
		watcher := NewWatcher(fetch.New(&http.Client{}), funnel,
			WithInterval(25*time.Millisecond))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := watcher.Run(ctx); err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	})
}
