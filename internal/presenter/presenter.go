// Package presenter surfaces scan outcomes to the user: a per-tab
// badge, toast-style notices, a persistent domain banner, and a
// markdown sidebar panel with the detailed verdicts.
package presenter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/verifyhq/verifyscan/internal/config"
	"github.com/verifyhq/verifyscan/internal/model"
)

// Badge colors.
const (
	// BadgeColorFake marks pages with at least one fake verdict.
	BadgeColorFake = "#ff4757"

	// BadgeColorClean marks fully verified pages with no fake verdicts.
	BadgeColorClean = "#2ed573"

	// BadgeColorInconclusive marks pages where some items failed, so a
	// clean result cannot be promised.
	BadgeColorInconclusive = "#747d8c"
)

// Badge is the per-tab counter shown next to a page.
type Badge struct {
	// Text is the badge label: the fake count, or empty when clean.
	Text string

	// Color is one of the BadgeColor* constants.
	Color string
}

// Console presents scan results as terminal output. Badge and banner
// state is tracked per tab so repeated presentations of the same
// outcome stay idempotent: nothing is re-emitted until the state
// actually changes.
type Console struct {
	mu            sync.Mutex
	out           io.Writer
	logger        *slog.Logger
	notifications bool
	threshold     int
	sidebarDir    string

	badges  map[string]Badge
	banners map[string]string
}

// Option configures a Console presenter.
type Option func(*Console)

// WithNotifications toggles toast-style notices.
func WithNotifications(enabled bool) Option {
	return func(c *Console) {
		c.notifications = enabled
	}
}

// WithThreshold sets the minimum confidence (percent) for a fake
// verdict to be surfaced. Verdicts below it still exist in the record;
// they just don't reach the user.
func WithThreshold(threshold int) Option {
	return func(c *Console) {
		c.threshold = threshold
	}
}

// WithSidebarDir enables the sidebar panel: one markdown file per tab,
// rewritten on every presentation.
func WithSidebarDir(dir string) Option {
	return func(c *Console) {
		c.sidebarDir = dir
	}
}

// WithLogger sets the presenter's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Console) {
		c.logger = logger
	}
}

// New returns a Console presenter writing to out.
func New(out io.Writer, opts ...Option) *Console {
	c := &Console{
		out:           out,
		logger:        slog.Default(),
		notifications: true,
		threshold:     config.DefaultConfidenceThreshold,
		badges:        make(map[string]Badge),
		banners:       make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Present surfaces a finished report: banner first, then badge, then
// toasts, then the sidebar panel. Already-surfaced state for the same
// tab is skipped.
func (c *Console) Present(ctx context.Context, report *model.PageReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.presentBanner(report)

	if report.Record == nil {
		return nil
	}

	surfaced := c.surfacedResults(report.Record)
	c.presentBadge(report.TabID, report.Record, surfaced)
	c.presentToasts(report, surfaced)

	if c.sidebarDir != "" {
		if err := c.writeSidebar(report, surfaced); err != nil {
			c.logger.Warn("failed to write sidebar panel", slog.String("error", err.Error()))
		}
	}
	return nil
}

// ClearTab drops presentation state for a closed tab.
func (c *Console) ClearTab(tabID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.badges, tabID)
	delete(c.banners, tabID)
}

// surfacedResults filters the record's fake verdicts by the
// confidence threshold.
func (c *Console) surfacedResults(record *model.ScanRecord) []model.ClassificationResult {
	surfaced := make([]model.ClassificationResult, 0, len(record.Results))
	for _, result := range record.Results {
		if int(result.Confidence*100) >= c.threshold {
			surfaced = append(surfaced, result)
		}
	}
	return surfaced
}

// presentBadge updates the per-tab badge. The badge text is the
// surfaced fake count; a fully clean scan clears it.
func (c *Console) presentBadge(tabID string, record *model.ScanRecord, surfaced []model.ClassificationResult) {
	badge := Badge{}
	switch {
	case len(surfaced) > 0:
		badge = Badge{Text: fmt.Sprintf("%d", len(surfaced)), Color: BadgeColorFake}
	case record.Failed > 0:
		badge = Badge{Color: BadgeColorInconclusive}
	case record.Completed > 0:
		badge = Badge{Color: BadgeColorClean}
	}

	if c.badges[tabID] == badge {
		return
	}
	c.badges[tabID] = badge

	if badge.Text != "" {
		fmt.Fprintf(c.out, "[badge %s] %s %s\n", tabID, badge.Text, badge.Color)
	} else {
		fmt.Fprintf(c.out, "[badge %s] clear %s\n", tabID, badge.Color)
	}
}

// presentToasts emits the notification lines for a scan outcome.
// A partially failed clean scan is announced as "N of M verified"
// rather than "clean": a dropped item is not a verified one.
func (c *Console) presentToasts(report *model.PageReport, surfaced []model.ClassificationResult) {
	if !c.notifications {
		return
	}
	record := report.Record

	switch {
	case len(surfaced) > 0:
		fmt.Fprintf(c.out, "⚠ %s: %d suspicious item(s) detected\n", report.URL, len(surfaced))
		for _, result := range surfaced {
			fmt.Fprintf(c.out, "  - %s (%.0f%% confidence): %s\n",
				result.Kind, result.Confidence*100, truncate(result.Analysis, 120))
		}
	case record.Failed > 0:
		fmt.Fprintf(c.out, "· %s: %d of %d items verified, nothing suspicious found\n",
			report.URL, record.Completed, record.Attempted)
	case record.Completed > 0:
		fmt.Fprintf(c.out, "✓ %s: all %d items verified clean\n", report.URL, record.Completed)
	}
}

// presentBanner emits the domain reputation banner. A blacklisted
// domain gets a persistent warning repeated only when the domain
// changes for the tab; a trusted domain gets a one-time note.
func (c *Console) presentBanner(report *model.PageReport) {
	rep := report.Reputation
	if rep == nil || rep.Source == model.ReputationUnknown {
		return
	}

	if c.banners[report.TabID] == rep.Domain {
		return
	}
	c.banners[report.TabID] = rep.Domain

	if rep.IsFake {
		fmt.Fprintf(c.out, "⛔ %s is a known misinformation source (%.0f%% confidence)\n",
			rep.Domain, rep.Confidence*100)
		return
	}
	if rep.IsTrusted && c.notifications {
		fmt.Fprintf(c.out, "✓ %s is a recognized trusted source\n", rep.Domain)
	}
}

// truncate shortens s to at most n runes, appending an ellipsis.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
