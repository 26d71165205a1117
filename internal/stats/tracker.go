// Package stats maintains aggregate detection statistics across scans.
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/verifyhq/verifyscan/internal/model"
	"github.com/verifyhq/verifyscan/internal/storage"
)

// Tracker accumulates scan statistics in memory and persists each
// update through the storage layer.
//
// Design decision: the tracker owns a full in-memory copy of the
// statistics and writes the whole snapshot after every mutation.
// Within one process a mutex serializes writers; across processes the
// store gives last-writer-wins semantics, which is acceptable because
// counters are advisory, not billing data.
type Tracker struct {
	mu     sync.Mutex
	stats  *model.Statistics
	store  *storage.Store
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger used for maintenance reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker restores persisted statistics from the store and returns
// a tracker ready to record scans.
func NewTracker(ctx context.Context, store *storage.Store, opts ...Option) (*Tracker, error) {
	stats, err := store.LoadStatistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to restore statistics: %w", err)
	}

	t := &Tracker{
		stats:  stats,
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// RecordScan folds a completed scan into the aggregate counters and
// prepends it to the history. History holds the newest record first
// and evicts the oldest beyond model.HistoryCap.
func (t *Tracker) RecordScan(ctx context.Context, record model.ScanRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.TotalScans++
	for _, result := range record.Results {
		if !result.IsFake {
			continue
		}
		t.stats.TotalFakeDetected++
		t.stats.ByType[result.Kind]++
	}

	t.stats.ScanHistory = append([]model.ScanRecord{record}, t.stats.ScanHistory...)
	if len(t.stats.ScanHistory) > model.HistoryCap {
		t.stats.ScanHistory = t.stats.ScanHistory[:model.HistoryCap]
	}

	now := t.now()
	t.stats.LastScan = now
	if t.stats.FirstScan.IsZero() {
		t.stats.FirstScan = now
	}

	return t.persistLocked(ctx)
}

// Stats returns a copy of the current statistics. The history slice is
// shared with the tracker and must be treated as read-only.
func (t *Tracker) Stats() model.Statistics {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := *t.stats
	out.ByType = make(map[model.ContentKind]int, len(t.stats.ByType))
	for kind, count := range t.stats.ByType {
		out.ByType[kind] = count
	}
	return out
}

// Summary condenses the statistics for display.
type Summary struct {
	// TotalScans counts completed scan cycles.
	TotalScans int `json:"total_scans"`

	// TotalFakeDetected counts fake verdicts across all scans.
	TotalFakeDetected int `json:"total_fake_detected"`

	// DetectionRate is TotalFakeDetected over TotalScans, as a percentage.
	DetectionRate float64 `json:"detection_rate"`

	// MostCommonFakeType is the kind with the most fake verdicts.
	MostCommonFakeType model.ContentKind `json:"most_common_fake_type,omitempty"`

	// ScansPerDay averages scan volume over the tracked period.
	ScansPerDay float64 `json:"scans_per_day"`
}

// Summarize returns derived metrics over the full tracked period.
func (t *Tracker) Summarize() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	summary := Summary{
		TotalScans:         t.stats.TotalScans,
		TotalFakeDetected:  t.stats.TotalFakeDetected,
		DetectionRate:      t.stats.DetectionRate(),
		MostCommonFakeType: t.stats.MostCommonFakeType(),
	}

	if !t.stats.FirstScan.IsZero() {
		days := t.now().Sub(t.stats.FirstScan).Hours() / 24
		if days < 1 {
			days = 1
		}
		summary.ScansPerDay = float64(t.stats.TotalScans) / days
	}

	return summary
}

// PeriodStats holds scan counts for a trailing window of days,
// computed from the retained history only.
type PeriodStats struct {
	// Days is the window length.
	Days int `json:"days"`

	// Scans counts history entries inside the window.
	Scans int `json:"scans"`

	// FakeDetected counts fake verdicts inside the window.
	FakeDetected int `json:"fake_detected"`
}

// StatsForPeriod counts scans within the trailing window. The history
// is capped, so windows longer than the cap covers undercount.
func (t *Tracker) StatsForPeriod(days int) PeriodStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().AddDate(0, 0, -days)
	period := PeriodStats{Days: days}
	for _, record := range t.stats.ScanHistory {
		if record.Timestamp.Before(cutoff) {
			break // history is newest-first
		}
		period.Scans++
		period.FakeDetected += record.FakeCount()
	}
	return period
}

// Reset clears all counters and history and persists the empty state.
func (t *Tracker) Reset(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats = model.NewStatistics()
	return t.persistLocked(ctx)
}

// Export serializes the full statistics as indented JSON.
func (t *Tracker) Export() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := json.MarshalIndent(t.stats, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to export statistics: %w", err)
	}
	return data, nil
}

// Maintenance trims history to the cap and drops per-tab scan records
// older than a day from the store. Intended to run hourly.
func (t *Tracker) Maintenance(ctx context.Context) error {
	t.mu.Lock()
	trimmed := 0
	if len(t.stats.ScanHistory) > model.HistoryCap {
		trimmed = len(t.stats.ScanHistory) - model.HistoryCap
		t.stats.ScanHistory = t.stats.ScanHistory[:model.HistoryCap]
	}
	var err error
	if trimmed > 0 {
		err = t.persistLocked(ctx)
	}
	t.mu.Unlock()
	if err != nil {
		return err
	}

	removed, err := t.store.DeleteScansOlderThan(ctx, 24*time.Hour)
	if err != nil {
		return fmt.Errorf("failed to prune scan records: %w", err)
	}

	if trimmed > 0 || removed > 0 {
		t.logger.Info("maintenance complete",
			slog.Int("history_trimmed", trimmed),
			slog.Int64("records_removed", removed))
	}
	return nil
}

// persistLocked writes the snapshot to the store. Callers hold t.mu.
func (t *Tracker) persistLocked(ctx context.Context) error {
	if err := t.store.SaveStatistics(ctx, t.stats); err != nil {
		return fmt.Errorf("failed to persist statistics: %w", err)
	}
	return nil
}
