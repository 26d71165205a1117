// Package scanner coordinates the scan cycle: admission through the
// cooldown gate, candidate sampling, concurrent classification with
// per-kind deadlines, and aggregation into a scan record.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/verifyhq/verifyscan/internal/config"
	"github.com/verifyhq/verifyscan/internal/detect"
	"github.com/verifyhq/verifyscan/internal/exifcheck"
	"github.com/verifyhq/verifyscan/internal/extract"
	"github.com/verifyhq/verifyscan/internal/fetch"
	"github.com/verifyhq/verifyscan/internal/model"
	"github.com/verifyhq/verifyscan/internal/reputation"
	"github.com/verifyhq/verifyscan/internal/stats"
	"github.com/verifyhq/verifyscan/internal/storage"
	"github.com/verifyhq/verifyscan/internal/trigger"
)

// Presenter surfaces a finished page report to the user.
type Presenter interface {
	Present(ctx context.Context, report *model.PageReport) error
}

// defaultKindTimeouts are the per-item classification deadlines.
var defaultKindTimeouts = map[model.ContentKind]time.Duration{
	model.KindText:  config.DefaultTextTimeout,
	model.KindImage: config.DefaultImageTimeout,
	model.KindVideo: config.DefaultVideoTimeout,
	model.KindVoice: config.DefaultVoiceTimeout,
}

// Orchestrator runs scan cycles. It owns the gate and the
// classification fan-out; fetching, extraction, persistence, and
// presentation are delegated to the injected collaborators.
type Orchestrator struct {
	cfg       *config.Config
	client    *detect.Client
	fetcher   *fetch.Fetcher
	gate      *Gate
	store     *storage.Store
	tracker   *stats.Tracker
	presenter Presenter
	logger    *slog.Logger
	timeouts  map[model.ContentKind]time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStore enables persistence of scan records.
func WithStore(store *storage.Store) Option {
	return func(o *Orchestrator) {
		o.store = store
	}
}

// WithTracker enables statistics accumulation.
func WithTracker(tracker *stats.Tracker) Option {
	return func(o *Orchestrator) {
		o.tracker = tracker
	}
}

// WithPresenter sets the presenter for triggered scans.
func WithPresenter(p Presenter) Option {
	return func(o *Orchestrator) {
		o.presenter = p
	}
}

// WithLogger sets the orchestrator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithKindTimeouts overrides the per-kind deadlines. Used in tests.
func WithKindTimeouts(timeouts map[model.ContentKind]time.Duration) Option {
	return func(o *Orchestrator) {
		o.timeouts = timeouts
	}
}

// WithGate replaces the gate, e.g. with one driven by a fake clock.
func WithGate(gate *Gate) Option {
	return func(o *Orchestrator) {
		o.gate = gate
	}
}

// New returns an orchestrator wired to the given collaborators.
func New(cfg *config.Config, client *detect.Client, fetcher *fetch.Fetcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		client:   client,
		fetcher:  fetcher,
		gate:     NewGate(cfg.Cooldown),
		logger:   slog.Default(),
		timeouts: defaultKindTimeouts,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Gate exposes the admission gate, mainly for the watch daemon to
// forget closed tabs.
func (o *Orchestrator) Gate() *Gate {
	return o.gate
}

// HandleTrigger runs one full scan cycle for a trigger event: gate
// admission, page fetch, extraction, sampling, classification,
// persistence, and presentation. Suppressed and empty cycles return
// (nil, nil); extraction failures abort silently apart from a log line
// because a trigger is an opportunity, not a user command.
func (o *Orchestrator) HandleTrigger(ctx context.Context, event trigger.Event) (*model.PageReport, error) {
	manual := event.Kind == trigger.Manual
	if !manual && !o.cfg.AutoScan {
		return nil, nil
	}

	var admitted bool
	if manual {
		admitted = o.gate.TryBeginManual(event.TabID)
	} else {
		admitted = o.gate.TryBegin(event.TabID)
	}
	if !admitted {
		o.logger.Debug("scan suppressed",
			slog.String("tab_id", event.TabID),
			slog.String("trigger", string(event.Kind)))
		return nil, nil
	}
	defer o.gate.End(event.TabID)

	report := model.NewPageReport(event.TabID, event.URL)
	report.Reputation = o.checkReputation(event.URL)

	if err := o.ExtractInto(ctx, report); err != nil {
		o.logger.Warn("extraction failed, skipping scan",
			slog.String("url", event.URL),
			slog.String("error", err.Error()))
		if manual {
			return nil, err
		}
		return nil, nil
	}

	if len(report.Candidates) == 0 {
		o.logger.Debug("nothing to classify", slog.String("url", event.URL))
		return report, nil
	}

	if err := o.ScanExtracted(ctx, report); err != nil {
		return report, err
	}

	if err := o.Persist(ctx, report); err != nil {
		o.logger.Warn("failed to persist scan",
			slog.String("url", event.URL),
			slog.String("error", err.Error()))
	}

	if o.presenter != nil {
		if err := o.presenter.Present(ctx, report); err != nil {
			o.logger.Warn("presentation failed", slog.String("error", err.Error()))
		}
	}

	return report, nil
}

// ScanExtracted samples and classifies the candidates already attached
// to the report and sets report.Record. It does not consult the gate;
// callers that need admission control go through HandleTrigger.
func (o *Orchestrator) ScanExtracted(ctx context.Context, report *model.PageReport) error {
	request := model.ScanRequest{
		ID:       uuid.NewString(),
		TabID:    report.TabID,
		URL:      report.URL,
		Items:    o.Sample(report.Candidates),
		IssuedAt: time.Now(),
	}

	record := o.Classify(ctx, request)
	report.Record = record

	o.logger.Info("scan complete",
		slog.String("url", report.URL),
		slog.Int("attempted", record.Attempted),
		slog.Int("completed", record.Completed),
		slog.Int("failed", record.Failed),
		slog.Int("fake", record.FakeCount()),
		slog.Duration("duration", record.Duration))
	return nil
}

// Sample applies the per-kind caps and the overall item cap to the
// extracted candidates, preserving document order within each kind.
// Text passages outside the length window are skipped here as well:
// the extractor's window is wider than the classifier's.
func (o *Orchestrator) Sample(candidates []model.CandidateItem) []model.CandidateItem {
	caps := map[model.ContentKind]int{
		model.KindText:  config.DefaultMaxTexts,
		model.KindImage: config.DefaultMaxImages,
		model.KindVideo: config.DefaultMaxVideos,
		model.KindVoice: config.DefaultMaxVoices,
	}

	maxItems := o.cfg.MaxItems
	if maxItems <= 0 {
		maxItems = config.DefaultMaxItems
	}

	taken := make(map[model.ContentKind]int)
	sampled := make([]model.CandidateItem, 0, maxItems)
	for _, item := range candidates {
		if len(sampled) >= maxItems {
			break
		}
		if taken[item.Kind] >= caps[item.Kind] {
			continue
		}
		if item.Kind == model.KindText {
			if n := utf8.RuneCountInString(item.Payload); n < config.MinTextLength || n > config.MaxTextLength {
				continue
			}
		}
		taken[item.Kind]++
		sampled = append(sampled, item)
	}
	return sampled
}

// itemOutcome tags one classification attempt.
type itemOutcome struct {
	result *model.ClassificationResult
	failed bool
}

// Classify fans the sampled items out concurrently, each bounded by
// its kind's deadline, and waits for all of them to settle. Items are
// independent: one timeout or transport failure drops that item only.
// Because every item starts immediately, the cycle's wall time is
// bounded by the largest applicable deadline, not their sum.
func (o *Orchestrator) Classify(ctx context.Context, request model.ScanRequest) *model.ScanRecord {
	started := time.Now()
	record := &model.ScanRecord{
		ID:        request.ID,
		TabID:     request.TabID,
		URL:       request.URL,
		Attempted: len(request.Items),
	}

	outcomes := make([]itemOutcome, len(request.Items))
	var wg sync.WaitGroup
	for i, item := range request.Items {
		wg.Add(1)
		go func(i int, item model.CandidateItem) {
			defer wg.Done()
			outcomes[i] = o.classifyItem(ctx, item)
		}(i, item)
	}
	wg.Wait()

	for _, outcome := range outcomes {
		if outcome.failed {
			record.Failed++
			continue
		}
		record.Completed++
		if outcome.result != nil {
			record.Results = append(record.Results, *outcome.result)
		}
	}

	record.Timestamp = time.Now()
	record.Duration = time.Since(started)
	return record
}

// classifyItem runs one item against the detection API under its
// kind's deadline. A nil result with failed=false means the item
// settled clean or the API degraded gracefully.
func (o *Orchestrator) classifyItem(ctx context.Context, item model.CandidateItem) itemOutcome {
	timeout, ok := o.timeouts[item.Kind]
	if !ok {
		timeout = config.DefaultTextTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch item.Kind {
	case model.KindText:
		result, err := o.client.CheckText(ctx, item.Payload)
		return o.settle(item, result, err)
	case model.KindImage:
		return o.classifyImage(ctx, item)
	case model.KindVoice:
		data, err := o.fetchMedia(ctx, item.Payload)
		if err != nil {
			return itemOutcome{failed: true}
		}
		result, err := o.client.CheckVoice(ctx, mediaFilename(item.Payload), data)
		return o.settle(item, result, err)
	case model.KindVideo:
		return o.classifyVideo(ctx, item)
	}
	return itemOutcome{failed: true}
}

// classifyImage checks an image remotely and falls back to the local
// metadata heuristic when the API degrades.
func (o *Orchestrator) classifyImage(ctx context.Context, item model.CandidateItem) itemOutcome {
	data, err := o.fetchMedia(ctx, item.Payload)
	if err != nil {
		return itemOutcome{failed: true}
	}

	result, err := o.client.CheckImage(ctx, mediaFilename(item.Payload), data)
	if err != nil {
		return itemOutcome{failed: true}
	}
	if result != nil {
		return o.settle(item, result, nil)
	}

	// API degraded: a generation-tool stamp in the image metadata is
	// still worth surfacing.
	if finding := exifcheck.Inspect(data); finding != nil && finding.Generated {
		return itemOutcome{result: &model.ClassificationResult{
			Kind:       item.Kind,
			Payload:    item.Payload,
			SourceRef:  item.SourceRef,
			IsFake:     true,
			Confidence: finding.Confidence,
			Analysis:   fmt.Sprintf("image metadata names generation software %q (%s tag)", finding.Software, finding.Tag),
			Source:     "exif",
		}}
	}
	return itemOutcome{}
}

// classifyVideo submits the video and polls the asynchronous job until
// it settles or the deadline cancels the wait.
func (o *Orchestrator) classifyVideo(ctx context.Context, item model.CandidateItem) itemOutcome {
	data, err := o.fetchMedia(ctx, item.Payload)
	if err != nil {
		return itemOutcome{failed: true}
	}

	job, err := o.client.CheckVideo(ctx, mediaFilename(item.Payload), data)
	if err != nil {
		return itemOutcome{failed: true}
	}
	if job == nil {
		return itemOutcome{} // degraded, treated as unverifiable-clean
	}

	result, err := o.client.WaitVideo(ctx, job.JobID)
	return o.settle(item, result, err)
}

// settle converts a detection result into an outcome. Transport errors
// fail the item; a nil result (degraded API) or a clean verdict
// settles without a retained result.
func (o *Orchestrator) settle(item model.CandidateItem, result *detect.Result, err error) itemOutcome {
	if err != nil {
		return itemOutcome{failed: true}
	}
	if result == nil || !result.IsFake() {
		return itemOutcome{}
	}
	return itemOutcome{result: &model.ClassificationResult{
		Kind:       item.Kind,
		Payload:    item.Payload,
		SourceRef:  item.SourceRef,
		IsFake:     true,
		Confidence: result.Confidence,
		Analysis:   result.AnalysisText(),
		ModelUsed:  result.ModelUsed,
		Source:     "api",
	}}
}

// fetchMedia downloads the bytes of a media URL for upload.
func (o *Orchestrator) fetchMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	data, _, err := o.fetcher.FetchBytes(ctx, mediaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch media: %w", err)
	}
	return data, nil
}

// ExtractInto fetches the page and attaches extracted candidates and
// counts to the report.
func (o *Orchestrator) ExtractInto(ctx context.Context, report *model.PageReport) error {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.FetchTimeout)
	defer cancel()

	page, err := o.fetcher.Fetch(ctx, report.URL)
	if err != nil {
		return err
	}

	extractor, err := extract.New(page.URL, extract.WithLogger(o.logger))
	if err != nil {
		return err
	}

	content := extractor.Extract(page.Doc)
	report.Counts = content.Counts()
	report.Candidates = content.All()
	return nil
}

// checkReputation classifies the page hostname against the static
// lists. Never fails; unknown hosts come back with neutral confidence.
func (o *Orchestrator) checkReputation(pageURL string) *model.DomainReputation {
	rep := reputation.Check(pageURL)
	return &rep
}

// Persist saves the scan record and folds it into the statistics.
// Both collaborators are optional.
func (o *Orchestrator) Persist(ctx context.Context, report *model.PageReport) error {
	if report.Record == nil {
		return nil
	}
	if o.store != nil {
		if err := o.store.SaveScanRecord(ctx, report.Record); err != nil {
			return err
		}
	}
	if o.tracker != nil {
		if err := o.tracker.RecordScan(ctx, *report.Record); err != nil {
			return err
		}
	}
	return nil
}

// mediaFilename derives an upload filename from a media URL.
func mediaFilename(mediaURL string) string {
	u, err := url.Parse(mediaURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "file"
	}
	return path.Base(u.Path)
}
