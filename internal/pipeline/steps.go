package pipeline

import (
	"context"

	"github.com/verifyhq/verifyscan/internal/model"
	"github.com/verifyhq/verifyscan/internal/reputation"
	"github.com/verifyhq/verifyscan/internal/scanner"
)

// ReputationStep classifies the page hostname against the static
// misinformation and trusted lists. It runs first and never fails, so
// a blacklisted domain is flagged even when the page is unreachable.
type ReputationStep struct{}

// NewReputationStep creates a reputation step.
func NewReputationStep() *ReputationStep {
	return &ReputationStep{}
}

// Do attaches the domain reputation to the report.
func (s *ReputationStep) Do(_ context.Context, report *model.PageReport) error {
	rep := reputation.Check(report.URL)
	report.Reputation = &rep
	return nil
}

// Name returns the step name.
func (s *ReputationStep) Name() string { return "reputation" }

// ExtractStep downloads the page and extracts candidate content.
// A fetch or parse failure is critical: nothing downstream can run
// without candidates.
type ExtractStep struct {
	orch *scanner.Orchestrator
}

// NewExtractStep creates an extract step backed by the orchestrator.
func NewExtractStep(orch *scanner.Orchestrator) *ExtractStep {
	return &ExtractStep{orch: orch}
}

// Do fetches the page and attaches extracted candidates to the report.
func (s *ExtractStep) Do(ctx context.Context, report *model.PageReport) error {
	return s.orch.ExtractInto(ctx, report)
}

// Name returns the step name.
func (s *ExtractStep) Name() string { return "extract" }

// ClassifyStep samples the extracted candidates and runs them against
// the detection API, producing the scan record.
type ClassifyStep struct {
	orch *scanner.Orchestrator
}

// NewClassifyStep creates a classify step backed by the orchestrator.
func NewClassifyStep(orch *scanner.Orchestrator) *ClassifyStep {
	return &ClassifyStep{orch: orch}
}

// Do classifies the report's candidates and sets the scan record.
// When an earlier step already failed there are no candidates worth
// classifying; the step is a no-op so the cycle leaves no record.
func (s *ClassifyStep) Do(ctx context.Context, report *model.PageReport) error {
	if report.Error != nil {
		return nil
	}
	return s.orch.ScanExtracted(ctx, report)
}

// Name returns the step name.
func (s *ClassifyStep) Name() string { return "classify" }

// PersistStep saves the scan record and updates statistics.
// Persistence failure does not invalidate the scan itself, so errors
// are surfaced but the report keeps its results.
type PersistStep struct {
	orch *scanner.Orchestrator
}

// NewPersistStep creates a persist step backed by the orchestrator.
func NewPersistStep(orch *scanner.Orchestrator) *PersistStep {
	return &PersistStep{orch: orch}
}

// Do persists the scan record through the orchestrator's store and
// tracker, when configured. A cycle that failed before classification
// persists nothing: an aborted scan must not count toward statistics.
func (s *PersistStep) Do(ctx context.Context, report *model.PageReport) error {
	if report.Error != nil {
		return nil
	}
	return s.orch.Persist(ctx, report)
}

// Name returns the step name.
func (s *PersistStep) Name() string { return "persist" }

// PresentStep surfaces the finished report to the user.
type PresentStep struct {
	presenter scanner.Presenter
}

// NewPresentStep creates a present step.
func NewPresentStep(p scanner.Presenter) *PresentStep {
	return &PresentStep{presenter: p}
}

// Do presents the report.
func (s *PresentStep) Do(ctx context.Context, report *model.PageReport) error {
	return s.presenter.Present(ctx, report)
}

// Name returns the step name.
func (s *PresentStep) Name() string { return "present" }
