package model

import "time"

// Reputation source tags.
const (
	// ReputationBlacklist marks a hostname found on the misinformation list.
	ReputationBlacklist = "blacklist"

	// ReputationWhitelist marks a hostname found on the trusted list.
	ReputationWhitelist = "whitelist"

	// ReputationUnknown marks a hostname on neither list.
	ReputationUnknown = "unknown"
)

// DomainReputation is the outcome of the static allow/deny list check
// for a page's hostname.
type DomainReputation struct {
	// Domain is the normalized hostname that was checked.
	Domain string `json:"domain"`

	// IsFake is true when the hostname matched the misinformation list.
	IsFake bool `json:"is_fake"`

	// IsTrusted is true when the hostname matched the trusted list.
	IsTrusted bool `json:"is_trusted"`

	// Confidence is fixed per source: 0.92 blacklist, 0.93 whitelist,
	// 0.5 unknown.
	Confidence float64 `json:"confidence"`

	// Source is one of the Reputation* constants.
	Source string `json:"source"`
}

// ContentCounts summarizes how many candidates of each modality the
// extractor produced before sampling.
type ContentCounts struct {
	Texts  int `json:"texts"`
	Images int `json:"images"`
	Videos int `json:"videos"`
	Voices int `json:"voices"`
}

// Total returns the total candidate count across modalities.
func (c ContentCounts) Total() int {
	return c.Texts + c.Images + c.Videos + c.Voices
}

// PageReport is the accumulated result of one pipeline run over a page.
// Steps execute in order and each step adds its piece: reputation,
// extracted candidates, classification record. Non-critical step
// failures are recorded in Error/ErrorMessage without aborting the run.
type PageReport struct {
	// URL is the page being scanned.
	URL string `json:"url"`

	// TabID identifies the page context. The scan command derives it
	// from the URL; the watch daemon assigns one per watched page.
	TabID string `json:"tab_id"`

	// DateScanned is when the pipeline run started.
	DateScanned time.Time `json:"date_scanned"`

	// Reputation is the static hostname classification, when performed.
	Reputation *DomainReputation `json:"reputation,omitempty"`

	// Counts summarizes extraction output before sampling.
	Counts ContentCounts `json:"counts"`

	// Candidates are the extracted items, before sampling caps.
	Candidates []CandidateItem `json:"candidates,omitempty"`

	// Record is the persisted scan outcome, set by the classify step.
	Record *ScanRecord `json:"record,omitempty"`

	// PerformedSteps lists the pipeline steps that ran, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// TimedOut is true when the run was cancelled before completion.
	TimedOut bool `json:"timed_out,omitempty"`

	// Error holds the last step error, if any. Not serialized.
	Error error `json:"-"`

	// ErrorMessage mirrors Error for serialization.
	ErrorMessage string `json:"error_message,omitempty"`
}

// NewPageReport creates a report for the given page.
func NewPageReport(tabID, url string) *PageReport {
	return &PageReport{
		URL:         url,
		TabID:       tabID,
		DateScanned: time.Now(),
	}
}

// CandidatesByKind returns the extracted candidates of one modality.
func (r *PageReport) CandidatesByKind(kind ContentKind) []CandidateItem {
	items := make([]CandidateItem, 0)
	for _, c := range r.Candidates {
		if c.Kind == kind {
			items = append(items, c)
		}
	}
	return items
}
