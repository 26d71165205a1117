package model

import "time"

// ClassificationResult is the verdict for a single classified item.
// Only items the detection API flagged as fake are retained in scan
// results; clean, failed, and timed-out items are dropped (the drop
// counts are kept on the ScanRecord so an all-failure scan remains
// distinguishable from a verified-clean one).
type ClassificationResult struct {
	// Kind is the modality of the classified item.
	Kind ContentKind `json:"kind"`

	// Payload is the text body or media URL that was classified.
	Payload string `json:"payload"`

	// SourceRef points back at the originating element, when known.
	SourceRef string `json:"source_ref,omitempty"`

	// IsFake is the remote verdict. Authoritative only when Confidence
	// is within [0,1].
	IsFake bool `json:"is_fake"`

	// Confidence is the model's confidence in the verdict, in [0,1].
	Confidence float64 `json:"confidence"`

	// Analysis is the human-readable explanation from the model.
	Analysis string `json:"analysis,omitempty"`

	// ModelUsed names the model that produced the verdict.
	ModelUsed string `json:"model_used,omitempty"`

	// Source tags where the verdict came from: "api" for the remote
	// detection service, "exif" for the local metadata heuristic.
	Source string `json:"source,omitempty"`
}

// ScanRecord is the persisted outcome of one completed scan cycle.
// It is keyed by tab in storage and superseded by the next scan for
// the same tab.
type ScanRecord struct {
	// ID is the scan cycle identifier.
	ID string `json:"id"`

	// TabID identifies the scanned page context.
	TabID string `json:"tab_id"`

	// URL is the scanned page.
	URL string `json:"url"`

	// Timestamp is when the scan completed.
	Timestamp time.Time `json:"timestamp"`

	// Attempted is the number of items sent for classification.
	Attempted int `json:"attempted"`

	// Completed is the number of items that settled with a verdict.
	Completed int `json:"completed"`

	// Failed is the number of items dropped due to timeout or
	// transport failure. Attempted == Completed + Failed.
	Failed int `json:"failed"`

	// Results holds only the fake verdicts.
	Results []ClassificationResult `json:"results"`

	// Duration is the wall time of the scan cycle.
	Duration time.Duration `json:"duration"`
}

// FakeCount returns the number of retained fake verdicts.
func (r *ScanRecord) FakeCount() int {
	return len(r.Results)
}

// Clean reports whether the scan completed every attempted item and
// found nothing fake. A scan with failures is not clean, merely
// inconclusive.
func (r *ScanRecord) Clean() bool {
	return len(r.Results) == 0 && r.Failed == 0
}
