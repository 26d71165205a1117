package model

import "time"

// ContentKind identifies the modality of a candidate item.
// The kind determines which detection endpoint the item is sent to and
// which per-item deadline applies during classification.
type ContentKind string

// Supported content kinds.
const (
	// KindText is a text passage extracted from the page body.
	KindText ContentKind = "text"

	// KindImage is an image URL referenced by the page.
	KindImage ContentKind = "image"

	// KindVideo is a native video source or a recognized embed URL.
	KindVideo ContentKind = "video"

	// KindVoice is an audio source found on the page.
	KindVoice ContentKind = "voice"
)

// String returns the kind as a plain string.
func (k ContentKind) String() string {
	return string(k)
}

// Valid reports whether the kind is one of the supported modalities.
func (k ContentKind) Valid() bool {
	switch k {
	case KindText, KindImage, KindVideo, KindVoice:
		return true
	}
	return false
}

// CandidateItem is a single piece of page content selected for
// classification. For text items Payload holds the passage body; for
// image, video, and voice items it holds the resolved media URL.
//
// Candidates are ephemeral: they live only for the duration of one scan
// cycle and are never persisted. The SourceRef lets the presenter point
// the user back at the originating element.
type CandidateItem struct {
	// Kind is the content modality.
	Kind ContentKind `json:"kind"`

	// Payload is the text body or media URL.
	Payload string `json:"payload"`

	// SourceRef identifies the originating element, as the matched
	// selector plus the match index (e.g. "article p#2"). Best effort;
	// may be empty for fallback matches.
	SourceRef string `json:"source_ref,omitempty"`
}

// ScanRequest groups the candidate items for one scan cycle of one tab.
// It exists only in memory while the cycle runs.
type ScanRequest struct {
	// ID uniquely identifies this scan cycle.
	ID string `json:"id"`

	// TabID identifies the page context being scanned.
	TabID string `json:"tab_id"`

	// URL is the page the items were extracted from.
	URL string `json:"url"`

	// Items are the sampled candidates, already capped per modality.
	Items []CandidateItem `json:"items"`

	// IssuedAt is when the orchestrator created the request.
	IssuedAt time.Time `json:"issued_at"`
}

// CountByKind returns the number of items of the given kind.
func (r *ScanRequest) CountByKind(kind ContentKind) int {
	n := 0
	for _, it := range r.Items {
		if it.Kind == kind {
			n++
		}
	}
	return n
}
