package model

import "time"

// HistoryCap is the maximum number of scan records retained in the
// statistics history. Oldest entries are evicted first. This cap is
// authoritative: the periodic maintenance job trims to the same bound.
const HistoryCap = 100

// Statistics holds the aggregate counters accumulated across all scans.
// The struct lives for the installation lifetime and is reset only on
// explicit user action.
//
// Statistics are persisted as a single record and updated read-modify-
// write. Within one process the tracker serializes writers; concurrent
// processes get last-writer-wins semantics from the storage layer.
type Statistics struct {
	// TotalScans counts completed scan cycles.
	TotalScans int `json:"total_scans"`

	// TotalFakeDetected counts fake verdicts across all scans.
	TotalFakeDetected int `json:"total_fake_detected"`

	// ByType counts fake verdicts per content kind.
	ByType map[ContentKind]int `json:"by_type"`

	// ScanHistory holds the most recent scans, newest first,
	// capped at HistoryCap entries.
	ScanHistory []ScanRecord `json:"scan_history"`

	// LastScan is the completion time of the most recent scan.
	LastScan time.Time `json:"last_scan"`

	// FirstScan is when the first scan was recorded.
	FirstScan time.Time `json:"first_scan"`
}

// NewStatistics returns an empty statistics record with all per-kind
// counters initialized to zero.
func NewStatistics() *Statistics {
	return &Statistics{
		ByType: map[ContentKind]int{
			KindText:  0,
			KindImage: 0,
			KindVideo: 0,
			KindVoice: 0,
		},
		ScanHistory: make([]ScanRecord, 0),
	}
}

// DetectionRate returns the ratio of fake detections to scans as a
// percentage. Zero when no scans have been recorded.
func (s *Statistics) DetectionRate() float64 {
	if s.TotalScans == 0 {
		return 0
	}
	return float64(s.TotalFakeDetected) / float64(s.TotalScans) * 100
}

// MostCommonFakeType returns the content kind with the most fake
// verdicts, or empty when nothing has been detected yet.
func (s *Statistics) MostCommonFakeType() ContentKind {
	var best ContentKind
	max := 0
	for _, kind := range []ContentKind{KindText, KindImage, KindVideo, KindVoice} {
		if s.ByType[kind] > max {
			max = s.ByType[kind]
			best = kind
		}
	}
	return best
}
