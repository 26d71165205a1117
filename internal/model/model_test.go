package model

import (
	"testing"
)

func TestContentKind(t *testing.T) {
	t.Parallel()

	t.Run("valid kinds", func(t *testing.T) {
		t.Parallel()

		for _, kind := range []ContentKind{KindText, KindImage, KindVideo, KindVoice} {
			if !kind.Valid() {
				t.Errorf("%q should be valid", kind)
			}
		}
	})

	t.Run("invalid kind", func(t *testing.T) {
		t.Parallel()

		if ContentKind("hologram").Valid() {
			t.Error("unknown kind should be invalid")
		}
	})
}

func TestScanRequestCountByKind(t *testing.T) {
	t.Parallel()

	request := ScanRequest{
		Items: []CandidateItem{
			{Kind: KindText},
			{Kind: KindText},
			{Kind: KindImage},
		},
	}

	if got := request.CountByKind(KindText); got != 2 {
		t.Errorf("text count = %d, want 2", got)
	}
	if got := request.CountByKind(KindVideo); got != 0 {
		t.Errorf("video count = %d, want 0", got)
	}
}

func TestScanRecord(t *testing.T) {
	t.Parallel()

	t.Run("clean requires zero failures and zero results", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name   string
			record ScanRecord
			want   bool
		}{
			{
				name:   "fully verified",
				record: ScanRecord{Attempted: 3, Completed: 3},
				want:   true,
			},
			{
				name:   "has fake results",
				record: ScanRecord{Attempted: 3, Completed: 3, Results: []ClassificationResult{{IsFake: true}}},
				want:   false,
			},
			{
				name:   "has failures",
				record: ScanRecord{Attempted: 3, Completed: 2, Failed: 1},
				want:   false,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				if got := tt.record.Clean(); got != tt.want {
					t.Errorf("Clean() = %v, want %v", got, tt.want)
				}
			})
		}
	})

	t.Run("fake count matches retained results", func(t *testing.T) {
		t.Parallel()

		record := ScanRecord{Results: []ClassificationResult{{IsFake: true}, {IsFake: true}}}
		if got := record.FakeCount(); got != 2 {
			t.Errorf("FakeCount = %d, want 2", got)
		}
	})
}

func TestStatistics(t *testing.T) {
	t.Parallel()

	t.Run("detection rate", func(t *testing.T) {
		t.Parallel()

		stats := NewStatistics()
		if got := stats.DetectionRate(); got != 0 {
			t.Errorf("empty rate = %v, want 0", got)
		}

		stats.TotalScans = 8
		stats.TotalFakeDetected = 2
		if got := stats.DetectionRate(); got != 25 {
			t.Errorf("rate = %v, want 25", got)
		}
	})

	t.Run("most common fake type", func(t *testing.T) {
		t.Parallel()

		stats := NewStatistics()
		if got := stats.MostCommonFakeType(); got != "" {
			t.Errorf("empty stats = %q, want empty kind", got)
		}

		stats.ByType[KindText] = 2
		stats.ByType[KindImage] = 5
		if got := stats.MostCommonFakeType(); got != KindImage {
			t.Errorf("MostCommonFakeType = %q, want image", got)
		}
	})
}

func TestPageReport(t *testing.T) {
	t.Parallel()

	report := NewPageReport("tab-1", "https://news.example.com/story")
	if report.TabID != "tab-1" || report.URL != "https://news.example.com/story" {
		t.Errorf("unexpected report: %+v", report)
	}
	if report.DateScanned.IsZero() {
		t.Error("DateScanned should be stamped")
	}

	report.Candidates = []CandidateItem{
		{Kind: KindText, Payload: "a"},
		{Kind: KindImage, Payload: "b"},
		{Kind: KindText, Payload: "c"},
	}

	texts := report.CandidatesByKind(KindText)
	if len(texts) != 2 || texts[0].Payload != "a" || texts[1].Payload != "c" {
		t.Errorf("CandidatesByKind = %+v", texts)
	}

	counts := ContentCounts{Texts: 2, Images: 1, Videos: 3}
	if counts.Total() != 6 {
		t.Errorf("Total = %d, want 6", counts.Total())
	}
}
