package storage

import (
	"context"
	"testing"
	"time"

	"github.com/verifyhq/verifyscan/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})
	return store
}

func sampleRecord(tabID, url string) *model.ScanRecord {
	return &model.ScanRecord{
		ID:        "scan-" + tabID,
		TabID:     tabID,
		URL:       url,
		Timestamp: time.Now().UTC(),
		Attempted: 5,
		Completed: 4,
		Failed:    1,
		Duration:  1200 * time.Millisecond,
		Results: []model.ClassificationResult{
			{
				Kind:       model.KindText,
				Payload:    "a fabricated claim",
				SourceRef:  "article p#0",
				IsFake:     true,
				Confidence: 0.95,
				Analysis:   "matches known fabricated story",
				Source:     "api",
			},
		},
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database when allowed", func(t *testing.T) {
		t.Parallel()

		store, err := Open(t.TempDir(), DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open store: %v", err)
		}
		defer store.Close()
	})

	t.Run("fails when database missing and creation disabled", func(t *testing.T) {
		t.Parallel()

		opts := Options{CreateIfNotExists: false}
		if _, err := Open(t.TempDir(), opts); err == nil {
			t.Error("expected error opening missing database")
		}
	})
}

func TestScanRecords(t *testing.T) {
	t.Parallel()

	t.Run("save and load round trip", func(t *testing.T) {
		t.Parallel()

		store := openTestStore(t)
		ctx := context.Background()

		record := sampleRecord("tab-1", "https://news.example.com/a")
		if err := store.SaveScanRecord(ctx, record); err != nil {
			t.Fatalf("failed to save record: %v", err)
		}

		got, err := store.GetScanRecord(ctx, "tab-1")
		if err != nil {
			t.Fatalf("failed to load record: %v", err)
		}
		if got == nil {
			t.Fatal("expected a record")
		}
		if got.ID != record.ID || got.URL != record.URL {
			t.Errorf("got %q at %q, want %q at %q", got.ID, got.URL, record.ID, record.URL)
		}
		if got.Attempted != 5 || got.Completed != 4 || got.Failed != 1 {
			t.Errorf("counter mismatch: %+v", got)
		}
		if got.Duration != 1200*time.Millisecond {
			t.Errorf("Duration = %v, want 1.2s", got.Duration)
		}
		if len(got.Results) != 1 || !got.Results[0].IsFake {
			t.Errorf("results not restored: %+v", got.Results)
		}
	})

	t.Run("rescan of a tab replaces the previous record", func(t *testing.T) {
		t.Parallel()

		store := openTestStore(t)
		ctx := context.Background()

		first := sampleRecord("tab-1", "https://news.example.com/a")
		if err := store.SaveScanRecord(ctx, first); err != nil {
			t.Fatalf("failed to save first record: %v", err)
		}

		second := sampleRecord("tab-1", "https://news.example.com/b")
		second.ID = "scan-rescan"
		second.Results = nil
		if err := store.SaveScanRecord(ctx, second); err != nil {
			t.Fatalf("failed to save second record: %v", err)
		}

		got, err := store.GetScanRecord(ctx, "tab-1")
		if err != nil {
			t.Fatalf("failed to load record: %v", err)
		}
		if got.ID != "scan-rescan" {
			t.Errorf("ID = %q, want scan-rescan", got.ID)
		}
		if got.URL != "https://news.example.com/b" {
			t.Errorf("URL = %q, want the rescanned URL", got.URL)
		}
		if len(got.Results) != 0 {
			t.Errorf("stale results survived the rescan: %+v", got.Results)
		}
	})

	t.Run("unknown tab returns nil without error", func(t *testing.T) {
		t.Parallel()

		store := openTestStore(t)
		got, err := store.GetScanRecord(context.Background(), "never-scanned")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil record, got %+v", got)
		}
	})

	t.Run("delete removes the record", func(t *testing.T) {
		t.Parallel()

		store := openTestStore(t)
		ctx := context.Background()

		if err := store.SaveScanRecord(ctx, sampleRecord("tab-1", "https://news.example.com/a")); err != nil {
			t.Fatalf("failed to save record: %v", err)
		}
		if err := store.DeleteScanRecord(ctx, "tab-1"); err != nil {
			t.Fatalf("failed to delete record: %v", err)
		}

		got, err := store.GetScanRecord(ctx, "tab-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Error("record should be gone after delete")
		}
	})

	t.Run("delete old scans keeps fresh ones", func(t *testing.T) {
		t.Parallel()

		store := openTestStore(t)
		ctx := context.Background()

		old := sampleRecord("tab-old", "https://news.example.com/old")
		old.Timestamp = time.Now().UTC().Add(-48 * time.Hour)
		fresh := sampleRecord("tab-fresh", "https://news.example.com/fresh")

		if err := store.SaveScanRecord(ctx, old); err != nil {
			t.Fatalf("failed to save old record: %v", err)
		}
		if err := store.SaveScanRecord(ctx, fresh); err != nil {
			t.Fatalf("failed to save fresh record: %v", err)
		}

		removed, err := store.DeleteScansOlderThan(ctx, 24*time.Hour)
		if err != nil {
			t.Fatalf("failed to delete old scans: %v", err)
		}
		if removed != 1 {
			t.Errorf("removed = %d, want 1", removed)
		}

		if got, _ := store.GetScanRecord(ctx, "tab-old"); got != nil {
			t.Error("old record should be gone")
		}
		if got, _ := store.GetScanRecord(ctx, "tab-fresh"); got == nil {
			t.Error("fresh record should survive")
		}
	})

	t.Run("recent scans are ordered newest first", func(t *testing.T) {
		t.Parallel()

		store := openTestStore(t)
		ctx := context.Background()

		base := time.Now().UTC().Add(-time.Hour)
		for i := 0; i < 3; i++ {
			record := sampleRecord("tab-"+string(rune('a'+i)), "https://news.example.com/x")
			record.Timestamp = base.Add(time.Duration(i) * time.Minute)
			if err := store.SaveScanRecord(ctx, record); err != nil {
				t.Fatalf("failed to save record %d: %v", i, err)
			}
		}

		records, err := store.RecentScans(ctx, 2)
		if err != nil {
			t.Fatalf("failed to query recent scans: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[0].TabID != "tab-c" || records[1].TabID != "tab-b" {
			t.Errorf("unexpected order: %q, %q", records[0].TabID, records[1].TabID)
		}
	})
}

func TestStatistics(t *testing.T) {
	t.Parallel()

	t.Run("empty store yields fresh statistics", func(t *testing.T) {
		t.Parallel()

		store := openTestStore(t)
		stats, err := store.LoadStatistics(context.Background())
		if err != nil {
			t.Fatalf("failed to load statistics: %v", err)
		}
		if stats.TotalScans != 0 || stats.TotalFakeDetected != 0 {
			t.Errorf("expected empty statistics, got %+v", stats)
		}
		if stats.ByType == nil {
			t.Error("ByType map should be initialized")
		}
	})

	t.Run("save and load round trip", func(t *testing.T) {
		t.Parallel()

		store := openTestStore(t)
		ctx := context.Background()

		stats := model.NewStatistics()
		stats.TotalScans = 12
		stats.TotalFakeDetected = 3
		stats.ByType[model.KindText] = 2
		stats.ByType[model.KindImage] = 1

		if err := store.SaveStatistics(ctx, stats); err != nil {
			t.Fatalf("failed to save statistics: %v", err)
		}

		got, err := store.LoadStatistics(ctx)
		if err != nil {
			t.Fatalf("failed to load statistics: %v", err)
		}
		if got.TotalScans != 12 || got.TotalFakeDetected != 3 {
			t.Errorf("totals not restored: %+v", got)
		}
		if got.ByType[model.KindText] != 2 {
			t.Errorf("ByType[text] = %d, want 2", got.ByType[model.KindText])
		}
	})

	t.Run("last writer wins", func(t *testing.T) {
		t.Parallel()

		store := openTestStore(t)
		ctx := context.Background()

		first := model.NewStatistics()
		first.TotalScans = 1
		if err := store.SaveStatistics(ctx, first); err != nil {
			t.Fatalf("failed to save first snapshot: %v", err)
		}

		second := model.NewStatistics()
		second.TotalScans = 2
		if err := store.SaveStatistics(ctx, second); err != nil {
			t.Fatalf("failed to save second snapshot: %v", err)
		}

		got, err := store.LoadStatistics(ctx)
		if err != nil {
			t.Fatalf("failed to load statistics: %v", err)
		}
		if got.TotalScans != 2 {
			t.Errorf("TotalScans = %d, want 2", got.TotalScans)
		}
	})
}

func TestSettings(t *testing.T) {
	t.Parallel()

	t.Run("unset key returns empty string", func(t *testing.T) {
		t.Parallel()

		store := openTestStore(t)
		value, err := store.GetSetting(context.Background(), "missing")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if value != "" {
			t.Errorf("value = %q, want empty", value)
		}
	})

	t.Run("set and get round trip", func(t *testing.T) {
		t.Parallel()

		store := openTestStore(t)
		ctx := context.Background()

		if err := store.SetSetting(ctx, "auto_scan", "false"); err != nil {
			t.Fatalf("failed to set: %v", err)
		}
		value, err := store.GetSetting(ctx, "auto_scan")
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if value != "false" {
			t.Errorf("value = %q, want false", value)
		}

		if err := store.SetSetting(ctx, "auto_scan", "true"); err != nil {
			t.Fatalf("failed to overwrite: %v", err)
		}
		value, _ = store.GetSetting(ctx, "auto_scan")
		if value != "true" {
			t.Errorf("value = %q, want true", value)
		}
	})

	t.Run("seeding never overwrites existing values", func(t *testing.T) {
		t.Parallel()

		store := openTestStore(t)
		ctx := context.Background()

		if err := store.SetSetting(ctx, "auto_scan", "false"); err != nil {
			t.Fatalf("failed to set: %v", err)
		}

		defaults := map[string]string{
			"auto_scan":     "true",
			"notifications": "true",
		}
		if err := store.SeedDefaultSettings(ctx, defaults); err != nil {
			t.Fatalf("failed to seed: %v", err)
		}

		if value, _ := store.GetSetting(ctx, "auto_scan"); value != "false" {
			t.Errorf("auto_scan = %q, seeding must not overwrite", value)
		}
		if value, _ := store.GetSetting(ctx, "notifications"); value != "true" {
			t.Errorf("notifications = %q, want seeded default", value)
		}
	})
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		zero  bool
	}{
		{name: "sqlite default", input: "2026-08-28 10:30:00"},
		{name: "iso8601 with Z", input: "2026-08-28T10:30:00Z"},
		{name: "rfc3339", input: "2026-08-28T10:30:00+02:00"},
		{name: "garbage", input: "not a time", zero: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := parseTimestamp(tt.input)
			if got.IsZero() != tt.zero {
				t.Errorf("parseTimestamp(%q).IsZero() = %v, want %v", tt.input, got.IsZero(), tt.zero)
			}
		})
	}
}
