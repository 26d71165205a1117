package presenter

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verifyhq/verifyscan/internal/model"
)

func fakeResult(confidence float64) model.ClassificationResult {
	return model.ClassificationResult{
		Kind:       model.KindText,
		Payload:    "a fabricated claim about recent events",
		SourceRef:  "article p#0",
		IsFake:     true,
		Confidence: confidence,
		Analysis:   "matches known fabricated story",
		Source:     "api",
	}
}

func reportWithRecord(tabID string, results ...model.ClassificationResult) *model.PageReport {
	report := model.NewPageReport(tabID, "https://news.example.com/story")
	report.Record = &model.ScanRecord{
		ID:        "scan-1",
		TabID:     tabID,
		URL:       report.URL,
		Timestamp: time.Now(),
		Attempted: 5,
		Completed: 5,
		Results:   results,
		Duration:  800 * time.Millisecond,
	}
	return report
}

func TestPresent(t *testing.T) {
	t.Parallel()

	t.Run("fake verdicts produce a red badge and toasts", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		p := New(&buf)

		report := reportWithRecord("tab-1", fakeResult(0.95), fakeResult(0.9), fakeResult(0.8))
		if err := p.Present(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, "[badge tab-1] 3 "+BadgeColorFake) {
			t.Errorf("missing fake badge line in:\n%s", out)
		}
		if !strings.Contains(out, "3 suspicious item(s) detected") {
			t.Errorf("missing toast summary in:\n%s", out)
		}
		if !strings.Contains(out, "matches known fabricated story") {
			t.Errorf("missing analysis line in:\n%s", out)
		}
	})

	t.Run("clean scan produces a green badge", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		p := New(&buf)

		if err := p.Present(context.Background(), reportWithRecord("tab-1")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, "[badge tab-1] clear "+BadgeColorClean) {
			t.Errorf("missing clean badge in:\n%s", out)
		}
		if !strings.Contains(out, "all 5 items verified clean") {
			t.Errorf("missing clean toast in:\n%s", out)
		}
	})

	t.Run("partial failure is announced as partially verified", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		p := New(&buf)

		report := reportWithRecord("tab-1")
		report.Record.Completed = 3
		report.Record.Failed = 2
		if err := p.Present(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, "[badge tab-1] clear "+BadgeColorInconclusive) {
			t.Errorf("missing inconclusive badge in:\n%s", out)
		}
		if !strings.Contains(out, "3 of 5 items verified, nothing suspicious found") {
			t.Errorf("missing partial toast in:\n%s", out)
		}
		if strings.Contains(out, "verified clean") {
			t.Errorf("partial scan must not claim a clean page:\n%s", out)
		}
	})

	t.Run("verdicts below the threshold stay hidden", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		p := New(&buf, WithThreshold(70))

		report := reportWithRecord("tab-1", fakeResult(0.95), fakeResult(0.5))
		if err := p.Present(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, "[badge tab-1] 1 "+BadgeColorFake) {
			t.Errorf("badge should count surfaced verdicts only:\n%s", out)
		}
		if !strings.Contains(out, "1 suspicious item(s) detected") {
			t.Errorf("toast should count surfaced verdicts only:\n%s", out)
		}
	})

	t.Run("repeat presentation of the same outcome is silent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		p := New(&buf, WithNotifications(false))

		report := reportWithRecord("tab-1", fakeResult(0.95))
		if err := p.Present(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		first := buf.String()

		if err := p.Present(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.String() != first {
			t.Errorf("repeated badge re-emitted:\nfirst:\n%s\nafter repeat:\n%s", first, buf.String())
		}
	})

	t.Run("badge is re-emitted when the outcome changes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		p := New(&buf, WithNotifications(false))

		if err := p.Present(context.Background(), reportWithRecord("tab-1", fakeResult(0.95))); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := p.Present(context.Background(), reportWithRecord("tab-1")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, "[badge tab-1] 1 "+BadgeColorFake) {
			t.Errorf("missing first badge in:\n%s", out)
		}
		if !strings.Contains(out, "[badge tab-1] clear "+BadgeColorClean) {
			t.Errorf("missing updated badge in:\n%s", out)
		}
	})

	t.Run("notifications off suppresses toasts", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		p := New(&buf, WithNotifications(false))

		if err := p.Present(context.Background(), reportWithRecord("tab-1", fakeResult(0.95))); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if strings.Contains(buf.String(), "suspicious item(s) detected") {
			t.Errorf("toast emitted with notifications off:\n%s", buf.String())
		}
	})

	t.Run("cancelled context aborts presentation", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		p := New(&buf)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := p.Present(ctx, reportWithRecord("tab-1")); err == nil {
			t.Error("expected context error")
		}
		if buf.Len() != 0 {
			t.Errorf("cancelled presentation produced output:\n%s", buf.String())
		}
	})
}

func TestPresentBanner(t *testing.T) {
	t.Parallel()

	t.Run("blacklisted domain warns even without notifications", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		p := New(&buf, WithNotifications(false))

		report := model.NewPageReport("tab-1", "https://www.infowars.com/article")
		report.Reputation = &model.DomainReputation{
			Domain:     "infowars.com",
			IsFake:     true,
			Confidence: 0.92,
			Source:     model.ReputationBlacklist,
		}

		if err := p.Present(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "known misinformation source") {
			t.Errorf("missing blacklist banner in:\n%s", buf.String())
		}
	})

	t.Run("banner shows once per domain per tab", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		p := New(&buf)

		report := model.NewPageReport("tab-1", "https://www.bbc.com/news")
		report.Reputation = &model.DomainReputation{
			Domain:     "bbc.com",
			IsTrusted:  true,
			Confidence: 0.93,
			Source:     model.ReputationWhitelist,
		}

		for i := 0; i < 3; i++ {
			if err := p.Present(context.Background(), report); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		if got := strings.Count(buf.String(), "recognized trusted source"); got != 1 {
			t.Errorf("banner emitted %d times, want 1:\n%s", got, buf.String())
		}
	})

	t.Run("unknown reputation emits no banner", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		p := New(&buf)

		report := model.NewPageReport("tab-1", "https://random.example.com/")
		report.Reputation = &model.DomainReputation{
			Domain:     "random.example.com",
			Confidence: 0.5,
			Source:     model.ReputationUnknown,
		}

		if err := p.Present(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.Len() != 0 {
			t.Errorf("unknown domain produced output:\n%s", buf.String())
		}
	})
}

func TestClearTab(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := New(&buf, WithNotifications(false))

	report := reportWithRecord("tab-1", fakeResult(0.95))
	if err := p.Present(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p.ClearTab("tab-1")

	if err := p.Present(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Count(buf.String(), "[badge tab-1] 1"); got != 2 {
		t.Errorf("badge emitted %d times, want 2 after ClearTab:\n%s", got, buf.String())
	}
}

func TestWriteSidebar(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var buf bytes.Buffer
	p := New(&buf, WithSidebarDir(dir))

	report := reportWithRecord("tab-1", fakeResult(0.95))
	report.Counts = model.ContentCounts{Texts: 3, Images: 1}
	if err := p.Present(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "tab-tab-1.md"))
	if err != nil {
		t.Fatalf("sidebar panel not written: %v", err)
	}

	content := string(data)
	if !strings.Contains(content, "# Scan Results") {
		t.Errorf("missing heading in sidebar:\n%s", content)
	}
	if !strings.Contains(content, report.URL) {
		t.Errorf("missing page URL in sidebar:\n%s", content)
	}
	if !strings.Contains(content, "matches known fabricated story") {
		t.Errorf("missing analysis in sidebar:\n%s", content)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{name: "short string unchanged", in: "hello", n: 10, want: "hello"},
		{name: "exact length unchanged", in: "hello", n: 5, want: "hello"},
		{name: "long string truncated", in: "hello world", n: 5, want: "hello..."},
		{name: "multibyte safe", in: "héllo wörld", n: 5, want: "héllo..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := truncate(tt.in, tt.n); got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
		})
	}
}
