package reputation

import (
	"testing"

	"github.com/verifyhq/verifyscan/internal/model"
)

func TestCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		url            string
		wantFake       bool
		wantTrusted    bool
		wantConfidence float64
		wantSource     string
	}{
		{
			name:           "blacklisted domain",
			url:            "https://www.infowars.com/article/123",
			wantFake:       true,
			wantConfidence: 0.92,
			wantSource:     model.ReputationBlacklist,
		},
		{
			name:           "blacklisted bare hostname",
			url:            "naturalnews.com",
			wantFake:       true,
			wantConfidence: 0.92,
			wantSource:     model.ReputationBlacklist,
		},
		{
			name:           "whitelisted domain",
			url:            "https://www.bbc.com/news/world-12345",
			wantTrusted:    true,
			wantConfidence: 0.93,
			wantSource:     model.ReputationWhitelist,
		},
		{
			name:           "whitelisted subdomain",
			url:            "https://news.bbc.co.uk/story",
			wantTrusted:    true,
			wantConfidence: 0.93,
			wantSource:     model.ReputationWhitelist,
		},
		{
			name:           "unknown domain",
			url:            "https://random-blog.example.com/post",
			wantConfidence: 0.5,
			wantSource:     model.ReputationUnknown,
		},
		{
			name:           "empty input",
			url:            "",
			wantConfidence: 0.5,
			wantSource:     model.ReputationUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rep := Check(tt.url)
			if rep.IsFake != tt.wantFake {
				t.Errorf("IsFake = %v, want %v", rep.IsFake, tt.wantFake)
			}
			if rep.IsTrusted != tt.wantTrusted {
				t.Errorf("IsTrusted = %v, want %v", rep.IsTrusted, tt.wantTrusted)
			}
			if rep.Confidence != tt.wantConfidence {
				t.Errorf("Confidence = %v, want %v", rep.Confidence, tt.wantConfidence)
			}
			if rep.Source != tt.wantSource {
				t.Errorf("Source = %q, want %q", rep.Source, tt.wantSource)
			}
		})
	}

	t.Run("idempotent across repeated calls", func(t *testing.T) {
		t.Parallel()

		first := Check("https://www.bbc.com/news")
		for i := 0; i < 5; i++ {
			if got := Check("https://www.bbc.com/news"); got != first {
				t.Fatalf("call %d returned %+v, want %+v", i, got, first)
			}
		}
	})
}

func TestExtractDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "full URL", url: "https://www.example.com/path?q=1", want: "example.com"},
		{name: "http scheme", url: "http://example.com/", want: "example.com"},
		{name: "no scheme", url: "example.com/path", want: "example.com"},
		{name: "bare hostname", url: "Example.COM", want: "example.com"},
		{name: "bare www hostname", url: "www.example.com", want: "example.com"},
		{name: "hostname with port", url: "https://example.com:8443/x", want: "example.com"},
		{name: "subdomain preserved", url: "https://news.example.com/", want: "news.example.com"},
		{name: "surrounding whitespace", url: "  https://example.com  ", want: "example.com"},
		{name: "empty", url: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ExtractDomain(tt.url); got != tt.want {
				t.Errorf("ExtractDomain(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}
