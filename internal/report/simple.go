package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/verifyhq/verifyscan/internal/model"
)

// SimpleWriter outputs a compact human-readable report.
// This is the default output format for the scan command.
type SimpleWriter struct {
	baseWriter
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer) *SimpleWriter {
	return &SimpleWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the report in plain text.
func (w *SimpleWriter) Write(report *model.PageReport) (int, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "Page: %s\n", report.URL)
	fmt.Fprintf(&b, "Scanned: %s\n", report.DateScanned.Format("2006-01-02 15:04:05 MST"))

	if rep := report.Reputation; rep != nil {
		switch rep.Source {
		case model.ReputationBlacklist:
			fmt.Fprintf(&b, "Domain: %s — KNOWN MISINFORMATION SOURCE (%.0f%% confidence)\n",
				rep.Domain, rep.Confidence*100)
		case model.ReputationWhitelist:
			fmt.Fprintf(&b, "Domain: %s — trusted source\n", rep.Domain)
		default:
			fmt.Fprintf(&b, "Domain: %s — no reputation data\n", rep.Domain)
		}
	}

	fmt.Fprintf(&b, "Content found: %d texts, %d images, %d videos, %d audio\n",
		report.Counts.Texts, report.Counts.Images, report.Counts.Videos, report.Counts.Voices)

	if record := report.Record; record != nil {
		fmt.Fprintf(&b, "Checked: %d items (%d verified, %d dropped) in %s\n",
			record.Attempted, record.Completed, record.Failed,
			record.Duration.Round(time.Millisecond))

		if record.FakeCount() > 0 {
			fmt.Fprintf(&b, "\nSuspicious content (%d):\n", record.FakeCount())
			for i, result := range record.Results {
				fmt.Fprintf(&b, "  %d. [%s] %.0f%% confidence\n", i+1, result.Kind, result.Confidence*100)
				if result.SourceRef != "" {
					fmt.Fprintf(&b, "     at %s\n", result.SourceRef)
				}
				if result.Analysis != "" {
					fmt.Fprintf(&b, "     %s\n", firstLine(result.Analysis))
				}
			}
		} else if record.Clean() {
			fmt.Fprintf(&b, "\nAll checked items verified clean.\n")
		} else if record.Completed > 0 {
			fmt.Fprintf(&b, "\n%d of %d items verified, nothing suspicious found.\n",
				record.Completed, record.Attempted)
		}
	}

	if report.ErrorMessage != "" {
		fmt.Fprintf(&b, "\nError: %s\n", report.ErrorMessage)
	}

	return w.output.Write([]byte(b.String()))
}

// firstLine returns the text up to the first newline.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
