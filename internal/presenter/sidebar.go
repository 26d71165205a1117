package presenter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/verifyhq/verifyscan/internal/model"
)

// writeSidebar renders the per-tab detail panel as a markdown file.
// The file is rewritten whole on every presentation, so re-presenting
// the same report is idempotent. Callers hold c.mu.
func (c *Console) writeSidebar(report *model.PageReport, surfaced []model.ClassificationResult) error {
	if err := os.MkdirAll(c.sidebarDir, 0750); err != nil {
		return fmt.Errorf("failed to create sidebar directory: %w", err)
	}

	var buf bytes.Buffer
	md := markdown.NewMarkdown(&buf)

	md.H1("Scan Results")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Page", report.URL},
			{"Scanned", report.DateScanned.Format("2006-01-02 15:04:05 MST")},
			{"Items checked", strconv.Itoa(report.Record.Attempted)},
			{"Verified", strconv.Itoa(report.Record.Completed)},
			{"Dropped", strconv.Itoa(report.Record.Failed)},
			{"Suspicious", strconv.Itoa(len(surfaced))},
		},
	})
	md.PlainText("")

	if rep := report.Reputation; rep != nil && rep.Source != model.ReputationUnknown {
		if rep.IsFake {
			md.Warningf("%s is a known misinformation source.", rep.Domain)
		} else {
			md.Note(fmt.Sprintf("%s is a recognized trusted source.", rep.Domain))
		}
		md.PlainText("")
	}

	if len(surfaced) > 0 {
		md.H2("Suspicious Content")
		md.PlainText("")
		for i, result := range surfaced {
			md.H3(fmt.Sprintf("%d. %s (%.0f%% confidence)", i+1, result.Kind, result.Confidence*100))
			if result.SourceRef != "" {
				md.PlainTextf("Location: `%s`", result.SourceRef)
			}
			md.PlainText("")
			md.Blockquote(truncate(result.Payload, 300))
			md.PlainText("")
			if result.Analysis != "" {
				md.PlainText(result.Analysis)
				md.PlainText("")
			}
			if result.ModelUsed != "" {
				md.PlainTextf("Model: %s", result.ModelUsed)
				md.PlainText("")
			}
		}
	} else if report.Record.Clean() {
		md.Tip("Everything checked on this page looks authentic.")
		md.PlainText("")
	}

	if err := md.Build(); err != nil {
		return fmt.Errorf("failed to render sidebar: %w", err)
	}

	path := filepath.Join(c.sidebarDir, "tab-"+sanitizeTabID(report.TabID)+".md")
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write sidebar panel: %w", err)
	}
	return nil
}

// sanitizeTabID makes a tab ID safe to use as a filename component.
func sanitizeTabID(tabID string) string {
	out := make([]rune, 0, len(tabID))
	for _, r := range tabID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
