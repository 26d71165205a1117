package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/verifyhq/verifyscan/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.PageReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeReputation(md, report)
	w.writeResults(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with scan information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.PageReport) {
	md.H1("Verifyscan Report")
	md.PlainText("")

	status := "✅ Complete"
	if report.TimedOut {
		status = "⚠️ Timed Out (partial results)"
	} else if report.ErrorMessage != "" {
		status = "❌ Error - " + report.ErrorMessage
	}

	rows := [][]string{
		{"Page", "`" + report.URL + "`"},
		{"Scan Date", report.DateScanned.Format("2006-01-02 15:04:05 MST")},
		{"Content Found", strconv.Itoa(report.Counts.Total())},
		{"Status", status},
	}
	if record := report.Record; record != nil {
		rows = append(rows,
			[]string{"Items Checked", strconv.Itoa(record.Attempted)},
			[]string{"Verified", strconv.Itoa(record.Completed)},
			[]string{"Dropped", strconv.Itoa(record.Failed)},
			[]string{"Suspicious", strconv.Itoa(record.FakeCount())},
		)
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeReputation writes the domain reputation section.
func (w *MarkdownWriter) writeReputation(md *markdown.Markdown, report *model.PageReport) {
	rep := report.Reputation
	if rep == nil {
		return
	}

	md.H2("Domain Reputation")
	md.PlainText("")
	switch rep.Source {
	case model.ReputationBlacklist:
		md.Warningf("`%s` is a known misinformation source (%.0f%% confidence).",
			rep.Domain, rep.Confidence*100)
	case model.ReputationWhitelist:
		md.Note(fmt.Sprintf("`%s` is a recognized trusted source.", rep.Domain))
	default:
		md.PlainTextf("`%s` appears on neither the trusted nor the misinformation list.", rep.Domain)
	}
	md.PlainText("")
}

// writeResults writes the per-item verdict section.
func (w *MarkdownWriter) writeResults(md *markdown.Markdown, report *model.PageReport) {
	record := report.Record
	if record == nil {
		return
	}

	if record.FakeCount() == 0 {
		if record.Clean() {
			md.Tip("Everything checked on this page looks authentic.")
			md.PlainText("")
		}
		return
	}

	md.H2("Suspicious Content")
	md.PlainText("")

	rows := make([][]string, 0, len(record.Results))
	for _, result := range record.Results {
		rows = append(rows, []string{
			string(result.Kind),
			fmt.Sprintf("%.0f%%", result.Confidence*100),
			result.SourceRef,
			firstLine(result.Analysis),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Confidence", "Location", "Analysis"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainTextf("*Report generated by [verifyscan](https://github.com/verifyhq/verifyscan)*")
}
