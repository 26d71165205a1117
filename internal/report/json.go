package report

import (
	"encoding/json"
	"io"

	"github.com/verifyhq/verifyscan/internal/model"
)

// JSONWriter outputs the full report as indented JSON.
// This format is intended for machine consumption and archival.
type JSONWriter struct {
	baseWriter
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer) *JSONWriter {
	return &JSONWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the report in JSON format.
func (w *JSONWriter) Write(report *model.PageReport) (int, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}
