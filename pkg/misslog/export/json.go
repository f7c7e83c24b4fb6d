package export

import (
	"context"
	"encoding/json"
	"io"

	"mercator-hq/notfound/pkg/misslog"
)

// JSONExporter writes a JSON array.
type JSONExporter struct {
	// Pretty enables indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes misses as a JSON array. An empty input yields "[]".
func (e *JSONExporter) Export(ctx context.Context, misses []*misslog.Miss, w io.Writer) error {
	if misses == nil {
		misses = []*misslog.Miss{}
	}
	return e.write(ctx, misses, len(misses), w)
}

// ExportSummaries writes summaries as a JSON array.
func (e *JSONExporter) ExportSummaries(ctx context.Context, summaries []*misslog.Summary, w io.Writer) error {
	if summaries == nil {
		summaries = []*misslog.Summary{}
	}
	return e.write(ctx, summaries, len(summaries), w)
}

func (e *JSONExporter) write(ctx context.Context, v any, count int, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return &misslog.ExportError{Format: "json", Count: count, Cause: err}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if e.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return &misslog.ExportError{Format: "json", Count: count, Cause: err}
	}
	return nil
}
