// Package export writes miss log records and summaries as JSON or CSV.
package export

import (
	"context"
	"fmt"
	"io"

	"mercator-hq/notfound/pkg/misslog"
)

// Exporter writes misses and summaries in one format.
type Exporter interface {
	Export(ctx context.Context, misses []*misslog.Miss, w io.Writer) error
	ExportSummaries(ctx context.Context, summaries []*misslog.Summary, w io.Writer) error
}

// New returns the exporter for format ("json" or "csv").
func New(format string, pretty bool) (Exporter, error) {
	switch format {
	case "json":
		return NewJSONExporter(pretty), nil
	case "csv":
		return NewCSVExporter(true), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (use json or csv)", format)
	}
}
