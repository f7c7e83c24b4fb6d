package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"mercator-hq/notfound/pkg/misslog"
)

// CSVExporter writes comma separated rows.
type CSVExporter struct {
	// IncludeHeader writes a header row first.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Export writes one row per miss.
func (e *CSVExporter) Export(ctx context.Context, misses []*misslog.Miss, w io.Writer) error {
	rows := make([][]string, 0, len(misses))
	for _, m := range misses {
		rows = append(rows, []string{m.ID, m.Path, m.Referrer, formatTime(m.RequestedAt)})
	}
	return e.write(ctx, []string{"id", "path", "referrer", "requested_at"}, rows, w)
}

// ExportSummaries writes one row per path.
func (e *CSVExporter) ExportSummaries(ctx context.Context, summaries []*misslog.Summary, w io.Writer) error {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{s.Path, strconv.FormatInt(s.Count, 10), formatTime(s.LastSeen)})
	}
	return e.write(ctx, []string{"path", "count", "last_seen"}, rows, w)
}

func (e *CSVExporter) write(ctx context.Context, header []string, rows [][]string, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(header); err != nil {
			return &misslog.ExportError{Format: "csv", Count: len(rows), Cause: err}
		}
	}

	for i, row := range rows {
		if i%100 == 0 {
			if err := ctx.Err(); err != nil {
				return &misslog.ExportError{Format: "csv", Count: len(rows), Cause: err}
			}
		}
		if err := writer.Write(row); err != nil {
			return &misslog.ExportError{Format: "csv", Count: len(rows), Cause: err}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return &misslog.ExportError{Format: "csv", Count: len(rows), Cause: err}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
