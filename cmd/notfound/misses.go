package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/notfound/pkg/cli"
	"mercator-hq/notfound/pkg/config"
	"mercator-hq/notfound/pkg/misslog"
	"mercator-hq/notfound/pkg/misslog/export"
	"mercator-hq/notfound/pkg/misslog/retention"
	"mercator-hq/notfound/pkg/misslog/storage"
)

var missesFlags struct {
	backend    string
	since      string
	until      string
	pathPrefix string
	offset     int
	listLimit  int
	sumLimit   int
	expLimit   int
	listFormat string
	sumFormat  string
	expFormat  string
	output     string
	summary    bool
	pretty     bool
	days       int
	maxRecords int64
}

var missesCmd = &cobra.Command{
	Use:   "misses",
	Short: "Query the miss log",
	Long: `Query, export and prune the log of not-found requests that had no
redirect and were answered with the fallback page.

Subcommands:
  list     - List misses, newest first
  summary  - Count misses per path, most frequent first
  export   - Write misses or summaries as JSON or CSV
  prune    - Apply the retention policy now

Time Filters:
  --since and --until take an RFC3339 time or a duration back from now.
  Example: --since 24h, --since 2026-01-01T00:00:00Z`,
}

var missesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List misses",
	Long: `List recorded misses, newest first.

Examples:
  notfound misses list --since 24h
  notfound misses list --path-prefix /blog/ --limit 20 --format json`,
	Args: cobra.NoArgs,
	RunE: listMisses,
}

var missesSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Count misses per path",
	Long: `Group misses by path, most frequent first. The paths at the top are
the best candidates for new redirect records.

Example:
  notfound misses summary --since 168h --limit 25`,
	Args: cobra.NoArgs,
	RunE: summarizeMisses,
}

var missesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export misses as JSON or CSV",
	Long: `Write misses, or per-path summaries with --summary, to a file or stdout.

Examples:
  notfound misses export --format csv --output misses.csv
  notfound misses export --summary --format json --pretty`,
	Args: cobra.NoArgs,
	RunE: exportMisses,
}

var missesPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete misses beyond the retention policy",
	Long: `Delete misses older than misslog.retention.days and the oldest misses
beyond misslog.retention.max_records. Flags override the configured values.

Example:
  notfound misses prune --days 7`,
	Args: cobra.NoArgs,
	RunE: pruneMisses,
}

func init() {
	rootCmd.AddCommand(missesCmd)
	missesCmd.AddCommand(missesListCmd, missesSummaryCmd, missesExportCmd, missesPruneCmd)

	missesCmd.PersistentFlags().StringVar(&missesFlags.backend, "backend", "", "backend: sqlite, redis (uses config if not specified)")

	for _, c := range []*cobra.Command{missesListCmd, missesSummaryCmd, missesExportCmd} {
		c.Flags().StringVar(&missesFlags.since, "since", "", "only misses at or after this time")
		c.Flags().StringVar(&missesFlags.until, "until", "", "only misses at or before this time")
		c.Flags().StringVar(&missesFlags.pathPrefix, "path-prefix", "", "only paths starting with this prefix")
		c.Flags().IntVar(&missesFlags.offset, "offset", 0, "pagination offset")
	}
	missesListCmd.Flags().IntVar(&missesFlags.listLimit, "limit", misslog.DefaultQueryLimit, "max results")
	missesSummaryCmd.Flags().IntVar(&missesFlags.sumLimit, "limit", misslog.DefaultQueryLimit, "max results")
	missesExportCmd.Flags().IntVar(&missesFlags.expLimit, "limit", -1, "max results (-1 for all)")

	missesListCmd.Flags().StringVar(&missesFlags.listFormat, "format", "text", "output format: text, json")
	missesSummaryCmd.Flags().StringVar(&missesFlags.sumFormat, "format", "text", "output format: text, json")
	missesExportCmd.Flags().StringVar(&missesFlags.expFormat, "format", "json", "export format: json, csv")
	missesExportCmd.Flags().StringVarP(&missesFlags.output, "output", "o", "", "output file (default: stdout)")
	missesExportCmd.Flags().BoolVar(&missesFlags.summary, "summary", false, "export per-path summaries")
	missesExportCmd.Flags().BoolVar(&missesFlags.pretty, "pretty", false, "indent JSON output")

	missesPruneCmd.Flags().IntVar(&missesFlags.days, "days", -1, "retention in days (default: misslog.retention.days)")
	missesPruneCmd.Flags().Int64Var(&missesFlags.maxRecords, "max-records", -1, "records to keep (default: misslog.retention.max_records)")
}

// openMissLog opens the configured miss log backend. The memory backend is
// refused because it would always be empty in a new process.
func openMissLog() (*config.Config, misslog.Storage, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	mc := cfg.MissLog
	if missesFlags.backend != "" {
		mc.Backend = missesFlags.backend
	}
	if mc.Backend == "memory" {
		return nil, nil, cli.NewConfigError("misslog.backend", "the memory backend cannot be queried from the command line")
	}

	store, err := storage.New(mc)
	if err != nil {
		return nil, nil, cli.NewCommandError("misses", err)
	}
	return cfg, store, nil
}

// missQuery builds the query from the filter flags.
func missQuery(limit int, now time.Time) (*misslog.Query, error) {
	q := &misslog.Query{
		PathPrefix: missesFlags.pathPrefix,
		Limit:      limit,
		Offset:     missesFlags.offset,
	}
	if missesFlags.since != "" {
		t, err := parseTimeFlag(missesFlags.since, now)
		if err != nil {
			return nil, fmt.Errorf("invalid --since: %w", err)
		}
		q.Since = &t
	}
	if missesFlags.until != "" {
		t, err := parseTimeFlag(missesFlags.until, now)
		if err != nil {
			return nil, fmt.Errorf("invalid --until: %w", err)
		}
		q.Until = &t
	}
	if q.Since != nil && q.Until != nil && q.Until.Before(*q.Since) {
		return nil, fmt.Errorf("--until is before --since")
	}
	return q, nil
}

// parseTimeFlag accepts an RFC3339 time or a duration counted back from now.
func parseTimeFlag(s string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("negative duration %q", s)
		}
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither an RFC3339 time nor a duration", s)
	}
	return t, nil
}

// missTable renders misses in text output.
type missTable []*misslog.Miss

func (t missTable) Headers() []string { return []string{"REQUESTED_AT", "PATH", "REFERRER"} }

func (t missTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, m := range t {
		rows = append(rows, []string{m.RequestedAt.UTC().Format(time.RFC3339), m.Path, m.Referrer})
	}
	return rows
}

// summaryTable renders summaries in text output.
type summaryTable []*misslog.Summary

func (t summaryTable) Headers() []string { return []string{"COUNT", "LAST_SEEN", "PATH"} }

func (t summaryTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, s := range t {
		rows = append(rows, []string{strconv.FormatInt(s.Count, 10), s.LastSeen.UTC().Format(time.RFC3339), s.Path})
	}
	return rows
}

func listMisses(cmd *cobra.Command, args []string) error {
	formatter, err := outputFormatter(missesFlags.listFormat)
	if err != nil {
		return err
	}
	q, err := missQuery(missesFlags.listLimit, time.Now())
	if err != nil {
		return err
	}
	_, store, err := openMissLog()
	if err != nil {
		return err
	}
	defer store.Close()

	misses, err := store.Query(cmd.Context(), q)
	if err != nil {
		return cli.NewCommandError("misses list", err)
	}
	return formatter.FormatTo(cmd.OutOrStdout(), missTable(misses))
}

func summarizeMisses(cmd *cobra.Command, args []string) error {
	formatter, err := outputFormatter(missesFlags.sumFormat)
	if err != nil {
		return err
	}
	q, err := missQuery(missesFlags.sumLimit, time.Now())
	if err != nil {
		return err
	}
	_, store, err := openMissLog()
	if err != nil {
		return err
	}
	defer store.Close()

	summaries, err := store.Summarize(cmd.Context(), q)
	if err != nil {
		return cli.NewCommandError("misses summary", err)
	}
	return formatter.FormatTo(cmd.OutOrStdout(), summaryTable(summaries))
}

func exportMisses(cmd *cobra.Command, args []string) (err error) {
	exporter, err := export.New(missesFlags.expFormat, missesFlags.pretty)
	if err != nil {
		return err
	}
	q, err := missQuery(missesFlags.expLimit, time.Now())
	if err != nil {
		return err
	}
	_, store, err := openMissLog()
	if err != nil {
		return err
	}
	defer store.Close()

	var w io.Writer = cmd.OutOrStdout()
	if missesFlags.output != "" {
		f, err := os.Create(missesFlags.output)
		if err != nil {
			return cli.NewCommandError("misses export", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cli.NewCommandError("misses export", cerr)
			}
		}()
		w = f
	}

	ctx := cmd.Context()
	if missesFlags.summary {
		summaries, err := store.Summarize(ctx, q)
		if err != nil {
			return cli.NewCommandError("misses export", err)
		}
		if err := exporter.ExportSummaries(ctx, summaries, w); err != nil {
			return cli.NewCommandError("misses export", err)
		}
		return nil
	}

	misses, err := store.Query(ctx, q)
	if err != nil {
		return cli.NewCommandError("misses export", err)
	}
	if err := exporter.Export(ctx, misses, w); err != nil {
		return cli.NewCommandError("misses export", err)
	}
	if missesFlags.output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "exported %d misses to %s\n", len(misses), missesFlags.output)
	}
	return nil
}

func pruneMisses(cmd *cobra.Command, args []string) error {
	cfg, store, err := openMissLog()
	if err != nil {
		return err
	}
	defer store.Close()

	logger, closer, err := commandLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	rc := &retention.Config{
		RetentionDays: cfg.MissLog.Retention.Days,
		MaxRecords:    cfg.MissLog.Retention.MaxRecords,
	}
	if missesFlags.days >= 0 {
		rc.RetentionDays = missesFlags.days
	}
	if missesFlags.maxRecords >= 0 {
		rc.MaxRecords = missesFlags.maxRecords
	}
	if rc.RetentionDays == 0 && rc.MaxRecords == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "retention disabled, nothing to prune")
		return nil
	}

	deleted, err := retention.NewPruner(store, rc, logger).Prune(cmd.Context())
	if err != nil {
		return cli.NewCommandError("misses prune", err)
	}
	remaining, err := store.Count(cmd.Context(), &misslog.Query{Limit: -1})
	if err != nil {
		return cli.NewCommandError("misses prune", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %d misses, %d remaining\n", deleted, remaining)
	return nil
}
