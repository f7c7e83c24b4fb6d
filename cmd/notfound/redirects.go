package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/notfound/pkg/cli"
	"mercator-hq/notfound/pkg/config"
	"mercator-hq/notfound/pkg/interceptor"
	"mercator-hq/notfound/pkg/redirects"
	"mercator-hq/notfound/pkg/settings"
)

var redirectsFlags struct {
	format     string
	remoteAddr string
	referrer   string
	database   string
	quiet      bool
}

var redirectsCmd = &cobra.Command{
	Use:   "redirects",
	Short: "Inspect and load redirect records",
	Long: `Work with the redirect stores used by the service.

Subcommands:
  check   - Show what the handler would do with a 404 on a URL
  import  - Load a YAML redirect list into the provider database`,
}

var redirectsCheckCmd = &cobra.Command{
	Use:   "check <url>",
	Short: "Show the decision for a not-found URL",
	Long: `Run the handler's decision for a 404 on the given URL against the
configured static list and provider, without logging a miss.

A path is resolved against server.site_url, or http://localhost when unset.

Examples:
  notfound redirects check /old/page
  notfound redirects check "https://www.example.com/Old/Page?id=3" --format json`,
	Args: cobra.ExactArgs(1),
	RunE: checkRedirect,
}

var redirectsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load redirect records into the provider database",
	Long: `Read a redirect list in the static file format and upsert every record
into the provider database (redirects.provider.path, or --db).

Existing records with the same old URL are replaced.

Example:
  notfound redirects import legacy-redirects.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: importRedirects,
}

func init() {
	rootCmd.AddCommand(redirectsCmd)
	redirectsCmd.AddCommand(redirectsCheckCmd, redirectsImportCmd)

	redirectsCheckCmd.Flags().StringVar(&redirectsFlags.format, "format", "text", "output format: text, json")
	redirectsCheckCmd.Flags().StringVar(&redirectsFlags.remoteAddr, "remote-addr", "192.0.2.1", "client address, for RemoteOnly mode")
	redirectsCheckCmd.Flags().StringVar(&redirectsFlags.referrer, "referrer", "", "referrer of the request")

	redirectsImportCmd.Flags().StringVar(&redirectsFlags.database, "db", "", "provider database (default: redirects.provider.path)")
	redirectsImportCmd.Flags().BoolVarP(&redirectsFlags.quiet, "quiet", "q", false, "no progress output")
}

// checkResult describes the lookup and the decision for one URL.
type checkResult struct {
	URL     string       `json:"url"`
	Record  *checkRecord `json:"record,omitempty"`
	Outcome string       `json:"outcome"`
	Action  string       `json:"action"`
	Target  string       `json:"target,omitempty"`
}

type checkRecord struct {
	OldURL string `json:"old_url"`
	NewURL string `json:"new_url"`
	State  string `json:"state"`
	Origin string `json:"origin"`
}

func (r checkResult) Headers() []string { return nil }

func (r checkResult) Rows() [][]string {
	rows := [][]string{{"url:", r.URL}}
	if r.Record != nil {
		rows = append(rows,
			[]string{"record:", fmt.Sprintf("%s -> %s (%s, %s)", r.Record.OldURL, r.Record.NewURL, r.Record.State, r.Record.Origin)},
		)
	} else {
		rows = append(rows, []string{"record:", "none"})
	}
	rows = append(rows,
		[]string{"outcome:", r.Outcome},
		[]string{"action:", r.Action},
	)
	if r.Target != "" {
		rows = append(rows, []string{"target:", r.Target})
	}
	return rows
}

func checkRedirect(cmd *cobra.Command, args []string) error {
	formatter, err := outputFormatter(redirectsFlags.format)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closer, err := commandLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	target, err := checkURL(args[0], cfg.Server.SiteURL)
	if err != nil {
		return err
	}

	resolver := settings.NewResolver(settings.NewStaticConfigSource(cfg), logger)
	s := resolver.Snapshot()
	store, closeStore, err := openStore(cfg, s.RedirectsFile, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := cmd.Context()

	result := checkResult{URL: target.String()}
	if rec := interceptor.NewResolver(store).Lookup(ctx, target); rec != nil {
		result.Record = &checkRecord{
			OldURL: rec.OldURL,
			NewURL: rec.NewURL,
			State:  rec.State.String(),
			Origin: rec.Origin.String(),
		}
	}

	engine := interceptor.NewEngine(s, resolver.LoggingMode, store, nil, interceptor.Options{Logger: logger})
	d := engine.Decide(ctx, interceptor.RequestContext{
		URL:        target,
		Referrer:   redirectsFlags.referrer,
		StatusCode: http.StatusNotFound,
		RawQuery:   target.RawQuery,
		RemoteAddr: redirectsFlags.remoteAddr,
	})
	result.Outcome = d.Outcome.String()
	result.Action = d.Action.String()
	result.Target = d.Target

	return formatter.FormatTo(cmd.OutOrStdout(), result)
}

// checkURL turns the argument of redirects check into an absolute URL.
func checkURL(raw, siteURL string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.IsAbs() {
		return u, nil
	}
	if siteURL == "" {
		siteURL = "http://localhost"
	}
	base, err := url.Parse(siteURL)
	if err != nil {
		return nil, cli.WrapConfigError("server.site_url", err)
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return base.Parse(raw)
}

// openStore opens the static list and, when enabled, the provider.
func openStore(cfg *config.Config, file string, logger *slog.Logger) (*redirects.Store, func(), error) {
	static := redirects.NewFileStore(file, logger)
	if err := static.Load(); err != nil {
		return nil, nil, cli.WrapConfigError("redirects.file", err)
	}

	closeFn := func() {}
	var provider redirects.Provider
	if pc := cfg.Redirects.Provider; pc.Enabled {
		p, err := redirects.OpenSQLProvider(redirects.SQLProviderConfig{Path: pc.Path})
		if err != nil {
			return nil, nil, cli.NewCommandError("redirects", err)
		}
		provider = p
		closeFn = func() { _ = p.Close() }
	}
	return redirects.NewStore(static, provider, nil, logger), closeFn, nil
}

func importRedirects(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closer, err := commandLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	path := redirectsFlags.database
	if path == "" {
		path = cfg.Redirects.Provider.Path
	}
	if path == "" {
		return cli.NewConfigError("redirects.provider.path", "no provider database configured")
	}

	source := redirects.NewFileStore(args[0], logger)
	if err := source.Load(); err != nil {
		return cli.NewCommandError("redirects import", err)
	}
	records := source.Records()
	if len(records) == 0 {
		return cli.NewCommandError("redirects import", fmt.Errorf("%s has no redirect records", args[0]))
	}

	provider, err := redirects.OpenSQLProvider(redirects.SQLProviderConfig{Path: path})
	if err != nil {
		return cli.NewCommandError("redirects import", err)
	}
	defer provider.Close()

	ctx := cmd.Context()

	progress := cli.NewProgress(cmd.ErrOrStderr(), "importing", redirectsFlags.quiet)
	progress.Start(int64(len(records)))
	for _, rec := range records {
		if err := provider.Upsert(ctx, rec); err != nil {
			progress.Fail(err)
			return cli.NewCommandError("redirects import", err)
		}
		progress.Add(1)
	}
	progress.Finish()

	total, err := provider.Count(ctx)
	if err != nil {
		return cli.NewCommandError("redirects import", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d redirects into %s (%d total)\n", len(records), path, total)
	return nil
}
