package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/notfound/pkg/cli"
	"mercator-hq/notfound/pkg/redirects"
	sectls "mercator-hq/notfound/pkg/security/tls"
	"mercator-hq/notfound/pkg/server"
	"mercator-hq/notfound/pkg/settings"
)

var validateFlags struct {
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration file, resolve the handler settings and check
that the site, the static redirect list and the TLS certificate can be
opened.

Handler settings that cannot be parsed are reported as warnings and fall
back to their defaults, exactly as the running service would.

Examples:
  notfound validate --config /etc/notfound/config.yaml
  notfound validate --format json`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json")
}

// validateReport summarizes the effective configuration.
type validateReport struct {
	Config            string   `json:"config"`
	HandlerMode       string   `json:"handler_mode"`
	Logging           string   `json:"logging"`
	FileNotFoundPage  string   `json:"file_not_found_page"`
	IgnoredExtensions []string `json:"ignored_extensions"`
	BufferSize        int      `json:"buffer_size"`
	Threshold         int      `json:"threshold"`
	RedirectsFile     string   `json:"redirects_file"`
	Redirects         int      `json:"redirects"`
	Provider          bool     `json:"provider"`
	Site              string   `json:"site"`
	TLS               string   `json:"tls"`
	MissLogBackend    string   `json:"misslog_backend"`
}

func (r validateReport) Headers() []string { return []string{"SETTING", "VALUE"} }

func (r validateReport) Rows() [][]string {
	return [][]string{
		{"config", r.Config},
		{"handler_mode", r.HandlerMode},
		{"logging", r.Logging},
		{"file_not_found_page", r.FileNotFoundPage},
		{"ignored_extensions", strings.Join(r.IgnoredExtensions, ",")},
		{"buffer_size", strconv.Itoa(r.BufferSize)},
		{"threshold", strconv.Itoa(r.Threshold)},
		{"redirects_file", r.RedirectsFile},
		{"redirects", strconv.Itoa(r.Redirects)},
		{"provider", strconv.FormatBool(r.Provider)},
		{"site", r.Site},
		{"tls", r.TLS},
		{"misslog_backend", r.MissLogBackend},
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	formatter, err := outputFormatter(validateFlags.format)
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

	resolver := settings.NewResolver(settings.NewStaticConfigSource(cfg), logger)
	s := resolver.Snapshot()

	static := redirects.NewFileStore(s.RedirectsFile, logger)
	if err := static.Load(); err != nil {
		return cli.WrapConfigError("redirects.file", err)
	}

	if _, err := server.NewSite(&cfg.Server, logger); err != nil {
		return cli.WrapConfigError("server", err)
	}
	site := cfg.Server.ContentDir
	if cfg.Server.Upstream != "" {
		site = cfg.Server.Upstream
		if u, err := url.Parse(site); err == nil {
			site = u.Redacted()
		}
	}

	tlsStatus := "off"
	if tc := cfg.Server.TLS; tc.Enabled {
		certs := sectls.NewCertificateReloader(tc.CertFile, tc.KeyFile, tc.Interval(), logger)
		if err := certs.Load(); err != nil {
			return cli.WrapConfigError("server.tls", err)
		}
		days, _ := sectls.CheckCertificateExpiration(certs.GetCertificate().Leaf, time.Now())
		tlsStatus = fmt.Sprintf("on (certificate expires in %d days)", days)
	}

	report := validateReport{
		Config:            cfgFile,
		HandlerMode:       s.HandlerMode.String(),
		Logging:           resolver.LoggingMode().String(),
		FileNotFoundPage:  s.FileNotFoundPage,
		IgnoredExtensions: s.IgnoredExtensions,
		BufferSize:        s.BufferSize,
		Threshold:         s.Threshold,
		RedirectsFile:     s.RedirectsFile,
		Redirects:         static.Len(),
		Provider:          cfg.Redirects.Provider.Enabled,
		Site:              site,
		TLS:               tlsStatus,
		MissLogBackend:    cfg.MissLog.Backend,
	}
	if err := formatter.FormatTo(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	if validateFlags.format != "json" {
		fmt.Fprintln(cmd.OutOrStdout(), "configuration valid")
	}
	return nil
}
