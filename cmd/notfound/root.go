package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/notfound/pkg/cli"
	"mercator-hq/notfound/pkg/config"
	"mercator-hq/notfound/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "notfound",
	Short: "notfound - not-found interception for web sites",
	Long: `notfound sits in front of a site and handles its 404 responses.

For every genuine not-found request it either:
  - issues a permanent redirect when a saved redirect record matches, or
  - records the miss and serves the fallback page with status 404.

Static assets, local requests in RemoteOnly mode and requests for the
fallback page itself are left alone.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadConfig reads the configuration file named by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.WrapConfigError("", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. A non-nil w replaces stdout unless the
// configuration names a log file.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, io.Closer, error) {
	lc := logging.FromConfig(cfg.Telemetry.Logging)
	if verbose {
		lc.Level = "debug"
	}
	lc.Writer = w

	logger, closer, err := logging.New(lc)
	if err != nil {
		return nil, nil, cli.WrapConfigError("telemetry.logging", err)
	}
	return logger, closer, nil
}

// commandLogger is the logger of the maintenance commands. It writes to
// stderr so that stdout carries only command output.
func commandLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, io.Closer, error) {
	c := *cfg
	c.Telemetry.Logging.File = ""
	if !verbose {
		c.Telemetry.Logging.Level = "warn"
	}
	c.Telemetry.Logging.Format = string(logging.FormatConsole)
	return newLogger(&c, cmd.ErrOrStderr())
}

// outputFormatter resolves a --format flag.
func outputFormatter(format string) (cli.Formatter, error) {
	f, err := cli.ParseOutputFormat(format)
	if err != nil {
		return nil, err
	}
	return cli.NewFormatter(f), nil
}
