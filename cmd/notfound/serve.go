package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"mercator-hq/notfound/pkg/cli"
	"mercator-hq/notfound/pkg/config"
	"mercator-hq/notfound/pkg/server"
)

var serveFlags struct {
	listenAddress string
	logLevel      string
	watchConfig   bool
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the not-found handler in front of the site",
	Long: `Start the HTTP server with the specified configuration.

The site is served from server.content_dir, or reverse proxied to
server.upstream when set. Its 404 responses and not-found errors are
redirected or answered with the fallback page.

Send SIGHUP to reload the configuration file and the static redirect list.
Only handler.logging takes effect without a restart.

Examples:
  # Start with default config
  notfound serve

  # Start with custom config and reload it when it changes
  notfound serve --config /etc/notfound/config.yaml --watch-config

  # Override listen address
  notfound serve --listen 0.0.0.0:8080

  # Validate config without starting server
  notfound serve --dry-run`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&serveFlags.watchConfig, "watch-config", false, "reload the config file when it changes")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveFlags.dryRun {
		if _, err := loadConfig(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "configuration valid")
		return nil
	}

	if err := config.Initialize(cfgFile); err != nil {
		return &cli.ConfigError{Message: "failed to load config", Err: err}
	}
	// Flag overrides apply to this process only; reloads keep the file's view.
	cfg := *config.GetConfig()
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}
	if serveFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = serveFlags.logLevel
	}

	logger, closer, err := newLogger(&cfg, nil)
	if err != nil {
		return err
	}
	defer closer.Close()
	slog.SetDefault(logger)

	app, err := server.NewApp(&cfg, server.AppOptions{
		ConfigPath:  cfgFile,
		WatchConfig: serveFlags.watchConfig,
		Version:     Version,
		Commit:      GitCommit,
		BuildTime:   BuildDate,
		Logger:      logger,
	})
	if err != nil {
		return cli.NewCommandError("serve", err)
	}

	ctx, stop := cli.SetupSignalHandler()
	defer stop()
	go reloadOnSignal(ctx, app, logger)

	if err := app.Run(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	logger.Info("shutdown complete")
	return nil
}

// reloadOnSignal re-reads the configuration and the redirect list on SIGHUP
// until ctx is done.
func reloadOnSignal(ctx context.Context, app *server.App, logger *slog.Logger) {
	reload, stop := cli.NotifyReload()
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-reload:
			logger.Info("reload requested")
			if err := app.ReloadConfig(); err != nil {
				logger.Error("config reload failed", "error", err)
			}
			if err := app.ReloadRedirects(); err != nil {
				logger.Error("redirects reload failed", "error", err)
			}
		}
	}
}
