package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/conradoqg/statuspage-dashboard/internal/config"
	"github.com/conradoqg/statuspage-dashboard/internal/logx"
	"github.com/conradoqg/statuspage-dashboard/internal/model"
	"github.com/conradoqg/statuspage-dashboard/internal/refresh"
	"github.com/conradoqg/statuspage-dashboard/internal/source"
)

var version = "dev"

type globalFlags struct {
	configPath string
	listen     string
	sourceURL  string
	mode       string
	logLevel   string
}

func main() {
	// .env is optional
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logx.Warnf("failed to load .env: %v", err)
	}
	if err := newRootCmd().Execute(); err != nil {
		logx.Errorf("%v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var gf globalFlags
	root := &cobra.Command{
		Use:           "statuspage-dashboard",
		Short:         "Reliability dashboard backend for AI provider status data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&gf.configPath, "config", "config.yaml", "Path to config YAML")
	root.PersistentFlags().StringVar(&gf.sourceURL, "source-url", "", "Base URL of the data source (overrides config)")
	root.PersistentFlags().StringVar(&gf.mode, "mode", "", "Source mode: api|static (overrides config)")
	root.PersistentFlags().StringVar(&gf.logLevel, "log-level", "", "Log level: debug|info|warn|error (overrides config)")

	serve := newServeCmd(&gf)
	serve.Flags().StringVar(&gf.listen, "listen", "", "Listen address (overrides config)")

	root.AddCommand(serve, newSnapshotCmd(&gf), newVersionCmd())
	return root
}

// loadConfig resolves file, environment and flags, in increasing priority.
func loadConfig(gf *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(gf.configPath, gf.sourceURL != "" || os.Getenv(config.EnvPrefix+"SOURCE_URL") != "")
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", gf.configPath, err)
	}
	if gf.listen != "" {
		cfg.Server.Listen = gf.listen
	}
	if gf.sourceURL != "" {
		cfg.Source.BaseURL = strings.TrimRight(gf.sourceURL, "/")
	}
	if gf.mode != "" {
		cfg.Source.Mode = strings.ToLower(strings.TrimSpace(gf.mode))
	}
	if gf.logLevel != "" {
		cfg.Common.LogLevel = gf.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logx.SetLevelFromString(cfg.Common.LogLevel)
	return cfg, nil
}

func newController(cfg *config.Config) *refresh.Controller {
	return refresh.New(source.FromConfig(cfg.Source), refresh.Options{
		Interval:           cfg.Refresh.Interval,
		Timeout:            cfg.Source.Timeout,
		IncidentLimit:      cfg.Refresh.IncidentLimit,
		IncidentFetchLimit: cfg.Refresh.IncidentFetchLimit,
		StaleAfter:         cfg.Refresh.StaleAfter,
		Period:             model.Period(cfg.Refresh.Period),
	})
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
