package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/inpost-airmap/internal/config"
	"github.com/Sternrassler/inpost-airmap/pkg/logging"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "airmap",
		Short: "Render InPost air-quality sensors on a map",
		Long: `airmap collects every page of the InPost points API, keeps the lockers
that report an air quality index and publishes a Leaflet map of them to
S3, Google Cloud Storage, MinIO or a local directory.

Configuration is read from config.yaml (or --config) and AIRMAP_* environment
variables. INPOST_API_TOKEN and S3_BUCKET_NAME are honoured as well.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Configuration file path (default: ./config.yaml or ./config/config.yaml)")
	cmd.PersistentFlags().String("log-level", "", "Override log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "", "Override log format (json, console)")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads and validates configuration and sets up logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		cfg.Log.Format = format
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}
