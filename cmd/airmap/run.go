package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Generate and publish the map once",
		Long: `Run performs a single map generation and prints the status envelope
(statusCode, headers, body) as JSON to stdout. The exit code is non-zero when
the envelope carries a failure.`,
		Args: cobra.NoArgs,
		RunE: runRunCmd,
	}
}

func runRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	d, err := buildDeps(cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	result, runErr := d.job.Run(cmd.Context())
	env := envelopeFor(cfg, result, runErr)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(env); err != nil {
		return fmt.Errorf("write envelope: %w", err)
	}

	if env.StatusCode != http.StatusOK {
		return fmt.Errorf("map generation failed with status %d", env.StatusCode)
	}
	return nil
}
