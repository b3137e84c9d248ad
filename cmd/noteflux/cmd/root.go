// Package cmd implements the noteflux CLI: indexing, search, the ask
// shortcut, and the optional HTTP server, all built on top of the same
// config-driven wiring (see app.go).
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const Version = "0.1.0"

var configFile string

// NewRootCmd builds the noteflux root command and registers every subcommand.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "noteflux",
		Short:   "Search and ask questions over your work and personal markdown vaults",
		Version: Version,
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file (overrides NOTEFLUX_CONFIG_FILE)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			if err := os.Setenv("NOTEFLUX_CONFIG_FILE", configFile); err != nil {
				return fmt.Errorf("set config file env: %w", err)
			}
		}
		return nil
	}

	root.AddCommand(newIndexCmd())
	root.AddCommand(newSearchCmd())
	root.AddCommand(newAskCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newPersonCmd())

	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
