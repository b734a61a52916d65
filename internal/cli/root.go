// Package cli implements the reggie command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"reggie/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand creates the root command for the reggie CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "reggie",
		Short: "Reggie - registered message publisher",
		Long: `Reggie accepts REST requests, decodes each payload into a registered
message type and publishes it to a pub/sub topic. It also stores scenarios and
message samples and can replay scenarios.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to config file (defaults plus REGGIE_* env when empty)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTypesCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewTailCommand(opts))

	return cmd
}

func (o *RootOptions) load() (*config.Config, error) {
	cfg, err := config.LoadConfig(o.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
