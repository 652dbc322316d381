package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vyrodovalexey/avaxform/internal/observability"
)

// Version information (set at build time).
var version = "dev"

type rootOptions struct {
	logLevel string
	logger   observability.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "xformctl",
		Short:         "Run transformation rules and compile schema documents",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := observability.NewLogger(observability.LogConfig{
				Level:  opts.logLevel,
				Format: "console",
				Output: "stderr",
			})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			opts.logger = logger
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(newTransformCmd(opts), newCompileSchemaCmd(opts))
	return root
}
