// Package cmd defines and implements the CLI commands for the snapsite
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/snapsite/snapsite/internal/config"
	"github.com/snapsite/snapsite/internal/logging"
	"github.com/snapsite/snapsite/internal/metrics"
)

var (
	cfgFile string
	logger  = zap.NewNop()
)

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapsite",
		Short: "Statically materializes a dynamically rendered site.",
		Long: `snapsite crawls a set of seed routes through an in-process renderer,
writes each rendered route into the output directory, and publishes a
sitemap describing the generated set.`,

		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if cfgFile != "" {
				viper.SetConfigFile(cfgFile)
			}
			if err := config.Init(); err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			l, err := logging.New(viper.GetBool("development"))
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			logger = l
			metrics.Init()
			return nil
		},

		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = logger.Sync()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./snapsite.yaml)")

	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Error("command failed", zap.Error(err))
		_ = logger.Sync()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
