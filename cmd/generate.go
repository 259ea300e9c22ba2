package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/snapsite/snapsite/internal/clock/system"
	"github.com/snapsite/snapsite/internal/prerender"
	"github.com/snapsite/snapsite/internal/renderer"
	"github.com/snapsite/snapsite/internal/sitemap"
	"github.com/snapsite/snapsite/internal/storage/local"
)

// newGenerateCmd creates the 'generate' subcommand, which runs a full
// prerender crawl followed by sitemap aggregation.
func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Renders the configured routes into the output directory",
		Long: `Crawls the configured seed routes (and, when enabled, links discovered
in rendered HTML), writes each rendered route under the output directory,
and publishes a sitemap plus a JSON manifest for the rendered set.`,

		RunE: runGenerate,
	}
	return cmd
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	v := viper.GetViper()

	cfg, err := prerender.LoadConfig(v)
	if err != nil {
		return fmt.Errorf("load prerender config: %w", err)
	}

	writer, err := local.NewWriter(v.GetString("output_dir"))
	if err != nil {
		return fmt.Errorf("open output directory: %w", err)
	}

	baseURL := v.GetString("renderer.base_url")
	if baseURL == "" {
		return errors.New("renderer.base_url must point at the running server bundle")
	}
	rend, err := renderer.NewHTTP(baseURL, v.GetDuration("renderer.timeout"))
	if err != nil {
		return fmt.Errorf("build renderer: %w", err)
	}

	engine, err := prerender.NewEngine(cfg, rend, writer, logger)
	if err != nil {
		return err
	}

	pages, err := engine.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("prerender: %w", err)
	}

	smCfg := sitemap.LoadConfig(v)
	if smCfg.Enabled {
		agg := sitemap.NewAggregator(smCfg, writer, system.New(), logger)
		if err := agg.Publish(cmd.Context(), engine.RunID(), pages); err != nil {
			return fmt.Errorf("publish sitemap: %w", err)
		}
	}
	return nil
}
