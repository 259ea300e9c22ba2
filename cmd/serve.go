package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/snapsite/snapsite/internal/api"
)

// newServeCmd creates the 'serve' subcommand, a preview server over the
// generated output directory.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serves the generated output directory",
		RunE:  runServe,
	}
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	outputDir := viper.GetString("output_dir")
	addr := viper.GetString("serve.addr")

	server := api.NewServer(outputDir, logger)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-cmd.Context().Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("serving generated site",
		zap.String("addr", addr),
		zap.String("output_dir", outputDir),
	)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
