package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/verity/internal/pipeline"
	"github.com/ppiankov/verity/internal/server"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve exposes claim evaluation and the news gallery over HTTP:
  POST /api/verify         {"newsText": "..."}  score a claim
  GET  /api/news-gallery   ?page=1&per_page=10  read the gallery
  GET  /healthz                                 liveness
  GET  /metrics                                 prometheus metrics

The gallery is populated in the background on startup and refreshed
whenever a read finds it stale.

Example:
  verity serve
  verity serve --addr :9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := pipeline.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer func() { _ = p.Close() }()

	// First read starts the initial population
	_ = p.Gallery().GetPage(1, cfg.Gallery.DefaultPageSize)

	srv := server.New(p, p.Gallery(), logger)
	if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}
