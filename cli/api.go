package cli

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/refacekit/leadops/engine/infra/server"
	"github.com/refacekit/leadops/pkg/config"
	"github.com/refacekit/leadops/pkg/logger"
)

const productionEnvironment = "production"

// APICmd serves the upload API.
func APICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "api",
		Aliases: []string{"server"},
		Short:   "Serve the CSV ingestion API",
		RunE:    runAPI,
	}
	cmd.Flags().String("host", "", "Address to bind the HTTP server to")
	cmd.Flags().Int("port", 0, "Port to bind the HTTP server to")
	return cmd
}

func runAPI(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	if cfg.Runtime.Environment == productionEnvironment {
		gin.SetMode(gin.ReleaseMode)
	}
	logger.FromContext(ctx).Info("Starting ingestion API",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"queue", cfg.Queue.Name,
	)
	srv, err := server.NewServer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Run(ctx)
}
