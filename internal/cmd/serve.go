package cmd

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mcp-baby-meals/internal/server"
)

var (
	serveTransport string
	serveHost      string
	servePort      int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP tool server",
	Long: `Serve the meal log tools.

With the http transport, tool calls are POSTed to /, MCP clients connect over
SSE on /sse, prometheus metrics are on /metrics and /healthz reports liveness.
With the stdio transport the MCP session runs on stdin and stdout.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveTransport, "transport", "t", "", "Transport: http or stdio (overrides config)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host address (overrides config)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port for HTTP transport (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveTransport != "" {
		cfg.Server.Transport = serveTransport
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	srv, err := server.NewMealLogServer(cfg, server.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case serveErr = <-errCh:
		if serveErr != nil {
			logger.Error("server error", slog.Any("error", serveErr))
		}
	}

	logger.Info("shutting down")
	if err := srv.Stop(); err != nil {
		return fmt.Errorf("error during shutdown: %w", err)
	}
	return serveErr
}
