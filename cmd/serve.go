package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/killallgit/lectra-api/api"
	"github.com/killallgit/lectra-api/pkg/config"
)

var (
	serverHost string
	serverPort int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the Lectra transcription API server with the configured settings.

The server accepts audio uploads, transcribes them with the configured
speech provider and serves the transcription history.

Example:
  lectra-api serve
  lectra-api serve --port 9090
  lectra-api serve --host 0.0.0.0 --port 8080`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server flags
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (overrides config)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (overrides config)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	// Use config values if flags not provided
	host, port := serverHost, serverPort
	if host == "" {
		host = cfg.Server.Host
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	address := fmt.Sprintf("%s:%d", host, port)
	server := api.NewServer(address, serverSettings(cfg))
	server.SetDependencies(app.deps)
	if err := server.Initialize(); err != nil {
		return fmt.Errorf("initializing routes: %w", err)
	}

	if app.sweeper != nil {
		app.sweeper.Start(ctx)
		defer app.sweeper.Stop()
	}

	log.Printf("[INFO] Starting Lectra API server on %s", address)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Wait for interrupt signal or server error
	var runErr error
	select {
	case <-ctx.Done():
		log.Printf("[INFO] Shutting down server...")
	case runErr = <-serverErr:
		log.Printf("[ERROR] %v", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[ERROR] Server forced to shutdown: %v", err)
		return err
	}

	log.Printf("[INFO] Server gracefully stopped")
	return runErr
}
