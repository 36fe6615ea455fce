package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/anujsainicse/cloudflare-tunnel/internal/config"
	httpserver "github.com/anujsainicse/cloudflare-tunnel/internal/interfaces/http"
)

const (
	appName = "tunnelapi"
	version = "v1.0.0"
)

func main() {
	setupLogging()

	var (
		configPath  string
		port        int
		allowedFile string
	)

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Read-only API serving allow-listed options data",
		Version: version,
		Long: `tunnelapi serves derivatives market snapshots from Redis through a
Cloudflare tunnel, restricted to the ticker/date combinations listed in the
allow-list document.`,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			if allowedFile != "" {
				cfg.AllowedTickersFile = allowedFile
			}
			return runServe(cfg)
		},
	}
	serveCmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to the YAML config file")
	serveCmd.Flags().IntVar(&port, "port", 0, "listen port (overrides config and API_PORT)")
	serveCmd.Flags().StringVar(&allowedFile, "allowed", "", "path to the allow-list document")

	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func setupLogging() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func runServe(cfg *config.Config) error {
	server := httpserver.NewServer(cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.Info().
		Str("addr", server.Addr()).
		Str("allowed", cfg.AllowedTickersFile).
		Msg("endpoints: GET /  GET /ticker/{asset}/{expiry}  GET /config  GET /health  GET /metrics")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutdown requested")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	}
}
