package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tansive/ideconnector/internal/common/logtrace"
	"github.com/tansive/ideconnector/internal/connector/config"
	"github.com/tansive/ideconnector/internal/connector/server"
	"github.com/tansive/ideconnector/internal/connector/service"
)

func init() {
	logtrace.InitLogger()
}

type cmdoptions struct {
	configFile string
	trace      bool
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		log.Error().Err(err).Msg("server failed")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	slog := log.With().Str("state", "init").Logger()

	opt := parseFlags()
	logtrace.EnableTrace(opt.trace)

	slog.Info().Str("config_file", opt.configFile).Msg("loading config file")
	if err := config.LoadConfig(opt.configFile); err != nil {
		return fmt.Errorf("loading config file: %w", err)
	}
	cfg := config.Config()
	logtrace.SetLevel(cfg.LogLevel)

	backend, err := cfg.NewBackend()
	if err != nil {
		return fmt.Errorf("creating %s backend: %w", cfg.Backend.Type, err)
	}

	sessions, err := cfg.NewSessionStore(ctx)
	if err != nil {
		return fmt.Errorf("creating %s session store: %w", cfg.SessionStore.Type, err)
	}
	slog.Info().Str("session_store", cfg.SessionStore.Type).Msg("session store ready")

	serverErrors, shutdownServer, err := createConnectorServer(ctx, cfg, service.New(backend, sessions))
	if err != nil {
		return fmt.Errorf("creating connector server: %w", err)
	}

	// Channel to listen for an interrupt or terminate signal from the OS.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		slog.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		shutdownServer()
	}

	slog.Info().Msg("server stopped")
	return nil
}

func createConnectorServer(ctx context.Context, cfg *config.ConfigParam, svc *service.Service) (chan error, func(), error) {
	slog := log.With().Str("state", "init").Logger()
	s, err := server.CreateNewServer(cfg, svc)
	if err != nil {
		return nil, nil, fmt.Errorf("creating server: %w", err)
	}
	s.MountHandlers()

	// No write timeout: an import streams for as long as the batch runs.
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           s.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		slog.Info().Str("port", cfg.ServerPort).Str("service_path", cfg.ServicePath).Msg("server started")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := func() {
		// Give outstanding requests 5 seconds to complete and initiate the shutdown.
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error().Err(err).Msg("could not stop server gracefully")
			if err := srv.Close(); err != nil {
				slog.Error().Err(err).Msg("could not stop server")
			}
		}
	}

	return serverErrors, shutdown, nil
}

const DefaultConfigFile = "/etc/ideconnector/ideconnector.conf"

func parseFlags() cmdoptions {
	var opt cmdoptions
	flag.StringVar(&opt.configFile, "config", DefaultConfigFile, "Path to the config file")
	flag.BoolVar(&opt.trace, "trace", false, "Print the registered routes at startup")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options]\n\n", os.Args[0])
		fmt.Println("Options:")
		flag.PrintDefaults()
	}
	flag.Parse()
	return opt
}
