// Command modesvc runs Component B: the background loop that reconciles an
// iCal feed plus admin overrides into the current guest/owner mode.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/hearth-assist/orchestrator/internal/adminconfig"
	"github.com/hearth-assist/orchestrator/internal/config"
	"github.com/hearth-assist/orchestrator/internal/mode"
	"github.com/hearth-assist/orchestrator/internal/observability"
	"github.com/hearth-assist/orchestrator/internal/version"
)

func main() {
	_ = godotenv.Load()
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("modesvc")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	observability.InitLogger("", cfg.LogLevel)

	baseCtx := context.Background()
	shutdown, err := observability.InitOTel(baseCtx, cfg.Obs)
	if err != nil {
		log.Warn().Err(err).Msg("otel init failed, continuing without observability")
		shutdown = nil
	}
	if shutdown != nil {
		defer func() { _ = shutdown(context.Background()) }()
	}

	httpClient := observability.NewHTTPClient(nil)
	admin := adminconfig.NewClient(cfg.Admin.APIURL, cfg.Cache.ConfigRefreshTTL, httpClient)

	svc := mode.NewService(mode.ConfigFromAdmin(admin, cfg.Mode.PollInterval), nil, httpClient)

	ctx, cancel := signal.NotifyContext(baseCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	go svc.Run(ctx)

	handler := mode.NewHandler(svc)
	mux := http.NewServeMux()
	handler.Register(mux)

	addr := ":" + getenvDefault("MODESVC_PORT", "8082")
	srv := &http.Server{Addr: addr, Handler: mux}

	fmt.Fprintf(os.Stdout, "modesvc %s listening on %s\n", version.Version, addr)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("modesvc listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("modesvc server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("modesvc shutdown")
	}
	log.Info().Msg("modesvc stopped")
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
