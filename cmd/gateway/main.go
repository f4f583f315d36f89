// Command gateway runs Component E: the OpenAI-compatible admission surface
// voice front-ends and any other chat client talk to directly.
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
	"github.com/hearth-assist/orchestrator/internal/cache"
	"github.com/hearth-assist/orchestrator/internal/config"
	"github.com/hearth-assist/orchestrator/internal/gateway"
	"github.com/hearth-assist/orchestrator/internal/llm"
	"github.com/hearth-assist/orchestrator/internal/mode"
	"github.com/hearth-assist/orchestrator/internal/observability"
	"github.com/hearth-assist/orchestrator/internal/version"
)

func main() {
	_ = godotenv.Load()
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("gateway")
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

	cacheClient, err := cache.NewClient(cfg.Cache.URL)
	if err != nil {
		log.Warn().Err(err).Msg("cache unreachable at startup, continuing degraded")
		cacheClient = &cache.Client{}
	}

	modeSvc := mode.NewService(mode.ConfigFromAdmin(admin, cfg.Mode.PollInterval), nil, httpClient)
	ctx, cancel := signal.NotifyContext(baseCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	go modeSvc.Run(ctx)

	routerModel := getenvDefault("GATEWAY_ROUTER_MODEL", "")
	var routerClient *llm.Client
	if routerModel != "" {
		routerClient = llm.NewClient(cfg.ModelBackend.URL, "", routerModel)
	}
	router := gateway.NewRouter(routerClient, routerModel)

	writeback := gateway.NewWriteback(admin)
	passthrough := gateway.NewPassthrough(admin, getenvDefault("DEFAULT_MODEL_NAME", "default"), cfg.ModelBackend.URL, writeback)

	orchestratorClient := gateway.NewOrchestratorClient(getenvDefault("ORCHESTRATOR_URL", "http://localhost:8081"), httpClient)

	limiter := gateway.NewRateLimiter(cacheClient)

	srv := gateway.NewServer(router, passthrough, orchestratorClient, limiter, admin, modeSvc, cacheClient)

	addr := ":" + getenvDefault("GATEWAY_PORT", "8080")
	httpSrv := &http.Server{Addr: addr, Handler: srv}

	fmt.Fprintf(os.Stdout, "gateway %s listening on %s\n", version.Version, addr)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("gateway listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("gateway server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("gateway shutdown")
	}
	log.Info().Msg("gateway stopped")
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
