// Command orchestrator runs Component D: the internal query pipeline the
// gateway calls for every request it routes away from passthrough.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/hearth-assist/orchestrator/internal/adminconfig"
	"github.com/hearth-assist/orchestrator/internal/cache"
	"github.com/hearth-assist/orchestrator/internal/config"
	"github.com/hearth-assist/orchestrator/internal/llm"
	"github.com/hearth-assist/orchestrator/internal/mode"
	"github.com/hearth-assist/orchestrator/internal/observability"
	"github.com/hearth-assist/orchestrator/internal/orchestrator"
	"github.com/hearth-assist/orchestrator/internal/retrieval"
	"github.com/hearth-assist/orchestrator/internal/retrieval/providers"
	"github.com/hearth-assist/orchestrator/internal/telemetrybus"
	"github.com/hearth-assist/orchestrator/internal/version"
)

func main() {
	_ = godotenv.Load()
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("orchestrator")
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

	modelClient := llm.NewClient(cfg.ModelBackend.URL, "", "")

	var intentClassifierClient *llm.Client
	if cfg.Orchestrator.EnableLLMIntentClassifier {
		intentClassifierClient = modelClient
	}
	classifier := retrieval.NewClassifier(cacheClient, admin, intentClassifierClient, cfg.Retrieval.IntentCacheTTL)

	router := retrieval.NewRouter(admin)
	engine := retrieval.NewEngine(
		buildProviders(httpClient),
		router,
		cacheClient,
		cfg.Orchestrator.ProviderTimeout,
		cfg.Retrieval.SearchCacheDefaultTTL,
		nil,
		5,
	)

	synth := orchestrator.NewSynthesiser(modelClient)

	var factCheckClient *llm.Client
	if cfg.Orchestrator.EnableLLMFactCheck {
		factCheckClient = modelClient
	}
	validator := orchestrator.NewValidator(admin, factCheckClient)

	sessions := orchestrator.NewSessionStore(cacheClient, cfg.Session.TTL, cfg.Session.MaxHistoryMessages)

	var telemetry *telemetrybus.Publisher
	if brokers := kafkaBrokersFromEnv(); len(brokers) > 0 {
		const topic = "voice-orchestrator.telemetry"
		ctxTopic, cancelTopic := context.WithTimeout(baseCtx, 5*time.Second)
		if err := telemetrybus.EnsureTopic(ctxTopic, brokers, topic, 1, 1); err != nil {
			log.Warn().Err(err).Msg("telemetry topic setup failed, continuing without telemetry")
		} else {
			telemetry = telemetrybus.NewPublisher(brokers, topic)
			defer telemetry.Close()
		}
		cancelTopic()
	}

	pipeline := orchestrator.NewPipeline(
		classifier, engine, synth, validator, sessions, modeSvc, admin, cacheClient, telemetry,
		cfg.Orchestrator.Deadline, cfg.Session.HistoryInjectedMessages,
	)

	handler := orchestrator.NewHandler(pipeline)
	mux := http.NewServeMux()
	handler.Register(mux)

	addr := ":" + getenvDefault("ORCHESTRATOR_PORT", "8081")
	srv := &http.Server{Addr: addr, Handler: mux}

	fmt.Fprintf(os.Stdout, "orchestrator %s listening on %s\n", version.Version, addr)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("orchestrator listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("orchestrator server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("orchestrator shutdown")
	}
	log.Info().Msg("orchestrator stopped")
	return nil
}

func buildProviders(httpClient *http.Client) []retrieval.Provider {
	var provs []retrieval.Provider
	if url := os.Getenv("SEARXNG_URL"); url != "" {
		provs = append(provs, providers.NewSearXNG("general-web-1", url, httpClient))
	}
	if url := os.Getenv("WEATHER_PROVIDER_URL"); url != "" {
		provs = append(provs, providers.NewDedicated("weather", url, os.Getenv("WEATHER_PROVIDER_API_KEY"), httpClient))
	}
	if url := os.Getenv("SPORTS_PROVIDER_URL"); url != "" {
		provs = append(provs, providers.NewDedicated("sports", url, os.Getenv("SPORTS_PROVIDER_API_KEY"), httpClient))
	}
	if url := os.Getenv("AIRPORTS_PROVIDER_URL"); url != "" {
		provs = append(provs, providers.NewDedicated("airports", url, os.Getenv("AIRPORTS_PROVIDER_API_KEY"), httpClient))
	}
	if url := os.Getenv("EVENTS_PROVIDER_URL"); url != "" {
		provs = append(provs, providers.NewDedicated("event-api-1", url, os.Getenv("EVENTS_PROVIDER_API_KEY"), httpClient))
	}
	return provs
}

func kafkaBrokersFromEnv() []string {
	raw := strings.TrimSpace(os.Getenv("TELEMETRY_KAFKA_BROKERS"))
	if raw == "" {
		return nil
	}
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
