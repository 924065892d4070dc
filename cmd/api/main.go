// The api binary is the all-in-one engine node: it serves the HTTP surface
// and runs the worker pool against the in-process queue, so submissions and
// processing share one router.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"creatflow/internal/adapter/repo"
	"creatflow/internal/domain"
	"creatflow/internal/domain/jsoncfg"
	"creatflow/internal/engine"
	"creatflow/internal/http/handlers"
	"creatflow/internal/http/httpapi"
	"creatflow/internal/infra"
	"creatflow/internal/metrics"
	"creatflow/internal/moderation"
	"creatflow/internal/providers/analysis"
	"creatflow/internal/providers/render"
	"creatflow/internal/queue"
	"creatflow/internal/retry"
	"creatflow/internal/storage"
	"creatflow/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var jobs domain.JobRepository
	var assets domain.AssetRepository
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: db connection failed")
		}
		defer pool.Close()
		runner := infra.NewSQLRunner(pool, logger)
		jobs = repo.NewJobRepository(runner)
		assets = repo.NewAssetRepository(runner)
	} else {
		logger.Warn().Msg("api: DATABASE_URL not set, using in-memory repositories")
		mem := repo.NewMemory()
		jobs, assets = mem, mem
	}

	storagePath := cfg.StoragePath
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	store, err := storage.NewFileStore(storagePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure storage")
	}

	router := queue.NewRouter(queue.Options{
		VisibilityTimeout: cfg.VisibilityTimeout,
		PollInterval:      cfg.PollInterval,
	})
	recorder := metrics.NewRecorder(router)

	rules, ok := jsoncfg.BuiltinProfile(cfg.RuleProfile)
	if !ok {
		logger.Fatal().Str("profile", cfg.RuleProfile).Msg("api: unknown rule profile")
	}

	pool := worker.NewPool(worker.Config{
		Workers: cfg.WorkerCount,
		Rules:   rules,
	}, worker.Deps{
		Queue:    router,
		Jobs:     jobs,
		Assets:   assets,
		Analyzer: buildAnalyzer(cfg, logger),
		Renderer: buildRenderer(cfg),
		Gate:     buildGate(cfg),
		Retry:    retry.NewController(cfg.MaxAttempts, cfg.RetryBaseDelay, cfg.RetryJitter),
		Store:    store,
		Observer: recorder,
		Logger:   logger,
	})
	go pool.Run(ctx)

	svc := engine.NewService(jobs, assets, router, logger)
	app := handlers.NewApp(svc, recorder, logger)
	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app, logger))

	go func() {
		logger.Info().Msgf("api: listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("api: http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: failed to shutdown server")
	}
	logger.Info().Msg("api: stopped")
}

// buildAnalyzer assembles the fallback chain in configured priority order
// from the backends that have credentials. Without any it degrades to the
// synthetic analyzer so development flows keep moving.
func buildAnalyzer(cfg *infra.Config, logger infra.Logger) analysis.Analyzer {
	client := &http.Client{Timeout: cfg.AnalysisTimeout + 10*time.Second}

	var chain []analysis.Analyzer
	for _, name := range cfg.AnalysisOrder {
		switch name {
		case "openai":
			if cfg.OpenAIAPIKey != "" {
				chain = append(chain, analysis.NewOpenAIAnalyzer(analysis.Config{
					APIKey: cfg.OpenAIAPIKey, BaseURL: cfg.OpenAIBaseURL, Model: cfg.OpenAIModel, Timeout: cfg.AnalysisTimeout,
				}, client))
			}
		case "gemini":
			if cfg.GeminiAPIKey != "" {
				chain = append(chain, analysis.NewGeminiAnalyzer(analysis.Config{
					APIKey: cfg.GeminiAPIKey, BaseURL: cfg.GeminiBaseURL, Model: cfg.GeminiModel, Timeout: cfg.AnalysisTimeout,
				}, client))
			}
		case "qwen":
			if cfg.QwenAPIKey != "" {
				chain = append(chain, analysis.NewQwenAnalyzer(analysis.Config{
					APIKey: cfg.QwenAPIKey, BaseURL: cfg.QwenBaseURL, Model: cfg.QwenModel, Timeout: cfg.AnalysisTimeout,
				}, client))
			}
		default:
			logger.Warn().Str("backend", name).Msg("api: unknown analysis backend in provider order")
		}
	}
	if len(chain) == 0 {
		logger.Warn().Msg("api: no analysis backend credentials, using synthetic detection")
		return analysis.NewSyntheticAnalyzer()
	}
	return analysis.NewChain(logger, chain...)
}

func buildRenderer(cfg *infra.Config) worker.Renderer {
	if cfg.RenderBaseURL == "" {
		return worker.NewSyntheticRenderer()
	}
	return render.NewHTTPRenderer(render.Config{
		APIKey:  cfg.RenderAPIKey,
		BaseURL: cfg.RenderBaseURL,
	}, nil)
}

func buildGate(cfg *infra.Config) *moderation.Gate {
	if !cfg.ModerationEnabled {
		return moderation.NewGate(nil)
	}
	screener := analysis.NewHTTPScreener(analysis.Config{
		APIKey:  cfg.ModerationAPIKey,
		BaseURL: cfg.ModerationBaseURL,
		Timeout: cfg.AnalysisTimeout,
	}, nil)
	return moderation.NewGate(screener)
}
