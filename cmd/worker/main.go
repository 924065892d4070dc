// The worker binary is a headless engine node for database-backed
// deployments: it reseeds its queue from the non-terminal work items in
// PostgreSQL and runs the pool until signalled.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"creatflow/internal/adapter/repo"
	"creatflow/internal/domain"
	"creatflow/internal/domain/jsoncfg"
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

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()
	runner := infra.NewSQLRunner(pool, logger)
	jobs := repo.NewJobRepository(runner)
	assets := repo.NewAssetRepository(runner)

	storagePath := cfg.StoragePath
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	store, err := storage.NewFileStore(storagePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	router := queue.NewRouter(queue.Options{
		VisibilityTimeout: cfg.VisibilityTimeout,
		PollInterval:      cfg.PollInterval,
	})
	recorder := metrics.NewRecorder(router)

	if err := reseed(ctx, jobs, router, logger); err != nil {
		logger.Fatal().Err(err).Msg("worker: queue recovery failed")
	}

	rules, ok := jsoncfg.BuiltinProfile(cfg.RuleProfile)
	if !ok {
		logger.Fatal().Str("profile", cfg.RuleProfile).Msg("worker: unknown rule profile")
	}

	workers := worker.NewPool(worker.Config{
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

	workers.Run(ctx)
	logger.Info().Msg("worker: stopped")
}

// reseed re-enqueues every non-terminal work item with the next attempt
// number. Items a crashed process left in processing are redelivered; the
// attempt bump keeps their stale claims from shadowing the new delivery.
func reseed(ctx context.Context, jobs *repo.JobRepositoryPG, router *queue.Router, logger infra.Logger) error {
	open, err := jobs.ListOpenItems(ctx)
	if err != nil {
		return err
	}
	for _, item := range open {
		msg := domain.QueueMessage{
			ID:         uuid.NewString(),
			JobID:      item.JobID,
			WorkItemID: item.WorkItemID,
			AssetRef:   item.AssetRef,
			Format:     item.Format,
			Attempt:    item.Attempt + 1,
		}
		if err := router.Enqueue(msg, domain.LanePrimary); err != nil {
			return err
		}
	}
	if len(open) > 0 {
		logger.Info().Int("items", len(open)).Msg("worker: reseeded open work items")
	}
	return nil
}

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
			logger.Warn().Str("backend", name).Msg("worker: unknown analysis backend in provider order")
		}
	}
	if len(chain) == 0 {
		logger.Warn().Msg("worker: no analysis backend credentials, using synthetic detection")
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
