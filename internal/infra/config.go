package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents engine configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	StoragePath string

	WorkerCount       int
	MaxAttempts       int
	RetryBaseDelay    time.Duration
	RetryJitter       float64
	VisibilityTimeout time.Duration
	PollInterval      time.Duration
	RuleProfile       string

	AnalysisProvider string
	AnalysisOrder    []string
	AnalysisTimeout  time.Duration

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	QwenAPIKey    string
	QwenModel     string
	QwenBaseURL   string

	RenderBaseURL string
	RenderAPIKey  string

	ModerationEnabled bool
	ModerationAPIKey  string
	ModerationBaseURL string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. DATABASE_URL is optional: without it the engine
// runs on the in-memory repositories, which suits development and tests.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StoragePath: getEnv("STORAGE_PATH", "./data/renders"),

		WorkerCount:       getEnvInt("WORKER_COUNT", 4),
		MaxAttempts:       getEnvInt("MAX_ATTEMPTS", 3),
		RetryBaseDelay:    getEnvDuration("RETRY_BASE_DELAY", 2*time.Second),
		RetryJitter:       getEnvFloat("RETRY_JITTER", 0.25),
		VisibilityTimeout: getEnvDuration("VISIBILITY_TIMEOUT", 5*time.Minute),
		PollInterval:      getEnvDuration("POLL_INTERVAL", 200*time.Millisecond),
		RuleProfile:       getEnv("RULE_PROFILE", "product-centric"),

		AnalysisProvider: getEnv("ANALYSIS_PROVIDER", "openai"),
		AnalysisOrder:    splitList(getEnv("ANALYSIS_PROVIDER_ORDER", "openai,gemini,qwen")),
		AnalysisTimeout:  getEnvDuration("ANALYSIS_TIMEOUT", 30*time.Second),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   os.Getenv("OPENAI_MODEL"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   os.Getenv("GEMINI_MODEL"),
		GeminiBaseURL: os.Getenv("GEMINI_BASE_URL"),
		QwenAPIKey:    os.Getenv("QWEN_API_KEY"),
		QwenModel:     os.Getenv("QWEN_MODEL"),
		QwenBaseURL:   os.Getenv("QWEN_BASE_URL"),

		RenderBaseURL: os.Getenv("RENDER_BASE_URL"),
		RenderAPIKey:  os.Getenv("RENDER_API_KEY"),

		ModerationEnabled: getEnvBool("MODERATION_ENABLED", false),
		ModerationAPIKey:  os.Getenv("MODERATION_API_KEY"),
		ModerationBaseURL: os.Getenv("MODERATION_BASE_URL"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.WorkerCount < 1 {
		return nil, fmt.Errorf("WORKER_COUNT must be at least 1")
	}
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("MAX_ATTEMPTS must be at least 1")
	}
	if cfg.ModerationEnabled && cfg.ModerationAPIKey == "" {
		return nil, fmt.Errorf("MODERATION_API_KEY is required when moderation is enabled")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
