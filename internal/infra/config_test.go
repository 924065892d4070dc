package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("WORKER_COUNT", "")
	t.Setenv("MAX_ATTEMPTS", "")
	t.Setenv("RETRY_BASE_DELAY", "")
	t.Setenv("ANALYSIS_PROVIDER_ORDER", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.WorkerCount != 4 {
		t.Fatalf("WorkerCount = %d, want 4", cfg.WorkerCount)
	}
	if cfg.MaxAttempts != 3 {
		t.Fatalf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
	}
	if cfg.RetryBaseDelay != 2*time.Second {
		t.Fatalf("RetryBaseDelay = %v", cfg.RetryBaseDelay)
	}
	if cfg.VisibilityTimeout != 5*time.Minute {
		t.Fatalf("VisibilityTimeout = %v", cfg.VisibilityTimeout)
	}
	want := []string{"openai", "gemini", "qwen"}
	if len(cfg.AnalysisOrder) != len(want) {
		t.Fatalf("AnalysisOrder = %#v", cfg.AnalysisOrder)
	}
	for i, name := range want {
		if cfg.AnalysisOrder[i] != name {
			t.Fatalf("AnalysisOrder[%d] = %q, want %q", i, cfg.AnalysisOrder[i], name)
		}
	}
}

func TestLoadConfigParsesOverrides(t *testing.T) {
	t.Setenv("WORKER_COUNT", "12")
	t.Setenv("RETRY_BASE_DELAY", "500ms")
	t.Setenv("RETRY_JITTER", "0.1")
	t.Setenv("ANALYSIS_PROVIDER_ORDER", " gemini , qwen ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.WorkerCount != 12 {
		t.Fatalf("WorkerCount = %d", cfg.WorkerCount)
	}
	if cfg.RetryBaseDelay != 500*time.Millisecond {
		t.Fatalf("RetryBaseDelay = %v", cfg.RetryBaseDelay)
	}
	if cfg.RetryJitter != 0.1 {
		t.Fatalf("RetryJitter = %v", cfg.RetryJitter)
	}
	if len(cfg.AnalysisOrder) != 2 || cfg.AnalysisOrder[0] != "gemini" || cfg.AnalysisOrder[1] != "qwen" {
		t.Fatalf("AnalysisOrder = %#v", cfg.AnalysisOrder)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("WORKER_COUNT", "0")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for zero worker count")
	}
	t.Setenv("WORKER_COUNT", "4")

	t.Setenv("MODERATION_ENABLED", "true")
	t.Setenv("MODERATION_API_KEY", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for moderation without credentials")
	}
}
