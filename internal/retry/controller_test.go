package retry

import (
	"testing"
	"time"

	"creatflow/internal/domain"
)

func fixedController(jitter float64, rnd float64) *Controller {
	c := NewController(3, 2*time.Second, jitter)
	c.randFloat = func() float64 { return rnd }
	return c
}

func TestBackoffDoublesPerAttempt(t *testing.T) {
	c := fixedController(0, 0)
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	for i, expected := range want {
		if got := c.Backoff(i + 1); got != expected {
			t.Fatalf("backoff(%d) = %v, want %v", i+1, got, expected)
		}
	}
}

func TestBackoffJitterStaysBounded(t *testing.T) {
	// randFloat = 1 pushes jitter to its positive extreme, 0 to the negative.
	high := fixedController(0.25, 1).Backoff(2)
	low := fixedController(0.25, 0).Backoff(2)
	if high != 5*time.Second {
		t.Fatalf("max jittered backoff = %v, want 5s", high)
	}
	if low != 3*time.Second {
		t.Fatalf("min jittered backoff = %v, want 3s", low)
	}
}

func TestTransientFailuresRequeueUntilBudgetExhausted(t *testing.T) {
	c := fixedController(0, 0)
	for attempt := 1; attempt <= 2; attempt++ {
		d := c.Decide(domain.FailureTransient, attempt)
		if d.Action != ActionRequeue {
			t.Fatalf("attempt %d action = %q, want requeue", attempt, d.Action)
		}
		if d.Delay != c.Backoff(attempt) {
			t.Fatalf("attempt %d delay = %v", attempt, d.Delay)
		}
	}
	// Attempt 3's failure dead-letters; attempt 4 never occurs.
	if d := c.Decide(domain.FailureTransient, 3); d.Action != ActionDeadLetter {
		t.Fatalf("attempt 3 action = %q, want dead-letter", d.Action)
	}
}

func TestPermanentAndConfigurationSkipRetryBudget(t *testing.T) {
	c := fixedController(0, 0)
	for _, kind := range []domain.FailureKind{domain.FailurePermanentInput, domain.FailureConfiguration} {
		if d := c.Decide(kind, 1); d.Action != ActionDeadLetter {
			t.Fatalf("%s on first attempt: action = %q, want dead-letter", kind, d.Action)
		}
	}
}

func TestAuthFailuresAreRetriedLikeTransient(t *testing.T) {
	c := fixedController(0, 0)
	if d := c.Decide(domain.FailureAuth, 1); d.Action != ActionRequeue {
		t.Fatalf("auth failure action = %q, want requeue", d.Action)
	}
}

func TestCancelledDropsWithoutDeadLetter(t *testing.T) {
	c := fixedController(0, 0)
	if d := c.Decide(domain.FailureCancelled, 1); d.Action != ActionDrop {
		t.Fatalf("cancelled action = %q, want drop", d.Action)
	}
}
