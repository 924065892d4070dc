// Package retry decides what happens to a work item after a failed attempt.
package retry

import (
	"math/rand/v2"
	"time"

	"creatflow/internal/domain"
)

// Action is the controller's routing decision for a failed attempt.
type Action string

const (
	// ActionRequeue sends the message back to its originating lane after
	// a backoff delay.
	ActionRequeue Action = "requeue"
	// ActionDeadLetter parks the message for manual inspection and marks
	// the work item failed.
	ActionDeadLetter Action = "dead_letter"
	// ActionDrop terminates the work item without dead-lettering; used
	// for cancellation, which is not an error in the alerting sense.
	ActionDrop Action = "drop"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 2 * time.Second
	DefaultJitter      = 0.25
)

// Controller computes backoff and retry routing. Jitter spreads requeues so
// a burst of transient failures does not thunder back in lockstep.
type Controller struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Jitter is the maximum fraction of the computed delay added or
	// subtracted at random.
	Jitter float64
	// randFloat is injected by tests; defaults to rand.Float64.
	randFloat func() float64
}

// NewController builds a controller with engine defaults where fields are zero.
func NewController(maxAttempts int, base time.Duration, jitter float64) *Controller {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if base <= 0 {
		base = DefaultBaseDelay
	}
	if jitter < 0 {
		jitter = 0
	}
	return &Controller{MaxAttempts: maxAttempts, BaseDelay: base, Jitter: jitter, randFloat: rand.Float64}
}

// Decision carries the chosen action and, for requeues, the delay.
type Decision struct {
	Action Action
	Delay  time.Duration
}

// Backoff returns the delay before re-attempting after a failure of the
// given attempt: base × 2^(attempt−1), plus jitter.
func (c *Controller) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := c.BaseDelay << (attempt - 1)
	if c.Jitter > 0 {
		rnd := c.randFloat
		if rnd == nil {
			rnd = rand.Float64
		}
		spread := (rnd()*2 - 1) * c.Jitter
		delay += time.Duration(float64(delay) * spread)
	}
	return delay
}

// Decide routes a failure of the given kind on the given attempt.
// Transient and auth failures consume retry budget; permanent input and
// configuration failures go straight to the dead-letter lane because
// retrying cannot help; cancellation terminates quietly.
func (c *Controller) Decide(kind domain.FailureKind, attempt int) Decision {
	switch kind {
	case domain.FailureCancelled:
		return Decision{Action: ActionDrop}
	case domain.FailurePermanentInput, domain.FailureConfiguration:
		return Decision{Action: ActionDeadLetter}
	}
	if attempt >= c.MaxAttempts {
		return Decision{Action: ActionDeadLetter}
	}
	return Decision{Action: ActionRequeue, Delay: c.Backoff(attempt)}
}
