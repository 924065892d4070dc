package queue

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"creatflow/internal/domain"
)

var (
	// ErrNotInFlight is returned when acknowledging a message the router no
	// longer tracks, typically because its visibility timeout expired and
	// it was redelivered to another worker.
	ErrNotInFlight = errors.New("queue: message not in flight")
	// ErrUnknownMessage is returned for dead-letter operations on an
	// unknown message id.
	ErrUnknownMessage = errors.New("queue: unknown message")
	// ErrBadLane rejects enqueues targeting a lane workers cannot claim
	// from, or requeues targeting the dead-letter lane itself.
	ErrBadLane = errors.New("queue: lane not claimable")
)

const (
	DefaultVisibilityTimeout = 5 * time.Minute
	DefaultPollInterval      = 200 * time.Millisecond
)

// Options tunes router behavior. The zero value gets sane defaults.
type Options struct {
	VisibilityTimeout time.Duration
	PollInterval      time.Duration
	// Clock is injected by tests; defaults to time.Now.
	Clock func() time.Time
}

type entry struct {
	msg      domain.QueueMessage
	readyAt  time.Time
	deadline time.Time
}

// Router maintains the three logical lanes. Dequeue strictly prefers the
// priority lane, ordering inside a lane is first-in-first-out, and the
// dead-letter lane is only drained by explicit operator calls. Delivery is
// at-least-once: an unacknowledged message becomes claimable again once its
// visibility timeout expires.
type Router struct {
	mu       sync.Mutex
	opts     Options
	lanes    map[domain.Lane][]*entry
	inflight map[string]*entry
	dead     []*entry
}

// NewRouter builds an empty router.
func NewRouter(opts Options) *Router {
	if opts.VisibilityTimeout <= 0 {
		opts.VisibilityTimeout = DefaultVisibilityTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Router{
		opts: opts,
		lanes: map[domain.Lane][]*entry{
			domain.LanePrimary:  {},
			domain.LanePriority: {},
		},
		inflight: make(map[string]*entry),
	}
}

// Enqueue places a message at the back of the given claimable lane.
func (r *Router) Enqueue(msg domain.QueueMessage, lane domain.Lane) error {
	return r.EnqueueAfter(msg, lane, 0)
}

// EnqueueAfter places a message in a lane but keeps it invisible to workers
// until the delay elapses. Retry backoff uses this path.
func (r *Router) EnqueueAfter(msg domain.QueueMessage, lane domain.Lane, delay time.Duration) error {
	if lane != domain.LanePrimary && lane != domain.LanePriority {
		return ErrBadLane
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	msg.Lane = lane
	if msg.EnqueuedAt.IsZero() {
		msg.EnqueuedAt = r.opts.Clock()
	}
	r.lanes[lane] = append(r.lanes[lane], &entry{
		msg:     msg,
		readyAt: r.opts.Clock().Add(delay),
	})
	return nil
}

// Claim blocks until a message is claimable or ctx ends. Priority beats
// primary whenever both lanes hold a ready message; the dead-letter lane is
// never claimed.
func (r *Router) Claim(ctx context.Context) (domain.QueueMessage, error) {
	for {
		if msg, ok := r.TryClaim(); ok {
			return msg, nil
		}
		select {
		case <-ctx.Done():
			return domain.QueueMessage{}, ctx.Err()
		case <-time.After(r.opts.PollInterval):
		}
	}
}

// TryClaim attempts a non-blocking claim.
func (r *Router) TryClaim() (domain.QueueMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.opts.Clock()
	r.reapExpiredLocked(now)
	for _, lane := range []domain.Lane{domain.LanePriority, domain.LanePrimary} {
		queue := r.lanes[lane]
		for i, e := range queue {
			if e.readyAt.After(now) {
				continue
			}
			r.lanes[lane] = append(queue[:i:i], queue[i+1:]...)
			e.deadline = now.Add(r.opts.VisibilityTimeout)
			r.inflight[e.msg.ID] = e
			return e.msg, true
		}
	}
	return domain.QueueMessage{}, false
}

// Ack removes a claimed message for good.
func (r *Router) Ack(messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inflight[messageID]; !ok {
		return ErrNotInFlight
	}
	delete(r.inflight, messageID)
	return nil
}

// DeadLetter moves a message to the dead-letter lane with its last error
// attached, releasing any in-flight claim on it.
func (r *Router) DeadLetter(msg domain.QueueMessage, lastErr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, msg.ID)
	msg.Lane = domain.LaneDeadLetter
	msg.LastError = lastErr
	r.dead = append(r.dead, &entry{msg: msg, readyAt: r.opts.Clock()})
}

// DeadLetters lists dead-lettered messages for operator inspection.
func (r *Router) DeadLetters() []domain.QueueMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.QueueMessage, 0, len(r.dead))
	for _, e := range r.dead {
		out = append(out, e.msg)
	}
	return out
}

// TakeDeadLetter removes a dead-lettered message and hands it to the
// caller. Requeue policy lives in the engine service, which reopens the
// work item before putting the message back on a claimable lane; the
// router only moves messages.
func (r *Router) TakeDeadLetter(messageID string) (domain.QueueMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.dead {
		if e.msg.ID != messageID {
			continue
		}
		r.dead = append(r.dead[:i:i], r.dead[i+1:]...)
		return e.msg, nil
	}
	return domain.QueueMessage{}, ErrUnknownMessage
}

// Depth returns the number of messages waiting in a lane, delayed ones
// included. The external autoscaler polls this.
func (r *Router) Depth(lane domain.Lane) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lane == domain.LaneDeadLetter {
		return len(r.dead)
	}
	return len(r.lanes[lane])
}

// InFlight returns the number of claimed, unacknowledged messages.
func (r *Router) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inflight)
}

// reapExpiredLocked returns expired in-flight messages to the front of
// their lane, in enqueue order, so a crashed worker's claims are
// redelivered FIFO even when several expire in the same sweep.
func (r *Router) reapExpiredLocked(now time.Time) {
	var reaped []*entry
	for id, e := range r.inflight {
		if e.deadline.After(now) {
			continue
		}
		delete(r.inflight, id)
		reaped = append(reaped, e)
	}
	if len(reaped) == 0 {
		return
	}
	sort.SliceStable(reaped, func(i, j int) bool {
		return reaped[i].msg.EnqueuedAt.Before(reaped[j].msg.EnqueuedAt)
	})
	for i := len(reaped) - 1; i >= 0; i-- {
		e := reaped[i]
		lane := e.msg.Lane
		r.lanes[lane] = append([]*entry{{msg: e.msg, readyAt: now}}, r.lanes[lane]...)
	}
}
