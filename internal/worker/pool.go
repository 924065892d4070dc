// Package worker runs the claim-process-acknowledge loop that drives work
// items through the generation pipeline: analyze, classify, plan, render,
// moderate, persist.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"creatflow/internal/classify"
	"creatflow/internal/domain"
	"creatflow/internal/domain/jsoncfg"
	"creatflow/internal/moderation"
	"creatflow/internal/plan"
	"creatflow/internal/providers/analysis"
	"creatflow/internal/queue"
	"creatflow/internal/retry"
)

const (
	stageClassify = "classify"
	stagePlan     = "plan"
	stageRender   = "render"
	stageModerate = "moderate"
	stagePersist  = "persist"
)

// DefaultWorkers is the pool size when none is configured.
const DefaultWorkers = 4

// BlobStore persists rendered bytes and returns the final storage key.
type BlobStore interface {
	Write(ctx context.Context, key string, content []byte) (string, error)
}

// StageObserver receives per-stage latencies. The metrics recorder
// implements it; a nil observer disables observation.
type StageObserver interface {
	ObserveStage(stage string, elapsed time.Duration)
}

// Config tunes pipeline behavior shared by all workers in the pool.
type Config struct {
	Workers    int
	Rules      jsoncfg.RuleSet
	PlanConfig plan.Config
}

// Deps are the collaborators one pool drives.
type Deps struct {
	Queue    *queue.Router
	Jobs     domain.JobRepository
	Assets   domain.AssetRepository
	Analyzer analysis.Analyzer
	Renderer Renderer
	Gate     *moderation.Gate
	Retry    *retry.Controller
	Store    BlobStore
	Observer StageObserver
	Logger   zerolog.Logger
}

// Pool owns N worker goroutines sharing one claim loop over the router.
type Pool struct {
	cfg  Config
	deps Deps
}

// NewPool builds a pool, filling defaults for unset config and collaborators.
func NewPool(cfg Config, deps Deps) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if len(cfg.Rules.Weights) == 0 {
		cfg.Rules, _ = jsoncfg.BuiltinProfile(jsoncfg.DefaultProfile)
	}
	if deps.Retry == nil {
		deps.Retry = retry.NewController(0, 0, retry.DefaultJitter)
	}
	if deps.Renderer == nil {
		deps.Renderer = NewSyntheticRenderer()
	}
	return &Pool{cfg: cfg, deps: deps}
}

// Run blocks until ctx ends and every worker goroutine has drained.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.loop(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (p *Pool) loop(ctx context.Context, id int) {
	log := p.deps.Logger.With().Int("worker", id).Logger()
	log.Info().Msg("worker: started")
	for {
		msg, err := p.deps.Queue.Claim(ctx)
		if err != nil {
			log.Info().Msg("worker: stopping")
			return
		}
		p.Handle(ctx, msg)
	}
}

// Handle processes one delivery end to end: attempt claim, pipeline, and
// either acknowledgment or retry routing. Exported so tests and single-shot
// tools can drive messages without a running pool.
func (p *Pool) Handle(ctx context.Context, msg domain.QueueMessage) {
	log := p.deps.Logger.With().
		Str("job_id", msg.JobID).
		Str("work_item_id", msg.WorkItemID).
		Int("attempt", msg.Attempt).
		Str("lane", string(msg.Lane)).
		Logger()

	claimed, err := p.deps.Jobs.BeginAttempt(ctx, msg.WorkItemID, msg.Attempt)
	if err != nil {
		p.dispose(ctx, msg, domain.NewFailure(domain.FailureTransient, stagePersist, err), log)
		return
	}
	if !claimed {
		// Redelivery of a terminal or already-claimed attempt. At-least-once
		// delivery makes these routine; dropping them is the idempotency
		// guarantee.
		log.Debug().Msg("worker: duplicate delivery dropped")
		_ = p.deps.Queue.Ack(msg.ID)
		return
	}

	if err := p.process(ctx, msg); err != nil {
		p.dispose(ctx, msg, err, log)
		return
	}
	if err := p.deps.Queue.Ack(msg.ID); err != nil {
		log.Warn().Err(err).Msg("worker: ack after success failed, redelivery will deduplicate")
	}
	log.Info().Msg("worker: work item succeeded")
}

// process runs the stage pipeline in order. Cancellation is checked before
// every stage up to moderation; once a verdict exists the item persists
// regardless, because moderation verdicts are terminal.
func (p *Pool) process(ctx context.Context, msg domain.QueueMessage) error {
	if err := p.guardCancelled(ctx, msg.JobID, analysis.StageName); err != nil {
		return err
	}
	start := time.Now()
	detection, err := p.deps.Analyzer.Analyze(ctx, sourceRef(msg))
	p.observe(analysis.StageName, start)
	if err != nil {
		return stageFailure(analysis.StageName, err)
	}

	if err := p.guardCancelled(ctx, msg.JobID, stageClassify); err != nil {
		return err
	}
	start = time.Now()
	ranked, err := classify.Rank(detection.Elements, p.cfg.Rules)
	p.observe(stageClassify, start)
	if err != nil {
		var cerr *classify.ClassificationError
		if errors.As(err, &cerr) {
			return domain.NewFailure(domain.FailureConfiguration, stageClassify, err)
		}
		return stageFailure(stageClassify, err)
	}

	if err := p.guardCancelled(ctx, msg.JobID, stagePlan); err != nil {
		return err
	}
	start = time.Now()
	adaptation, err := plan.Build(ranked, detection.Source, msg.Format, p.cfg.PlanConfig)
	p.observe(stagePlan, start)
	if err != nil {
		return domain.NewFailure(domain.FailurePermanentInput, stagePlan, err)
	}

	if err := p.guardCancelled(ctx, msg.JobID, stageRender); err != nil {
		return err
	}
	start = time.Now()
	rendered, err := p.deps.Renderer.Render(ctx, RenderRequest{
		Source: sourceRef(msg),
		Plan:   adaptation,
		Format: msg.Format,
	})
	p.observe(stageRender, start)
	if err != nil {
		return stageFailure(stageRender, err)
	}

	if err := p.guardCancelled(ctx, msg.JobID, stageModerate); err != nil {
		return err
	}
	start = time.Now()
	verdict, err := p.deps.Gate.Check(ctx, rendered.Content)
	p.observe(stageModerate, start)
	if err != nil {
		return stageFailure(stageModerate, err)
	}

	start = time.Now()
	err = p.persist(ctx, msg, adaptation, rendered, verdict)
	p.observe(stagePersist, start)
	return err
}

func (p *Pool) persist(ctx context.Context, msg domain.QueueMessage, adaptation domain.AdaptationPlan, rendered *Rendered, verdict moderation.Verdict) error {
	storageKey := renderKey(msg)
	if p.deps.Store != nil {
		key, err := p.deps.Store.Write(ctx, storageKey, rendered.Content)
		if err != nil {
			return stageFailure(stagePersist, err)
		}
		storageKey = key
	}

	record := &domain.GeneratedAssetRecord{
		ID:                 uuid.NewString(),
		WorkItemID:         msg.WorkItemID,
		JobID:              msg.JobID,
		StorageKey:         storageKey,
		Width:              rendered.Width,
		Height:             rendered.Height,
		Flagged:            verdict.Flagged,
		ModerationCategory: string(verdict.Category),
		PlanUsed:           adaptation.Strategy,
		CreatedAt:          time.Now().UTC(),
	}
	if err := p.deps.Assets.Save(ctx, record); err != nil && !errors.Is(err, domain.ErrDuplicateOperation) {
		return stageFailure(stagePersist, err)
	}
	if err := p.deps.Jobs.CompleteWorkItem(ctx, msg.WorkItemID, msg.Attempt); err != nil {
		return stageFailure(stagePersist, err)
	}
	if _, err := p.deps.Jobs.RecomputeJobStatus(ctx, msg.JobID); err != nil {
		return stageFailure(stagePersist, err)
	}
	return nil
}

// dispose routes a failed attempt: requeue with backoff, dead-letter, or
// quiet termination for cancellation.
func (p *Pool) dispose(ctx context.Context, msg domain.QueueMessage, failErr error, log zerolog.Logger) {
	kind := domain.ClassifyError(failErr)
	decision := p.deps.Retry.Decide(kind, msg.Attempt)

	switch decision.Action {
	case retry.ActionRequeue:
		if err := p.deps.Queue.Ack(msg.ID); err != nil {
			log.Warn().Err(err).Msg("worker: releasing claim before requeue failed")
		}
		next := msg
		next.Attempt++
		next.LastError = failErr.Error()
		next.EnqueuedAt = time.Time{}
		if err := p.deps.Queue.EnqueueAfter(next, claimableLane(msg.Lane), decision.Delay); err != nil {
			log.Error().Err(err).Msg("worker: requeue failed, message lost until redelivery")
			return
		}
		log.Warn().
			Str("failure_kind", string(kind)).
			Dur("backoff", decision.Delay).
			Msg("worker: attempt failed, requeued with backoff")

	case retry.ActionDeadLetter:
		p.deps.Queue.DeadLetter(msg, failErr.Error())
		p.markFailed(ctx, msg, failErr, log)
		log.Error().
			Err(failErr).
			Str("failure_kind", string(kind)).
			Msg("worker: work item dead-lettered")

	case retry.ActionDrop:
		_ = p.deps.Queue.Ack(msg.ID)
		p.markFailed(ctx, msg, failErr, log)
		log.Info().Msg("worker: work item cancelled")
	}
}

func (p *Pool) markFailed(ctx context.Context, msg domain.QueueMessage, failErr error, log zerolog.Logger) {
	reason := failErr.Error()
	// Cancellation is a user action, not a fault; the reason string stays
	// plain instead of carrying the wrapped stage error.
	if f, ok := domain.AsFailure(failErr); ok && f.Kind == domain.FailureCancelled {
		reason = string(domain.FailureCancelled)
	}
	if err := p.deps.Jobs.FailWorkItem(ctx, msg.WorkItemID, msg.Attempt, reason); err != nil {
		log.Error().Err(err).Msg("worker: recording terminal failure failed")
		return
	}
	if _, err := p.deps.Jobs.RecomputeJobStatus(ctx, msg.JobID); err != nil {
		log.Error().Err(err).Msg("worker: job status recompute failed")
	}
}

func (p *Pool) guardCancelled(ctx context.Context, jobID, stage string) error {
	cancelled, err := p.deps.Jobs.CancelRequested(ctx, jobID)
	if err != nil {
		return domain.NewFailure(domain.FailureTransient, stage, err)
	}
	if cancelled {
		return domain.NewFailure(domain.FailureCancelled, stage, errors.New("job cancellation requested"))
	}
	return nil
}

func (p *Pool) observe(stage string, start time.Time) {
	if p.deps.Observer != nil {
		p.deps.Observer.ObserveStage(stage, time.Since(start))
	}
}

func stageFailure(stage string, err error) error {
	if _, ok := domain.AsFailure(err); ok {
		return err
	}
	return domain.NewFailure(domain.ClassifyError(err), stage, err)
}

func sourceRef(msg domain.QueueMessage) analysis.AssetRef {
	ref := analysis.AssetRef{AssetID: msg.AssetRef}
	if strings.HasPrefix(msg.AssetRef, "http://") || strings.HasPrefix(msg.AssetRef, "https://") {
		ref.URL = msg.AssetRef
	} else {
		ref.StorageKey = msg.AssetRef
	}
	return ref
}

func renderKey(msg domain.QueueMessage) string {
	return fmt.Sprintf("renders/%s/%s-%s.png", msg.JobID, msg.WorkItemID, msg.Format.ID)
}

func claimableLane(lane domain.Lane) domain.Lane {
	if lane == domain.LanePriority {
		return domain.LanePriority
	}
	return domain.LanePrimary
}
