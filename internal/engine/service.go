// Package engine is the submission-facing service: it mints jobs, fans work
// items out onto the queue, and answers status, cancellation, and
// dead-letter recovery calls.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"creatflow/internal/domain"
	"creatflow/internal/domain/jsoncfg"
	"creatflow/internal/queue"
)

// ErrInvalidSubmission wraps every validation error so transports can map
// the whole family to a client-error response.
var ErrInvalidSubmission = errors.New("invalid submission")

// SubmitItem is one (asset, format) pair in a submission.
type SubmitItem struct {
	AssetID  string              `json:"asset_id"`
	AssetRef string              `json:"asset_ref"`
	Format   domain.TargetFormat `json:"format_spec"`
}

// SubmitRequest is a validated-at-the-boundary job submission.
type SubmitRequest struct {
	ProjectID string       `json:"project_id"`
	Items     []SubmitItem `json:"items"`
	Priority  bool         `json:"priority"`
}

// JobView aggregates everything a status call reports about one job.
type JobView struct {
	Job    domain.GenerationJob          `json:"job"`
	Items  []domain.WorkItem             `json:"items"`
	Assets []domain.GeneratedAssetRecord `json:"assets"`
}

// Service coordinates repositories and the queue router. It never runs the
// pipeline itself; workers do.
type Service struct {
	jobs   domain.JobRepository
	assets domain.AssetRepository
	queue  *queue.Router
	logger zerolog.Logger
	clock  func() time.Time
}

// NewService wires the submission service.
func NewService(jobs domain.JobRepository, assets domain.AssetRepository, q *queue.Router, logger zerolog.Logger) *Service {
	return &Service{jobs: jobs, assets: assets, queue: q, logger: logger, clock: time.Now}
}

// Submit validates the request, persists the job with one work item per
// (asset, format) pair, and enqueues a message per item. Priority
// submissions go to the priority lane; everything else to primary.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*domain.GenerationJob, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	now := s.clock().UTC()
	job := &domain.GenerationJob{
		ID:         uuid.NewString(),
		ProjectID:  req.ProjectID,
		Status:     domain.JobStatusPending,
		TotalItems: len(req.Items),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	items := make([]domain.WorkItem, 0, len(req.Items))
	messages := make([]domain.QueueMessage, 0, len(req.Items))
	for _, in := range req.Items {
		itemID := uuid.NewString()
		items = append(items, domain.WorkItem{
			ID:        itemID,
			JobID:     job.ID,
			AssetID:   in.AssetID,
			AssetRef:  in.AssetRef,
			Format:    in.Format,
			State:     domain.WorkItemPending,
			CreatedAt: now,
			UpdatedAt: now,
		})
		messages = append(messages, domain.QueueMessage{
			ID:         uuid.NewString(),
			JobID:      job.ID,
			WorkItemID: itemID,
			AssetRef:   in.AssetRef,
			Format:     in.Format,
			Attempt:    1,
			EnqueuedAt: now,
		})
	}

	if err := s.jobs.CreateJob(ctx, job, items); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	lane := domain.LanePrimary
	if req.Priority {
		lane = domain.LanePriority
	}
	for _, msg := range messages {
		if err := s.queue.Enqueue(msg, lane); err != nil {
			return nil, fmt.Errorf("enqueue work item %s: %w", msg.WorkItemID, err)
		}
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("project_id", job.ProjectID).
		Int("items", len(items)).
		Str("lane", string(lane)).
		Msg("engine: job submitted")
	return job, nil
}

// Status reports the job aggregate, per-item states, and persisted assets.
func (s *Service) Status(ctx context.Context, jobID string) (*JobView, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	items, err := s.jobs.ListWorkItems(ctx, jobID)
	if err != nil {
		return nil, err
	}
	records, err := s.assets.ListByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return &JobView{Job: *job, Items: items, Assets: records}, nil
}

// Cancel requests cooperative cancellation. Items already past their last
// cancellation checkpoint finish and keep their records.
func (s *Service) Cancel(ctx context.Context, jobID string) error {
	if err := s.jobs.RequestCancel(ctx, jobID); err != nil {
		return err
	}
	s.logger.Info().Str("job_id", jobID).Msg("engine: cancellation requested")
	return nil
}

// DeadLetters lists parked messages for operator inspection.
func (s *Service) DeadLetters() []domain.QueueMessage {
	return s.queue.DeadLetters()
}

// RequeueDeadLetter moves one parked message back to a claimable lane for
// manual recovery. Dead-lettering already marked the work item failed, so
// the item is reopened and the message carries the next attempt number;
// otherwise the duplicate-delivery guard would swallow the redelivery.
// Reopening also recomputes the owning job, which moves a failed job back
// to processing while the recovered attempt runs.
func (s *Service) RequeueDeadLetter(ctx context.Context, messageID string, lane domain.Lane) error {
	if lane != domain.LanePrimary && lane != domain.LanePriority {
		return queue.ErrBadLane
	}
	msg, err := s.queue.TakeDeadLetter(messageID)
	if err != nil {
		return err
	}
	attempt, err := s.jobs.ReopenWorkItem(ctx, msg.WorkItemID)
	if err != nil {
		// Put the message back so the operator can inspect it again.
		s.queue.DeadLetter(msg, msg.LastError)
		return err
	}
	if _, err := s.jobs.RecomputeJobStatus(ctx, msg.JobID); err != nil {
		s.logger.Warn().Err(err).Str("job_id", msg.JobID).Msg("engine: job recompute after reopen failed")
	}

	msg.Attempt = attempt + 1
	msg.LastError = ""
	msg.EnqueuedAt = time.Time{}
	if err := s.queue.Enqueue(msg, lane); err != nil {
		return err
	}
	s.logger.Info().
		Str("message_id", messageID).
		Str("work_item_id", msg.WorkItemID).
		Str("lane", string(lane)).
		Int("attempt", msg.Attempt).
		Msg("engine: dead letter requeued")
	return nil
}

// AttachManualEdits validates the overlay envelope and stores it on the
// record without touching the moderated fields.
func (s *Service) AttachManualEdits(ctx context.Context, recordID string, raw []byte) error {
	overlay, err := jsoncfg.ParseEditOverlay(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}
	return s.assets.AttachManualEdits(ctx, recordID, jsoncfg.MustMarshal(overlay))
}

func validate(req SubmitRequest) error {
	if req.ProjectID == "" {
		return fmt.Errorf("%w: project_id is required", ErrInvalidSubmission)
	}
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrInvalidSubmission)
	}
	for i, item := range req.Items {
		if item.AssetRef == "" {
			return fmt.Errorf("%w: item %d has no asset_ref", ErrInvalidSubmission, i)
		}
		if item.Format.Width <= 0 || item.Format.Height <= 0 {
			return fmt.Errorf("%w: item %d format %dx%d is invalid", ErrInvalidSubmission, i, item.Format.Width, item.Format.Height)
		}
		switch item.Format.Kind {
		case domain.FormatResizing, domain.FormatRepurposing:
		default:
			return fmt.Errorf("%w: item %d has unknown format kind %q", ErrInvalidSubmission, i, item.Format.Kind)
		}
	}
	return nil
}
