package domain

import "context"

// JobRepository defines persistence for jobs and their work items. All
// mutations are single-row idempotent updates keyed by work item identifier
// plus attempt count so duplicate queue deliveries become no-ops.
type JobRepository interface {
	CreateJob(ctx context.Context, job *GenerationJob, items []WorkItem) error
	GetJob(ctx context.Context, jobID string) (*GenerationJob, error)
	ListWorkItems(ctx context.Context, jobID string) ([]WorkItem, error)

	// BeginAttempt claims an attempt for a work item: it moves the item to
	// processing, records the attempt number, and flips the owning job from
	// pending to processing on the first claim. It returns false without
	// error when the item is already terminal or the attempt is stale,
	// which is how redelivered messages are detected.
	BeginAttempt(ctx context.Context, workItemID string, attempt int) (bool, error)

	CompleteWorkItem(ctx context.Context, workItemID string, attempt int) error
	FailWorkItem(ctx context.Context, workItemID string, attempt int, reason string) error

	// ReopenWorkItem moves a failed work item back to pending for manual
	// dead-letter recovery and returns the attempt count it has already
	// consumed, so the requeued message can carry the next attempt number.
	// Pending and processing items are left as they are; succeeded items
	// return ErrDuplicateOperation because a record already exists.
	ReopenWorkItem(ctx context.Context, workItemID string) (int, error)

	// RecomputeJobStatus derives the job's aggregate status from all of its
	// work items' current states in one atomic read-modify-write, so
	// concurrent workers finishing sibling items cannot race it stale.
	RecomputeJobStatus(ctx context.Context, jobID string) (JobStatus, error)

	RequestCancel(ctx context.Context, jobID string) error
	CancelRequested(ctx context.Context, jobID string) (bool, error)
}

// AssetRepository handles persistence for generated asset records.
type AssetRepository interface {
	// Save persists a record unless one already exists for the work item;
	// the duplicate case returns ErrDuplicateOperation so redelivery cannot
	// mint a second record.
	Save(ctx context.Context, record *GeneratedAssetRecord) error
	GetByWorkItem(ctx context.Context, workItemID string) (*GeneratedAssetRecord, error)
	ListByJob(ctx context.Context, jobID string) ([]GeneratedAssetRecord, error)
	// AttachManualEdits stores a new edit overlay without touching the
	// moderated record fields.
	AttachManualEdits(ctx context.Context, recordID string, overlay []byte) error
}
