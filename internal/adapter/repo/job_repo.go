package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"creatflow/internal/domain"
	"creatflow/internal/infra"
	"creatflow/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository on PostgreSQL. Attempt
// claims and job recomputes are single atomic statements, so concurrent
// workers never race each other stale.
type JobRepositoryPG struct {
	db infra.SQLExecutor
}

// NewJobRepository creates a job repository backed by PostgreSQL.
func NewJobRepository(db infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{db: db}
}

func (r *JobRepositoryPG) CreateJob(ctx context.Context, job *domain.GenerationJob, items []domain.WorkItem) error {
	now := time.Now().UTC()
	if !job.CreatedAt.IsZero() {
		now = job.CreatedAt
	}
	if _, err := r.db.Exec(ctx, sqlinline.QInsertJob, job.ID, job.ProjectID, job.Status, len(items), now); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	for _, item := range items {
		formatJSON, err := json.Marshal(item.Format)
		if err != nil {
			return fmt.Errorf("marshal format for item %s: %w", item.ID, err)
		}
		if _, err := r.db.Exec(ctx, sqlinline.QInsertWorkItem, item.ID, job.ID, item.AssetID, item.AssetRef, formatJSON, now); err != nil {
			return fmt.Errorf("insert work item %s: %w", item.ID, err)
		}
	}
	return nil
}

func (r *JobRepositoryPG) GetJob(ctx context.Context, jobID string) (*domain.GenerationJob, error) {
	row := r.db.QueryRow(ctx, sqlinline.QGetJob, jobID)
	var job domain.GenerationJob
	if err := row.Scan(
		&job.ID,
		&job.ProjectID,
		&job.Status,
		&job.Progress,
		&job.TotalItems,
		&job.CancelRequested,
		&job.LastError,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

func (r *JobRepositoryPG) ListWorkItems(ctx context.Context, jobID string) ([]domain.WorkItem, error) {
	rows, err := r.db.Query(ctx, sqlinline.QListWorkItems, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.WorkItem
	for rows.Next() {
		var item domain.WorkItem
		var formatJSON []byte
		if err := rows.Scan(
			&item.ID,
			&item.JobID,
			&item.AssetID,
			&item.AssetRef,
			&formatJSON,
			&item.State,
			&item.Attempt,
			&item.LastError,
			&item.FailReason,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(formatJSON, &item.Format); err != nil {
			return nil, fmt.Errorf("decode format for item %s: %w", item.ID, err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *JobRepositoryPG) BeginAttempt(ctx context.Context, workItemID string, attempt int) (bool, error) {
	row := r.db.QueryRow(ctx, sqlinline.QBeginAttempt, workItemID, attempt)
	var jobID string
	if err := row.Scan(&jobID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	if _, err := r.db.Exec(ctx, sqlinline.QMarkJobProcessing, jobID); err != nil {
		return false, err
	}
	return true, nil
}

func (r *JobRepositoryPG) CompleteWorkItem(ctx context.Context, workItemID string, attempt int) error {
	_, err := r.db.Exec(ctx, sqlinline.QCompleteWorkItem, workItemID, attempt)
	return err
}

func (r *JobRepositoryPG) FailWorkItem(ctx context.Context, workItemID string, attempt int, reason string) error {
	_, err := r.db.Exec(ctx, sqlinline.QFailWorkItem, workItemID, attempt, reason)
	return err
}

func (r *JobRepositoryPG) ReopenWorkItem(ctx context.Context, workItemID string) (int, error) {
	row := r.db.QueryRow(ctx, sqlinline.QReopenWorkItem, workItemID)
	var attempt int
	if err := row.Scan(&attempt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the item is unknown or it already succeeded.
			var state domain.WorkItemState
			if serr := r.db.QueryRow(ctx, sqlinline.QWorkItemState, workItemID).Scan(&state); serr != nil {
				if errors.Is(serr, pgx.ErrNoRows) {
					return 0, domain.ErrNotFound
				}
				return 0, serr
			}
			return 0, domain.ErrDuplicateOperation
		}
		return 0, err
	}
	return attempt, nil
}

func (r *JobRepositoryPG) RecomputeJobStatus(ctx context.Context, jobID string) (domain.JobStatus, error) {
	row := r.db.QueryRow(ctx, sqlinline.QRecomputeJobStatus, jobID)
	var status domain.JobStatus
	if err := row.Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return status, nil
}

func (r *JobRepositoryPG) RequestCancel(ctx context.Context, jobID string) error {
	row := r.db.QueryRow(ctx, sqlinline.QRequestCancel, jobID)
	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the job is unknown or it is already terminal.
			if _, getErr := r.GetJob(ctx, jobID); getErr != nil {
				return getErr
			}
			return domain.ErrJobTerminal
		}
		return err
	}
	return nil
}

func (r *JobRepositoryPG) CancelRequested(ctx context.Context, jobID string) (bool, error) {
	row := r.db.QueryRow(ctx, sqlinline.QCancelRequested, jobID)
	var cancelled bool
	if err := row.Scan(&cancelled); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, domain.ErrNotFound
		}
		return false, err
	}
	return cancelled, nil
}

// OpenItem is a non-terminal work item needing re-enqueue after a restart.
type OpenItem struct {
	WorkItemID string
	JobID      string
	AssetRef   string
	Format     domain.TargetFormat
	Attempt    int
}

// ListOpenItems returns every pending or processing work item. Queue
// recovery enqueues each with attempt+1 so stale in-flight claims from a
// crashed process cannot shadow the redelivery.
func (r *JobRepositoryPG) ListOpenItems(ctx context.Context) ([]OpenItem, error) {
	rows, err := r.db.Query(ctx, sqlinline.QListOpenWorkItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OpenItem
	for rows.Next() {
		var item OpenItem
		var formatJSON []byte
		if err := rows.Scan(&item.WorkItemID, &item.JobID, &item.AssetRef, &formatJSON, &item.Attempt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(formatJSON, &item.Format); err != nil {
			return nil, fmt.Errorf("decode format for item %s: %w", item.WorkItemID, err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
