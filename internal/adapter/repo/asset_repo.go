package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"creatflow/internal/domain"
	"creatflow/internal/infra"
	"creatflow/internal/sqlinline"
)

// AssetRepositoryPG implements domain.AssetRepository on PostgreSQL. The
// unique index on work_item_id is the idempotency guard: a second insert for
// the same work item affects no rows.
type AssetRepositoryPG struct {
	db infra.SQLExecutor
}

// NewAssetRepository creates an asset repository backed by PostgreSQL.
func NewAssetRepository(db infra.SQLExecutor) *AssetRepositoryPG {
	return &AssetRepositoryPG{db: db}
}

func (r *AssetRepositoryPG) Save(ctx context.Context, record *domain.GeneratedAssetRecord) error {
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	row := r.db.QueryRow(ctx, sqlinline.QInsertAsset,
		record.ID,
		record.WorkItemID,
		record.JobID,
		record.StorageKey,
		record.Width,
		record.Height,
		record.Flagged,
		record.ModerationCategory,
		record.PlanUsed,
		nullableBytes(record.ManualEdits),
		createdAt,
	)
	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrDuplicateOperation
		}
		return err
	}
	return nil
}

func (r *AssetRepositoryPG) GetByWorkItem(ctx context.Context, workItemID string) (*domain.GeneratedAssetRecord, error) {
	row := r.db.QueryRow(ctx, sqlinline.QGetAssetByWorkItem, workItemID)
	record, err := scanAsset(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

func (r *AssetRepositoryPG) ListByJob(ctx context.Context, jobID string) ([]domain.GeneratedAssetRecord, error) {
	rows, err := r.db.Query(ctx, sqlinline.QListAssetsByJob, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.GeneratedAssetRecord
	for rows.Next() {
		record, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *record)
	}
	return out, rows.Err()
}

func (r *AssetRepositoryPG) AttachManualEdits(ctx context.Context, recordID string, overlay []byte) error {
	row := r.db.QueryRow(ctx, sqlinline.QAttachManualEdits, recordID, overlay)
	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAsset(row scannable) (*domain.GeneratedAssetRecord, error) {
	var record domain.GeneratedAssetRecord
	var edits []byte
	if err := row.Scan(
		&record.ID,
		&record.WorkItemID,
		&record.JobID,
		&record.StorageKey,
		&record.Width,
		&record.Height,
		&record.Flagged,
		&record.ModerationCategory,
		&record.PlanUsed,
		&edits,
		&record.CreatedAt,
	); err != nil {
		return nil, err
	}
	record.ManualEdits = edits
	return &record, nil
}

func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

var _ domain.AssetRepository = (*AssetRepositoryPG)(nil)
