package repo

import (
	"context"
	"sync"
	"time"

	"creatflow/internal/domain"
)

// Memory is an in-process implementation of the job and asset repositories.
// It backs tests and single-node development runs; production deployments
// use the Postgres adapters in this package.
type Memory struct {
	mu         sync.Mutex
	jobs       map[string]*domain.GenerationJob
	items      map[string]*domain.WorkItem
	itemOrder  map[string][]string
	records    map[string]*domain.GeneratedAssetRecord
	byWorkItem map[string]string
	assetOrder map[string][]string
	clock      func() time.Time
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		jobs:       make(map[string]*domain.GenerationJob),
		items:      make(map[string]*domain.WorkItem),
		itemOrder:  make(map[string][]string),
		records:    make(map[string]*domain.GeneratedAssetRecord),
		byWorkItem: make(map[string]string),
		assetOrder: make(map[string][]string),
		clock:      time.Now,
	}
}

func (m *Memory) now() time.Time { return m.clock().UTC() }

func (m *Memory) CreateJob(ctx context.Context, job *domain.GenerationJob, items []domain.WorkItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; ok {
		return domain.ErrDuplicateOperation
	}
	now := m.now()
	cp := *job
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	cp.TotalItems = len(items)
	m.jobs[cp.ID] = &cp
	for _, item := range items {
		ic := item
		ic.JobID = cp.ID
		if ic.State == "" {
			ic.State = domain.WorkItemPending
		}
		if ic.CreatedAt.IsZero() {
			ic.CreatedAt = now
		}
		ic.UpdatedAt = now
		m.items[ic.ID] = &ic
		m.itemOrder[cp.ID] = append(m.itemOrder[cp.ID], ic.ID)
	}
	return nil
}

func (m *Memory) GetJob(ctx context.Context, jobID string) (*domain.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *Memory) ListWorkItems(ctx context.Context, jobID string) ([]domain.WorkItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[jobID]; !ok {
		return nil, domain.ErrNotFound
	}
	out := make([]domain.WorkItem, 0, len(m.itemOrder[jobID]))
	for _, id := range m.itemOrder[jobID] {
		out = append(out, *m.items[id])
	}
	return out, nil
}

// BeginAttempt claims one attempt. A terminal item or an attempt at or below
// the recorded count is a duplicate delivery and returns false without error.
func (m *Memory) BeginAttempt(ctx context.Context, workItemID string, attempt int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[workItemID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if item.State.Terminal() || attempt <= item.Attempt {
		return false, nil
	}
	item.Attempt = attempt
	item.State = domain.WorkItemProcessing
	item.UpdatedAt = m.now()
	if job, ok := m.jobs[item.JobID]; ok && job.Status == domain.JobStatusPending {
		job.Status = domain.JobStatusProcessing
		job.UpdatedAt = item.UpdatedAt
	}
	return true, nil
}

func (m *Memory) CompleteWorkItem(ctx context.Context, workItemID string, attempt int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[workItemID]
	if !ok {
		return domain.ErrNotFound
	}
	if item.State.Terminal() {
		return nil
	}
	item.State = domain.WorkItemSucceeded
	item.Attempt = attempt
	item.UpdatedAt = m.now()
	return nil
}

func (m *Memory) FailWorkItem(ctx context.Context, workItemID string, attempt int, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[workItemID]
	if !ok {
		return domain.ErrNotFound
	}
	if item.State.Terminal() {
		return nil
	}
	item.State = domain.WorkItemFailed
	item.Attempt = attempt
	item.LastError = reason
	item.FailReason = reason
	item.UpdatedAt = m.now()
	return nil
}

// ReopenWorkItem resets a failed item to pending so a dead-letter requeue
// can claim its next attempt. Succeeded items stay closed.
func (m *Memory) ReopenWorkItem(ctx context.Context, workItemID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[workItemID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if item.State == domain.WorkItemSucceeded {
		return 0, domain.ErrDuplicateOperation
	}
	if item.State == domain.WorkItemFailed {
		item.State = domain.WorkItemPending
		item.FailReason = ""
		item.UpdatedAt = m.now()
	}
	return item.Attempt, nil
}

func (m *Memory) RecomputeJobStatus(ctx context.Context, jobID string) (domain.JobStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return "", domain.ErrNotFound
	}

	var done, failed, started int
	var lastFail string
	for _, id := range m.itemOrder[jobID] {
		item := m.items[id]
		if item.Attempt > 0 {
			started++
		}
		if item.State.Terminal() {
			done++
		}
		if item.State == domain.WorkItemFailed {
			failed++
			lastFail = item.FailReason
		}
	}

	total := len(m.itemOrder[jobID])
	job.Progress = done
	switch {
	case total > 0 && done == total && failed == 0:
		job.Status = domain.JobStatusCompleted
	case total > 0 && done == total:
		job.Status = domain.JobStatusFailed
		job.LastError = lastFail
	case started > 0:
		job.Status = domain.JobStatusProcessing
	default:
		job.Status = domain.JobStatusPending
	}
	job.UpdatedAt = m.now()
	return job.Status, nil
}

func (m *Memory) RequestCancel(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status.Terminal() {
		return domain.ErrJobTerminal
	}
	job.CancelRequested = true
	job.UpdatedAt = m.now()
	return nil
}

func (m *Memory) CancelRequested(ctx context.Context, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return false, domain.ErrNotFound
	}
	return job.CancelRequested, nil
}

func (m *Memory) Save(ctx context.Context, record *domain.GeneratedAssetRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byWorkItem[record.WorkItemID]; ok {
		return domain.ErrDuplicateOperation
	}
	cp := *record
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = m.now()
	}
	m.records[cp.ID] = &cp
	m.byWorkItem[cp.WorkItemID] = cp.ID
	m.assetOrder[cp.JobID] = append(m.assetOrder[cp.JobID], cp.ID)
	return nil
}

func (m *Memory) GetByWorkItem(ctx context.Context, workItemID string) (*domain.GeneratedAssetRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byWorkItem[workItemID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m.records[id]
	return &cp, nil
}

func (m *Memory) ListByJob(ctx context.Context, jobID string) ([]domain.GeneratedAssetRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.GeneratedAssetRecord, 0, len(m.assetOrder[jobID]))
	for _, id := range m.assetOrder[jobID] {
		out = append(out, *m.records[id])
	}
	return out, nil
}

func (m *Memory) AttachManualEdits(ctx context.Context, recordID string, overlay []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[recordID]
	if !ok {
		return domain.ErrNotFound
	}
	record.ManualEdits = append([]byte(nil), overlay...)
	return nil
}

var (
	_ domain.JobRepository   = (*Memory)(nil)
	_ domain.AssetRepository = (*Memory)(nil)
)
