package domain

import "time"

// JobStatus enumerates generation job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether a job can no longer change state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// WorkItemState enumerates states of a single (asset, format) unit of work.
type WorkItemState string

const (
	WorkItemPending    WorkItemState = "pending"
	WorkItemProcessing WorkItemState = "processing"
	WorkItemSucceeded  WorkItemState = "succeeded"
	WorkItemFailed     WorkItemState = "failed"
)

// Terminal reports whether a work item has reached a final state.
func (s WorkItemState) Terminal() bool {
	return s == WorkItemSucceeded || s == WorkItemFailed
}

// FormatKind distinguishes the two target format families.
type FormatKind string

const (
	FormatResizing    FormatKind = "resizing"
	FormatRepurposing FormatKind = "repurposing"
)

// TargetFormat describes the output dimensions a work item must produce.
type TargetFormat struct {
	ID     string     `json:"id"`
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Kind   FormatKind `json:"kind"`
}

// AspectRatio returns width over height, or 0 when the format is degenerate.
func (f TargetFormat) AspectRatio() float64 {
	if f.Height <= 0 {
		return 0
	}
	return float64(f.Width) / float64(f.Height)
}

// GenerationJob owns an ordered set of work items submitted together.
// The engine owns the record once enqueued; collaborators only read it.
type GenerationJob struct {
	ID              string
	ProjectID       string
	Status          JobStatus
	Progress        int
	TotalItems      int
	CancelRequested bool
	LastError       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// WorkItem is the unit of retryable work: one (asset, format) pair.
// Its attempt count and terminal result are independent of siblings so
// partial failure of a job never fails unrelated items.
type WorkItem struct {
	ID         string
	JobID      string
	AssetID    string
	AssetRef   string
	Format     TargetFormat
	State      WorkItemState
	Attempt    int
	LastError  string
	FailReason string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
