package domain

import "time"

// Lane names one of the three logical queues.
type Lane string

const (
	LanePrimary    Lane = "primary"
	LanePriority   Lane = "priority"
	LaneDeadLetter Lane = "dead_letter"
)

// ParseLane validates a lane name supplied by an operator.
func ParseLane(value string) (Lane, bool) {
	switch Lane(value) {
	case LanePrimary, LanePriority, LaneDeadLetter:
		return Lane(value), true
	default:
		return "", false
	}
}

// QueueMessage is the wire representation of a work item plus routing
// metadata. Delivery is at-least-once, so consumers must treat a duplicate
// of an already-terminal work item as a no-op.
type QueueMessage struct {
	ID         string       `json:"id"`
	JobID      string       `json:"job_id"`
	WorkItemID string       `json:"work_item_id"`
	AssetRef   string       `json:"asset_ref"`
	Format     TargetFormat `json:"format_spec"`
	Attempt    int          `json:"attempt"`
	EnqueuedAt time.Time    `json:"enqueued_at"`
	Lane       Lane         `json:"lane"`
	LastError  string       `json:"last_error,omitempty"`
}
