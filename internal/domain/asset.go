package domain

import (
	"encoding/json"
	"time"
)

// GeneratedAssetRecord is the persisted output of one work item. The record
// is immutable once the moderation verdict is attached; later manual edits
// accumulate on the overlay, they never rewrite the record itself.
type GeneratedAssetRecord struct {
	ID                 string
	WorkItemID         string
	JobID              string
	StorageKey         string
	Width              int
	Height             int
	Flagged            bool
	ModerationCategory string
	PlanUsed           Strategy
	// ManualEdits is an opaque overlay owned by the editing collaborator.
	// The engine validates its envelope at the boundary and never
	// interprets the contents.
	ManualEdits json.RawMessage
	CreatedAt   time.Time
}
