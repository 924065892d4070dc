// Package analysis abstracts the interchangeable AI backends that detect
// elements in source assets. Each backend variant maps its own failure modes
// into the engine taxonomy at this boundary; raw backend errors never leak
// upward.
package analysis

import (
	"context"
	"time"

	"creatflow/internal/domain"
)

// StageName identifies this pipeline stage in classified failures and metrics.
const StageName = "analyze"

// DefaultTimeout bounds a single backend call. Expiry is a transient
// failure, never a hang.
const DefaultTimeout = 30 * time.Second

// AssetRef points at a source asset to analyze without carrying its bytes.
type AssetRef struct {
	AssetID    string `json:"asset_id"`
	StorageKey string `json:"storage_key,omitempty"`
	URL        string `json:"url,omitempty"`
	MIME       string `json:"mime,omitempty"`
}

// Detection is the normalized analysis result every backend variant returns.
type Detection struct {
	Elements []domain.DetectedElement
	Source   domain.Dimensions
	Raw      map[string]any
	Provider string
}

// Analyzer is the capability interface over one AI analysis backend.
type Analyzer interface {
	// Analyze inspects the referenced asset. Errors are always classified
	// domain failures.
	Analyze(ctx context.Context, ref AssetRef) (*Detection, error)
	// Name identifies the backend for logging and fallback bookkeeping.
	Name() string
}

// Config holds the per-backend settings wired at construction time.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// wireElement is the bounding-box shape shared by the backend payloads.
type wireElement struct {
	Kind        string  `json:"kind"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	W           float64 `json:"w"`
	H           float64 `json:"h"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description,omitempty"`
}
