package domain

// Strategy enumerates the geometric transform families the planner can pick.
type Strategy string

const (
	StrategyCropRegion   Strategy = "crop-region"
	StrategyExtendCanvas Strategy = "extend-canvas"
)

// PixelRect is a rectangle in source pixel coordinates.
type PixelRect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// PixelPoint is a point in source pixel coordinates.
type PixelPoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// AdaptationPlan is the transform specification the planner emits for one
// work item. It never carries pixel data; rendering is a downstream concern.
type AdaptationPlan struct {
	Strategy     Strategy   `json:"strategy"`
	TargetWidth  int        `json:"target_width"`
	TargetHeight int        `json:"target_height"`
	Anchor       PixelPoint `json:"anchor"`
	// Crop is set for crop-region plans: the source window to keep.
	Crop *PixelRect `json:"crop,omitempty"`
	// Canvas is set for extend-canvas plans: where the source lands on
	// the padded target canvas.
	Canvas *PixelRect `json:"canvas,omitempty"`
}
