// Package plan chooses the geometric adaptation strategy for one target
// format. It only emits a transform specification; pixels are rendered by a
// downstream collaborator.
package plan

import (
	"fmt"
	"math"

	"creatflow/internal/domain"
)

// Config tunes the crop-versus-extend decision.
type Config struct {
	// AspectTolerance is the maximum relative distance between the top
	// element's region aspect and the target aspect for a crop to be
	// considered at all.
	AspectTolerance float64
	// MaxCropLoss caps the fraction of any ranked element's area a crop
	// window may cut away.
	MaxCropLoss float64
	// TopN bounds how many ranked elements anchor candidates and the
	// extend-canvas union box consider.
	TopN int
}

// DefaultConfig mirrors the engine defaults.
func DefaultConfig() Config {
	return Config{AspectTolerance: 0.15, MaxCropLoss: 0.2, TopN: 3}
}

func (c *Config) normalize() {
	if c.AspectTolerance <= 0 {
		c.AspectTolerance = 0.15
	}
	if c.MaxCropLoss <= 0 {
		c.MaxCropLoss = 0.2
	}
	if c.TopN <= 0 {
		c.TopN = 3
	}
}

// Build produces an adaptation plan for ranked elements against a target
// format. Elements must already be in rank order (see classify.Rank).
func Build(ranked []domain.ClassifiedElement, src domain.Dimensions, format domain.TargetFormat, cfg Config) (domain.AdaptationPlan, error) {
	cfg.normalize()
	if src.Width <= 0 || src.Height <= 0 {
		return domain.AdaptationPlan{}, fmt.Errorf("source dimensions %dx%d are invalid", src.Width, src.Height)
	}
	if format.Width <= 0 || format.Height <= 0 {
		return domain.AdaptationPlan{}, fmt.Errorf("target format %dx%d is invalid", format.Width, format.Height)
	}

	top := ranked
	if len(top) > cfg.TopN {
		top = top[:cfg.TopN]
	}

	// No detected elements: crop on the image center.
	if len(top) == 0 {
		crop := maxCropWindow(src, format.AspectRatio(), float64(src.Width)/2, float64(src.Height)/2)
		return cropPlan(format, crop), nil
	}

	targetAspect := format.AspectRatio()
	for _, anchor := range top {
		if relativeAspectDistance(regionAspect(anchor.Region, src), targetAspect) > cfg.AspectTolerance {
			continue
		}
		cx, cy := anchor.Region.Centroid()
		crop := maxCropWindow(src, targetAspect, cx*float64(src.Width), cy*float64(src.Height))
		if worstCropLoss(ranked, src, crop) <= cfg.MaxCropLoss {
			return cropPlan(format, crop), nil
		}
	}

	return extendPlan(top, src, format), nil
}

func cropPlan(format domain.TargetFormat, crop domain.PixelRect) domain.AdaptationPlan {
	return domain.AdaptationPlan{
		Strategy:     domain.StrategyCropRegion,
		TargetWidth:  format.Width,
		TargetHeight: format.Height,
		Anchor:       domain.PixelPoint{X: crop.X + crop.W/2, Y: crop.Y + crop.H/2},
		Crop:         &crop,
	}
}

// extendPlan pads the full source onto the target canvas, shifting along
// the slack axis so the union box of the top elements sits as close to the
// canvas center as the source bounds allow.
func extendPlan(top []domain.ClassifiedElement, src domain.Dimensions, format domain.TargetFormat) domain.AdaptationPlan {
	var union domain.Region
	for _, el := range top {
		union = union.Union(el.Region)
	}
	if union.Area() == 0 {
		union = domain.Region{X: 0, Y: 0, W: 1, H: 1}
	}

	scale := math.Min(
		float64(format.Width)/float64(src.Width),
		float64(format.Height)/float64(src.Height),
	)
	scaledW := float64(src.Width) * scale
	scaledH := float64(src.Height) * scale

	ucx, ucy := union.Centroid()
	x := clamp(float64(format.Width)/2-ucx*scaledW, 0, float64(format.Width)-scaledW)
	y := clamp(float64(format.Height)/2-ucy*scaledH, 0, float64(format.Height)-scaledH)

	canvas := domain.PixelRect{
		X: int(math.Round(x)),
		Y: int(math.Round(y)),
		W: int(math.Round(scaledW)),
		H: int(math.Round(scaledH)),
	}
	return domain.AdaptationPlan{
		Strategy:     domain.StrategyExtendCanvas,
		TargetWidth:  format.Width,
		TargetHeight: format.Height,
		Anchor: domain.PixelPoint{
			X: int(math.Round(ucx * float64(src.Width))),
			Y: int(math.Round(ucy * float64(src.Height))),
		},
		Canvas: &canvas,
	}
}

// maxCropWindow returns the largest window of the given aspect that fits in
// the source, centered as close to (cx, cy) as the bounds allow.
func maxCropWindow(src domain.Dimensions, aspect, cx, cy float64) domain.PixelRect {
	srcW, srcH := float64(src.Width), float64(src.Height)
	var w, h float64
	if srcW/srcH >= aspect {
		h = srcH
		w = aspect * srcH
	} else {
		w = srcW
		h = srcW / aspect
	}
	x := clamp(cx-w/2, 0, srcW-w)
	y := clamp(cy-h/2, 0, srcH-h)
	return domain.PixelRect{
		X: int(math.Round(x)),
		Y: int(math.Round(y)),
		W: int(math.Round(w)),
		H: int(math.Round(h)),
	}
}

// worstCropLoss returns the largest fraction of any ranked element's area
// that the crop window would cut away.
func worstCropLoss(ranked []domain.ClassifiedElement, src domain.Dimensions, crop domain.PixelRect) float64 {
	window := domain.Region{
		X: float64(crop.X) / float64(src.Width),
		Y: float64(crop.Y) / float64(src.Height),
		W: float64(crop.W) / float64(src.Width),
		H: float64(crop.H) / float64(src.Height),
	}
	worst := 0.0
	for _, el := range ranked {
		area := el.Region.Area()
		if area == 0 {
			continue
		}
		kept := el.Region.Intersect(window).Area()
		loss := 1 - kept/area
		if loss > worst {
			worst = loss
		}
	}
	return worst
}

func regionAspect(r domain.Region, src domain.Dimensions) float64 {
	hPx := r.H * float64(src.Height)
	if hPx <= 0 {
		return 0
	}
	return (r.W * float64(src.Width)) / hPx
}

func relativeAspectDistance(a, target float64) float64 {
	if target <= 0 {
		return math.Inf(1)
	}
	return math.Abs(a-target) / target
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}
