package worker

import (
	"bytes"
	"context"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"

	"creatflow/internal/domain"
	"creatflow/internal/providers/analysis"
)

// RenderRequest carries everything a renderer needs to produce the target
// asset: the source reference, the geometric plan, and the format.
type RenderRequest struct {
	Source analysis.AssetRef     `json:"source"`
	Plan   domain.AdaptationPlan `json:"plan"`
	Format domain.TargetFormat   `json:"format_spec"`
}

// Rendered is the produced asset plus its actual pixel dimensions.
type Rendered struct {
	Content []byte
	Width   int
	Height  int
}

// Renderer produces target pixels from a plan. Production deployments wire
// an external generation service; the synthetic renderer covers development
// and deployments without one.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) (*Rendered, error)
}

// SyntheticRenderer emits a deterministic placeholder image at the target
// dimensions. The fill color derives from the source reference so repeated
// runs of the same work item are byte-identical.
type SyntheticRenderer struct{}

func NewSyntheticRenderer() *SyntheticRenderer { return &SyntheticRenderer{} }

func (r *SyntheticRenderer) Render(ctx context.Context, req RenderRequest) (*Rendered, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, h := req.Format.Width, req.Format.Height
	if w <= 0 || h <= 0 {
		w, h = 1, 1
	}

	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(req.Source.AssetID))
	_, _ = hasher.Write([]byte(req.Format.ID))
	seed := hasher.Sum32()
	fill := color.RGBA{
		R: uint8(seed),
		G: uint8(seed >> 8),
		B: uint8(seed >> 16),
		A: 255,
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, fill)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return &Rendered{Content: buf.Bytes(), Width: w, Height: h}, nil
}

var _ Renderer = (*SyntheticRenderer)(nil)
