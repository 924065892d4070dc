package analysis

import (
	"context"

	"creatflow/internal/domain"
)

// SyntheticAnalyzer fabricates a plausible detection without calling any
// backend. It keeps keyless development environments flowing end to end;
// production wiring never selects it.
type SyntheticAnalyzer struct{}

func NewSyntheticAnalyzer() *SyntheticAnalyzer { return &SyntheticAnalyzer{} }

func (a *SyntheticAnalyzer) Name() string { return "synthetic" }

func (a *SyntheticAnalyzer) Analyze(ctx context.Context, ref AssetRef) (*Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Detection{
		Elements: []domain.DetectedElement{
			{
				Kind:       domain.ElementProduct,
				Region:     domain.Region{X: 0.3, Y: 0.3, W: 0.4, H: 0.4},
				Confidence: 0.95,
			},
			{
				Kind:       domain.ElementBackground,
				Region:     domain.Region{X: 0, Y: 0, W: 1, H: 1},
				Confidence: 0.99,
			},
		},
		Source:   domain.Dimensions{Width: 1024, Height: 1024},
		Provider: a.Name(),
	}, nil
}

var _ Analyzer = (*SyntheticAnalyzer)(nil)
