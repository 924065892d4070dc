// Package moderation runs the post-generation content check.
package moderation

import (
	"context"
	"strings"
)

// Category names a moderation concern a screener can raise.
type Category string

const (
	CategorySafe       Category = "safe"
	CategoryNSFW       Category = "nsfw"
	CategoryViolence   Category = "violence"
	CategoryHate       Category = "hate"
	CategoryHarassment Category = "harassment"
)

// Verdict is the terminal result of screening one rendered asset. Any
// verdict, pass or flag, completes the work item; a flag only annotates
// the asset for gated display, it never discards it.
type Verdict struct {
	Flagged    bool     `json:"flagged"`
	Category   Category `json:"category,omitempty"`
	Confidence float64  `json:"confidence"`
}

// Screener scores rendered content. Implementations live next to the
// analysis providers; tests use fakes.
type Screener interface {
	Screen(ctx context.Context, content []byte) (Verdict, error)
}

// ScreenerFunc adapts a function to the Screener interface.
type ScreenerFunc func(ctx context.Context, content []byte) (Verdict, error)

func (f ScreenerFunc) Screen(ctx context.Context, content []byte) (Verdict, error) {
	return f(ctx, content)
}

// Gate applies a screener and normalizes its verdict.
type Gate struct {
	screener Screener
}

// NewGate wraps a screener.
func NewGate(s Screener) *Gate {
	return &Gate{screener: s}
}

// Check screens content. A nil screener passes everything, mirroring a
// deployment with moderation disabled.
func (g *Gate) Check(ctx context.Context, content []byte) (Verdict, error) {
	if g == nil || g.screener == nil {
		return Verdict{Flagged: false, Category: CategorySafe, Confidence: 1}, nil
	}
	verdict, err := g.screener.Screen(ctx, content)
	if err != nil {
		return Verdict{}, err
	}
	if !verdict.Flagged && verdict.Category == "" {
		verdict.Category = CategorySafe
	}
	return verdict, nil
}

// ParseCategory normalizes a category string from a backend payload.
func ParseCategory(value string) Category {
	switch Category(strings.ToLower(strings.TrimSpace(value))) {
	case CategoryNSFW:
		return CategoryNSFW
	case CategoryViolence:
		return CategoryViolence
	case CategoryHate:
		return CategoryHate
	case CategoryHarassment:
		return CategoryHarassment
	default:
		return CategorySafe
	}
}
