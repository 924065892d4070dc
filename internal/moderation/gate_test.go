package moderation

import (
	"context"
	"errors"
	"testing"
)

func TestNilScreenerPasses(t *testing.T) {
	var g *Gate
	v, err := g.Check(context.Background(), []byte("payload"))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if v.Flagged {
		t.Fatalf("nil gate flagged content")
	}
	if v.Category != CategorySafe {
		t.Fatalf("category = %q", v.Category)
	}
}

func TestFlagAnnotatesWithoutError(t *testing.T) {
	g := NewGate(ScreenerFunc(func(ctx context.Context, content []byte) (Verdict, error) {
		return Verdict{Flagged: true, Category: CategoryNSFW, Confidence: 0.93}, nil
	}))
	v, err := g.Check(context.Background(), []byte("payload"))
	if err != nil {
		t.Fatalf("a flag verdict is terminal, not an error: %v", err)
	}
	if !v.Flagged || v.Category != CategoryNSFW {
		t.Fatalf("verdict = %+v", v)
	}
}

func TestScreenerErrorPropagates(t *testing.T) {
	boom := errors.New("backend down")
	g := NewGate(ScreenerFunc(func(ctx context.Context, content []byte) (Verdict, error) {
		return Verdict{}, boom
	}))
	if _, err := g.Check(context.Background(), nil); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestParseCategory(t *testing.T) {
	if got := ParseCategory(" NSFW "); got != CategoryNSFW {
		t.Fatalf("got %q", got)
	}
	if got := ParseCategory("unknown-thing"); got != CategorySafe {
		t.Fatalf("got %q", got)
	}
}
