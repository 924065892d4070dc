package classify

import (
	"errors"
	"reflect"
	"testing"

	"creatflow/internal/domain"
	"creatflow/internal/domain/jsoncfg"
)

func productRules(t *testing.T) jsoncfg.RuleSet {
	t.Helper()
	rules, ok := jsoncfg.BuiltinProfile("product-centric")
	if !ok {
		t.Fatalf("missing built-in profile")
	}
	return rules
}

func TestRankOrdersByWeightedScore(t *testing.T) {
	elements := []domain.DetectedElement{
		{Kind: domain.ElementFace, Confidence: 0.9, Region: domain.Region{X: 0, Y: 0, W: 0.2, H: 0.2}},
		{Kind: domain.ElementProduct, Confidence: 0.8, Region: domain.Region{X: 0.3, Y: 0.3, W: 0.4, H: 0.4}},
		{Kind: domain.ElementText, Confidence: 0.5, Region: domain.Region{X: 0.1, Y: 0.8, W: 0.5, H: 0.1}},
	}

	ranked, err := Rank(elements, productRules(t))
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	// product: 0.8×1.0=0.80, face: 0.9×0.5=0.45, text: 0.5×0.6=0.30
	wantKinds := []domain.ElementKind{domain.ElementProduct, domain.ElementFace, domain.ElementText}
	for i, want := range wantKinds {
		if ranked[i].Kind != want {
			t.Fatalf("rank %d = %q, want %q", i, ranked[i].Kind, want)
		}
		if ranked[i].Rank != i {
			t.Fatalf("rank field = %d at position %d", ranked[i].Rank, i)
		}
	}
}

func TestRankTieBreaksByAreaThenDetectionOrder(t *testing.T) {
	rules := jsoncfg.RuleSet{Profile: "flat", Weights: map[domain.ElementKind]float64{
		domain.ElementProduct: 1.0,
	}}
	elements := []domain.DetectedElement{
		{Kind: domain.ElementProduct, Confidence: 0.7, Description: "small-first", Region: domain.Region{W: 0.1, H: 0.1}},
		{Kind: domain.ElementProduct, Confidence: 0.7, Description: "big", Region: domain.Region{W: 0.5, H: 0.5}},
		{Kind: domain.ElementProduct, Confidence: 0.7, Description: "small-second", Region: domain.Region{W: 0.1, H: 0.1}},
	}

	ranked, err := Rank(elements, rules)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	got := []string{ranked[0].Description, ranked[1].Description, ranked[2].Description}
	want := []string{"big", "small-first", "small-second"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestRankIsDeterministic(t *testing.T) {
	elements := []domain.DetectedElement{
		{Kind: domain.ElementProduct, Confidence: 0.61, Region: domain.Region{W: 0.3, H: 0.3}},
		{Kind: domain.ElementLogo, Confidence: 0.76, Region: domain.Region{W: 0.2, H: 0.2}},
		{Kind: domain.ElementFace, Confidence: 0.9, Region: domain.Region{W: 0.25, H: 0.25}},
		{Kind: domain.ElementText, Confidence: 0.4, Region: domain.Region{W: 0.6, H: 0.1}},
	}
	rules := productRules(t)

	first, err := Rank(elements, rules)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	for i := 0; i < 50; i++ {
		again, err := Rank(elements, rules)
		if err != nil {
			t.Fatalf("rank run %d: %v", i, err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d produced different order", i)
		}
	}
}

func TestRankMissingWeightIsConfigurationError(t *testing.T) {
	rules := jsoncfg.RuleSet{Profile: "partial", Weights: map[domain.ElementKind]float64{
		domain.ElementProduct: 1.0,
	}}
	elements := []domain.DetectedElement{
		{Kind: domain.ElementFace, Confidence: 0.9, Region: domain.Region{W: 0.2, H: 0.2}},
	}

	_, err := Rank(elements, rules)
	var cerr *ClassificationError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want ClassificationError", err)
	}
	if cerr.Kind != domain.ElementFace || cerr.Profile != "partial" {
		t.Fatalf("classification error = %+v", cerr)
	}
}
