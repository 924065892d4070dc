// Package classify ranks detected elements under an admin rule profile.
package classify

import (
	"fmt"
	"sort"

	"creatflow/internal/domain"
	"creatflow/internal/domain/jsoncfg"
)

// ClassificationError reports a detection kind the active rule set carries
// no weight for. It is an admin configuration gap: retrying the work item
// cannot help, so it must not consume retry budget.
type ClassificationError struct {
	Profile string
	Kind    domain.ElementKind
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("rule set %q has no weight for element kind %q", e.Profile, e.Kind)
}

// Rank scores elements by confidence × weight[kind] and returns them in
// descending score order. Ties break on larger bounding-region area, then
// on original detection order, so identical input always produces
// identical output.
func Rank(elements []domain.DetectedElement, rules jsoncfg.RuleSet) ([]domain.ClassifiedElement, error) {
	ranked := make([]domain.ClassifiedElement, 0, len(elements))
	for i, el := range elements {
		weight, ok := rules.Weight(el.Kind)
		if !ok {
			return nil, &ClassificationError{Profile: rules.Profile, Kind: el.Kind}
		}
		ranked = append(ranked, domain.ClassifiedElement{
			DetectedElement: el,
			Score:           el.Confidence * weight,
			Rank:            i, // detection order; rewritten after sorting
		})
	}

	order := make([]int, len(ranked))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ea, eb := ranked[order[a]], ranked[order[b]]
		if ea.Score != eb.Score {
			return ea.Score > eb.Score
		}
		if aa, ab := ea.Region.Area(), eb.Region.Area(); aa != ab {
			return aa > ab
		}
		return order[a] < order[b]
	})

	out := make([]domain.ClassifiedElement, len(ranked))
	for pos, idx := range order {
		el := ranked[idx]
		el.Rank = pos
		out[pos] = el
	}
	return out, nil
}
