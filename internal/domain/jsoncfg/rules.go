package jsoncfg

import (
	"encoding/json"
	"fmt"
	"strings"

	"creatflow/internal/domain"
)

// RuleSet maps element kinds to the ranking weight an admin profile assigns
// them. It is validated once at ingestion; downstream code trusts it.
type RuleSet struct {
	Version string                         `json:"version"`
	Profile string                         `json:"profile"`
	Weights map[domain.ElementKind]float64 `json:"weights"`
}

const (
	// DefaultRulesVersion is the schema version persisted for rule sets.
	DefaultRulesVersion = "2025-06"
	// DefaultProfile is applied when the submission names no profile.
	DefaultProfile = "product-centric"
)

// Built-in admin profiles. Collaborators may override them wholesale with a
// validated RuleSet payload, but the engine always has these to fall back on.
var builtinProfiles = map[string]map[domain.ElementKind]float64{
	"product-centric": {
		domain.ElementProduct:    1.0,
		domain.ElementLogo:       0.8,
		domain.ElementText:       0.6,
		domain.ElementFace:       0.5,
		domain.ElementPerson:     0.4,
		domain.ElementBackground: 0.1,
		domain.ElementOther:      0.2,
	},
	"face-centric": {
		domain.ElementFace:       1.0,
		domain.ElementPerson:     0.9,
		domain.ElementProduct:    0.5,
		domain.ElementLogo:       0.4,
		domain.ElementText:       0.4,
		domain.ElementBackground: 0.1,
		domain.ElementOther:      0.2,
	},
}

// BuiltinProfile returns a copy of a named built-in profile.
func BuiltinProfile(name string) (RuleSet, bool) {
	weights, ok := builtinProfiles[strings.TrimSpace(name)]
	if !ok {
		return RuleSet{}, false
	}
	cp := make(map[domain.ElementKind]float64, len(weights))
	for k, v := range weights {
		cp[k] = v
	}
	return RuleSet{Version: DefaultRulesVersion, Profile: name, Weights: cp}, true
}

// ParseRuleSet decodes and validates a rule-set payload from a collaborator.
func ParseRuleSet(raw []byte) (RuleSet, error) {
	var rs RuleSet
	if err := json.Unmarshal(raw, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("decode rule set: %w", err)
	}
	rs.Normalize()
	if err := rs.Validate(); err != nil {
		return RuleSet{}, err
	}
	return rs, nil
}

// Normalize fills defaults the payload may omit.
func (r *RuleSet) Normalize() {
	if r == nil {
		return
	}
	if r.Version == "" {
		r.Version = DefaultRulesVersion
	}
	if r.Profile == "" {
		r.Profile = DefaultProfile
	}
}

// Validate ensures the rule set satisfies the contract before use.
func (r RuleSet) Validate() error {
	if len(r.Weights) == 0 {
		return fmt.Errorf("rule set %q has no weights", r.Profile)
	}
	for kind, weight := range r.Weights {
		if weight < 0 {
			return fmt.Errorf("rule set %q: negative weight for kind %q", r.Profile, kind)
		}
	}
	return nil
}

// Weight returns the configured weight for kind. The second return is false
// when the profile has no entry, which callers must treat as a
// configuration gap, not a transient fault.
func (r RuleSet) Weight(kind domain.ElementKind) (float64, bool) {
	w, ok := r.Weights[kind]
	return w, ok
}
