// Package scorer implements behavioral lead scoring for visitor sessions.
package scorer

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Weights holds every tunable constant of the scoring function.
type Weights struct {
	// Base points awarded for any visit.
	Base int `yaml:"base"`

	// Page-count bonus: PagePoints per page, capped at PageCap, applied
	// only when more than one page was visited.
	PagePoints int `yaml:"page_points"`
	PageCap    int `yaml:"page_cap"`

	// Duration tiers are additive: a long session earns every tier it
	// exceeds, not only the highest.
	DurationShortSecs  int `yaml:"duration_short_secs"`
	DurationShortBonus int `yaml:"duration_short_bonus"`
	DurationMidSecs    int `yaml:"duration_mid_secs"`
	DurationMidBonus   int `yaml:"duration_mid_bonus"`
	DurationLongSecs   int `yaml:"duration_long_secs"`
	DurationLongBonus  int `yaml:"duration_long_bonus"`

	// Event bonus: EventPoints per event, capped at EventCap.
	EventPoints int `yaml:"event_points"`
	EventCap    int `yaml:"event_cap"`

	// ReturningBonus applies when the visit is attributable to a
	// previously-seen visitor identity.
	ReturningBonus int `yaml:"returning_bonus"`

	// Page-semantics bonuses; both may apply to one session.
	ContactBonus int `yaml:"contact_bonus"`
	PricingBonus int `yaml:"pricing_bonus"`

	// Max caps the final score.
	Max int `yaml:"max"`

	// Classification thresholds: score >= Hot is hot, >= Warm is warm,
	// anything below is cold.
	HotThreshold  int `yaml:"hot_threshold"`
	WarmThreshold int `yaml:"warm_threshold"`
}

// DefaultWeights returns the production scoring constants.
func DefaultWeights() Weights {
	return Weights{
		Base:               10,
		PagePoints:         5,
		PageCap:            30,
		DurationShortSecs:  30,
		DurationShortBonus: 10,
		DurationMidSecs:    120,
		DurationMidBonus:   15,
		DurationLongSecs:   300,
		DurationLongBonus:  20,
		EventPoints:        3,
		EventCap:           20,
		ReturningBonus:     15,
		ContactBonus:       20,
		PricingBonus:       25,
		Max:                100,
		HotThreshold:       80,
		WarmThreshold:      60,
	}
}

// LoadWeights reads scoring weights from a YAML file. Fields omitted in the
// file keep their default values.
func LoadWeights(path string) (Weights, error) {
	w := DefaultWeights()

	data, err := os.ReadFile(path)
	if err != nil {
		return w, eris.Wrapf(err, "scorer: read weights %s", path)
	}

	var wrapper struct {
		Scoring Weights `yaml:"scoring"`
	}
	wrapper.Scoring = w
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return w, eris.Wrap(err, "scorer: parse weights")
	}

	if err := ValidateWeights(wrapper.Scoring); err != nil {
		return w, err
	}
	return wrapper.Scoring, nil
}

// ValidateWeights checks that a Weights value is internally consistent.
func ValidateWeights(w Weights) error {
	var errs []string

	bonuses := map[string]int{
		"base":                 w.Base,
		"page_points":          w.PagePoints,
		"page_cap":             w.PageCap,
		"duration_short_bonus": w.DurationShortBonus,
		"duration_mid_bonus":   w.DurationMidBonus,
		"duration_long_bonus":  w.DurationLongBonus,
		"event_points":         w.EventPoints,
		"event_cap":            w.EventCap,
		"returning_bonus":      w.ReturningBonus,
		"contact_bonus":        w.ContactBonus,
		"pricing_bonus":        w.PricingBonus,
	}
	for name, b := range bonuses {
		if b < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	if w.Max <= 0 {
		errs = append(errs, "max must be > 0")
	}
	if w.DurationShortSecs > w.DurationMidSecs || w.DurationMidSecs > w.DurationLongSecs {
		errs = append(errs, "duration tiers must be ordered short <= mid <= long")
	}
	if w.WarmThreshold > w.HotThreshold {
		errs = append(errs, "warm_threshold must be <= hot_threshold")
	}
	if w.HotThreshold > w.Max {
		errs = append(errs, "hot_threshold must be <= max")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: weights validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
