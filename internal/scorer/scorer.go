package scorer

import (
	"strings"
	"time"

	"github.com/leadgrid/tracker-cli/internal/model"
)

// Input is the behavioral history a score is computed from.
type Input struct {
	PageURLs   []string
	EventCount int
	Duration   time.Duration
	Returning  bool
}

// Engine computes bounded lead scores from session history. It is pure:
// no I/O, deterministic for a given Weights.
type Engine struct {
	w Weights
}

// New creates an Engine with the given weights.
func New(w Weights) *Engine {
	return &Engine{w: w}
}

// Score computes the additive lead score for a history, capped at Max.
// Adding pages or events to a history never decreases the result.
func (e *Engine) Score(in Input) int {
	total := e.w.Base

	if len(in.PageURLs) > 1 {
		total += capped(len(in.PageURLs)*e.w.PagePoints, e.w.PageCap)
	}

	secs := int(in.Duration.Seconds())
	if secs > e.w.DurationShortSecs {
		total += e.w.DurationShortBonus
	}
	if secs > e.w.DurationMidSecs {
		total += e.w.DurationMidBonus
	}
	if secs > e.w.DurationLongSecs {
		total += e.w.DurationLongBonus
	}

	if in.EventCount > 0 {
		total += capped(in.EventCount*e.w.EventPoints, e.w.EventCap)
	}

	if in.Returning {
		total += e.w.ReturningBonus
	}

	if anyURLContains(in.PageURLs, "contact", "about") {
		total += e.w.ContactBonus
	}
	if anyURLContains(in.PageURLs, "pricing") {
		total += e.w.PricingBonus
	}

	if total > e.w.Max {
		total = e.w.Max
	}
	return total
}

// ScoreSession scores a visitor session's history.
func (e *Engine) ScoreSession(s *model.VisitorSession) int {
	urls := make([]string, len(s.Pages))
	for i, p := range s.Pages {
		urls[i] = p.URL
	}
	return e.Score(Input{
		PageURLs:   urls,
		EventCount: len(s.Events),
		Duration:   s.Duration(),
		Returning:  s.Returning,
	})
}

// Classify maps a score to its lead status.
func (e *Engine) Classify(score int) model.LeadStatus {
	switch {
	case score >= e.w.HotThreshold:
		return model.StatusHot
	case score >= e.w.WarmThreshold:
		return model.StatusWarm
	default:
		return model.StatusCold
	}
}

func capped(v, cap int) int {
	if v > cap {
		return cap
	}
	return v
}

func anyURLContains(urls []string, substrs ...string) bool {
	for _, u := range urls {
		lower := strings.ToLower(u)
		for _, sub := range substrs {
			if strings.Contains(lower, sub) {
				return true
			}
		}
	}
	return false
}
