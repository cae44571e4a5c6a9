// Package patterns evaluates activity snapshots against fixed behavioral
// heuristics. Evaluation is pure: the same snapshot and sensitivity always
// yield the same ordered list of patterns.
package patterns

import (
	"sort"

	"github.com/fyrsmithlabs/focusfuel/internal/focus"
)

// Pattern identifiers.
const (
	RapidTabSwitching  = "rapid_tab_switching"
	ExcessiveScrolling = "excessive_scrolling"
	ShortAttentionSpan = "short_attention_span"
	PassiveBrowsing    = "passive_browsing"
	LateNightBrowsing  = "late_night_browsing"
)

// DefaultSuggestion is offered when no pattern-specific suggestion exists.
const DefaultSuggestion = "Consider taking a break to refocus"

var suggestions = map[string]string{
	RapidTabSwitching:  "Try focusing on one task at a time",
	ExcessiveScrolling: "Consider setting a time limit for browsing",
	ShortAttentionSpan: "Take a short break to reset your focus",
	PassiveBrowsing:    "Engage more actively with your work",
	LateNightBrowsing:  "Consider getting some rest",
}

// SuggestionFor returns the user-facing suggestion for a pattern id.
func SuggestionFor(id string) string {
	if s, ok := suggestions[id]; ok {
		return s
	}
	return DefaultSuggestion
}

// Factor returns the threshold scale for a sensitivity level. Higher
// sensitivity yields a smaller factor, which lowers count thresholds and
// widens time windows.
func Factor(s focus.Sensitivity) float64 {
	switch s {
	case focus.SensitivityHigh:
		return 0.8
	case focus.SensitivityLow:
		return 1.2
	default:
		return 1.0
	}
}

// thresholds are the scaled limits a rule compares against.
type thresholds struct {
	f float64
}

// above reports x > n scaled by the sensitivity factor.
func (t thresholds) above(x, n int) bool {
	return float64(x) > float64(n)*t.f
}

// below reports x < m with m widened or narrowed by the sensitivity factor.
func (t thresholds) below(x, m int) bool {
	return float64(x) < float64(m)/t.f
}

type rule struct {
	pattern focus.Pattern
	match   func(s focus.Snapshot, t thresholds) bool
}

var rules = []rule{
	{
		pattern: focus.Pattern{
			ID:          RapidTabSwitching,
			Confidence:  85,
			Severity:    focus.SeverityHigh,
			Description: "Excessive tab switching indicates distraction",
		},
		match: func(s focus.Snapshot, t thresholds) bool {
			return t.above(s.TabSwitches, 10) && t.below(s.TimeSpentSeconds, 300)
		},
	},
	{
		pattern: focus.Pattern{
			ID:          ExcessiveScrolling,
			Confidence:  75,
			Severity:    focus.SeverityMedium,
			Description: "High scroll activity suggests mindless browsing",
		},
		match: func(s focus.Snapshot, t thresholds) bool {
			return t.above(s.ScrollEvents, 50) && t.below(s.TimeSpentSeconds, 600)
		},
	},
	{
		pattern: focus.Pattern{
			ID:          ShortAttentionSpan,
			Confidence:  80,
			Severity:    focus.SeverityMedium,
			Description: "Very short time spent with many switches",
		},
		match: func(s focus.Snapshot, t thresholds) bool {
			return t.below(s.TimeSpentSeconds, 60) && t.above(s.TabSwitches, 5)
		},
	},
	{
		pattern: focus.Pattern{
			ID:          PassiveBrowsing,
			Confidence:  70,
			Severity:    focus.SeverityMedium,
			Description: "High mouse movement with few clicks suggests passive browsing",
		},
		match: func(s focus.Snapshot, t thresholds) bool {
			return t.above(s.MouseMovements, 100) && t.below(s.Clicks, 5)
		},
	},
	{
		pattern: focus.Pattern{
			ID:          LateNightBrowsing,
			Confidence:  60,
			Severity:    focus.SeverityLow,
			Description: "Browsing during late hours",
		},
		// Hour bounds are wall-clock facts and are not scaled.
		match: func(s focus.Snapshot, _ thresholds) bool {
			return s.HourOfDay >= 22 || s.HourOfDay <= 6
		},
	},
}

// Evaluate returns every pattern whose trigger holds for the snapshot,
// sorted by confidence descending. Ties keep rule order.
func Evaluate(s focus.Snapshot, sensitivity focus.Sensitivity) []focus.Pattern {
	t := thresholds{f: Factor(sensitivity)}

	var out []focus.Pattern
	for _, r := range rules {
		if r.match(s, t) {
			out = append(out, r.pattern)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

// Top returns the highest-confidence pattern, or nil when none fired.
func Top(s focus.Snapshot, sensitivity focus.Sensitivity) *focus.Pattern {
	ps := Evaluate(s, sensitivity)
	if len(ps) == 0 {
		return nil
	}
	p := ps[0]
	return &p
}
