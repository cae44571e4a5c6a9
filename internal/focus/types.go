// Package focus defines the values that flow through the activity tracking
// and distraction classification pipeline: activity snapshots, matched
// patterns, classification results and the records emitted to sinks.
package focus

import (
	"fmt"
	"strings"
)

// TabID identifies a browser tab.
type TabID int

// Severity grades how strongly a pattern indicates distraction.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Source names the pipeline stage that produced a Result.
type Source string

const (
	SourceList    Source = "list"
	SourcePattern Source = "pattern"
	SourceAI      Source = "ai"
)

// Sensitivity scales how readily heuristics classify activity as distracting.
type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
)

// ParseSensitivity parses a sensitivity level, case-insensitively.
// An empty string yields SensitivityMedium.
func ParseSensitivity(s string) (Sensitivity, error) {
	switch Sensitivity(strings.ToLower(strings.TrimSpace(s))) {
	case "", SensitivityMedium:
		return SensitivityMedium, nil
	case SensitivityLow:
		return SensitivityLow, nil
	case SensitivityHigh:
		return SensitivityHigh, nil
	default:
		return "", fmt.Errorf("unknown sensitivity %q (want low, medium or high)", s)
	}
}

// Snapshot is an immutable summary of a tab's activity at one evaluation
// instant. HourOfDay is carried as data so evaluation never reads the clock.
type Snapshot struct {
	TabID            TabID  `json:"tab_id"`
	SessionID        string `json:"session_id,omitempty"`
	URL              string `json:"url"`
	Title            string `json:"title"`
	TimeSpentSeconds int    `json:"time_spent_seconds"`
	TabSwitches      int    `json:"tab_switches"`
	ScrollEvents     int    `json:"scroll_events"`
	MouseMovements   int    `json:"mouse_movements"`
	Clicks           int    `json:"clicks"`
	KeyboardEvents   int    `json:"keyboard_events"`
	HourOfDay        int    `json:"hour_of_day"`
}

// Pattern is a named heuristic that fired for a snapshot.
type Pattern struct {
	ID          string   `json:"pattern"`
	Confidence  int      `json:"confidence"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// Result is the outcome of classifying a snapshot.
type Result struct {
	IsDistracting  bool     `json:"is_distracting"`
	Confidence     int      `json:"confidence"`
	Reason         string   `json:"reason"`
	Suggestion     string   `json:"suggestion,omitempty"`
	MatchedPattern *Pattern `json:"matched_pattern,omitempty"`
	Source         Source   `json:"source"`
}

// ClampConfidence bounds a confidence value to [0,100].
func ClampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
