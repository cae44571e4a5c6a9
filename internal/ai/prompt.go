package ai

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/fyrsmithlabs/focusfuel/internal/focus"
)

const systemPrompt = `You judge whether a person's current browser tab is a distraction from productive work.

You receive the page URL, its title, and activity counters for the time the tab has been open.

Respond ONLY with a JSON object of the form:
{"distracting": <true|false>, "confidence": <integer 0-100>, "reason": "<one sentence>", "suggestion": "<optional short advice>"}

No markdown, no extra keys, no additional text.`

// userPrompt renders the snapshot for the model. URL and title must
// already be scrubbed.
func userPrompt(snap focus.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\n", snap.URL)
	fmt.Fprintf(&b, "Title: %s\n", snap.Title)
	fmt.Fprintf(&b, "Time on page: %d seconds\n", snap.TimeSpentSeconds)
	fmt.Fprintf(&b, "Tab switches: %d\n", snap.TabSwitches)
	fmt.Fprintf(&b, "Scroll events: %d\n", snap.ScrollEvents)
	fmt.Fprintf(&b, "Mouse movements: %d\n", snap.MouseMovements)
	fmt.Fprintf(&b, "Clicks: %d\n", snap.Clicks)
	fmt.Fprintf(&b, "Keyboard events: %d\n", snap.KeyboardEvents)
	fmt.Fprintf(&b, "Hour of day: %d\n", snap.HourOfDay)
	return b.String()
}

// verdictResponse mirrors the JSON contract. Pointers distinguish missing
// fields from zero values.
type verdictResponse struct {
	Distracting *bool    `json:"distracting"`
	Confidence  *float64 `json:"confidence"`
	Reason      *string  `json:"reason"`
	Suggestion  string   `json:"suggestion,omitempty"`
}

// parseVerdict validates a model response against the verdict contract.
func parseVerdict(content string) (Verdict, error) {
	// Some models wrap JSON in markdown fences even when told not to.
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var resp verdictResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	switch {
	case resp.Distracting == nil:
		return Verdict{}, fmt.Errorf("%w: missing \"distracting\"", ErrMalformedResponse)
	case resp.Confidence == nil:
		return Verdict{}, fmt.Errorf("%w: missing \"confidence\"", ErrMalformedResponse)
	case resp.Reason == nil || strings.TrimSpace(*resp.Reason) == "":
		return Verdict{}, fmt.Errorf("%w: missing \"reason\"", ErrMalformedResponse)
	}

	c := *resp.Confidence
	if math.IsNaN(c) || c < 0 || c > 100 {
		return Verdict{}, fmt.Errorf("%w: confidence %v out of range", ErrMalformedResponse, c)
	}

	return Verdict{
		Distracting: *resp.Distracting,
		Confidence:  int(math.Round(c)),
		Reason:      strings.TrimSpace(*resp.Reason),
		Suggestion:  strings.TrimSpace(resp.Suggestion),
	}, nil
}
