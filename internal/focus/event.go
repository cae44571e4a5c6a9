package focus

import (
	"time"

	"github.com/google/uuid"
)

// EventType tells whether a classified session was distracting or productive.
type EventType string

const (
	EventDistraction EventType = "distraction"
	EventProductive  EventType = "productive"
)

// Category groups domains for analytics.
type Category string

const (
	CategorySocial        Category = "social"
	CategoryEntertainment Category = "entertainment"
	CategoryNews          Category = "news"
	CategoryShopping      Category = "shopping"
	CategoryOther         Category = "other"
)

// categories maps normalized domains to analytics categories.
var categories = map[string]Category{
	"facebook.com":  CategorySocial,
	"twitter.com":   CategorySocial,
	"x.com":         CategorySocial,
	"instagram.com": CategorySocial,
	"tiktok.com":    CategorySocial,
	"reddit.com":    CategorySocial,
	"linkedin.com":  CategorySocial,
	"youtube.com":   CategoryEntertainment,
	"netflix.com":   CategoryEntertainment,
	"hulu.com":      CategoryEntertainment,
	"twitch.tv":     CategoryEntertainment,
	"cnn.com":       CategoryNews,
	"bbc.com":       CategoryNews,
	"nytimes.com":   CategoryNews,
	"amazon.com":    CategoryShopping,
	"ebay.com":      CategoryShopping,
	"etsy.com":      CategoryShopping,
}

// CategoryFor returns the analytics category of a normalized domain.
func CategoryFor(domain string) Category {
	if c, ok := categories[domain]; ok {
		return c
	}
	return CategoryOther
}

// DistractionEvent is the record pushed to persistence and analytics sinks.
type DistractionEvent struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	TabID           TabID     `json:"tab_id"`
	URL             string    `json:"url"`
	DurationSeconds int       `json:"duration_seconds"`
	Type            EventType `json:"type"`
	Confidence      int       `json:"confidence"`
	Category        Category  `json:"category"`
	// Blocked is owned by an external blocker that consumes these records.
	// focusfuel never blocks a page, so events it creates carry false.
	Blocked         bool      `json:"blocked"`
	Source          Source    `json:"source"`
	Reason          string    `json:"reason,omitempty"`
}

// NewDistractionEvent builds the event record for a classified snapshot.
func NewDistractionEvent(snap Snapshot, domain string, res Result, at time.Time) DistractionEvent {
	typ := EventProductive
	if res.IsDistracting {
		typ = EventDistraction
	}
	return DistractionEvent{
		ID:              uuid.NewString(),
		Timestamp:       at.UTC(),
		TabID:           snap.TabID,
		URL:             snap.URL,
		DurationSeconds: snap.TimeSpentSeconds,
		Type:            typ,
		Confidence:      ClampConfidence(res.Confidence),
		Category:        CategoryFor(domain),
		Source:          res.Source,
		Reason:          res.Reason,
	}
}
