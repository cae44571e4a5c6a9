package activity

import (
	"fmt"

	"github.com/fyrsmithlabs/focusfuel/internal/focus"
)

// EventKind is a user interaction counted against a tab session.
type EventKind string

const (
	KindScroll    EventKind = "scroll"
	KindMouseMove EventKind = "mousemove"
	KindClick     EventKind = "click"
	KindKeyDown   EventKind = "keydown"
)

// ParseEventKind validates an interaction kind.
func ParseEventKind(s string) (EventKind, error) {
	switch k := EventKind(s); k {
	case KindScroll, KindMouseMove, KindClick, KindKeyDown:
		return k, nil
	default:
		return "", fmt.Errorf("unknown activity kind %q", s)
	}
}

// Message is an inbound tab event or query. The set of implementations is
// closed; Registry.Handle rejects anything else.
type Message interface {
	isMessage()
}

// NavigationComplete reports that a tab finished loading a page.
type NavigationComplete struct {
	TabID focus.TabID `json:"tab_id"`
	URL   string      `json:"url"`
	Title string      `json:"title"`
}

// TabActivated reports that a tab became the focused tab.
type TabActivated struct {
	TabID focus.TabID `json:"tab_id"`
}

// ActivityEvent reports one user interaction inside a tab.
type ActivityEvent struct {
	TabID focus.TabID `json:"tab_id"`
	Kind  EventKind   `json:"kind"`
}

// TabRemoved reports that a tab was closed.
type TabRemoved struct {
	TabID focus.TabID `json:"tab_id"`
}

// ClassifyRequest asks for an on-demand classification of a tab.
type ClassifyRequest struct {
	TabID focus.TabID `json:"tab_id"`
}

// StatsRequest asks for a tab's current counters.
type StatsRequest struct {
	TabID focus.TabID `json:"tab_id"`
}

func (NavigationComplete) isMessage() {}
func (TabActivated) isMessage()       {}
func (ActivityEvent) isMessage()      {}
func (TabRemoved) isMessage()         {}
func (ClassifyRequest) isMessage()    {}
func (StatsRequest) isMessage()       {}

// Reply is the answer to a handled message. Only the field matching the
// message kind is set.
type Reply struct {
	SessionID string        `json:"session_id,omitempty"`
	Result    *focus.Result `json:"result,omitempty"`
	Stats     *TabStats     `json:"stats,omitempty"`
}
