package http

import (
	"github.com/fyrsmithlabs/focusfuel/internal/activity"
	"github.com/fyrsmithlabs/focusfuel/internal/focus"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// NavigationRequest is the request body for POST /api/v1/events/navigation.
type NavigationRequest struct {
	TabID *int   `json:"tab_id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// NavigationResponse is the response body for POST /api/v1/events/navigation.
type NavigationResponse struct {
	SessionID string `json:"session_id"`
}

// TabRequest is the request body for tab lifecycle events.
type TabRequest struct {
	TabID *int `json:"tab_id"`
}

// ActivityRequest is the request body for POST /api/v1/events/activity.
type ActivityRequest struct {
	TabID *int   `json:"tab_id"`
	Kind  string `json:"kind"`
}

// EventsResponse is the response body for GET /api/v1/events.
type EventsResponse struct {
	Events []focus.DistractionEvent `json:"events"`
}

// DomainsResponse is the response body for GET /api/v1/domains.
type DomainsResponse struct {
	Blacklist []string `json:"blacklist"`
	Whitelist []string `json:"whitelist"`
}

// DomainRequest is the request body for POST /api/v1/domains/:list.
type DomainRequest struct {
	Domain string `json:"domain"`
}

// NotificationsResponse is the response body for GET /api/v1/notifications.
type NotificationsResponse struct {
	Notifications []focus.Notification `json:"notifications"`
}

// RespondRequest is the request body for POST /api/v1/notifications/:id/respond.
type RespondRequest struct {
	Action string `json:"action"`
}

// TabsResponse is the response body for GET /api/v1/tabs.
type TabsResponse = activity.SessionsView
