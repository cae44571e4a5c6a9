package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/focusfuel/internal/activity"
	"github.com/fyrsmithlabs/focusfuel/internal/domains"
	"github.com/fyrsmithlabs/focusfuel/internal/focus"
)

var errInvalidInput = errors.New("invalid input")

const (
	defaultEventsLimit = 20
	maxEventsLimit     = 500
)

// addTool registers a tool with both the MCP server and the tool registry.
// h returns the structured output plus a one-line text summary.
func addTool[In, Out any](s *Server, meta *ToolMetadata, h func(context.Context, In) (Out, string, error)) error {
	if err := s.toolRegistry.Register(meta); err != nil {
		return err
	}
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        meta.Name,
		Description: meta.Description,
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args In) (*mcp.CallToolResult, Out, error) {
		done := s.metrics.track(ctx, meta.Name)
		out, text, err := h(ctx, args)
		done(&err)
		if err != nil {
			var zero Out
			return nil, zero, err
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, out, nil
	})
	return nil
}

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() error {
	register := []func() error{
		s.registerClassificationTools,
		s.registerTabTools,
		s.registerDomainTools,
		s.registerEventTools,
		s.registerNotificationTools,
		s.registerSearchTools,
	}
	for _, fn := range register {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

// ===== CLASSIFICATION TOOLS =====

type tabInput struct {
	TabID int `json:"tab_id" jsonschema:"Browser tab identifier"`
}

type classifyOutput struct {
	TabID             int    `json:"tab_id" jsonschema:"Tab that was classified"`
	IsDistracting     bool   `json:"is_distracting" jsonschema:"Whether the tab's current session is distracting"`
	Confidence        int    `json:"confidence" jsonschema:"Confidence from 0 to 100"`
	Reason            string `json:"reason" jsonschema:"Why the verdict was reached"`
	Suggestion        string `json:"suggestion,omitempty" jsonschema:"Suggested next step for the user"`
	Source            string `json:"source" jsonschema:"Pipeline stage that decided (list, pattern or ai)"`
	Pattern           string `json:"pattern,omitempty" jsonschema:"Strongest heuristic pattern that fired"`
	PatternConfidence int    `json:"pattern_confidence,omitempty" jsonschema:"Confidence of the strongest pattern"`
}

func (s *Server) registerClassificationTools() error {
	return addTool(s, &ToolMetadata{
		Name:        "classify_tab",
		Description: "Classify the current session of a tab as distracting or productive. The session must have lasted at least the minimum dwell time.",
		Category:    CategoryClassification,
		Keywords:    []string{"distraction", "verdict", "focus"},
	}, func(ctx context.Context, args tabInput) (classifyOutput, string, error) {
		reply, err := s.deps.Tracker.Handle(ctx, activity.ClassifyRequest{TabID: focus.TabID(args.TabID)})
		if err != nil {
			return classifyOutput{}, "", fmt.Errorf("classify failed: %w", err)
		}
		res := reply.Result
		out := classifyOutput{
			TabID:         args.TabID,
			IsDistracting: res.IsDistracting,
			Confidence:    res.Confidence,
			Reason:        res.Reason,
			Suggestion:    res.Suggestion,
			Source:        string(res.Source),
		}
		if res.MatchedPattern != nil {
			out.Pattern = res.MatchedPattern.ID
			out.PatternConfidence = res.MatchedPattern.Confidence
		}

		verdict := "productive"
		if res.IsDistracting {
			verdict = "distracting"
		}
		return out, fmt.Sprintf("Tab %d is %s (%d%%): %s", args.TabID, verdict, res.Confidence, res.Reason), nil
	})
}

// ===== TAB TOOLS =====

type tabStatsOutput struct {
	TabID            int    `json:"tab_id" jsonschema:"Browser tab identifier"`
	SessionID        string `json:"session_id" jsonschema:"Current session identifier"`
	URL              string `json:"url" jsonschema:"Page URL"`
	Domain           string `json:"domain" jsonschema:"Normalized domain"`
	Title            string `json:"title" jsonschema:"Page title"`
	TimeSpentSeconds int    `json:"time_spent_seconds" jsonschema:"Session age in seconds"`
	LastActive       string `json:"last_active" jsonschema:"Last interaction time (RFC 3339)"`
	TabSwitches      int    `json:"tab_switches" jsonschema:"Switches away from this tab"`
	ScrollEvents     int    `json:"scroll_events" jsonschema:"Scroll events"`
	MouseMovements   int    `json:"mouse_movements" jsonschema:"Mouse movements"`
	Clicks           int    `json:"clicks" jsonschema:"Clicks"`
	KeyboardEvents   int    `json:"keyboard_events" jsonschema:"Key presses"`
}

func toTabStatsOutput(st activity.TabStats) tabStatsOutput {
	return tabStatsOutput{
		TabID:            int(st.TabID),
		SessionID:        st.SessionID,
		URL:              st.URL,
		Domain:           st.Domain,
		Title:            st.Title,
		TimeSpentSeconds: st.TimeSpentSeconds,
		LastActive:       st.LastActive.Format(time.RFC3339),
		TabSwitches:      st.TabSwitches,
		ScrollEvents:     st.ScrollEvents,
		MouseMovements:   st.MouseMovements,
		Clicks:           st.Clicks,
		KeyboardEvents:   st.KeyboardEvents,
	}
}

type listTabsInput struct{}

type listTabsOutput struct {
	HasCurrent     bool             `json:"has_current" jsonschema:"Whether a tab is currently active"`
	CurrentTabID   int              `json:"current_tab_id" jsonschema:"Active tab when has_current is true"`
	TabSwitchCount int              `json:"tab_switch_count" jsonschema:"Total tab switches observed"`
	Tabs           []tabStatsOutput `json:"tabs" jsonschema:"Live tab sessions ordered by tab id"`
	Count          int              `json:"count" jsonschema:"Number of live sessions"`
}

func (s *Server) registerTabTools() error {
	err := addTool(s, &ToolMetadata{
		Name:        "tab_stats",
		Description: "Get activity counters and time spent for a tab's current session",
		Category:    CategoryTabs,
		Keywords:    []string{"activity", "session", "counters"},
	}, func(ctx context.Context, args tabInput) (tabStatsOutput, string, error) {
		reply, err := s.deps.Tracker.Handle(ctx, activity.StatsRequest{TabID: focus.TabID(args.TabID)})
		if err != nil {
			return tabStatsOutput{}, "", fmt.Errorf("tab stats failed: %w", err)
		}
		out := toTabStatsOutput(*reply.Stats)
		return out, fmt.Sprintf("Tab %d on %s for %ds", out.TabID, out.Domain, out.TimeSpentSeconds), nil
	})
	if err != nil {
		return err
	}

	return addTool(s, &ToolMetadata{
		Name:        "list_tabs",
		Description: "List every live tab session with its counters and the currently active tab",
		Category:    CategoryTabs,
		Keywords:    []string{"sessions", "active"},
	}, func(ctx context.Context, _ listTabsInput) (listTabsOutput, string, error) {
		view := s.deps.Tracker.Sessions()
		out := listTabsOutput{
			TabSwitchCount: view.TabSwitchCount,
			Tabs:           make([]tabStatsOutput, 0, len(view.Tabs)),
		}
		if view.CurrentTabID != nil {
			out.HasCurrent = true
			out.CurrentTabID = int(*view.CurrentTabID)
		}
		for _, st := range view.Tabs {
			out.Tabs = append(out.Tabs, toTabStatsOutput(st))
		}
		out.Count = len(out.Tabs)
		return out, fmt.Sprintf("Found %d live tabs", out.Count), nil
	})
}

// ===== DOMAIN TOOLS =====

type listDomainsInput struct{}

type listDomainsOutput struct {
	Blacklist []string `json:"blacklist" jsonschema:"Domains always classified as distracting"`
	Whitelist []string `json:"whitelist" jsonschema:"Domains always classified as productive"`
}

type updateDomainInput struct {
	List   string `json:"list" jsonschema:"Which list to change: blacklist or whitelist"`
	Domain string `json:"domain" jsonschema:"Domain or URL; it is normalized before use"`
	Action string `json:"action" jsonschema:"add or remove"`
}

type updateDomainOutput struct {
	List   string `json:"list" jsonschema:"List that was changed"`
	Domain string `json:"domain" jsonschema:"Normalized domain"`
	Action string `json:"action" jsonschema:"Action applied"`
}

func (s *Server) registerDomainTools() error {
	lists := s.deps.Lists
	err := addTool(s, &ToolMetadata{
		Name:        "list_domains",
		Description: "List the distraction blacklist and the productivity whitelist",
		Category:    CategoryDomains,
		Keywords:    []string{"blacklist", "whitelist", "sites"},
	}, func(ctx context.Context, _ listDomainsInput) (listDomainsOutput, string, error) {
		out := listDomainsOutput{Blacklist: lists.Blacklist(), Whitelist: lists.Whitelist()}
		return out, fmt.Sprintf("%d blacklisted, %d whitelisted", len(out.Blacklist), len(out.Whitelist)), nil
	})
	if err != nil {
		return err
	}

	return addTool(s, &ToolMetadata{
		Name:        "update_domain",
		Description: "Add a domain to or remove a domain from the blacklist or whitelist",
		Category:    CategoryDomains,
		Keywords:    []string{"blacklist", "whitelist", "block", "allow"},
	}, func(ctx context.Context, args updateDomainInput) (updateDomainOutput, string, error) {
		domain := domains.Normalize(args.Domain)
		if domain == "" {
			return updateDomainOutput{}, "", fmt.Errorf("domain is required: %w", errInvalidInput)
		}

		var apply func(string)
		switch args.List + "/" + args.Action {
		case "blacklist/add":
			apply = lists.AddToBlacklist
		case "blacklist/remove":
			apply = lists.RemoveFromBlacklist
		case "whitelist/add":
			apply = lists.AddToWhitelist
		case "whitelist/remove":
			apply = lists.RemoveFromWhitelist
		default:
			return updateDomainOutput{}, "", fmt.Errorf("list must be blacklist or whitelist and action add or remove: %w", errInvalidInput)
		}
		apply(domain)
		s.logger.Info("domain list updated",
			zap.String("list", args.List), zap.String("action", args.Action), zap.String("domain", domain))

		out := updateDomainOutput{List: args.List, Domain: domain, Action: args.Action}
		return out, fmt.Sprintf("%s %s: %s", args.List, args.Action, domain), nil
	})
}

// ===== EVENT TOOLS =====

type recentEventsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum events to return (default: 20)"`
}

type eventOutput struct {
	ID              string `json:"id" jsonschema:"Event identifier"`
	Timestamp       string `json:"timestamp" jsonschema:"When the event was recorded (RFC 3339)"`
	TabID           int    `json:"tab_id" jsonschema:"Browser tab identifier"`
	URL             string `json:"url" jsonschema:"Page URL"`
	DurationSeconds int    `json:"duration_seconds" jsonschema:"Session age at classification"`
	Type            string `json:"type" jsonschema:"distraction or productive"`
	Confidence      int    `json:"confidence" jsonschema:"Confidence from 0 to 100"`
	Category        string `json:"category" jsonschema:"Domain category"`
	Source          string `json:"source" jsonschema:"Pipeline stage that decided"`
}

type recentEventsOutput struct {
	Events []eventOutput `json:"events" jsonschema:"Events newest first"`
	Count  int           `json:"count" jsonschema:"Number of events returned"`
}

func (s *Server) registerEventTools() error {
	if s.deps.Events == nil {
		s.logger.Warn("event store not configured, skipping event tools")
		return nil
	}
	return addTool(s, &ToolMetadata{
		Name:        "recent_events",
		Description: "List recently classified sessions, newest first",
		Category:    CategoryEvents,
		Keywords:    []string{"history", "distraction", "productive"},
	}, func(ctx context.Context, args recentEventsInput) (recentEventsOutput, string, error) {
		limit := args.Limit
		if limit <= 0 {
			limit = defaultEventsLimit
		}
		limit = min(limit, maxEventsLimit)

		events, err := s.deps.Events.Recent(limit)
		if err != nil {
			return recentEventsOutput{}, "", fmt.Errorf("listing events failed: %w", err)
		}
		out := recentEventsOutput{Events: make([]eventOutput, 0, len(events))}
		for _, ev := range events {
			out.Events = append(out.Events, eventOutput{
				ID:              ev.ID,
				Timestamp:       ev.Timestamp.Format(time.RFC3339),
				TabID:           int(ev.TabID),
				URL:             ev.URL,
				DurationSeconds: ev.DurationSeconds,
				Type:            string(ev.Type),
				Confidence:      ev.Confidence,
				Category:        string(ev.Category),
				Source:          string(ev.Source),
			})
		}
		out.Count = len(out.Events)
		return out, fmt.Sprintf("Found %d events", out.Count), nil
	})
}

// ===== NOTIFICATION TOOLS =====

type listNotificationsInput struct{}

type notificationOutput struct {
	ID         string `json:"id" jsonschema:"Notification identifier"`
	TabID      int    `json:"tab_id" jsonschema:"Tab the notification is about"`
	Message    string `json:"message" jsonschema:"Notification body"`
	Confidence int    `json:"confidence" jsonschema:"Confidence of the distraction verdict"`
	CreatedAt  string `json:"created_at" jsonschema:"When it was raised (RFC 3339)"`
}

type listNotificationsOutput struct {
	Notifications []notificationOutput `json:"notifications" jsonschema:"Unanswered notifications, oldest first"`
	Count         int                  `json:"count" jsonschema:"Number of notifications"`
}

type respondInput struct {
	NotificationID string `json:"notification_id" jsonschema:"Notification to answer"`
	Action         string `json:"action" jsonschema:"take_break or continue"`
}

type respondOutput struct {
	NotificationID string `json:"notification_id" jsonschema:"Notification answered"`
	Action         string `json:"action" jsonschema:"Action recorded"`
	RespondedAt    string `json:"responded_at" jsonschema:"When the answer was recorded (RFC 3339)"`
}

func (s *Server) registerNotificationTools() error {
	if s.deps.Notifier == nil {
		s.logger.Warn("notifier not configured, skipping notification tools")
		return nil
	}
	err := addTool(s, &ToolMetadata{
		Name:        "list_notifications",
		Description: "List distraction notifications that have not been answered yet",
		Category:    CategoryNotifications,
		Keywords:    []string{"nudge", "pending"},
	}, func(ctx context.Context, _ listNotificationsInput) (listNotificationsOutput, string, error) {
		pending := s.deps.Notifier.Pending()
		out := listNotificationsOutput{Notifications: make([]notificationOutput, 0, len(pending))}
		for _, n := range pending {
			out.Notifications = append(out.Notifications, notificationOutput{
				ID:         n.ID,
				TabID:      int(n.TabID),
				Message:    n.Message,
				Confidence: n.Confidence,
				CreatedAt:  n.CreatedAt.Format(time.RFC3339),
			})
		}
		out.Count = len(out.Notifications)
		return out, fmt.Sprintf("%d pending notifications", out.Count), nil
	})
	if err != nil {
		return err
	}

	return addTool(s, &ToolMetadata{
		Name:        "respond_notification",
		Description: "Answer a pending distraction notification with take_break or continue",
		Category:    CategoryNotifications,
		Keywords:    []string{"nudge", "break", "answer"},
	}, func(ctx context.Context, args respondInput) (respondOutput, string, error) {
		action, err := focus.ParseNotificationAction(args.Action)
		if err != nil {
			return respondOutput{}, "", fmt.Errorf("%v: %w", err, errInvalidInput)
		}
		resp, err := s.deps.Notifier.RecordResponse(ctx, args.NotificationID, action)
		if err != nil && resp.NotificationID == "" {
			return respondOutput{}, "", fmt.Errorf("respond failed: %w", err)
		}
		if err != nil {
			s.logger.Warn("notification response recorded but not published", zap.Error(err))
		}
		out := respondOutput{
			NotificationID: resp.NotificationID,
			Action:         string(resp.Action),
			RespondedAt:    resp.RespondedAt.Format(time.RFC3339),
		}
		return out, fmt.Sprintf("Recorded %s for %s", out.Action, out.NotificationID), nil
	})
}
