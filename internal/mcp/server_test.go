package mcp

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/focusfuel/internal/activity"
	"github.com/fyrsmithlabs/focusfuel/internal/domains"
	"github.com/fyrsmithlabs/focusfuel/internal/focus"
	"github.com/fyrsmithlabs/focusfuel/internal/sink"
	"github.com/fyrsmithlabs/focusfuel/internal/store"
)

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixedClassifier struct{}

func (fixedClassifier) Classify(_ context.Context, snap focus.Snapshot) focus.Result {
	return focus.Result{
		IsDistracting: true,
		Confidence:    88,
		Reason:        "Extended passive consumption",
		Source:        focus.SourcePattern,
		MatchedPattern: &focus.Pattern{
			ID:         "passive_browsing",
			Confidence: 70,
			Severity:   focus.SeverityMedium,
		},
	}
}

type harness struct {
	session    *mcp.ClientSession
	server     *Server
	registry   *activity.Registry
	dispatcher *sink.Dispatcher
	lists      *domains.Lists
	clock      *stepClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	events, err := store.Open(store.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = events.Close() })

	clock := &stepClock{t: time.Date(2026, 3, 10, 14, 0, 0, 0, time.Local)}
	dispatcher := sink.NewDispatcher(sink.Config{}, sink.WithStore(events), sink.WithClock(clock.Now))
	registry := activity.NewRegistry(fixedClassifier{}, dispatcher, activity.Config{}, activity.WithClock(clock.Now))
	lists := domains.NewLists([]string{"youtube.com"}, []string{"github.com"})

	server, err := NewServer(&Config{Name: "focusfuel-test", Version: "test", Logger: zap.NewNop()}, Deps{
		Tracker:  registry,
		Lists:    lists,
		Events:   events,
		Notifier: dispatcher,
	})
	require.NoError(t, err)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })

	return &harness{session: cs, server: server, registry: registry, dispatcher: dispatcher, lists: lists, clock: clock}
}

// call invokes a tool and decodes its structured output into out.
func (h *harness) call(t *testing.T, name string, args map[string]any, out any) *mcp.CallToolResult {
	t.Helper()
	res, err := h.session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.False(t, res.IsError, "tool %s failed: %v", name, res.Content)
	if out != nil {
		raw, err := json.Marshal(res.StructuredContent)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out))
	}
	return res
}

// callFails asserts the tool reports an error, either as a protocol error
// or as an error result.
func (h *harness) callFails(t *testing.T, name string, args map[string]any) {
	t.Helper()
	res, err := h.session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return
	}
	assert.True(t, res.IsError, "expected %s to fail", name)
}

func TestNewServer_Validation(t *testing.T) {
	lists := domains.NewDefaultLists()
	tracker := activity.NewRegistry(fixedClassifier{}, sink.NewDispatcher(sink.Config{}), activity.Config{})

	_, err := NewServer(nil, Deps{Lists: lists})
	assert.ErrorContains(t, err, "tracker is required")

	_, err = NewServer(nil, Deps{Tracker: tracker})
	assert.ErrorContains(t, err, "domain lists are required")

	s, err := NewServer(nil, Deps{Tracker: tracker, Lists: lists})
	require.NoError(t, err)
	_, ok := s.Tools().Get("recent_events")
	assert.False(t, ok, "event tools need an event store")
	_, ok = s.Tools().Get("respond_notification")
	assert.False(t, ok, "notification tools need a notifier")
	_, ok = s.Tools().Get("classify_tab")
	assert.True(t, ok)
}

func TestServer_ListTools(t *testing.T) {
	h := newHarness(t)

	res, err := h.session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"classify_tab", "tab_stats", "list_tabs",
		"list_domains", "update_domain",
		"recent_events",
		"list_notifications", "respond_notification",
		"tool_search", "tool_list",
	}, names)
	assert.Equal(t, len(names), h.server.Tools().Count())
}

func TestServer_ClassifyTab(t *testing.T) {
	h := newHarness(t)
	h.registry.OnNavigationComplete(4, "https://www.youtube.com/watch?v=x", "video")

	h.callFails(t, "classify_tab", map[string]any{"tab_id": 4})
	h.callFails(t, "classify_tab", map[string]any{"tab_id": 99})

	h.clock.Advance(30 * time.Second)
	var out classifyOutput
	res := h.call(t, "classify_tab", map[string]any{"tab_id": 4}, &out)

	assert.Equal(t, 4, out.TabID)
	assert.True(t, out.IsDistracting)
	assert.Equal(t, 88, out.Confidence)
	assert.Equal(t, "pattern", out.Source)
	assert.Equal(t, "passive_browsing", out.Pattern)
	assert.Equal(t, 70, out.PatternConfidence)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "distracting (88%)")

	assert.Empty(t, h.dispatcher.Pending(), "on-demand results are not delivered")
}

func TestServer_TabTools(t *testing.T) {
	h := newHarness(t)
	h.registry.OnNavigationComplete(1, "https://github.com/golang/go", "go")
	h.registry.OnEvent(1, activity.KindKeyDown)
	h.registry.OnEvent(1, activity.KindKeyDown)
	h.registry.OnNavigationComplete(2, "https://news.ycombinator.com", "hn")
	h.registry.OnTabActivated(1)
	h.registry.OnTabActivated(2)
	h.clock.Advance(9 * time.Second)

	var stats tabStatsOutput
	h.call(t, "tab_stats", map[string]any{"tab_id": 1}, &stats)
	assert.Equal(t, "github.com", stats.Domain)
	assert.Equal(t, 2, stats.KeyboardEvents)
	assert.Equal(t, 9, stats.TimeSpentSeconds)
	assert.Equal(t, 1, stats.TabSwitches)

	h.callFails(t, "tab_stats", map[string]any{"tab_id": 3})

	var tabs listTabsOutput
	h.call(t, "list_tabs", map[string]any{}, &tabs)
	assert.True(t, tabs.HasCurrent)
	assert.Equal(t, 2, tabs.CurrentTabID)
	assert.Equal(t, 2, tabs.TabSwitchCount)
	require.Equal(t, 2, tabs.Count)
	assert.Equal(t, 1, tabs.Tabs[0].TabID)
	assert.Equal(t, 2, tabs.Tabs[1].TabID)
}

func TestServer_DomainTools(t *testing.T) {
	h := newHarness(t)

	var updated updateDomainOutput
	h.call(t, "update_domain", map[string]any{
		"list": "blacklist", "action": "add", "domain": "https://www.Reddit.com/r/all",
	}, &updated)
	assert.Equal(t, "reddit.com", updated.Domain)
	assert.Equal(t, domains.Blacklisted, h.lists.Lookup("reddit.com"))

	h.call(t, "update_domain", map[string]any{"list": "whitelist", "action": "remove", "domain": "github.com"}, nil)
	h.callFails(t, "update_domain", map[string]any{"list": "greylist", "action": "add", "domain": "a.com"})
	h.callFails(t, "update_domain", map[string]any{"list": "blacklist", "action": "add", "domain": " "})

	var out listDomainsOutput
	h.call(t, "list_domains", map[string]any{}, &out)
	assert.Equal(t, []string{"reddit.com", "youtube.com"}, out.Blacklist)
	assert.Empty(t, out.Whitelist)
}

func TestServer_EventAndNotificationTools(t *testing.T) {
	h := newHarness(t)
	h.registry.OnNavigationComplete(5, "https://youtube.com", "yt")
	h.clock.Advance(40 * time.Second)
	h.registry.OnTabClosed(context.Background(), 5)
	h.registry.Wait()

	var events recentEventsOutput
	h.call(t, "recent_events", map[string]any{"limit": 10}, &events)
	require.Equal(t, 1, events.Count)
	assert.Equal(t, 5, events.Events[0].TabID)
	assert.Equal(t, "distraction", events.Events[0].Type)
	assert.Equal(t, 40, events.Events[0].DurationSeconds)
	assert.Equal(t, "entertainment", events.Events[0].Category)

	var pending listNotificationsOutput
	h.call(t, "list_notifications", map[string]any{}, &pending)
	require.Equal(t, 1, pending.Count)
	id := pending.Notifications[0].ID

	h.callFails(t, "respond_notification", map[string]any{"notification_id": id, "action": "snooze"})

	var resp respondOutput
	h.call(t, "respond_notification", map[string]any{"notification_id": id, "action": "continue"}, &resp)
	assert.Equal(t, id, resp.NotificationID)
	assert.Equal(t, "continue", resp.Action)

	h.callFails(t, "respond_notification", map[string]any{"notification_id": id, "action": "continue"})
}

func TestServer_ToolSearch(t *testing.T) {
	h := newHarness(t)

	var out toolSearchOutput
	h.call(t, "tool_search", map[string]any{"query": "classify_tab"}, &out)
	require.NotEmpty(t, out.Results)
	assert.Equal(t, "classify_tab", out.Results[0].Name)
	assert.Equal(t, 3, out.Results[0].Score)
	assert.Equal(t, h.server.Tools().Count(), out.TotalTools)

	h.call(t, "tool_search", map[string]any{"query": "blacklist", "category": "domains"}, &out)
	require.Equal(t, 2, out.Count)
	for _, r := range out.Results {
		assert.Equal(t, "domains", r.Category)
	}

	h.callFails(t, "tool_search", map[string]any{"query": ""})

	var list toolListOutput
	h.call(t, "tool_list", map[string]any{"category": "tabs"}, &list)
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, "list_tabs", list.Tools[0].Name)
}
