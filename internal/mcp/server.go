package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/focusfuel/internal/activity"
	"github.com/fyrsmithlabs/focusfuel/internal/domains"
	"github.com/fyrsmithlabs/focusfuel/internal/focus"
)

// Tracker is the tab session registry.
type Tracker interface {
	Handle(ctx context.Context, msg activity.Message) (activity.Reply, error)
	Sessions() activity.SessionsView
}

// EventLister lists stored events, newest first.
type EventLister interface {
	Recent(limit int) ([]focus.DistractionEvent, error)
}

// Notifier tracks pending notifications and their responses.
type Notifier interface {
	Pending() []focus.Notification
	RecordResponse(ctx context.Context, id string, action focus.NotificationAction) (focus.NotificationResponse, error)
}

// Deps are the services the tools call. Tracker and Lists are required.
// Tools backed by a nil Events or Notifier are not registered.
type Deps struct {
	Tracker  Tracker
	Lists    *domains.Lists
	Events   EventLister
	Notifier Notifier
}

// Server is an MCP server that calls focusfuel services directly.
type Server struct {
	mcp          *mcp.Server
	deps         Deps
	toolRegistry *ToolRegistry
	metrics      *toolMetrics
	logger       *zap.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "focusfuel")
	Name string

	// Version is the server version (default: "dev")
	Version string

	// Logger for structured logging
	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "focusfuel",
		Version: "dev",
		Logger:  zap.NewNop(),
	}
}

// NewServer creates a new MCP server with the given services.
func NewServer(cfg *Config, deps Deps) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if deps.Tracker == nil {
		return nil, fmt.Errorf("tracker is required")
	}
	if deps.Lists == nil {
		return nil, fmt.Errorf("domain lists are required")
	}

	s := &Server{
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		deps:         deps,
		toolRegistry: NewToolRegistry(),
		metrics:      newToolMetrics(otel.Meter(instrumentationName), cfg.Logger),
		logger:       cfg.Logger,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	return s, nil
}

// Tools returns the registry describing every registered tool.
func (s *Server) Tools() *ToolRegistry {
	return s.toolRegistry
}

// Run starts the MCP server on the stdio transport.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio transport",
		zap.Int("tools", s.toolRegistry.Count()))
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// Connect serves a single session over t and returns once the session is
// established.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcp.Connect(ctx, t, nil)
}
