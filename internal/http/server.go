// Package http provides the focusfuel HTTP API.
//
// Browser collaborators post tab lifecycle and activity events; clients
// query tab stats, request on-demand classification, manage the domain
// lists, page through stored events and answer notifications.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/focusfuel/internal/activity"
	"github.com/fyrsmithlabs/focusfuel/internal/domains"
	"github.com/fyrsmithlabs/focusfuel/internal/focus"
	"github.com/fyrsmithlabs/focusfuel/internal/sink"
)

const (
	defaultEventsLimit = 50
	maxEventsLimit     = 1000
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

// Deps are the collaborators the API serves. Tracker and Lists are
// required; routes backed by a nil Events or Notifier answer 503.
type Deps struct {
	Tracker  Tracker
	Lists    *domains.Lists
	Events   EventLister
	Notifier Notifier
}

// Server provides HTTP endpoints for focusfuel.
type Server struct {
	echo   *echo.Echo
	deps   Deps
	logger *zap.Logger
	config *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host    string
	Port    int
	Version string
}

// NewServer creates a new HTTP server.
func NewServer(deps Deps, logger *zap.Logger, cfg *Config) (*Server, error) {
	if deps.Tracker == nil {
		return nil, fmt.Errorf("tracker cannot be nil")
	}
	if deps.Lists == nil {
		return nil, fmt.Errorf("domain lists cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9191,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(newRequestMetrics(otel.Meter(httpInstrumentationName), logger).middleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Debug("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:   e,
		deps:   deps,
		logger: logger,
		config: cfg,
	}
	s.registerRoutes()

	return s, nil
}

// Echo exposes the underlying router.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")

	v1.POST("/events/navigation", s.handleNavigation)
	v1.POST("/events/activated", s.handleActivated)
	v1.POST("/events/activity", s.handleActivity)
	v1.POST("/events/closed", s.handleClosed)
	v1.GET("/events", s.handleListEvents)

	v1.GET("/tabs", s.handleTabs)
	v1.GET("/tabs/:id/stats", s.handleTabStats)
	v1.POST("/tabs/:id/classify", s.handleClassify)

	v1.GET("/domains", s.handleListDomains)
	v1.POST("/domains/:list", s.handleAddDomain)
	v1.DELETE("/domains/:list/:domain", s.handleRemoveDomain)

	v1.GET("/notifications", s.handleNotifications)
	v1.POST("/notifications/:id/respond", s.handleRespond)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: s.config.Version})
}

func (s *Server) handleNavigation(c echo.Context) error {
	var req NavigationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.TabID == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "tab_id field is required")
	}
	if req.URL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url field is required")
	}

	reply, err := s.deps.Tracker.Handle(c.Request().Context(), activity.NavigationComplete{
		TabID: focus.TabID(*req.TabID),
		URL:   req.URL,
		Title: req.Title,
	})
	if err != nil {
		return s.trackerError(err)
	}
	return c.JSON(http.StatusOK, NavigationResponse{SessionID: reply.SessionID})
}

func (s *Server) handleActivated(c echo.Context) error {
	tabID, err := bindTab(c)
	if err != nil {
		return err
	}
	if _, err := s.deps.Tracker.Handle(c.Request().Context(), activity.TabActivated{TabID: tabID}); err != nil {
		return s.trackerError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleActivity(c echo.Context) error {
	var req ActivityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.TabID == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "tab_id field is required")
	}
	kind, err := activity.ParseEventKind(req.Kind)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	msg := activity.ActivityEvent{TabID: focus.TabID(*req.TabID), Kind: kind}
	if _, err := s.deps.Tracker.Handle(c.Request().Context(), msg); err != nil {
		return s.trackerError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleClosed(c echo.Context) error {
	tabID, err := bindTab(c)
	if err != nil {
		return err
	}
	if _, err := s.deps.Tracker.Handle(c.Request().Context(), activity.TabRemoved{TabID: tabID}); err != nil {
		return s.trackerError(err)
	}
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) handleTabs(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Tracker.Sessions())
}

func (s *Server) handleTabStats(c echo.Context) error {
	tabID, err := tabParam(c)
	if err != nil {
		return err
	}
	reply, err := s.deps.Tracker.Handle(c.Request().Context(), activity.StatsRequest{TabID: tabID})
	if err != nil {
		return s.trackerError(err)
	}
	return c.JSON(http.StatusOK, reply.Stats)
}

func (s *Server) handleClassify(c echo.Context) error {
	tabID, err := tabParam(c)
	if err != nil {
		return err
	}
	reply, err := s.deps.Tracker.Handle(c.Request().Context(), activity.ClassifyRequest{TabID: tabID})
	if err != nil {
		return s.trackerError(err)
	}
	return c.JSON(http.StatusOK, reply.Result)
}

func (s *Server) handleListEvents(c echo.Context) error {
	if s.deps.Events == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "event store not configured")
	}
	limit := defaultEventsLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, maxEventsLimit)
	}

	events, err := s.deps.Events.Recent(limit)
	if err != nil {
		s.logger.Error("listing events failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list events")
	}
	return c.JSON(http.StatusOK, EventsResponse{Events: events})
}

func (s *Server) handleListDomains(c echo.Context) error {
	return c.JSON(http.StatusOK, DomainsResponse{
		Blacklist: s.deps.Lists.Blacklist(),
		Whitelist: s.deps.Lists.Whitelist(),
	})
}

func (s *Server) handleAddDomain(c echo.Context) error {
	var req DomainRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	domain := domains.Normalize(req.Domain)
	if domain == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "domain field is required")
	}

	switch c.Param("list") {
	case "blacklist":
		s.deps.Lists.AddToBlacklist(domain)
	case "whitelist":
		s.deps.Lists.AddToWhitelist(domain)
	default:
		return echo.NewHTTPError(http.StatusNotFound, "list must be blacklist or whitelist")
	}
	s.logger.Info("domain added", zap.String("list", c.Param("list")), zap.String("domain", domain))
	return c.JSON(http.StatusCreated, DomainRequest{Domain: domain})
}

func (s *Server) handleRemoveDomain(c echo.Context) error {
	domain := domains.Normalize(c.Param("domain"))
	switch c.Param("list") {
	case "blacklist":
		s.deps.Lists.RemoveFromBlacklist(domain)
	case "whitelist":
		s.deps.Lists.RemoveFromWhitelist(domain)
	default:
		return echo.NewHTTPError(http.StatusNotFound, "list must be blacklist or whitelist")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleNotifications(c echo.Context) error {
	if s.deps.Notifier == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "notifications not configured")
	}
	return c.JSON(http.StatusOK, NotificationsResponse{Notifications: s.deps.Notifier.Pending()})
}

func (s *Server) handleRespond(c echo.Context) error {
	if s.deps.Notifier == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "notifications not configured")
	}
	var req RespondRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	action, err := focus.ParseNotificationAction(req.Action)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	resp, err := s.deps.Notifier.RecordResponse(c.Request().Context(), c.Param("id"), action)
	switch {
	case errors.Is(err, sink.ErrUnknownNotification):
		return echo.NewHTTPError(http.StatusNotFound, "unknown notification")
	case err != nil:
		// The response is recorded even when publishing it failed.
		s.logger.Warn("publishing notification response failed", zap.Error(err))
	}
	return c.JSON(http.StatusOK, resp)
}

// trackerError maps registry errors onto HTTP status codes.
func (s *Server) trackerError(err error) error {
	switch {
	case errors.Is(err, activity.ErrUnknownTab):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, activity.ErrDwellTooShort):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}

func bindTab(c echo.Context) (focus.TabID, error) {
	var req TabRequest
	if err := c.Bind(&req); err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.TabID == nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "tab_id field is required")
	}
	return focus.TabID(*req.TabID), nil
}

func tabParam(c echo.Context) (focus.TabID, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "tab id must be an integer")
	}
	return focus.TabID(id), nil
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
