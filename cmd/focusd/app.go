package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/focusfuel/internal/activity"
	"github.com/fyrsmithlabs/focusfuel/internal/ai"
	"github.com/fyrsmithlabs/focusfuel/internal/classifier"
	"github.com/fyrsmithlabs/focusfuel/internal/config"
	"github.com/fyrsmithlabs/focusfuel/internal/domains"
	"github.com/fyrsmithlabs/focusfuel/internal/focus"
	"github.com/fyrsmithlabs/focusfuel/internal/logging"
	"github.com/fyrsmithlabs/focusfuel/internal/sink"
	"github.com/fyrsmithlabs/focusfuel/internal/store"
	"github.com/fyrsmithlabs/focusfuel/internal/telemetry"
)

const instrumentationName = "github.com/fyrsmithlabs/focusfuel/cmd/focusd"

// app holds every long-lived component of the daemon.
type app struct {
	cfg        *config.Config
	logger     *logging.Logger
	telemetry  *telemetry.Telemetry
	lists      *domains.Lists
	watcher    *domains.Watcher
	pipeline   *classifier.Pipeline
	events     *store.EventStore
	nc         *nats.Conn
	dispatcher *sink.Dispatcher
	registry   *activity.Registry

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type appOptions struct {
	// stderrLogs moves console logs off stdout, which the MCP transport owns.
	stderrLogs bool
	// tracking wires the registry, store and dispatcher. One-shot commands
	// only need the pipeline.
	tracking bool
}

// newApp initializes components in dependency order:
//  1. Telemetry, then the logger (which may bridge into telemetry)
//  2. Domain lists and the optional file watcher
//  3. AI provider and the classification pipeline
//  4. Event store, NATS connection and the dispatcher
//  5. The tab activity registry
//
// On error every component created so far is released.
func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (a *app, err error) {
	a = &app{cfg: cfg}
	defer func() {
		if err != nil {
			_ = a.close(context.WithoutCancel(ctx))
			a = nil
		}
	}()

	a.telemetry, err = telemetry.New(ctx, telemetry.FromConfig(cfg.Telemetry, version))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	logCfg, err := logging.FromConfig(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}
	if opts.stderrLogs && logCfg.Output.Stdout {
		logCfg.Output.Stdout = false
		logCfg.Output.Stderr = true
	}
	a.logger, err = logging.NewLogger(logCfg, a.telemetry.LoggerProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	for _, reason := range a.telemetry.DegradedReasons() {
		a.logger.Warn(ctx, "telemetry degraded", zap.String("reason", reason))
	}
	zl := a.logger.Underlying()

	source := domains.Source{
		Defaults:  cfg.Domains.Defaults,
		Blacklist: cfg.Domains.Blacklist,
		Whitelist: cfg.Domains.Whitelist,
		File:      cfg.Domains.File,
	}
	a.lists, err = domains.Load(source)
	if err != nil {
		return nil, fmt.Errorf("failed to load domain lists: %w", err)
	}
	if opts.tracking && cfg.Domains.File != "" && cfg.Domains.Watch {
		a.watcher, err = domains.NewWatcher(a.lists, source, zl.Named("domains"))
		if err != nil {
			return nil, fmt.Errorf("failed to watch domain list file: %w", err)
		}
	}

	provider, err := ai.New(ai.Config{
		Provider:      cfg.AI.Provider,
		Model:         cfg.AI.Model,
		APIKey:        cfg.AI.APIKey.Value(),
		BaseURL:       cfg.AI.BaseURL,
		RatePerMinute: cfg.AI.RatePerMinute,
		MaxRetries:    cfg.AI.MaxRetries,
		HTTPTimeout:   cfg.AI.HTTPTimeout.Duration(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AI classifier: %w", err)
	}
	sensitivity, err := focus.ParseSensitivity(cfg.Classifier.Sensitivity)
	if err != nil {
		return nil, err
	}
	a.pipeline = classifier.New(a.lists, classifier.Config{
		Sensitivity:      sensitivity,
		PatternThreshold: cfg.Classifier.PatternThreshold,
		AITimeout:        cfg.Classifier.AITimeout.Duration(),
	},
		classifier.WithAI(provider),
		classifier.WithLogger(a.logger.Named("classifier")),
		classifier.WithTracer(a.telemetry.Tracer(instrumentationName)),
	)
	a.logger.Info(ctx, "classifier ready",
		zap.String("ai.provider", cfg.AI.Provider),
		zap.Bool("ai.available", provider.Available()),
		zap.String("sensitivity", string(sensitivity)),
		logging.Secret("ai.api_key", cfg.AI.APIKey))

	if !opts.tracking {
		return a, nil
	}

	a.events, err = store.Open(store.Config{Path: cfg.Store.Path, Logger: zl.Named("store")})
	if err != nil {
		return nil, fmt.Errorf("failed to open event store: %w", err)
	}

	dispatchOpts := []sink.Option{sink.WithStore(a.events), sink.WithLogger(zl.Named("sink"))}
	if cfg.NATS.URL != "" {
		a.nc, err = sink.Connect(cfg.NATS.URL, cfg.NATS.Name, zl.Named("nats"))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
		}
		dispatchOpts = append(dispatchOpts, sink.WithPublisher(a.nc))
		a.logger.Info(ctx, "connected to NATS", zap.String("url", cfg.NATS.URL))
	}
	a.dispatcher = sink.NewDispatcher(sink.Config{
		Threshold:     cfg.Notify.Threshold,
		Cooldown:      cfg.Notify.Cooldown.Duration(),
		SubjectPrefix: cfg.NATS.SubjectPrefix,
	}, dispatchOpts...)

	a.registry = activity.NewRegistry(a.pipeline, a.dispatcher, activity.Config{
		MinDwell:   cfg.Tracking.MinDwell.Duration(),
		IdleWindow: cfg.Tracking.IdleWindow.Duration(),
	},
		activity.WithLogger(a.logger.Named("activity")),
		activity.WithTracer(a.telemetry.Tracer(instrumentationName)),
	)

	return a, nil
}

// start launches the background loops: the periodic sweep and, when
// configured, the domain list watcher.
func (a *app) start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.registry.Run(ctx, a.cfg.Tracking.SweepInterval.Duration())
	}()
	if a.watcher != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.watcher.Run(ctx)
		}()
	}
}

// close waits for background work and releases resources in reverse
// order of creation.
func (a *app) close(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	var errs []error
	if a.registry != nil {
		a.registry.Wait()
	}
	if a.nc != nil {
		if err := a.nc.Drain(); err != nil {
			errs = append(errs, fmt.Errorf("nats drain: %w", err))
		}
	}
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("event store close: %w", err))
		}
	}
	if a.telemetry != nil {
		if err := a.telemetry.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}
