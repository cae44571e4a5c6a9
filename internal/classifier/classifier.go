// Package classifier implements the three-stage distraction classification
// pipeline: domain lists, behavioral patterns, then an optional AI verdict.
//
// Classify is total. The list and pattern stages cannot fail, and every AI
// stage failure is logged and replaced by the heuristic result.
package classifier

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/focusfuel/internal/ai"
	"github.com/fyrsmithlabs/focusfuel/internal/domains"
	"github.com/fyrsmithlabs/focusfuel/internal/focus"
	"github.com/fyrsmithlabs/focusfuel/internal/logging"
	"github.com/fyrsmithlabs/focusfuel/internal/patterns"
)

const instrumentationName = "github.com/fyrsmithlabs/focusfuel/internal/classifier"

// BlacklistMatch is the pattern id attached to blacklist results.
const BlacklistMatch = "blacklist_match"

const (
	blacklistReason     = "Site is in distraction blacklist"
	blacklistSuggestion = "Consider using this site during breaks instead"
	whitelistReason     = "Site is in productivity whitelist"
	undeterminedReason  = "undetermined"
)

// Defaults used when Config fields are zero.
const (
	DefaultPatternThreshold = 80
	DefaultAITimeout        = 10 * time.Second
)

// Config tunes the pipeline.
type Config struct {
	Sensitivity focus.Sensitivity
	// PatternThreshold is the confidence a top pattern must exceed to skip
	// the AI stage. Zero selects DefaultPatternThreshold.
	PatternThreshold int
	AITimeout        time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithAI sets the stage-3 classifier.
func WithAI(c ai.Classifier) Option {
	return func(p *Pipeline) { p.ai = c }
}

// WithLogger sets the logger used for stage-3 failures.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

// Pipeline classifies activity snapshots. It is safe for concurrent use.
type Pipeline struct {
	lists  *domains.Lists
	ai     ai.Classifier
	logger *logging.Logger
	tracer trace.Tracer

	mu  sync.RWMutex
	cfg Config
}

// New creates a pipeline over the given domain lists.
func New(lists *domains.Lists, cfg Config, opts ...Option) *Pipeline {
	if lists == nil {
		lists = domains.NewLists(nil, nil)
	}
	if cfg.Sensitivity == "" {
		cfg.Sensitivity = focus.SensitivityMedium
	}
	if cfg.PatternThreshold == 0 {
		cfg.PatternThreshold = DefaultPatternThreshold
	}
	if cfg.AITimeout <= 0 {
		cfg.AITimeout = DefaultAITimeout
	}
	p := &Pipeline{
		lists:  lists,
		ai:     ai.Disabled{},
		logger: logging.Nop(),
		tracer: otel.Tracer(instrumentationName),
		cfg:    cfg,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.ai == nil {
		p.ai = ai.Disabled{}
	}
	return p
}

// Lists returns the domain lists consulted by stage 1.
func (p *Pipeline) Lists() *domains.Lists {
	return p.lists
}

// Sensitivity returns the current sensitivity level.
func (p *Pipeline) Sensitivity() focus.Sensitivity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg.Sensitivity
}

// SetSensitivity changes the sensitivity used by later classifications.
func (p *Pipeline) SetSensitivity(s focus.Sensitivity) {
	p.mu.Lock()
	p.cfg.Sensitivity = s
	p.mu.Unlock()
}

func (p *Pipeline) config() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// Classify returns a result for snap. It never fails: the AI stage runs
// under cfg.AITimeout and its errors fall back to the pattern result.
func (p *Pipeline) Classify(ctx context.Context, snap focus.Snapshot) focus.Result {
	ctx, span := p.tracer.Start(ctx, "classifier.Classify",
		trace.WithAttributes(attribute.Int("focus.tab_id", int(snap.TabID))))
	defer span.End()

	ctx = logging.WithTabID(ctx, int(snap.TabID))
	res := p.classify(ctx, snap, span)
	res.Confidence = focus.ClampConfidence(res.Confidence)

	span.SetAttributes(
		attribute.String("focus.source", string(res.Source)),
		attribute.Bool("focus.distracting", res.IsDistracting),
		attribute.Int("focus.confidence", res.Confidence),
	)
	ClassificationsTotal.WithLabelValues(string(res.Source), verdictLabel(res.IsDistracting)).Inc()
	return res
}

func (p *Pipeline) classify(ctx context.Context, snap focus.Snapshot, span trace.Span) focus.Result {
	cfg := p.config()

	if res, ok := p.checkLists(snap); ok {
		return res
	}

	top := patterns.Top(snap, cfg.Sensitivity)
	if top != nil && top.Confidence > cfg.PatternThreshold {
		return patternResult(*top)
	}

	verdict, err := p.askAI(ctx, snap, cfg.AITimeout)
	if err != nil {
		reason := failureReason(err)
		AIFailuresTotal.WithLabelValues(reason).Inc()
		if !errors.Is(err, ai.ErrDisabled) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "ai stage failed")
			p.logger.Warn(ctx, "ai classification failed, using heuristics",
				zap.String("reason", reason),
				zap.Error(err))
		}
		return fallback(top)
	}

	res := focus.Result{
		IsDistracting:  verdict.Distracting,
		Confidence:     verdict.Confidence,
		Reason:         verdict.Reason,
		Suggestion:     verdict.Suggestion,
		MatchedPattern: top,
		Source:         focus.SourceAI,
	}
	if res.Suggestion == "" && top != nil {
		res.Suggestion = patterns.SuggestionFor(top.ID)
	}
	return res
}

// checkLists is stage 1.
func (p *Pipeline) checkLists(snap focus.Snapshot) (focus.Result, bool) {
	switch p.lists.Lookup(domains.Normalize(snap.URL)) {
	case domains.Blacklisted:
		return focus.Result{
			IsDistracting: true,
			Confidence:    95,
			Reason:        blacklistReason,
			Suggestion:    blacklistSuggestion,
			MatchedPattern: &focus.Pattern{
				ID:          BlacklistMatch,
				Confidence:  90,
				Severity:    focus.SeverityHigh,
				Description: blacklistReason,
			},
			Source: focus.SourceList,
		}, true
	case domains.Whitelisted:
		return focus.Result{
			IsDistracting: false,
			Confidence:    90,
			Reason:        whitelistReason,
			Source:        focus.SourceList,
		}, true
	}
	return focus.Result{}, false
}

func (p *Pipeline) askAI(ctx context.Context, snap focus.Snapshot, timeout time.Duration) (ai.Verdict, error) {
	if !p.ai.Available() {
		return ai.Verdict{}, ai.ErrDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		v   ai.Verdict
		err error
	}
	done := make(chan outcome, 1)
	start := time.Now()
	go func() {
		v, err := p.ai.Classify(ctx, snap)
		done <- outcome{v, err}
	}()

	// Providers are expected to honor ctx, but the deadline is enforced
	// here regardless.
	select {
	case o := <-done:
		AIDuration.Observe(time.Since(start).Seconds())
		return o.v, o.err
	case <-ctx.Done():
		AIDuration.Observe(time.Since(start).Seconds())
		return ai.Verdict{}, ctx.Err()
	}
}

func patternResult(pat focus.Pattern) focus.Result {
	return focus.Result{
		IsDistracting:  pat.Severity != focus.SeverityLow,
		Confidence:     pat.Confidence,
		Reason:         pat.Description,
		Suggestion:     patterns.SuggestionFor(pat.ID),
		MatchedPattern: &pat,
		Source:         focus.SourcePattern,
	}
}

func fallback(top *focus.Pattern) focus.Result {
	if top != nil {
		return patternResult(*top)
	}
	return focus.Result{
		IsDistracting: false,
		Confidence:    50,
		Reason:        undeterminedReason,
		Source:        focus.SourcePattern,
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ai.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, ai.ErrDisabled):
		return "disabled"
	default:
		return "error"
	}
}
