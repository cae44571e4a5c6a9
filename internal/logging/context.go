package logging

import (
	"context"
	"fmt"
	"regexp"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey int

const (
	tabKey ctxKey = iota
	sessionKey
	requestKey
	loggerKey
)

// ContextFields returns the correlation fields carried by ctx: the otel
// trace and span ids, then tab.id, session.id and request.id when set.
func ContextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()))
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}
	if id, ok := TabIDFromContext(ctx); ok {
		fields = append(fields, zap.Int("tab.id", id))
	}
	if id := SessionIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("session.id", id))
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	return fields
}

// Session and request ids are opaque tokens: uuids or echo request ids.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

func mustValidID(kind, id string) {
	if !idPattern.MatchString(id) {
		panic(fmt.Sprintf("logging: invalid %s %q (want 1-128 of [A-Za-z0-9_-])", kind, id))
	}
}

// WithTabID adds a browser tab id to ctx.
func WithTabID(ctx context.Context, tabID int) context.Context {
	return context.WithValue(ctx, tabKey, tabID)
}

// TabIDFromContext returns the tab id added by WithTabID.
func TabIDFromContext(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(tabKey).(int)
	return id, ok
}

// WithSessionID adds a tracking session id to ctx. It panics on an empty
// or malformed id.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	mustValidID("session id", sessionID)
	return context.WithValue(ctx, sessionKey, sessionID)
}

func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey).(string)
	return id
}

// WithRequestID adds a request id to ctx. It panics on an empty or
// malformed id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	mustValidID("request id", requestID)
	return context.WithValue(ctx, requestKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestKey).(string)
	return id
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored by WithLogger, or a no-op logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return Nop()
}
