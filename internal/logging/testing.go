package logging

import (
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger is a Logger that records every entry, down to TraceLevel, for
// assertions in tests.
type TestLogger struct {
	*Logger
	logs *observer.ObservedLogs
}

// NewTestLogger creates a recording logger.
func NewTestLogger() *TestLogger {
	core, logs := observer.New(TraceLevel)
	return &TestLogger{
		Logger: &Logger{zap: zap.New(core), config: NewDefaultConfig()},
		logs:   logs,
	}
}

// All returns every recorded entry.
func (t *TestLogger) All() []observer.LoggedEntry {
	return t.logs.All()
}

// FilterMessage returns entries whose message contains msg.
func (t *TestLogger) FilterMessage(msg string) *observer.ObservedLogs {
	return t.logs.FilterMessageSnippet(msg)
}

// Reset discards recorded entries.
func (t *TestLogger) Reset() {
	t.logs.TakeAll()
}

func (t *TestLogger) find(level zapcore.Level, msg string) []observer.LoggedEntry {
	return t.logs.FilterLevelExact(level).FilterMessageSnippet(msg).All()
}

// AssertLogged fails tb unless an entry at level contains msg.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, msg string) {
	tb.Helper()
	if len(t.find(level, msg)) == 0 {
		tb.Errorf("no %s entry containing %q; recorded: %s", level, msg, t.summary())
	}
}

// AssertNotLogged fails tb if an entry at level contains msg.
func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, msg string) {
	tb.Helper()
	if n := len(t.find(level, msg)); n > 0 {
		tb.Errorf("found %d unexpected %s entries containing %q", n, level, msg)
	}
}

// AssertField fails tb unless an entry containing msg has field key equal
// to want.
func (t *TestLogger) AssertField(tb testing.TB, msg, key string, want interface{}) {
	tb.Helper()
	for _, e := range t.logs.FilterMessageSnippet(msg).All() {
		if got, ok := e.ContextMap()[key]; ok && fmt.Sprint(got) == fmt.Sprint(want) {
			return
		}
	}
	tb.Errorf("no entry containing %q has %s=%v; recorded: %s", msg, key, want, t.summary())
}

// AssertNoSecrets fails tb if a recorded string would have been redacted
// by the default redaction rules.
func (t *TestLogger) AssertNoSecrets(tb testing.TB) {
	tb.Helper()
	r, err := newRedactor(NewDefaultConfig().Redaction)
	if err != nil {
		tb.Fatalf("default redaction rules: %v", err)
	}
	for _, e := range t.logs.All() {
		if r.value("", e.Message) != e.Message {
			tb.Errorf("secret in message %q", e.Message)
		}
		for _, f := range e.Context {
			if f.Type != zapcore.StringType || strings.HasPrefix(f.String, "[REDACTED") {
				continue
			}
			if r.value(f.Key, f.String) != f.String {
				tb.Errorf("secret in field %s of %q", f.Key, e.Message)
			}
		}
	}
}

func (t *TestLogger) summary() string {
	var b strings.Builder
	for _, e := range t.logs.All() {
		fmt.Fprintf(&b, "\n  %s %q", e.Level, e.Message)
	}
	return b.String()
}
