package logging

import (
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/focusfuel/internal/config"
)

const (
	redacted        = "[REDACTED]"
	redactedPattern = "[REDACTED:pattern]"
)

// Secret logs a config.Secret as its length only.
func Secret(key string, val config.Secret) zap.Field {
	return zap.String(key, "[REDACTED:"+strconv.Itoa(len(val.Value()))+"]")
}

// redactor decides what to hide. Field names match case-insensitively;
// patterns are matched against string values.
type redactor struct {
	keys     map[string]struct{}
	patterns []*regexp.Regexp
}

func newRedactor(cfg RedactionConfig) (*redactor, error) {
	r := &redactor{keys: make(map[string]struct{}, len(cfg.Fields))}
	if !cfg.Enabled {
		return r, nil
	}
	for _, f := range cfg.Fields {
		r.keys[strings.ToLower(f)] = struct{}{}
	}
	patterns, err := compilePatterns(cfg.Patterns)
	if err != nil {
		return nil, err
	}
	r.patterns = patterns
	return r, nil
}

func (r *redactor) empty() bool {
	return len(r.keys) == 0 && len(r.patterns) == 0
}

func (r *redactor) hidesKey(key string) bool {
	_, ok := r.keys[strings.ToLower(key)]
	return ok
}

// value returns the string to log for key=val.
func (r *redactor) value(key, val string) string {
	if r.hidesKey(key) {
		return redacted
	}
	for _, re := range r.patterns {
		if re.MatchString(val) {
			return redactedPattern
		}
	}
	return val
}

// field returns f with its value hidden if required.
func (r *redactor) field(f zapcore.Field) zapcore.Field {
	switch {
	case r.hidesKey(f.Key):
		return zap.String(f.Key, redacted)
	case f.Type == zapcore.StringType:
		if v := r.value(f.Key, f.String); v != f.String {
			return zap.String(f.Key, v)
		}
	}
	return f
}

// RedactingEncoder hides sensitive fields before they reach the wrapped
// encoder. It covers both fields attached with With (which go through the
// Add* methods) and fields passed at the log call (EncodeEntry).
type RedactingEncoder struct {
	zapcore.Encoder
	r *redactor
}

// NewRedactingEncoder wraps base. It fails if a pattern does not compile.
func NewRedactingEncoder(base zapcore.Encoder, cfg RedactionConfig) (*RedactingEncoder, error) {
	r, err := newRedactor(cfg)
	if err != nil {
		return nil, err
	}
	return &RedactingEncoder{Encoder: base, r: r}, nil
}

func (e *RedactingEncoder) AddString(key, val string) {
	e.Encoder.AddString(key, e.r.value(key, val))
}

func (e *RedactingEncoder) AddByteString(key string, val []byte) {
	if e.r.hidesKey(key) {
		e.Encoder.AddString(key, redacted)
		return
	}
	e.Encoder.AddByteString(key, val)
}

func (e *RedactingEncoder) AddBinary(key string, val []byte) {
	if e.r.hidesKey(key) {
		e.Encoder.AddString(key, redacted)
		return
	}
	e.Encoder.AddBinary(key, val)
}

// AddReflected hides the whole value when the key is sensitive; nested
// values are not inspected.
func (e *RedactingEncoder) AddReflected(key string, val interface{}) error {
	if e.r.hidesKey(key) {
		e.Encoder.AddString(key, redacted)
		return nil
	}
	return e.Encoder.AddReflected(key, val)
}

func (e *RedactingEncoder) AddArray(key string, arr zapcore.ArrayMarshaler) error {
	if e.r.hidesKey(key) {
		e.Encoder.AddString(key, redacted)
		return nil
	}
	return e.Encoder.AddArray(key, arr)
}

func (e *RedactingEncoder) AddObject(key string, obj zapcore.ObjectMarshaler) error {
	if e.r.hidesKey(key) {
		e.Encoder.AddString(key, redacted)
		return nil
	}
	return e.Encoder.AddObject(key, obj)
}

func (e *RedactingEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	if e.r.empty() {
		return e.Encoder.EncodeEntry(ent, fields)
	}
	clean := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		clean[i] = e.r.field(f)
	}
	return e.Encoder.EncodeEntry(ent, clean)
}

func (e *RedactingEncoder) Clone() zapcore.Encoder {
	return &RedactingEncoder{Encoder: e.Encoder.Clone(), r: e.r}
}
