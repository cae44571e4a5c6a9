// Package ai provides the optional model-backed classifiers used as the last
// stage of distraction classification.
//
// Every provider asks the model for a structured JSON verdict:
//
//	{"distracting": true, "confidence": 82, "reason": "...", "suggestion": "..."}
//
// Responses that do not satisfy this contract fail with ErrMalformedResponse.
// Page URLs and titles are scrubbed for secrets before they leave the process.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/focusfuel/internal/focus"
)

// Provider names.
const (
	ProviderDisabled  = "disabled"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

var (
	// ErrMalformedResponse indicates the model answered with something other
	// than a valid verdict object.
	ErrMalformedResponse = errors.New("malformed AI response")

	// ErrDisabled is returned by the disabled classifier.
	ErrDisabled = errors.New("AI classification disabled")
)

// Verdict is a model's judgement of one snapshot.
type Verdict struct {
	Distracting bool
	Confidence  int
	Reason      string
	Suggestion  string
}

// Classifier judges activity snapshots with a language model.
type Classifier interface {
	// Classify returns the model's verdict for the snapshot. Implementations
	// honor ctx cancellation and deadlines.
	Classify(ctx context.Context, snap focus.Snapshot) (Verdict, error)

	// Available reports whether the classifier is configured to make calls.
	Available() bool
}

// Config selects and configures a provider.
type Config struct {
	Provider      string
	Model         string
	APIKey        string
	BaseURL       string
	RatePerMinute float64
	MaxRetries    int
	HTTPTimeout   time.Duration
}

// Defaults shared by providers.
const (
	defaultRatePerMinute = 50.0
	defaultBurst         = 5
	defaultMaxRetries    = 2
	defaultBaseBackoff   = 500 * time.Millisecond
	defaultHTTPTimeout   = 30 * time.Second
	defaultMaxTokens     = 256
)

// New creates the classifier named by cfg.Provider. An empty provider is
// treated as disabled.
func New(cfg Config) (Classifier, error) {
	switch cfg.Provider {
	case "", ProviderDisabled:
		return Disabled{}, nil
	case ProviderOpenAI:
		return newOpenAIClassifier(cfg)
	case ProviderAnthropic:
		return newAnthropicClassifier(cfg)
	case ProviderOllama:
		return newOllamaClassifier(cfg)
	default:
		return nil, fmt.Errorf("unknown AI provider: %s", cfg.Provider)
	}
}

// Disabled is the classifier used when no provider is configured.
type Disabled struct{}

// Classify always fails with ErrDisabled.
func (Disabled) Classify(context.Context, focus.Snapshot) (Verdict, error) {
	return Verdict{}, ErrDisabled
}

// Available returns false.
func (Disabled) Available() bool { return false }

var _ Classifier = Disabled{}
