package ai

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/fyrsmithlabs/focusfuel/internal/focus"
)

const (
	defaultOllamaModel   = "llama3.2"
	defaultOllamaBaseURL = "http://localhost:11434"
)

// ollamaClassifier runs a local model through langchaingo's Ollama client.
type ollamaClassifier struct {
	llm    llms.Model
	model  string
	caller caller
}

func newOllamaClassifier(cfg Config) (*ollamaClassifier, error) {
	model := cfg.Model
	if model == "" {
		model = defaultOllamaModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	llm, err := ollama.New(
		ollama.WithModel(model),
		ollama.WithServerURL(baseURL),
		ollama.WithFormat("json"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ollama client: %w", err)
	}
	return &ollamaClassifier{
		llm:    llm,
		model:  model,
		caller: newCaller(cfg),
	}, nil
}

// Classify prompts the local model for a verdict. Local models have no
// rate-limit or 5xx semantics worth retrying, so failures are returned as-is.
func (o *ollamaClassifier) Classify(ctx context.Context, snap focus.Snapshot) (Verdict, error) {
	prompt := systemPrompt + "\n\n" + userPrompt(scrubSnapshot(snap))
	return o.caller.do(ctx, func(ctx context.Context) (Verdict, error) {
		out, err := llms.GenerateFromSinglePrompt(ctx, o.llm, prompt, llms.WithTemperature(0.2))
		if err != nil {
			return Verdict{}, fmt.Errorf("ollama generate: %w", err)
		}
		return parseVerdict(out)
	})
}

// Available always returns true; reachability is discovered per call.
func (o *ollamaClassifier) Available() bool { return true }

var _ Classifier = (*ollamaClassifier)(nil)
