package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/fyrsmithlabs/focusfuel/internal/focus"
)

const defaultOpenAIModel = "gpt-4o-mini"

// openAIClassifier uses the OpenAI chat completions API in JSON mode.
type openAIClassifier struct {
	client *openai.Client
	model  string
	apiKey string
	caller caller
}

func newOpenAIClassifier(cfg Config) (*openAIClassifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key required")
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	return &openAIClassifier{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		apiKey: cfg.APIKey,
		caller: newCaller(cfg),
	}, nil
}

// Classify asks the chat model for a verdict.
func (o *openAIClassifier) Classify(ctx context.Context, snap focus.Snapshot) (Verdict, error) {
	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.2,
		MaxTokens:   defaultMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(scrubSnapshot(snap))},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	return o.caller.do(ctx, func(ctx context.Context) (Verdict, error) {
		resp, err := o.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return Verdict{}, classifyOpenAIError(ctx, err)
		}
		if len(resp.Choices) == 0 {
			return Verdict{}, fmt.Errorf("%w: no choices", ErrMalformedResponse)
		}
		return parseVerdict(resp.Choices[0].Message.Content)
	})
}

// classifyOpenAIError marks 429, 5xx and transport failures retryable.
func classifyOpenAIError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return &retryableError{err: fmt.Errorf("API request failed: %w", err)}
	}
	if status == http.StatusTooManyRequests || status >= 500 {
		return &retryableError{err: fmt.Errorf("API error (%d): %w", status, err)}
	}
	return fmt.Errorf("API error (%d): %w", status, err)
}

// Available returns true if an API key is configured.
func (o *openAIClassifier) Available() bool {
	return o.apiKey != ""
}

var _ Classifier = (*openAIClassifier)(nil)
