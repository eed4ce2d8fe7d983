package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/go-simplify/internal/apierr"
	"github.com/alnah/go-simplify/internal/lang"
)

// OpenAI provider configuration.
const (
	defaultOpenAIModel = openai.GPT4oMini

	// Retry configuration for transient failures.
	defaultOpenAIMaxRetries = 2
	defaultOpenAIBaseDelay  = 1 * time.Second
	defaultOpenAIMaxDelay   = 30 * time.Second

	// Per-call timeout. Exceeding it counts as a transient failure.
	defaultOpenAICallTimeout = 2 * time.Minute

	// Sampling temperature: low for consistent, reproducible rewrites.
	rewriteTemperature = 0.3

	// Output token budget per batch sentence, with floor and ceiling.
	outputTokensPerSentence = 60
	minOutputTokens         = 200
	maxOutputTokens         = 1800
)

// Compile-time interface compliance check.
var _ Oracle = (*OpenAIOracle)(nil)

// OpenAIOracle rewrites sentences using OpenAI's chat completion API.
// Transient failures (rate limits, timeouts, server errors) are retried
// with exponential backoff; auth and quota failures are returned
// immediately so the caller can fall back without burning attempts.
type OpenAIOracle struct {
	client      *openai.Client
	baseURL     string
	httpClient  *http.Client
	model       string
	langName    string
	maxRetries  int
	baseDelay   time.Duration
	maxDelay    time.Duration
	callTimeout time.Duration
}

// OpenAIOption configures an OpenAIOracle.
type OpenAIOption func(*OpenAIOracle)

// WithOpenAIModel sets the chat completion model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(o *OpenAIOracle) {
		o.model = model
	}
}

// WithOpenAILanguage sets the working language named in prompts.
// The zero value keeps the default.
func WithOpenAILanguage(l lang.Language) OpenAIOption {
	return func(o *OpenAIOracle) {
		if !l.IsZero() {
			o.langName = l.DisplayName()
		}
	}
}

// WithOpenAIMaxRetries sets the maximum number of retry attempts.
func WithOpenAIMaxRetries(n int) OpenAIOption {
	return func(o *OpenAIOracle) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// WithOpenAIRetryDelays sets the base and max delays for exponential backoff.
func WithOpenAIRetryDelays(base, max time.Duration) OpenAIOption {
	return func(o *OpenAIOracle) {
		if base > 0 {
			o.baseDelay = base
		}
		if max > 0 {
			o.maxDelay = max
		}
	}
}

// WithOpenAICallTimeout sets the per-call timeout.
func WithOpenAICallTimeout(d time.Duration) OpenAIOption {
	return func(o *OpenAIOracle) {
		if d > 0 {
			o.callTimeout = d
		}
	}
}

// WithOpenAIBaseURL points the client at a custom endpoint (for testing
// or proxies).
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(o *OpenAIOracle) {
		o.baseURL = strings.TrimSuffix(url, "/") + "/v1"
	}
}

// WithOpenAIHTTPClient sets a custom HTTP client (for testing).
func WithOpenAIHTTPClient(c *http.Client) OpenAIOption {
	return func(o *OpenAIOracle) {
		o.httpClient = c
	}
}

// NewOpenAIOracle creates an OpenAIOracle. apiKey is required.
// Use options to customize model, endpoint, and retry behavior.
func NewOpenAIOracle(apiKey string, opts ...OpenAIOption) *OpenAIOracle {
	o := &OpenAIOracle{
		model:       defaultOpenAIModel,
		langName:    defaultLanguageName,
		maxRetries:  defaultOpenAIMaxRetries,
		baseDelay:   defaultOpenAIBaseDelay,
		maxDelay:    defaultOpenAIMaxDelay,
		callTimeout: defaultOpenAICallTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}

	// Create the SDK client after options are applied.
	cfg := openai.DefaultConfig(apiKey)
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	if o.httpClient != nil {
		cfg.HTTPClient = o.httpClient
	}
	o.client = openai.NewClientWithConfig(cfg)
	return o
}

// Name implements Oracle.
func (o *OpenAIOracle) Name() string { return "openai" }

// Rewrite implements Oracle. One candidate per input sentence, in input
// order; sentences the model skipped come back as empty candidates.
func (o *OpenAIOracle) Rewrite(ctx context.Context, sentences []string, limit int) ([]Candidate, Usage, error) {
	if len(sentences) == 0 {
		return nil, Usage{}, nil
	}

	maxTokens := min(maxOutputTokens, max(minOutputTokens, len(sentences)*outputTokensPerSentence))
	content, usage, err := o.complete(ctx, buildSystemPrompt(o.langName, limit), buildBatchPrompt(sentences, limit), maxTokens)
	if err != nil {
		return nil, usage, err
	}
	return parseBatchResponse(content, len(sentences)), usage, nil
}

// RewriteStrict implements Oracle.
func (o *OpenAIOracle) RewriteStrict(ctx context.Context, sentenceText string, limit int, reason string) (Candidate, Usage, error) {
	content, usage, err := o.complete(ctx, buildSystemPrompt(o.langName, limit), buildStrictPrompt(o.langName, sentenceText, limit, reason), minOutputTokens)
	if err != nil {
		return Candidate{}, usage, err
	}
	candidates := parseBatchResponse(content, 1)
	return candidates[0], usage, nil
}

// CheckKey implements Oracle. Issues a minimal completion request.
func (o *OpenAIOracle) CheckKey(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	_, err := o.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "Test"},
		},
		MaxTokens: 5,
	})
	if err != nil {
		return classifyOpenAIError(err)
	}
	return nil
}

// complete performs one chat completion with retry, accumulating usage
// across every attempt.
func (o *OpenAIOracle) complete(ctx context.Context, system, user string, maxTokens int) (string, Usage, error) {
	cfg := apierr.RetryConfig{
		MaxRetries: o.maxRetries,
		BaseDelay:  o.baseDelay,
		MaxDelay:   o.maxDelay,
	}

	var usage Usage
	content, attempts, err := apierr.RetryWithBackoff(ctx, cfg, func() (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
		defer cancel()

		resp, err := o.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model:       o.model,
			Temperature: rewriteTemperature,
			MaxTokens:   maxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
		})
		if err != nil {
			return "", classifyOpenAIError(err)
		}

		usage.PromptTokens += resp.Usage.PromptTokens
		usage.CompletionTokens += resp.Usage.CompletionTokens

		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("no response from API")
		}
		return resp.Choices[0].Message.Content, nil
	}, apierr.IsTransient)

	usage.Calls = attempts
	return content, usage, err
}

// classifyOpenAIError maps SDK errors to apierr sentinels.
func classifyOpenAIError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			// Distinguish temporary rate limits from exhausted quota (billing).
			if strings.Contains(msg, "quota") || strings.Contains(msg, "billing") {
				return fmt.Errorf("%s: %w", msg, apierr.ErrQuotaExceeded)
			}
			return fmt.Errorf("%s: %w", msg, apierr.ErrRateLimit)
		case http.StatusPaymentRequired:
			return fmt.Errorf("%s: %w", msg, apierr.ErrQuotaExceeded)
		case http.StatusUnauthorized:
			return fmt.Errorf("%s: %w", msg, apierr.ErrAuthFailed)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable:
			return fmt.Errorf("%s: %w", msg, apierr.ErrTimeout)
		case http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound:
			return fmt.Errorf("%s: %w", msg, apierr.ErrBadRequest)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	}

	return err
}
