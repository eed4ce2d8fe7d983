package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alnah/go-simplify/internal/apierr"
	"github.com/alnah/go-simplify/internal/lang"
)

// Gemini API configuration.
const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	defaultGeminiModel   = "gemini-2.5-flash-lite"

	// Retry configuration: the free tier rate-limits aggressively, so the
	// backoff window is wider than OpenAI's.
	defaultGeminiMaxRetries  = 3
	defaultGeminiBaseDelay   = 2 * time.Second
	defaultGeminiMaxDelay    = 30 * time.Second
	defaultGeminiCallTimeout = 2 * time.Minute

	// Response size limit to prevent OOM from malformed responses (10MB).
	maxResponseSize = 10 * 1024 * 1024
)

// httpDoer abstracts the HTTP client for testing.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Compile-time interface compliance check.
var _ Oracle = (*GeminiOracle)(nil)

// GeminiOracle rewrites sentences using the Google Generative Language
// API. It is the development-mode provider: cheaper per token, stricter
// free-tier rate limits.
type GeminiOracle struct {
	apiKey      string
	baseURL     string
	model       string
	langName    string
	maxRetries  int
	baseDelay   time.Duration
	maxDelay    time.Duration
	callTimeout time.Duration
	httpClient  httpDoer
}

// GeminiOption configures a GeminiOracle.
type GeminiOption func(*GeminiOracle)

// WithGeminiModel sets the generation model.
func WithGeminiModel(model string) GeminiOption {
	return func(o *GeminiOracle) {
		o.model = model
	}
}

// WithGeminiLanguage sets the working language named in prompts.
// The zero value keeps the default.
func WithGeminiLanguage(l lang.Language) GeminiOption {
	return func(o *GeminiOracle) {
		if !l.IsZero() {
			o.langName = l.DisplayName()
		}
	}
}

// WithGeminiMaxRetries sets the maximum number of retry attempts.
func WithGeminiMaxRetries(n int) GeminiOption {
	return func(o *GeminiOracle) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// WithGeminiRetryDelays sets the base and max delays for exponential backoff.
func WithGeminiRetryDelays(base, max time.Duration) GeminiOption {
	return func(o *GeminiOracle) {
		if base > 0 {
			o.baseDelay = base
		}
		if max > 0 {
			o.maxDelay = max
		}
	}
}

// WithGeminiCallTimeout sets the per-call timeout.
func WithGeminiCallTimeout(d time.Duration) GeminiOption {
	return func(o *GeminiOracle) {
		if d > 0 {
			o.callTimeout = d
		}
	}
}

// WithGeminiBaseURL sets a custom base URL (for testing or proxies).
func WithGeminiBaseURL(url string) GeminiOption {
	return func(o *GeminiOracle) {
		o.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithGeminiHTTPClient sets a custom HTTP client (for testing).
func WithGeminiHTTPClient(c httpDoer) GeminiOption {
	return func(o *GeminiOracle) {
		o.httpClient = c
	}
}

// NewGeminiOracle creates a GeminiOracle. apiKey is required.
func NewGeminiOracle(apiKey string, opts ...GeminiOption) *GeminiOracle {
	o := &GeminiOracle{
		apiKey:      apiKey,
		baseURL:     defaultGeminiBaseURL,
		model:       defaultGeminiModel,
		langName:    defaultLanguageName,
		maxRetries:  defaultGeminiMaxRetries,
		baseDelay:   defaultGeminiBaseDelay,
		maxDelay:    defaultGeminiMaxDelay,
		callTimeout: defaultGeminiCallTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: o.callTimeout}
	}
	return o
}

// Name implements Oracle.
func (o *GeminiOracle) Name() string { return "gemini" }

// Rewrite implements Oracle.
func (o *GeminiOracle) Rewrite(ctx context.Context, sentences []string, limit int) ([]Candidate, Usage, error) {
	if len(sentences) == 0 {
		return nil, Usage{}, nil
	}

	maxTokens := min(maxOutputTokens, max(minOutputTokens, len(sentences)*outputTokensPerSentence))
	content, usage, err := o.generate(ctx, buildSystemPrompt(o.langName, limit), buildBatchPrompt(sentences, limit), maxTokens)
	if err != nil {
		return nil, usage, err
	}
	return parseBatchResponse(content, len(sentences)), usage, nil
}

// RewriteStrict implements Oracle.
func (o *GeminiOracle) RewriteStrict(ctx context.Context, sentenceText string, limit int, reason string) (Candidate, Usage, error) {
	content, usage, err := o.generate(ctx, buildSystemPrompt(o.langName, limit), buildStrictPrompt(o.langName, sentenceText, limit, reason), minOutputTokens)
	if err != nil {
		return Candidate{}, usage, err
	}
	candidates := parseBatchResponse(content, 1)
	return candidates[0], usage, nil
}

// CheckKey implements Oracle.
func (o *GeminiOracle) CheckKey(ctx context.Context) error {
	req := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: "Test"}}}},
		GenerationConfig: geminiGenerationConfig{
			MaxOutputTokens: 5,
		},
	}
	_, err := o.callAPI(ctx, req)
	return err
}

// generate performs one generateContent call with retry, accumulating
// usage across every attempt.
func (o *GeminiOracle) generate(ctx context.Context, system, user string, maxTokens int) (string, Usage, error) {
	req := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: system}}},
		Contents:          []geminiContent{{Parts: []geminiPart{{Text: user}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     rewriteTemperature,
			MaxOutputTokens: maxTokens,
		},
	}

	cfg := apierr.RetryConfig{
		MaxRetries: o.maxRetries,
		BaseDelay:  o.baseDelay,
		MaxDelay:   o.maxDelay,
	}

	var usage Usage
	content, attempts, err := apierr.RetryWithBackoff(ctx, cfg, func() (string, error) {
		resp, err := o.callAPI(ctx, req)
		if err != nil {
			return "", err
		}

		usage.PromptTokens += resp.UsageMetadata.PromptTokenCount
		usage.CompletionTokens += resp.UsageMetadata.CandidatesTokenCount

		if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
			return "", fmt.Errorf("no response from API")
		}
		return resp.Candidates[0].Content.Parts[0].Text, nil
	}, apierr.IsTransient)

	usage.Calls = attempts
	return content, usage, err
}

// Generative Language API request/response types.

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"system_instruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// callAPI makes one HTTP request to the generateContent endpoint.
func (o *GeminiOracle) callAPI(ctx context.Context, reqBody geminiRequest) (_ *geminiResponse, err error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", o.baseURL, o.model)
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, classifyGeminiTransportError(err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close response body: %w", closeErr)
		}
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyGeminiError(resp.StatusCode, respBody)
	}

	var result geminiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &result, nil
}

// geminiErrorResponse is the JSON error envelope of the API.
type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// classifyGeminiError maps an HTTP error response to apierr sentinels.
func classifyGeminiError(statusCode int, body []byte) error {
	var errResp geminiErrorResponse
	msg := string(body)
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}

	switch statusCode {
	case http.StatusTooManyRequests:
		// RESOURCE_EXHAUSTED covers both rate limits and exhausted quota.
		if strings.Contains(msg, "quota") || strings.Contains(msg, "billing") {
			return fmt.Errorf("%s: %w", msg, apierr.ErrQuotaExceeded)
		}
		return fmt.Errorf("%s: %w", msg, apierr.ErrRateLimit)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: %w", msg, apierr.ErrAuthFailed)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable:
		return fmt.Errorf("%s: %w", msg, apierr.ErrTimeout)
	case http.StatusBadRequest, http.StatusNotFound:
		if strings.Contains(msg, "API_KEY_INVALID") || strings.Contains(strings.ToLower(msg), "api key") {
			return fmt.Errorf("%s: %w", msg, apierr.ErrAuthFailed)
		}
		return fmt.Errorf("%s: %w", msg, apierr.ErrBadRequest)
	}
	return fmt.Errorf("Gemini API error %d: %s", statusCode, msg)
}

// classifyGeminiTransportError maps transport-level failures.
func classifyGeminiTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	}
	// net/http wraps context deadline errors in url.Error; string check as
	// a fallback for client-level timeouts.
	if strings.Contains(err.Error(), "Client.Timeout") ||
		strings.Contains(err.Error(), "deadline exceeded") {
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	}
	return err
}
