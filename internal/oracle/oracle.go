// Package oracle abstracts the external AI rewriting capability.
// Providers accept a batch of sentences plus a word limit and return one
// candidate rewrite per sentence, order-preserving, together with token
// usage for the call.
package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/tiktoken-go/tokenizer"
)

// Provenance records where a rewrite came from.
type Provenance string

const (
	// ProvenanceOracle marks fragments produced by an AI provider.
	ProvenanceOracle Provenance = "oracle"

	// ProvenanceMechanical marks fragments produced by deterministic chunking.
	ProvenanceMechanical Provenance = "mechanical"
)

// Candidate is a proposed rewrite of one sentence: an ordered list of
// fragments plus provenance. Immutable once created. A candidate with no
// fragments means the provider returned nothing usable for that sentence.
type Candidate struct {
	Fragments  []string
	Provenance Provenance
}

// IsEmpty reports whether the candidate carries no fragments.
func (c Candidate) IsEmpty() bool {
	return len(c.Fragments) == 0
}

// Usage holds token and call accounting for provider interactions.
// Calls counts every attempt, including retried ones: each retry spends
// real tokens and must show up in cost accounting.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	Calls            int
}

// Add accumulates usage from another call.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.Calls += other.Calls
}

// Oracle is the rewriting capability. Rewrite returns exactly one
// candidate per input sentence, in input order. Usage is reported even
// when the call fails after consuming tokens on retried attempts.
//
// Implementations retry transient failures internally; a returned error
// is final for the batch and callers route the whole batch to the
// mechanical fallback.
type Oracle interface {
	// Rewrite rewrites a batch of sentences to the given word limit.
	Rewrite(ctx context.Context, sentences []string, limit int) ([]Candidate, Usage, error)

	// RewriteStrict re-requests a single sentence with an explicit
	// compliance instruction after a validation rejection.
	RewriteStrict(ctx context.Context, sentenceText string, limit int, reason string) (Candidate, Usage, error)

	// CheckKey issues a minimal request to verify the credentials work.
	CheckKey(ctx context.Context) error

	// Name identifies the provider for display and metrics.
	Name() string
}

// Token estimation. cl100k_base is loaded once; encoding failures fall
// back to a words-based heuristic (~4/3 tokens per word for French).
var encoding, encodingErr = tokenizer.Get(tokenizer.Cl100kBase)

// EstimateTokens estimates the token count of a text.
func EstimateTokens(text string) int {
	if encodingErr == nil {
		if ids, _, err := encoding.Encode(text); err == nil {
			return len(ids)
		}
	}
	return len(strings.Fields(text)) * 4 / 3
}

// ProjectUsage estimates the token usage of one batch request without
// issuing it. The completion side mirrors the output budget providers
// are actually given, so projections track real spend closely.
func ProjectUsage(sentences []string, limit int) Usage {
	prompt := EstimateTokens(buildSystemPrompt(defaultLanguageName, limit)) + EstimateTokens(buildBatchPrompt(sentences, limit))
	completion := min(maxOutputTokens, max(minOutputTokens, len(sentences)*outputTokensPerSentence))
	return Usage{PromptTokens: prompt, CompletionTokens: completion, Calls: 1}
}

// PriceTable holds per-million-token prices used only for estimation.
type PriceTable struct {
	InputPerMillion  float64 // USD per 1M prompt tokens
	OutputPerMillion float64 // USD per 1M completion tokens
}

// Cost converts usage into an estimated cost in USD.
func (p PriceTable) Cost(u Usage) float64 {
	in := float64(u.PromptTokens) / 1_000_000 * p.InputPerMillion
	out := float64(u.CompletionTokens) / 1_000_000 * p.OutputPerMillion
	return in + out
}

// Default price tables (USD per 1M tokens, 2025 list prices).
var (
	OpenAIPrices = PriceTable{InputPerMillion: 0.150, OutputPerMillion: 0.600}
	GeminiPrices = PriceTable{InputPerMillion: 0.10, OutputPerMillion: 0.40}
)

// String implements fmt.Stringer for logging.
func (p Provenance) String() string { return string(p) }

var _ fmt.Stringer = ProvenanceOracle
