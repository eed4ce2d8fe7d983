package cli

import (
	"errors"
	"fmt"

	"github.com/alnah/go-simplify/internal/oracle"
)

// Provider name strings accepted on the command line.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Environment variables holding API keys.
const (
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvGeminiAPIKey = "GEMINI_API_KEY"
)

// Provider represents a validated rewriting provider.
// Zero value is invalid and must not be used.
// Use ParseProvider to create from user input, or the pre-parsed constants.
type Provider struct {
	name string
}

// Compile-time interface compliance check.
var _ fmt.Stringer = Provider{}

// ErrInvalidProvider indicates an invalid provider name was specified.
var ErrInvalidProvider = errors.New("invalid provider")

// Pre-parsed provider constants for use in code.
// These avoid parsing overhead and provide compile-time safety.
var (
	OpenAIProvider = Provider{name: ProviderOpenAI}
	GeminiProvider = Provider{name: ProviderGemini}
)

// validProviders contains the set of valid provider names.
var validProviders = map[string]bool{
	ProviderOpenAI: true,
	ProviderGemini: true,
}

// ParseProvider validates and parses a provider name string.
// Returns ErrInvalidProvider if the name is not recognized.
func ParseProvider(s string) (Provider, error) {
	if s == "" {
		return Provider{}, fmt.Errorf("provider cannot be empty: %w", ErrInvalidProvider)
	}
	if !validProviders[s] {
		return Provider{}, fmt.Errorf("unknown provider %q (use 'openai' or 'gemini'): %w", s, ErrInvalidProvider)
	}
	return Provider{name: s}, nil
}

// MustParseProvider parses a provider name, panicking if invalid.
// Use only for compile-time constants and tests.
func MustParseProvider(s string) Provider {
	p, err := ParseProvider(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the provider name string.
// Returns empty string for zero value.
func (p Provider) String() string {
	return p.name
}

// IsZero returns true if this is the zero value (no provider set).
func (p Provider) IsZero() bool {
	return p.name == ""
}

// IsOpenAI returns true if this provider is OpenAI.
func (p Provider) IsOpenAI() bool {
	return p.name == ProviderOpenAI
}

// IsGemini returns true if this provider is Gemini.
func (p Provider) IsGemini() bool {
	return p.name == ProviderGemini
}

// OrDefault returns the provider, or OpenAIProvider if zero.
// Use this to apply the default provider consistently.
func (p Provider) OrDefault() Provider {
	if p.IsZero() {
		return OpenAIProvider
	}
	return p
}

// KeyEnvVar returns the environment variable holding this provider's API key.
func (p Provider) KeyEnvVar() string {
	if p.IsGemini() {
		return EnvGeminiAPIKey
	}
	return EnvOpenAIAPIKey
}

// MissingKeyErr returns the sentinel for this provider's absent API key.
func (p Provider) MissingKeyErr() error {
	if p.IsGemini() {
		return ErrGeminiKeyMissing
	}
	return ErrAPIKeyMissing
}

// Prices returns the estimation price table for this provider.
func (p Provider) Prices() oracle.PriceTable {
	if p.IsGemini() {
		return oracle.GeminiPrices
	}
	return oracle.OpenAIPrices
}
