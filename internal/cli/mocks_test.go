package cli

import (
	"context"
	"strings"
	"sync"

	"github.com/alnah/go-simplify/internal/config"
	"github.com/alnah/go-simplify/internal/lang"
	"github.com/alnah/go-simplify/internal/oracle"
)

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	LoadFunc func() (config.Config, error)

	mu        sync.Mutex
	loadCalls int
}

func (m *mockConfigLoader) Load() (config.Config, error) {
	m.mu.Lock()
	m.loadCalls++
	m.mu.Unlock()

	if m.LoadFunc != nil {
		return m.LoadFunc()
	}
	return config.Config{}, nil
}

func (m *mockConfigLoader) LoadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCalls
}

// ---------------------------------------------------------------------------
// Mock OracleFactory + Oracle
// ---------------------------------------------------------------------------

type mockOracleFactory struct {
	NewOracleFunc func(provider Provider, apiKey string, language lang.Language) oracle.Oracle

	// mockOracle is returned by default; shared so tests can assert on
	// the calls the commands made through it.
	mockOracle *mockOracle

	mu             sync.Mutex
	newOracleCalls []newOracleCall
}

type newOracleCall struct {
	Provider Provider
	APIKey   string
	Language lang.Language
}

func (m *mockOracleFactory) NewOracle(provider Provider, apiKey string, language lang.Language) oracle.Oracle {
	m.mu.Lock()
	m.newOracleCalls = append(m.newOracleCalls, newOracleCall{Provider: provider, APIKey: apiKey, Language: language})
	m.mu.Unlock()

	if m.NewOracleFunc != nil {
		return m.NewOracleFunc(provider, apiKey, language)
	}
	if m.mockOracle == nil {
		m.mockOracle = &mockOracle{}
	}
	return m.mockOracle
}

func (m *mockOracleFactory) NewOracleCalls() []newOracleCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]newOracleCall(nil), m.newOracleCalls...)
}

// mockOracle is a scripted rewriting provider. The default behavior
// accepts every sentence by regrouping its own words into limit-sized
// fragments, which passes validation.
type mockOracle struct {
	RewriteFunc       func(ctx context.Context, sentences []string, limit int) ([]oracle.Candidate, oracle.Usage, error)
	RewriteStrictFunc func(ctx context.Context, text string, limit int, reason string) (oracle.Candidate, oracle.Usage, error)
	CheckKeyFunc      func(ctx context.Context) error

	mu           sync.Mutex
	rewriteCalls int
	strictCalls  int
}

func (m *mockOracle) Name() string { return "mock" }

func (m *mockOracle) Rewrite(ctx context.Context, sentences []string, limit int) ([]oracle.Candidate, oracle.Usage, error) {
	m.mu.Lock()
	m.rewriteCalls++
	m.mu.Unlock()

	if m.RewriteFunc != nil {
		return m.RewriteFunc(ctx, sentences, limit)
	}
	candidates := make([]oracle.Candidate, len(sentences))
	for i, s := range sentences {
		candidates[i] = regroupCandidate(s, limit)
	}
	return candidates, oracle.Usage{PromptTokens: 100, CompletionTokens: 20, Calls: 1}, nil
}

func (m *mockOracle) RewriteStrict(ctx context.Context, text string, limit int, reason string) (oracle.Candidate, oracle.Usage, error) {
	m.mu.Lock()
	m.strictCalls++
	m.mu.Unlock()

	if m.RewriteStrictFunc != nil {
		return m.RewriteStrictFunc(ctx, text, limit, reason)
	}
	return regroupCandidate(text, limit), oracle.Usage{PromptTokens: 50, CompletionTokens: 10, Calls: 1}, nil
}

func (m *mockOracle) CheckKey(ctx context.Context) error {
	if m.CheckKeyFunc != nil {
		return m.CheckKeyFunc(ctx)
	}
	return nil
}

func (m *mockOracle) RewriteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rewriteCalls
}

// regroupCandidate splits a sentence's own words into limit-sized
// fragments.
func regroupCandidate(text string, limit int) oracle.Candidate {
	fields := strings.Fields(text)
	var fragments []string
	for len(fields) > 0 {
		n := min(limit, len(fields))
		fragments = append(fragments, strings.Join(fields[:n], " "))
		fields = fields[n:]
	}
	return oracle.Candidate{Fragments: fragments, Provenance: oracle.ProvenanceOracle}
}

// Compile-time interface verification.
var (
	_ ConfigLoader  = (*mockConfigLoader)(nil)
	_ OracleFactory = (*mockOracleFactory)(nil)
	_ oracle.Oracle = (*mockOracle)(nil)
)
