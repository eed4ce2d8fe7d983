package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Compile-time check that syncBuffer implements io.Writer.
var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testEnv - creates a fully mocked Env for testing
// ---------------------------------------------------------------------------

type testMocks struct {
	configLoader  *mockConfigLoader
	oracleFactory *mockOracleFactory
}

func newTestMocks() *testMocks {
	return &testMocks{
		configLoader:  &mockConfigLoader{},
		oracleFactory: &mockOracleFactory{mockOracle: &mockOracle{}},
	}
}

// testEnv creates a test Env with all dependencies mocked.
// Returns the Env and the mocks for assertions.
func testEnv(opts ...EnvOption) (*Env, *testMocks) {
	mocks := newTestMocks()
	env := &Env{
		Stdout:        &syncBuffer{},
		Stderr:        &syncBuffer{},
		Getenv:        defaultTestEnv,
		Now:           fixedTime(time.Date(2026, 8, 31, 10, 15, 0, 0, time.UTC)),
		ConfigLoader:  mocks.configLoader,
		OracleFactory: mocks.oracleFactory,
	}
	for _, opt := range opts {
		opt(env)
	}
	return env, mocks
}

// fixedTime returns a function that always returns the given time.
func fixedTime(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// staticEnv returns a getenv function that returns values from the given map.
func staticEnv(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

// defaultTestEnv returns API keys for both providers.
func defaultTestEnv(key string) string {
	switch key {
	case EnvOpenAIAPIKey:
		return "test-openai-key"
	case EnvGeminiAPIKey:
		return "test-gemini-key"
	default:
		return ""
	}
}

// ---------------------------------------------------------------------------
// Test fixtures
// ---------------------------------------------------------------------------

// testDocument mixes sentences around the default 8-word limit: two
// short ones and one 12-word sentence that needs rewriting.
const testDocument = `Le chat dort. Le petit chat noir dort paisiblement sur le canapé rouge du salon. Tout va bien.`

// createTestInputFile writes content to a temp file and returns its path.
func createTestInputFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test input file: %v", err)
	}
	return path
}
