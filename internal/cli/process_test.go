package cli

// Notes:
// - Full runs go through the cobra command so flag parsing, validation
//   order, and output writing are exercised together.
// - The scripted oracle accepts everything by default; failure paths
//   override RewriteFunc.

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/alnah/go-simplify/internal/config"
	"github.com/alnah/go-simplify/internal/lang"
	"github.com/alnah/go-simplify/internal/pipeline"
)

// runCommand executes a command with args against a cancellable context,
// capturing cobra's own output.
func runCommand(cmd *cobra.Command, args ...string) error {
	cmd.SetOut(&syncBuffer{})
	cmd.SetErr(&syncBuffer{})
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

// ---------------------------------------------------------------------------
// Unit tests for helper functions
// ---------------------------------------------------------------------------

func TestClampParallel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{"negative", -5, 1},
		{"zero", 0, 1},
		{"one", 1, 1},
		{"middle", 5, 5},
		{"max", 10, 10},
		{"over_max", 100, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if result := ClampParallel(tt.input); result != tt.expected {
				t.Errorf("ClampParallel(%d) = %d, want %d", tt.input, result, tt.expected)
			}
		})
	}
}

func TestDeriveOutputPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"txt_to_csv", "chapter.txt", "chapter_simplified.csv"},
		{"no_extension", "chapter", "chapter_simplified.csv"},
		{"double_extension", "livre.chapitre.txt", "livre.chapitre_simplified.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if result := DeriveOutputPath(tt.input); result != tt.expected {
				t.Errorf("DeriveOutputPath(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestReadSentences(t *testing.T) {
	t.Parallel()

	path := createTestInputFile(t, "doc.txt", "Première phrase. Deuxième   phrase !\n\nTroisième.")
	sentences, err := ReadSentences(path)
	if err != nil {
		t.Fatalf("ReadSentences() failed: %v", err)
	}
	want := []string{"Première phrase.", "Deuxième phrase !", "Troisième."}
	if len(sentences) != len(want) {
		t.Fatalf("got %d sentences %v, want %d", len(sentences), sentences, len(want))
	}
	for i := range want {
		if sentences[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, sentences[i], want[i])
		}
	}
}

// ---------------------------------------------------------------------------
// TestProcessCmd - Full runs through the command
// ---------------------------------------------------------------------------

func TestProcessCmd(t *testing.T) {
	t.Parallel()

	t.Run("writes results CSV next to input", func(t *testing.T) {
		t.Parallel()

		env, mocks := testEnv()
		input := createTestInputFile(t, "chapter.txt", testDocument)
		output := filepath.Join(filepath.Dir(input), "out.csv")

		if err := runCommand(ProcessCmd(env), input, "-o", output); err != nil {
			t.Fatalf("process failed: %v", err)
		}

		data, err := os.ReadFile(output)
		if err != nil {
			t.Fatalf("output CSV not written: %v", err)
		}
		if !strings.HasPrefix(string(data), "Row,Sentence,Word_Count") {
			t.Errorf("output CSV header = %q", strings.SplitN(string(data), "\n", 2)[0])
		}
		if mocks.oracleFactory.mockOracle.RewriteCalls() != 1 {
			t.Errorf("oracle called %d times, want 1 for the single long sentence",
				mocks.oracleFactory.mockOracle.RewriteCalls())
		}

		stderr := env.Stderr.(*syncBuffer).String()
		if !strings.Contains(stderr, "Read 3 sentences") {
			t.Errorf("stderr missing sentence count: %q", stderr)
		}
		if !strings.Contains(stderr, "Run summary:") || !strings.Contains(stderr, "Done: "+output) {
			t.Errorf("stderr missing summary or done line: %q", stderr)
		}
		if !strings.Contains(stderr, "Cache hits:       0 (hit rate 0.0%)") {
			t.Errorf("stderr missing cache hit-rate line: %q", stderr)
		}
	})

	t.Run("show-original and log outputs", func(t *testing.T) {
		t.Parallel()

		env, _ := testEnv()
		input := createTestInputFile(t, "chapter.txt", testDocument)
		dir := filepath.Dir(input)
		output := filepath.Join(dir, "out.csv")
		logOut := filepath.Join(dir, "log.csv")
		textOut := filepath.Join(dir, "out.txt")

		err := runCommand(ProcessCmd(env), input,
			"-o", output, "--log", logOut, "--text", textOut, "--show-original")
		if err != nil {
			t.Fatalf("process failed: %v", err)
		}

		data, _ := os.ReadFile(output)
		if !strings.HasPrefix(string(data), "Row,Sentence,Original,Method,Word_Count") {
			t.Errorf("show-original header missing: %q", strings.SplitN(string(data), "\n", 2)[0])
		}
		logData, err := os.ReadFile(logOut)
		if err != nil {
			t.Fatalf("log CSV not written: %v", err)
		}
		if !strings.Contains(string(logData), "AI-Rewritten") {
			t.Errorf("log CSV missing the rewritten sentence: %q", logData)
		}
		textData, err := os.ReadFile(textOut)
		if err != nil {
			t.Fatalf("text output not written: %v", err)
		}
		if !strings.Contains(string(textData), "Le chat dort.") {
			t.Errorf("text output missing direct sentence: %q", textData)
		}
	})

	t.Run("mechanical mode needs no API key", func(t *testing.T) {
		t.Parallel()

		env, mocks := testEnv(WithGetenv(staticEnv(nil)))
		input := createTestInputFile(t, "chapter.txt", testDocument)
		output := filepath.Join(filepath.Dir(input), "out.csv")

		if err := runCommand(ProcessCmd(env), input, "-o", output, "--mode", "mechanical"); err != nil {
			t.Fatalf("mechanical process failed: %v", err)
		}
		if calls := mocks.oracleFactory.NewOracleCalls(); len(calls) != 0 {
			t.Errorf("mechanical mode constructed %d oracles, want 0", len(calls))
		}
		if _, err := os.Stat(output); err != nil {
			t.Errorf("output CSV not written: %v", err)
		}
	})

	t.Run("missing API key fails before reading input", func(t *testing.T) {
		t.Parallel()

		env, _ := testEnv(WithGetenv(staticEnv(nil)))
		input := createTestInputFile(t, "chapter.txt", testDocument)

		err := runCommand(ProcessCmd(env), input)
		if !errors.Is(err, ErrAPIKeyMissing) {
			t.Fatalf("process error = %v, want ErrAPIKeyMissing", err)
		}
	})

	t.Run("gemini provider wants the gemini key", func(t *testing.T) {
		t.Parallel()

		env, _ := testEnv(WithGetenv(staticEnv(map[string]string{
			EnvOpenAIAPIKey: "present-but-irrelevant",
		})))
		input := createTestInputFile(t, "chapter.txt", testDocument)

		err := runCommand(ProcessCmd(env), input, "--provider", "gemini")
		if !errors.Is(err, ErrGeminiKeyMissing) {
			t.Fatalf("process error = %v, want ErrGeminiKeyMissing", err)
		}
	})

	t.Run("missing input file", func(t *testing.T) {
		t.Parallel()

		env, _ := testEnv()
		err := runCommand(ProcessCmd(env), filepath.Join(t.TempDir(), "absent.txt"))
		if !errors.Is(err, ErrFileNotFound) {
			t.Fatalf("process error = %v, want ErrFileNotFound", err)
		}
	})

	t.Run("empty input file", func(t *testing.T) {
		t.Parallel()

		env, _ := testEnv()
		input := createTestInputFile(t, "empty.txt", "   \n\n  ")
		err := runCommand(ProcessCmd(env), input)
		if !errors.Is(err, ErrEmptyInput) {
			t.Fatalf("process error = %v, want ErrEmptyInput", err)
		}
	})

	t.Run("invalid mode", func(t *testing.T) {
		t.Parallel()

		env, _ := testEnv()
		input := createTestInputFile(t, "chapter.txt", testDocument)
		err := runCommand(ProcessCmd(env), input, "--mode", "turbo")
		if err == nil || !strings.Contains(err.Error(), "invalid mode") {
			t.Fatalf("process error = %v, want invalid mode", err)
		}
	})

	t.Run("invalid provider", func(t *testing.T) {
		t.Parallel()

		env, _ := testEnv()
		input := createTestInputFile(t, "chapter.txt", testDocument)
		err := runCommand(ProcessCmd(env), input, "--provider", "claude")
		if !errors.Is(err, ErrInvalidProvider) {
			t.Fatalf("process error = %v, want ErrInvalidProvider", err)
		}
	})

	t.Run("negative limit", func(t *testing.T) {
		t.Parallel()

		env, _ := testEnv()
		input := createTestInputFile(t, "chapter.txt", testDocument)
		err := runCommand(ProcessCmd(env), input, "-w", "-3")
		if !errors.Is(err, pipeline.ErrInvalidLimit) {
			t.Fatalf("process error = %v, want ErrInvalidLimit", err)
		}
	})

	t.Run("existing output is preserved", func(t *testing.T) {
		t.Parallel()

		env, _ := testEnv()
		input := createTestInputFile(t, "chapter.txt", testDocument)
		output := filepath.Join(filepath.Dir(input), "out.csv")
		if err := os.WriteFile(output, []byte("précieux"), 0644); err != nil {
			t.Fatal(err)
		}

		err := runCommand(ProcessCmd(env), input, "-o", output)
		if !errors.Is(err, ErrOutputExists) {
			t.Fatalf("process error = %v, want ErrOutputExists", err)
		}
		data, _ := os.ReadFile(output)
		if string(data) != "précieux" {
			t.Errorf("existing output was overwritten: %q", data)
		}
	})

	t.Run("config supplies provider and limit defaults", func(t *testing.T) {
		t.Parallel()

		env, mocks := testEnv()
		mocks.configLoader.LoadFunc = func() (config.Config, error) {
			return config.Config{WordLimit: 5, Provider: ProviderGemini}, nil
		}
		input := createTestInputFile(t, "chapter.txt", testDocument)
		output := filepath.Join(filepath.Dir(input), "out.csv")

		if err := runCommand(ProcessCmd(env), input, "-o", output); err != nil {
			t.Fatalf("process failed: %v", err)
		}
		calls := mocks.oracleFactory.NewOracleCalls()
		if len(calls) != 1 || !calls[0].Provider.IsGemini() || calls[0].APIKey != "test-gemini-key" {
			t.Errorf("oracle factory calls = %+v, want one gemini call with the gemini key", calls)
		}

		stderr := env.Stderr.(*syncBuffer).String()
		if !strings.Contains(stderr, "limit: 5 words") {
			t.Errorf("config word limit not applied: %q", stderr)
		}
	})

	t.Run("lang flag reaches the oracle factory", func(t *testing.T) {
		t.Parallel()

		env, mocks := testEnv()
		input := createTestInputFile(t, "chapter.txt", testDocument)
		output := filepath.Join(filepath.Dir(input), "out.csv")

		if err := runCommand(ProcessCmd(env), input, "-o", output, "--lang", "pt-BR"); err != nil {
			t.Fatalf("process failed: %v", err)
		}
		calls := mocks.oracleFactory.NewOracleCalls()
		if len(calls) != 1 || calls[0].Language.String() != "pt-br" {
			t.Errorf("oracle factory calls = %+v, want one call with language pt-br", calls)
		}
	})

	t.Run("invalid lang code rejected before any work", func(t *testing.T) {
		t.Parallel()

		env, mocks := testEnv()
		input := createTestInputFile(t, "chapter.txt", testDocument)

		err := runCommand(ProcessCmd(env), input, "--lang", "zz")
		if !errors.Is(err, lang.ErrInvalid) {
			t.Fatalf("process error = %v, want lang.ErrInvalid", err)
		}
		if calls := mocks.oracleFactory.NewOracleCalls(); len(calls) != 0 {
			t.Errorf("oracle factory called %d times despite invalid language", len(calls))
		}
	})

	t.Run("config load failure warns and continues", func(t *testing.T) {
		t.Parallel()

		env, mocks := testEnv()
		mocks.configLoader.LoadFunc = func() (config.Config, error) {
			return config.Config{}, errors.New("corrupt config")
		}
		input := createTestInputFile(t, "chapter.txt", testDocument)
		output := filepath.Join(filepath.Dir(input), "out.csv")

		if err := runCommand(ProcessCmd(env), input, "-o", output); err != nil {
			t.Fatalf("process failed: %v", err)
		}
		if stderr := env.Stderr.(*syncBuffer).String(); !strings.Contains(stderr, "Warning: failed to load config") {
			t.Errorf("stderr missing config warning: %q", stderr)
		}
	})
}
