package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-simplify/internal/cache"
	"github.com/alnah/go-simplify/internal/config"
	"github.com/alnah/go-simplify/internal/format"
	"github.com/alnah/go-simplify/internal/lang"
	"github.com/alnah/go-simplify/internal/pipeline"
	"github.com/alnah/go-simplify/internal/sentence"
	"github.com/alnah/go-simplify/internal/validate"
)

// defaultLanguage is assumed when no --lang flag is given.
var defaultLanguage = lang.MustParse("fr")

// deriveOutputPath converts a text file path to a CSV output path.
// Example: "chapter.txt" -> "chapter_simplified.csv"
func deriveOutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + "_simplified.csv"
}

// clampParallel constrains batch concurrency to a sane range.
func clampParallel(n int) int {
	const maxParallel = 10
	if n < 1 {
		return 1
	}
	if n > maxParallel {
		return maxParallel
	}
	return n
}

// ProcessCmd creates the process command.
// The env parameter provides injectable dependencies for testing.
func ProcessCmd(env *Env) *cobra.Command {
	var (
		limit        int
		mode         string
		provider     string
		langCode     string
		output       string
		textOut      string
		logOut       string
		parallel     int
		showOriginal bool
	)

	cmd := &cobra.Command{
		Use:   "process <input.txt>",
		Short: "Rewrite a text so no sentence exceeds the word limit",
		Long: `Rewrite a French text so that every sentence fits the word limit.

Short sentences pass through unchanged. Longer ones are rewritten in
batches by the AI provider, validated for limit compliance, language,
and content preservation, and chunked mechanically when the provider
fails or its output is rejected. Every input sentence always appears
in the output.

Results are written as CSV, one row per output sentence.`,
		Example: `  simplify process chapter.txt
  simplify process chapter.txt -w 6 -o simple.csv
  simplify process chapter.txt --provider gemini --show-original
  simplify process chapter.txt --mode mechanical  # No API calls
  simplify process chapter.txt --log chapter_log.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, env, args[0], output, textOut, logOut,
				limit, mode, provider, langCode, parallel, showOriginal)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "w", 0, "Max words per sentence (default: 8, or config word-limit)")
	cmd.Flags().StringVar(&mode, "mode", string(pipeline.ModeOracle), "Processing mode: oracle, mechanical")
	cmd.Flags().StringVar(&provider, "provider", "", "AI provider: openai, gemini (default: openai, or config provider)")
	cmd.Flags().StringVar(&langCode, "lang", "", "Text language as an ISO 639-1 code (default: fr)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output CSV path (default: <input>_simplified.csv)")
	cmd.Flags().StringVar(&textOut, "text", "", "Also write plain-text output to this path")
	cmd.Flags().StringVar(&logOut, "log", "", "Write a processing log CSV to this path")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", pipeline.DefaultParallel, "Max concurrent batches (1-10)")
	cmd.Flags().BoolVar(&showOriginal, "show-original", false, "Include original sentence and method columns")

	return cmd
}

// runProcess executes the full rewriting run.
// Validation order: file exists -> mode -> provider -> limit -> API key
func runProcess(cmd *cobra.Command, env *Env, inputPath, output, textOut, logOut string,
	limit int, modeStr, providerStr, langCode string, parallel int, showOriginal bool) error {
	ctx := cmd.Context()

	// === VALIDATION (fail-fast) ===

	if _, err := os.Stat(inputPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, inputPath)
		}
		return fmt.Errorf("cannot access input file: %w", err)
	}

	mode, err := pipeline.ParseMode(modeStr)
	if err != nil {
		return err
	}

	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		fmt.Fprintf(env.Stderr, "Warning: failed to load config: %v\n", err)
	}

	// Flag beats config beats default.
	if providerStr == "" {
		providerStr = cfg.Provider
	}
	prov := OpenAIProvider
	if providerStr != "" {
		prov, err = ParseProvider(providerStr)
		if err != nil {
			return err
		}
	}

	if limit == 0 {
		limit = cfg.WordLimit
	}
	if limit == 0 {
		limit = pipeline.DefaultWordLimit
	}
	if limit < 0 {
		return pipeline.ErrInvalidLimit
	}

	language := defaultLanguage
	if langCode != "" {
		language, err = lang.Parse(langCode)
		if err != nil {
			return err
		}
	}

	parallel = clampParallel(parallel)
	output = config.ResolveOutputPath(output, cfg.OutputDir, deriveOutputPath(filepath.Base(inputPath)))

	var apiKey string
	if mode == pipeline.ModeOracle {
		apiKey = env.Getenv(prov.KeyEnvVar())
		if apiKey == "" {
			return fmt.Errorf("%w (set it with: export %s=...)", prov.MissingKeyErr(), prov.KeyEnvVar())
		}
	}

	// === READ INPUT ===

	sentences, err := readSentences(inputPath)
	if err != nil {
		return err
	}
	if len(sentences) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyInput, inputPath)
	}
	fmt.Fprintf(env.Stderr, "Read %d sentences (limit: %d words, mode: %s)\n", len(sentences), limit, mode)

	// === PIPELINE ===

	rewriteCache, err := cache.New(cache.DefaultCapacity)
	if err != nil {
		return err
	}

	progress := make(chan pipeline.Progress, 16)
	opts := []pipeline.Option{
		pipeline.WithCache(rewriteCache),
		pipeline.WithValidator(validate.New(validate.WithLanguage(language))),
		pipeline.WithWordLimit(limit),
		pipeline.WithMode(mode),
		pipeline.WithParallelism(parallel),
		pipeline.WithPrices(prov.Prices()),
		pipeline.WithProgress(progress),
	}
	if mode == pipeline.ModeOracle {
		opts = append(opts, pipeline.WithOracle(env.OracleFactory.NewOracle(prov, apiKey, language)))
	}

	p, err := pipeline.New(opts...)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range progress {
			fmt.Fprintf(env.Stderr, "  %d/%d sentences (%s so far)\n",
				ev.Completed, ev.Total, format.Cost(ev.Metrics.EstimatedCost))
		}
	}()

	results, snap, runErr := p.Run(ctx, sentences)
	close(progress)
	<-done

	// Cancellation still writes what completed; the error surfaces after.
	if runErr != nil {
		fmt.Fprintf(env.Stderr, "Interrupted: writing %d completed sentences\n", len(results))
	}

	// === WRITE OUTPUT ===

	if len(results) > 0 {
		if err := writeFileAtomic(output, resultsCSV(results, showOriginal)); err != nil {
			return err
		}
		if textOut != "" {
			if err := writeFileAtomic(textOut, simplifiedText(results)); err != nil {
				return err
			}
		}
		if logOut != "" {
			if err := writeFileAtomic(logOut, logCSV(results)); err != nil {
				return err
			}
		}
	}

	printSummary(env, snap, rewriteCache.Stats())
	if runErr != nil {
		return runErr
	}
	fmt.Fprintf(env.Stderr, "Done: %s\n", output)
	return nil
}

// readSentences loads a text file, scrubs extraction artifacts, and
// splits it into sentences.
func readSentences(path string) ([]string, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-specified input file
	if err != nil {
		return nil, fmt.Errorf("cannot read input file: %w", err)
	}
	return sentence.Extract(string(data)), nil
}

// printSummary writes the run report to stderr.
func printSummary(env *Env, snap pipeline.Snapshot, cacheStats cache.Stats) {
	w := env.Stderr
	fmt.Fprintln(w, "\nRun summary:")
	fmt.Fprintf(w, "  Sentences:        %d\n", snap.Sentences)
	fmt.Fprintf(w, "  Direct:           %d (%s)\n", snap.Direct, format.Percent(snap.Direct, snap.Sentences))
	fmt.Fprintf(w, "  AI rewritten:     %d\n", snap.OracleRewritten)
	fmt.Fprintf(w, "  Cache hits:       %d (hit rate %s)\n", snap.CacheHits, format.Percent(int(cacheStats.Hits), int(cacheStats.Hits+cacheStats.Misses)))
	fmt.Fprintf(w, "  Mechanical:       %d\n", snap.MechanicalFallbacks)
	if snap.ValidationFailures > 0 {
		fmt.Fprintf(w, "  Rejected drafts:  %d (retries: %d)\n", snap.ValidationFailures, snap.OracleRetries)
	}
	if snap.FatalWarnings > 0 {
		fmt.Fprintf(w, "  Provider errors:  %d fatal (remaining batches fell back)\n", snap.FatalWarnings)
	}
	fmt.Fprintf(w, "  API calls:        %d (%d tokens, est. %s)\n", snap.OracleCalls, snap.TotalTokens(), format.Cost(snap.EstimatedCost))
	fmt.Fprintf(w, "  Elapsed:          %s\n", format.Duration(snap.Elapsed))
}
