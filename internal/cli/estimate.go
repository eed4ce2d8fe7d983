package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alnah/go-simplify/internal/format"
	"github.com/alnah/go-simplify/internal/lang"
	"github.com/alnah/go-simplify/internal/pipeline"
)

// EstimateCmd creates the estimate command.
// The env parameter provides injectable dependencies for testing.
func EstimateCmd(env *Env) *cobra.Command {
	var (
		limit    int
		provider string
	)

	cmd := &cobra.Command{
		Use:   "estimate <input.txt>",
		Short: "Project the cost of processing a text without API calls",
		Long: `Project how a text would be processed and what it would cost.

Sentences are routed and batched exactly as a real run would, and the
token spend of the resulting API calls is projected from the actual
prompts. No API calls are made and no API key is required.`,
		Example: `  simplify estimate chapter.txt
  simplify estimate chapter.txt -w 6 --provider gemini`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEstimate(env, args[0], limit, provider)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "w", 0, "Max words per sentence (default: 8, or config word-limit)")
	cmd.Flags().StringVar(&provider, "provider", "", "AI provider for pricing: openai, gemini")

	return cmd
}

func runEstimate(env *Env, inputPath string, limit int, providerStr string) error {
	info, err := os.Stat(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, inputPath)
		}
		return fmt.Errorf("cannot access input file: %w", err)
	}

	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		fmt.Fprintf(env.Stderr, "Warning: failed to load config: %v\n", err)
	}

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

	sentences, err := readSentences(inputPath)
	if err != nil {
		return err
	}
	if len(sentences) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyInput, inputPath)
	}

	// Pricing only; the provider is never called.
	p, err := pipeline.New(
		pipeline.WithOracle(env.OracleFactory.NewOracle(prov, "", lang.Language{})),
		pipeline.WithWordLimit(limit),
		pipeline.WithPrices(prov.Prices()),
	)
	if err != nil {
		return err
	}
	est := p.Estimate(sentences)

	w := env.Stdout
	fmt.Fprintf(w, "Input:            %s (%s)\n", inputPath, format.Size(info.Size()))
	fmt.Fprintf(w, "Sentences:        %d\n", est.Sentences)
	fmt.Fprintf(w, "  Direct:         %d\n", est.Direct)
	fmt.Fprintf(w, "  Need rewriting: %d\n", est.OracleCandidates)
	fmt.Fprintf(w, "  Mechanical:     %d\n", est.Mechanical)
	fmt.Fprintf(w, "API batches:      %d\n", est.Batches)
	fmt.Fprintf(w, "Projected tokens: %d in / %d out\n", est.PromptTokens, est.CompletionTokens)
	fmt.Fprintf(w, "Projected cost:   %s (%s)\n", format.Cost(est.Cost), prov)
	return nil
}
