package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alnah/go-simplify/internal/apierr"
	"github.com/alnah/go-simplify/internal/lang"
)

// CheckCmd creates the check command.
// The env parameter provides injectable dependencies for testing.
func CheckCmd(env *Env) *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the provider API key works",
		Long: `Verify the configured provider API key with a minimal request.

Reports whether the key is valid, out of quota, rate limited, or the
provider is unreachable.`,
		Example: `  simplify check
  simplify check --provider gemini`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, env, provider)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "AI provider: openai, gemini (default: openai, or config provider)")

	return cmd
}

func runCheck(cmd *cobra.Command, env *Env, providerStr string) error {
	ctx := cmd.Context()

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

	apiKey := env.Getenv(prov.KeyEnvVar())
	if apiKey == "" {
		return fmt.Errorf("%w (set it with: export %s=...)", prov.MissingKeyErr(), prov.KeyEnvVar())
	}

	fmt.Fprintf(env.Stderr, "Checking %s API key...\n", prov)
	err = env.OracleFactory.NewOracle(prov, apiKey, lang.Language{}).CheckKey(ctx)
	if err == nil {
		fmt.Fprintf(env.Stdout, "%s: API key is valid\n", prov)
		return nil
	}

	switch {
	case errors.Is(err, apierr.ErrAuthFailed):
		return fmt.Errorf("%s: API key rejected: %w", prov, err)
	case errors.Is(err, apierr.ErrQuotaExceeded):
		return fmt.Errorf("%s: key is valid but out of quota: %w", prov, err)
	case errors.Is(err, apierr.ErrRateLimit):
		// Rate limited means authenticated; the key itself works.
		fmt.Fprintf(env.Stdout, "%s: API key is valid (currently rate limited)\n", prov)
		return nil
	default:
		return fmt.Errorf("%s: check failed: %w", prov, err)
	}
}
