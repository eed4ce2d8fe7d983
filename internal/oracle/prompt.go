package oracle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// defaultLanguageName is the prompt wording used when no language was
// configured on the provider.
const defaultLanguageName = "French"

// systemPrompt instructs the model on the rewriting task. The language
// name and word limit are injected per call; output format is one
// numbered fragment per line.
const systemPrompt = `You are a %[1]s language expert specializing in sentence simplification.
Your task is to rewrite long %[1]s sentences into shorter, grammatically correct sentences while preserving the original meaning and using as many original words as possible.

Rules:
1. Each new sentence must be %[2]d words or fewer
2. Maintain proper %[1]s grammar and syntax
3. Preserve the original meaning completely
4. Reuse original words whenever possible
5. Ensure natural, fluent %[1]s
6. Keep the same tone and style as the original
7. Output format: "n) sentence" where n is the input number, one per line
8. Do not add explanations or commentary`

// buildSystemPrompt renders the system instruction for a language and
// word limit.
func buildSystemPrompt(langName string, limit int) string {
	return fmt.Sprintf(systemPrompt, langName, limit)
}

// buildBatchPrompt numbers the input sentences for the batch request.
// The numbering lets the parser map output lines back to inputs even when
// the model reorders or drops entries.
func buildBatchPrompt(sentences []string, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rewrite each sentence into multiple shorter sentences, each containing %d words or fewer:\n\n", limit)
	for i, s := range sentences {
		fmt.Fprintf(&b, "%d) %s\n", i+1, s)
	}
	b.WriteString("\nOutput format: \"n) sentence\", one per line, where n matches the input number.")
	return b.String()
}

// buildStrictPrompt renders the single-sentence re-request issued after a
// validation rejection, with an explicit compliance instruction.
func buildStrictPrompt(langName, sentenceText string, limit int, reason string) string {
	var b strings.Builder
	if reason != "" {
		fmt.Fprintf(&b, "The previous attempt failed: %s\n\n", reason)
	}
	fmt.Fprintf(&b, "Rewrite this %s sentence into multiple shorter sentences. STRICT REQUIREMENT: each output sentence must contain %d words or fewer. Count the words carefully.\n\n", langName, limit)
	fmt.Fprintf(&b, "1) %s\n", sentenceText)
	b.WriteString("\nOutput format: \"1) sentence\", one per line.")
	return b.String()
}

// outputLine matches "n) text", "n. text", "n: text" or "n- text".
var outputLine = regexp.MustCompile(`^(\d+)[):.\-]\s*(.+)$`)

// listMarker matches leading bullets or stray numbering inside a
// fragment. Numbering only counts with a delimiter after the digits, so
// a sentence that legitimately starts with a number ("1945 fut une
// année difficile.") keeps its first word.
var listMarker = regexp.MustCompile(`^(?:[\x{2022}*]+\s*|\d+[.):\-]\s+)`)

// parseBatchResponse maps a numbered model response back onto the input
// batch. Lines that cannot be attributed to an input are dropped; inputs
// with no attributable lines yield an empty candidate (a malformed
// response for that sentence only, never a batch failure).
func parseBatchResponse(content string, batchLen int) []Candidate {
	candidates := make([]Candidate, batchLen)
	for i := range candidates {
		candidates[i].Provenance = ProvenanceOracle
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		m := outputLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		idx := n - 1 // response numbering is 1-based
		if idx < 0 || idx >= batchLen {
			continue
		}

		fragment := cleanFragment(m[2])
		if fragment == "" {
			continue
		}
		candidates[idx].Fragments = append(candidates[idx].Fragments, fragment)
	}

	return candidates
}

// cleanFragment normalizes one output fragment: strips residual list
// markers, wrapping quotes, and surrounding whitespace.
func cleanFragment(s string) string {
	s = strings.TrimSpace(s)
	s = listMarker.ReplaceAllString(s, "")
	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}
