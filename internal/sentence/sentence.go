// Package sentence provides word counting, normalization, and sentence
// extraction for plain text. Extraction and cleaning are conservative and
// tuned for French prose coming out of OCR.
package sentence

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// CountWords counts whitespace-delimited tokens in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// caseFolder performs Unicode case folding, which handles accented
// characters more reliably than strings.ToLower.
var caseFolder = cases.Fold()

// quoteReplacer straightens typographic quotes and apostrophes so that
// visually identical sentences normalize to the same key.
var quoteReplacer = strings.NewReplacer(
	"’", "'", // right single quote
	"‘", "'", // left single quote
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	"«", `"`, // «
	"»", `"`, // »
)

// Normalize produces a canonical form of a sentence for cache lookups:
// whitespace collapsed, case folded, quote variants straightened.
// It must not change which significant words the sentence contains.
func Normalize(text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	normalized = quoteReplacer.Replace(normalized)
	return caseFolder.String(normalized)
}

// OCR artifact patterns.
var (
	// word-\n word or word- word: a word split by a hyphen at a line break.
	hyphenBreak = regexp.MustCompile(`(\w)[-\x{2011}\x{00ad}]\s+(\w)`)

	// Spaced elision: "l ' été" -> "l'été".
	spacedElision = regexp.MustCompile(`\b(\pL)\s*'\s+(\pL)`)

	multiSpace = regexp.MustCompile(`\s+`)
)

// Clean removes common OCR artifacts before processing:
// de-hyphenates words split across line breaks, straightens quotes,
// repairs spaced elisions, and collapses all whitespace runs.
func Clean(text string) string {
	if text == "" {
		return ""
	}

	t := strings.ReplaceAll(text, " ", " ") // non-breaking space
	t = strings.ReplaceAll(t, "­", "")      // soft hyphen
	t = hyphenBreak.ReplaceAllString(t, "$1$2")
	t = quoteReplacer.Replace(t)
	t = spacedElision.ReplaceAllString(t, "$1'$2")
	t = multiSpace.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// boundary matches a sentence end: terminal punctuation followed by
// whitespace and an uppercase letter or opening quote.
var boundary = regexp.MustCompile(`([.!?\x{2026}]["']?)\s+(\p{Lu}|["\x{00ab}])`)

// Extract splits cleaned text into sentences. The splitter is punctuation
// driven; abbreviations may occasionally over-split, which the pipeline
// tolerates (short fragments route as direct pass-throughs).
func Extract(text string) []string {
	cleaned := Clean(text)
	if cleaned == "" {
		return nil
	}

	// Insert a break marker after each boundary, then split on it.
	const marker = "\x00"
	broken := boundary.ReplaceAllString(cleaned, "$1"+marker+"$2")

	parts := strings.Split(broken, marker)
	sentences := make([]string, 0, len(parts))
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}
