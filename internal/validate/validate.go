// Package validate checks candidate rewrites against the pipeline's
// correctness constraints. The word-limit check is load-bearing; the
// language and content-preservation checks are quality heuristics.
package validate

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/alnah/go-simplify/internal/lang"
	"github.com/alnah/go-simplify/internal/oracle"
	"github.com/alnah/go-simplify/internal/sentence"
)

// Reason is a closed enumeration of rejection causes.
type Reason string

const (
	// ReasonNone marks an accepted verdict.
	ReasonNone Reason = ""

	// ReasonOverLimit: at least one fragment exceeds the word limit.
	ReasonOverLimit Reason = "over_limit"

	// ReasonWrongLanguage: a fragment is not in the original's language family.
	ReasonWrongLanguage Reason = "wrong_language"

	// ReasonContentDrift: too few significant words of the original survive.
	ReasonContentDrift Reason = "content_drift"

	// ReasonMalformedResponse: the candidate carries no usable fragments.
	ReasonMalformedResponse Reason = "malformed_response"
)

// Verdict is the outcome of validating one candidate.
type Verdict struct {
	Accepted bool
	Reason   Reason
	Detail   string
}

// DefaultSimilarityThreshold is the minimum significant-word overlap
// between original and rewrite. Tunable, validated empirically; 0.4
// means 40% of the original's key words must survive.
const DefaultSimilarityThreshold = 0.4

// minWordsForDetection: language detection on one- or two-word fragments
// is noise, so such fragments always pass the language check.
const minWordsForDetection = 2

// Validator checks candidates against a word limit and quality heuristics.
type Validator struct {
	threshold float64
	expected  lang.Language
}

// Option configures a Validator.
type Option func(*Validator)

// WithSimilarityThreshold overrides the content-preservation threshold.
func WithSimilarityThreshold(t float64) Option {
	return func(v *Validator) {
		if t > 0 && t <= 1 {
			v.threshold = t
		}
	}
}

// WithLanguage fixes the language fragments are checked against.
// Without it, the expected language is detected from each original.
func WithLanguage(l lang.Language) Option {
	return func(v *Validator) {
		v.expected = l
	}
}

// New creates a Validator with default thresholds.
func New(opts ...Option) *Validator {
	v := &Validator{threshold: DefaultSimilarityThreshold}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks a candidate rewrite of original against limit.
// Checks run in order: word limit, language, content preservation; the
// first failure determines the reported reason. Acceptance requires all
// three to pass.
func (v *Validator) Validate(original string, candidate oracle.Candidate, limit int) Verdict {
	if candidate.IsEmpty() {
		return Verdict{Reason: ReasonMalformedResponse, Detail: "candidate has no fragments"}
	}

	for i, fragment := range candidate.Fragments {
		if wc := sentence.CountWords(fragment); wc > limit {
			return Verdict{
				Reason: ReasonOverLimit,
				Detail: fmt.Sprintf("fragment %d has %d words (limit %d)", i+1, wc, limit),
			}
		}
	}

	expected := v.expected
	if expected.IsZero() {
		expected = lang.Detect(original)
	}
	for i, fragment := range candidate.Fragments {
		if sentence.CountWords(fragment) < minWordsForDetection {
			continue
		}
		detected := lang.Detect(fragment)
		if !lang.SameFamily(expected, detected) {
			return Verdict{
				Reason: ReasonWrongLanguage,
				Detail: fmt.Sprintf("fragment %d detected as %q, original is %q", i+1, detected, expected),
			}
		}
	}

	similarity := contentSimilarity(original, candidate.Fragments)
	if similarity < v.threshold {
		return Verdict{
			Reason: ReasonContentDrift,
			Detail: fmt.Sprintf("similarity %.2f below threshold %.2f", similarity, v.threshold),
		}
	}

	return Verdict{Accepted: true}
}

// stopwords are common French function words ignored by the
// content-preservation heuristic.
var stopwords = map[string]bool{
	"le": true, "la": true, "les": true, "un": true, "une": true,
	"des": true, "du": true, "de": true, "et": true, "ou": true,
	"mais": true, "donc": true, "car": true, "qui": true, "que": true,
	"quoi": true, "dont": true, "où": true, "dans": true, "sur": true,
	"sous": true, "avec": true, "sans": true, "pour": true, "par": true,
	"vers": true, "chez": true, "être": true, "avoir": true, "son": true,
	"sa": true, "ses": true, "mon": true, "ma": true, "mes": true,
	"ton": true, "ta": true, "tes": true, "leur": true, "leurs": true,
	"notre": true, "nos": true, "votre": true, "vos": true, "ce": true,
	"cet": true, "cette": true, "ces": true, "il": true, "elle": true,
	"ils": true, "elles": true, "je": true, "tu": true, "nous": true,
	"vous": true, "me": true, "te": true, "se": true, "lui": true,
	"en": true, "y": true, "ne": true, "pas": true, "plus": true,
	"très": true, "tout": true, "tous": true, "toute": true,
	"toutes": true, "bien": true, "encore": true, "déjà": true,
	"aussi": true, "ainsi": true, "alors": true,
}

// significantWords extracts the set of lowercased words longer than 3
// characters that are not stopwords.
func significantWords(text string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(text) {
		w = strings.ToLower(strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		}))
		if len([]rune(w)) > 3 && !stopwords[w] {
			words[w] = true
		}
	}
	return words
}

// contentSimilarity returns the fraction of the original's significant
// words that appear in the concatenated fragments, in [0, 1]. An
// original with no significant words scores 1.
func contentSimilarity(original string, fragments []string) float64 {
	originalWords := significantWords(original)
	if len(originalWords) == 0 {
		return 1
	}

	rewrittenWords := significantWords(strings.Join(fragments, " "))
	overlap := 0
	for w := range originalWords {
		if rewrittenWords[w] {
			overlap++
		}
	}
	return float64(overlap) / float64(len(originalWords))
}
