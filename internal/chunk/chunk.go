// Package chunk splits over-length sentences into word-count-bounded
// fragments without rewording. It is the guaranteed-compliant fallback
// when AI rewriting is unavailable or produces invalid output.
package chunk

import (
	"strings"
)

// Split divides a sentence into fragments of at most limit words each,
// preserving word order. Returns nil for an empty sentence. limit must be
// positive; callers validate it at the pipeline boundary.
func Split(text string, limit int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	fragments := make([]string, 0, (len(words)+limit-1)/limit)
	for i := 0; i < len(words); i += limit {
		end := min(i+limit, len(words))
		fragments = append(fragments, strings.Join(words[i:end], " "))
	}
	return fragments
}

// French coordinating conjunctions and connectives that mark natural
// breakpoints inside a sentence.
var connectives = map[string]bool{
	"et": true, "mais": true, "ou": true, "car": true, "que": true,
	"qui": true, "quand": true, "donc": true, "ainsi": true,
	"avec": true, "dans": true, "pour": true, "par": true,
}

// Words that must not start a fragment: a break before them leaves a
// dangling pronoun or determiner.
var badStarts = map[string]bool{
	"je": true, "tu": true, "il": true, "elle": true, "on": true,
	"nous": true, "vous": true, "ils": true, "elles": true,
	"le": true, "la": true, "les": true, "un": true, "une": true,
	"des": true, "mon": true, "ma": true, "mes": true, "ton": true,
	"ta": true, "tes": true, "son": true, "sa": true, "ses": true,
	"ce": true, "cet": true, "cette": true,
}

// SplitAtBreakpoints splits a sentence at natural breakpoints (commas,
// semicolons, connectives) into fragments of at most limit words, falling
// back to plain word windows when no safe breakpoint exists. Every
// returned fragment is limit-compliant.
func SplitAtBreakpoints(text string, limit int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= limit {
		return []string{strings.Join(words, " ")}
	}

	// Candidate positions: index i means a break between words[i-1] and words[i].
	var breaks []int
	for i := 1; i < len(words); i++ {
		prev := words[i-1]
		cur := strings.ToLower(strings.Trim(words[i], ".,;:!?"))

		if badStarts[cur] {
			continue
		}
		// Break after punctuation, or before a connective.
		if strings.HasSuffix(prev, ",") || strings.HasSuffix(prev, ";") || strings.HasSuffix(prev, ":") {
			breaks = append(breaks, i)
		} else if connectives[cur] {
			breaks = append(breaks, i)
		}
	}

	if len(breaks) == 0 {
		return Split(text, limit)
	}

	var fragments []string
	start := 0
	for _, bp := range breaks {
		size := bp - start
		if size == 0 {
			continue
		}
		if size <= limit {
			// Take the breakpoint only when the piece is not trivially short.
			if size >= 2 || start == 0 {
				fragments = append(fragments, strings.Join(words[start:bp], " "))
				start = bp
			}
			continue
		}
		// Segment up to this breakpoint is over limit: hard-split it.
		for start+limit < bp {
			fragments = append(fragments, strings.Join(words[start:start+limit], " "))
			start += limit
		}
		fragments = append(fragments, strings.Join(words[start:bp], " "))
		start = bp
	}

	// Remaining tail.
	for start < len(words) {
		end := min(start+limit, len(words))
		fragments = append(fragments, strings.Join(words[start:end], " "))
		start = end
	}

	return fragments
}
