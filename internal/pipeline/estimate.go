package pipeline

import (
	"github.com/alnah/go-simplify/internal/oracle"
	"github.com/alnah/go-simplify/internal/sentence"
)

// Estimate is a dry-run projection of a document: how sentences would
// route and what the oracle calls would cost, without issuing any.
type Estimate struct {
	Sentences        int
	Direct           int
	OracleCandidates int
	Mechanical       int
	Batches          int
	PromptTokens     int
	CompletionTokens int
	Cost             float64
}

// Estimate routes and schedules the sentences exactly as Run would and
// projects the token spend of the resulting batches. The cache is not
// consulted: the projection is an upper bound for a cold run.
func (p *Pipeline) Estimate(sentences []string) Estimate {
	est := Estimate{Sentences: len(sentences)}

	var leaders []batchItem
	seen := make(map[string]bool)
	for i, text := range sentences {
		wc := wordCount(text)
		switch route(wc, p.limit, p.mechanicalFactor*p.limit) {
		case RouteDirect:
			est.Direct++
		case RouteMechanical:
			est.Mechanical++
		default:
			if p.mode == ModeMechanical {
				est.Mechanical++
				continue
			}
			est.OracleCandidates++
			key := sentence.Normalize(text)
			if seen[key] {
				continue
			}
			seen[key] = true
			leaders = append(leaders, batchItem{index: i, text: text})
		}
	}

	batches := schedule(leaders, p.limit)
	est.Batches = len(batches)
	var usage oracle.Usage
	for _, b := range batches {
		texts := make([]string, len(b.items))
		for i, item := range b.items {
			texts[i] = item.text
		}
		usage.Add(oracle.ProjectUsage(texts, p.limit))
	}
	est.PromptTokens = usage.PromptTokens
	est.CompletionTokens = usage.CompletionTokens
	est.Cost = p.prices.Cost(usage)
	return est
}
