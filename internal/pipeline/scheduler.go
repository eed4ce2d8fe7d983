package pipeline

import (
	"github.com/alnah/go-simplify/internal/oracle"
)

// Batch sizing per complexity class. Complex sentences carry higher
// per-sentence failure cost and more output tokens, so smaller batches
// bound the blast radius of a failed call.
const (
	simpleBatchSize  = 16
	mediumBatchSize  = 8
	complexBatchSize = 4

	// batchTokenCeiling bounds the estimated prompt tokens of the
	// sentences in one batch, enforced even within a homogeneous
	// complexity run.
	batchTokenCeiling = 2000
)

// batchSizeFor returns the target batch size for a complexity class.
func batchSizeFor(c Complexity) int {
	switch c {
	case Simple:
		return simpleBatchSize
	case Medium:
		return mediumBatchSize
	default:
		return complexBatchSize
	}
}

// batchItem is one oracle candidate with its original input position.
type batchItem struct {
	index int
	text  string
}

// batch groups oracle candidates that share one provider call.
type batch struct {
	items      []batchItem
	complexity Complexity
	tokens     int // estimated prompt tokens of the member sentences
}

// schedule groups oracle candidates into right-sized batches. Input
// order is preserved; a batch closes when the complexity class changes,
// the class's target size is reached, or appending the next sentence
// would exceed the token ceiling.
func schedule(items []batchItem, limit int) []batch {
	var batches []batch
	var current batch

	flush := func() {
		if len(current.items) > 0 {
			batches = append(batches, current)
			current = batch{}
		}
	}

	for _, item := range items {
		c := complexityFor(wordCount(item.text), limit)
		tokens := oracle.EstimateTokens(item.text)

		if len(current.items) > 0 {
			switch {
			case current.complexity != c,
				len(current.items) >= batchSizeFor(current.complexity),
				current.tokens+tokens > batchTokenCeiling:
				flush()
			}
		}

		if len(current.items) == 0 {
			current.complexity = c
		}
		current.items = append(current.items, item)
		current.tokens += tokens
	}
	flush()

	return batches
}
