package pipeline

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time copy of run counters, safe to hand to
// progress consumers and reports.
type Snapshot struct {
	Sentences           int // input sentences seen
	Direct              int // pass-throughs within the limit
	OracleRewritten     int // accepted oracle rewrites
	MechanicalFallbacks int // deterministic chunking outcomes
	CacheHits           int
	ValidationFailures  int // rejections, including those later repaired by retry

	OracleCalls   int // every attempt, retries included
	OracleRetries int // strict single-sentence re-requests
	FatalWarnings int // fatal provider errors surfaced at run level

	PromptTokens     int
	CompletionTokens int
	EstimatedCost    float64 // USD

	RoutingTime    time.Duration
	OracleTime     time.Duration // cumulative across concurrent batches
	ValidationTime time.Duration
	Elapsed        time.Duration
}

// TotalTokens returns prompt plus completion tokens.
func (s Snapshot) TotalTokens() int {
	return s.PromptTokens + s.CompletionTokens
}

// metrics wraps a Snapshot with exclusive-access discipline. Batches run
// concurrently, so every read-modify-write goes through the mutex.
type metrics struct {
	mu sync.Mutex
	s  Snapshot
}

// update applies fn to the counters under the lock.
func (m *metrics) update(fn func(*Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.s)
}

// snapshot returns a copy of the current counters.
func (m *metrics) snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s
}
