package pipeline

// Route classifies how a sentence will be processed.
type Route int

const (
	// RouteDirect: the sentence already satisfies the limit.
	RouteDirect Route = iota

	// RouteOracle: candidate for AI rewriting.
	RouteOracle

	// RouteMechanical: too long for the oracle to handle reliably;
	// deterministic chunking only.
	RouteMechanical
)

// DefaultMechanicalFactor is the multiple of the word limit beyond which
// a sentence skips the oracle. A policy threshold: past it, the oracle's
// success probability no longer justifies the call.
const DefaultMechanicalFactor = 4

// route classifies a sentence by word count. A zero-word sentence is
// Direct (empty output preserved as-is). Pure classification, no side
// effects.
func route(wordCount, limit, mechanicalCeiling int) Route {
	switch {
	case wordCount <= limit:
		return RouteDirect
	case wordCount > mechanicalCeiling:
		return RouteMechanical
	default:
		return RouteOracle
	}
}

// Complexity buckets oracle candidates for batch sizing.
type Complexity int

const (
	Simple Complexity = iota
	Medium
	Complex
)

// String implements fmt.Stringer.
func (c Complexity) String() string {
	switch c {
	case Simple:
		return "simple"
	case Medium:
		return "medium"
	case Complex:
		return "complex"
	default:
		return "unknown"
	}
}

// complexityFor buckets a word count using thresholds scaled from the
// limit: T1 = 1.5x and T2 = 2.25x, which under the default limit of 8
// gives the 12- and 18-word boundaries.
func complexityFor(wordCount, limit int) Complexity {
	t1 := limit * 3 / 2
	t2 := limit * 9 / 4
	switch {
	case wordCount <= t1:
		return Simple
	case wordCount <= t2:
		return Medium
	default:
		return Complex
	}
}
