// Package pipeline orchestrates the sentence-rewriting run: routing,
// cache reuse, batch scheduling, oracle calls, validation, mechanical
// fallback, and metrics. Every input sentence always yields compliant
// output; the worst case is deterministic chunking, never a dropped
// sentence or an aborted run.
package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-simplify/internal/apierr"
	"github.com/alnah/go-simplify/internal/cache"
	"github.com/alnah/go-simplify/internal/chunk"
	"github.com/alnah/go-simplify/internal/oracle"
	"github.com/alnah/go-simplify/internal/sentence"
	"github.com/alnah/go-simplify/internal/validate"
)

// Mode selects how over-length sentences are handled.
type Mode string

const (
	// ModeOracle rewrites via the AI provider with mechanical fallback.
	ModeOracle Mode = "oracle"

	// ModeMechanical chunks deterministically without any provider calls.
	ModeMechanical Mode = "mechanical"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeOracle, ModeMechanical:
		return Mode(s), nil
	}
	return "", errors.New(`invalid mode (use "oracle" or "mechanical")`)
}

// Status is the terminal state of one sentence. Every sentence reaches a
// terminal state; there is no dropped or failed outcome.
type Status string

const (
	// StatusDirect: already within the limit, passed through unchanged.
	StatusDirect Status = "direct"

	// StatusCached: served from a previously validated rewrite.
	StatusCached Status = "cached"

	// StatusRewritten: oracle rewrite accepted by the validator.
	StatusRewritten Status = "rewritten"

	// StatusChunked: routed straight to deterministic chunking
	// (mechanical mode, or past the oracle ceiling).
	StatusChunked Status = "chunked"

	// StatusFallback: the oracle path failed or was rejected twice;
	// chunked mechanically and flagged for downstream quality review.
	StatusFallback Status = "fallback"
)

// Result is the output record for one input sentence.
type Result struct {
	Index      int
	Original   string
	WordCount  int
	Fragments  []string
	Provenance oracle.Provenance // empty for direct pass-throughs
	Status     Status
	Accepted   bool
	Note       string // rejection reason or fallback cause
}

// Method renders the status for tabular export.
func (r Result) Method() string {
	switch r.Status {
	case StatusDirect:
		return "Direct"
	case StatusCached:
		return "Cached"
	case StatusRewritten:
		return "AI-Rewritten"
	case StatusChunked:
		return "Mechanical-Chunked"
	case StatusFallback:
		return "Mechanical-Fallback"
	default:
		return string(r.Status)
	}
}

// Progress is one incremental event emitted after each completed batch
// or fallback resolution.
type Progress struct {
	Completed    int
	Total        int
	LastSentence string
	Metrics      Snapshot
}

// Defaults.
const (
	DefaultWordLimit = 8
	DefaultParallel  = 4
)

// Configuration errors, rejected before any processing begins.
var (
	ErrInvalidLimit = errors.New("word limit must be positive")
	ErrNoOracle     = errors.New("oracle provider required for oracle mode")
)

// Pipeline drives a full document run. Construct with New; a Pipeline
// is safe to reuse across runs, with the cache carrying over.
type Pipeline struct {
	oracle           oracle.Oracle
	cache            *cache.Cache
	validator        *validate.Validator
	limit            int
	mode             Mode
	mechanicalFactor int
	parallel         int
	prices           oracle.PriceTable
	progress         chan<- Progress
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithOracle sets the rewriting provider. Required in oracle mode.
func WithOracle(o oracle.Oracle) Option {
	return func(p *Pipeline) { p.oracle = o }
}

// WithCache injects a shared rewrite cache. The cache outlives single
// runs; passing it explicitly keeps tests isolated.
func WithCache(c *cache.Cache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithValidator overrides the default validator.
func WithValidator(v *validate.Validator) Option {
	return func(p *Pipeline) { p.validator = v }
}

// WithWordLimit sets the per-fragment word limit.
func WithWordLimit(limit int) Option {
	return func(p *Pipeline) { p.limit = limit }
}

// WithMode sets the processing mode.
func WithMode(m Mode) Option {
	return func(p *Pipeline) { p.mode = m }
}

// WithMechanicalFactor sets the oracle ceiling as a multiple of the
// limit; sentences longer than factor*limit never reach the oracle.
func WithMechanicalFactor(factor int) Option {
	return func(p *Pipeline) {
		if factor > 0 {
			p.mechanicalFactor = factor
		}
	}
}

// WithParallelism bounds the number of concurrent oracle batches.
func WithParallelism(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.parallel = n
		}
	}
}

// WithPrices sets the cost-rate table used for estimation.
func WithPrices(t oracle.PriceTable) Option {
	return func(p *Pipeline) { p.prices = t }
}

// WithProgress sets the channel incremental progress events are sent
// on. The caller must drain it for the duration of the run.
func WithProgress(ch chan<- Progress) Option {
	return func(p *Pipeline) { p.progress = ch }
}

// New creates a Pipeline. Invalid configuration is rejected here, before
// any processing begins.
func New(opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		limit:            DefaultWordLimit,
		mode:             ModeOracle,
		mechanicalFactor: DefaultMechanicalFactor,
		parallel:         DefaultParallel,
		prices:           oracle.OpenAIPrices,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if p.mode == ModeOracle && p.oracle == nil {
		return nil, ErrNoOracle
	}
	if p.cache == nil {
		c, err := cache.New(cache.DefaultCapacity)
		if err != nil {
			return nil, err
		}
		p.cache = c
	}
	if p.validator == nil {
		p.validator = validate.New()
	}
	return p, nil
}

// run carries the mutable state of one document run.
type run struct {
	p         *Pipeline
	m         *metrics
	results   []*Result
	completed atomic.Int64
	fatal     atomic.Bool
	total     int
}

// Run processes sentences and returns one result per input, in input
// order. On cancellation it stops scheduling new batches, lets in-flight
// calls finish, and returns the results completed so far together with
// ctx.Err(); metrics always reflect work actually done.
func (p *Pipeline) Run(ctx context.Context, sentences []string) ([]Result, Snapshot, error) {
	start := time.Now()
	r := &run{
		p:       p,
		m:       &metrics{},
		results: make([]*Result, len(sentences)),
		total:   len(sentences),
	}
	r.m.update(func(s *Snapshot) { s.Sentences = len(sentences) })

	leaders, followers := r.routeAll(sentences)
	r.emit(ctx, "")

	err := r.runBatches(ctx, leaders)
	r.resolveFollowers(followers, sentences)
	r.emit(ctx, "")

	r.m.update(func(s *Snapshot) { s.Elapsed = time.Since(start) })

	out := make([]Result, 0, len(sentences))
	for _, res := range r.results {
		if res != nil {
			out = append(out, *res)
		}
	}
	return out, r.m.snapshot(), err
}

// routeAll classifies every sentence, resolving direct, cached, and
// mechanical routes immediately. It returns the oracle candidates
// (first occurrence of each normalized sentence) and a map of duplicate
// occurrences resolved after the batches complete.
func (r *run) routeAll(sentences []string) ([]batchItem, map[string][]int) {
	routingStart := time.Now()
	defer func() {
		r.m.update(func(s *Snapshot) { s.RoutingTime = time.Since(routingStart) })
	}()

	var leaders []batchItem
	leaderByKey := make(map[string]int)
	followers := make(map[string][]int)

	for i, text := range sentences {
		wc := wordCount(text)

		switch route(wc, r.p.limit, r.p.mechanicalFactor*r.p.limit) {
		case RouteDirect:
			r.finish(&Result{
				Index: i, Original: text, WordCount: wc,
				Fragments: []string{text},
				Status:    StatusDirect, Accepted: true,
			})
			r.m.update(func(s *Snapshot) { s.Direct++ })
			continue

		case RouteMechanical:
			r.mechanical(i, text, wc, StatusChunked, "exceeds oracle length ceiling")
			continue
		}

		if r.p.mode == ModeMechanical {
			r.mechanical(i, text, wc, StatusChunked, "")
			continue
		}

		if cand, ok := r.p.cache.Lookup(text, r.p.limit); ok {
			r.finish(&Result{
				Index: i, Original: text, WordCount: wc,
				Fragments:  cand.Fragments,
				Provenance: cand.Provenance,
				Status:     StatusCached, Accepted: true,
			})
			r.m.update(func(s *Snapshot) { s.CacheHits++ })
			continue
		}

		// Duplicate sentences share one oracle call: the first occurrence
		// leads, later ones resolve from the cache afterwards.
		key := sentence.Normalize(text)
		if _, dup := leaderByKey[key]; dup {
			followers[key] = append(followers[key], i)
			continue
		}
		leaderByKey[key] = i
		leaders = append(leaders, batchItem{index: i, text: text})
	}

	return leaders, followers
}

// runBatches executes the scheduled oracle batches with bounded
// concurrency. Batch failures never abort the run; only cancellation
// surfaces as an error.
func (r *run) runBatches(ctx context.Context, leaders []batchItem) error {
	if len(leaders) == 0 {
		return ctx.Err()
	}

	batches := schedule(leaders, r.p.limit)
	sem := make(chan struct{}, r.p.parallel)
	g := new(errgroup.Group)

	for _, b := range batches {
		g.Go(func() error {
			// Cooperative cancellation between batches: unstarted work
			// stops here, in-flight calls below run to completion.
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			defer func() { <-sem }()
			if ctx.Err() != nil {
				return ctx.Err()
			}

			r.runBatch(ctx, b)
			r.emit(ctx, b.items[len(b.items)-1].text)
			return nil
		})
	}
	return g.Wait()
}

// runBatch issues one oracle call and resolves its sentences.
func (r *run) runBatch(ctx context.Context, b batch) {
	if r.fatal.Load() {
		// A fatal provider error already occurred; don't burn more calls.
		for _, item := range b.items {
			r.mechanical(item.index, item.text, wordCount(item.text), StatusFallback, "provider unavailable")
		}
		return
	}

	texts := make([]string, len(b.items))
	for i, item := range b.items {
		texts[i] = item.text
	}

	callStart := time.Now()
	candidates, usage, err := r.p.oracle.Rewrite(ctx, texts, r.p.limit)
	r.account(usage, time.Since(callStart))

	if err != nil {
		r.noteFatal(err)
		for _, item := range b.items {
			r.mechanical(item.index, item.text, wordCount(item.text), StatusFallback, err.Error())
		}
		return
	}

	for i, item := range b.items {
		r.resolve(ctx, item, candidates[i])
	}
}

// resolve validates one oracle candidate, re-requesting once with a
// strict instruction on rejection before falling back to chunking.
func (r *run) resolve(ctx context.Context, item batchItem, cand oracle.Candidate) {
	verdict := r.validate(item.text, cand)
	if verdict.Accepted {
		r.acceptOracle(item, cand)
		return
	}
	r.m.update(func(s *Snapshot) { s.ValidationFailures++ })

	if !r.fatal.Load() && ctx.Err() == nil {
		retryStart := time.Now()
		retryCand, usage, err := r.p.oracle.RewriteStrict(ctx, item.text, r.p.limit, verdict.Detail)
		r.account(usage, time.Since(retryStart))
		r.m.update(func(s *Snapshot) { s.OracleRetries++ })

		if err == nil {
			if retryVerdict := r.validate(item.text, retryCand); retryVerdict.Accepted {
				r.acceptOracle(item, retryCand)
				return
			}
			r.m.update(func(s *Snapshot) { s.ValidationFailures++ })
		} else {
			r.noteFatal(err)
		}
	}

	r.mechanical(item.index, item.text, wordCount(item.text), StatusFallback, string(verdict.Reason))
}

// validate wraps the validator with phase timing.
func (r *run) validate(original string, cand oracle.Candidate) validate.Verdict {
	vStart := time.Now()
	verdict := r.p.validator.Validate(original, cand, r.p.limit)
	r.m.update(func(s *Snapshot) { s.ValidationTime += time.Since(vStart) })
	return verdict
}

// acceptOracle records a validated oracle rewrite and caches it.
// Only validated candidates ever reach the cache.
func (r *run) acceptOracle(item batchItem, cand oracle.Candidate) {
	r.p.cache.Store(item.text, r.p.limit, cand)
	r.finish(&Result{
		Index: item.index, Original: item.text, WordCount: wordCount(item.text),
		Fragments:  cand.Fragments,
		Provenance: oracle.ProvenanceOracle,
		Status:     StatusRewritten, Accepted: true,
	})
	r.m.update(func(s *Snapshot) { s.OracleRewritten++ })
}

// mechanical resolves a sentence by deterministic chunking. The output
// is limit-compliant by construction and needs no validation.
func (r *run) mechanical(index int, text string, wc int, status Status, note string) {
	r.finish(&Result{
		Index: index, Original: text, WordCount: wc,
		Fragments:  chunk.SplitAtBreakpoints(text, r.p.limit),
		Provenance: oracle.ProvenanceMechanical,
		Status:     status, Accepted: true, Note: note,
	})
	r.m.update(func(s *Snapshot) { s.MechanicalFallbacks++ })
}

// resolveFollowers settles duplicate sentences once their leaders are
// done: a validated leader serves followers from the cache; a
// fallen-back leader means followers chunk mechanically too.
func (r *run) resolveFollowers(followers map[string][]int, sentences []string) {
	for _, indices := range followers {
		for _, i := range indices {
			leaderDone := false
			text := sentences[i]
			if cand, ok := r.p.cache.Lookup(text, r.p.limit); ok {
				r.finish(&Result{
					Index: i, Original: text, WordCount: wordCount(text),
					Fragments:  cand.Fragments,
					Provenance: cand.Provenance,
					Status:     StatusCached, Accepted: true,
				})
				r.m.update(func(s *Snapshot) { s.CacheHits++ })
				leaderDone = true
			}
			if !leaderDone {
				// The leader either fell back or was cancelled before
				// completion; chunk unless the run was cut short.
				if r.leaderResolved(sentences, text) {
					r.mechanical(i, text, wordCount(text), StatusFallback, "duplicate of rejected sentence")
				}
			}
		}
	}
}

// leaderResolved reports whether the first occurrence of text reached a
// terminal state. Unresolved leaders mean the run was cancelled; their
// followers stay unresolved as well.
func (r *run) leaderResolved(sentences []string, text string) bool {
	key := sentence.Normalize(text)
	for i, s := range sentences {
		if sentence.Normalize(s) == key {
			return r.results[i] != nil
		}
	}
	return false
}

// finish records a terminal result for one sentence.
func (r *run) finish(res *Result) {
	r.results[res.Index] = res
	r.completed.Add(1)
}

// account folds one call's usage into the metrics.
func (r *run) account(usage oracle.Usage, elapsed time.Duration) {
	r.m.update(func(s *Snapshot) {
		s.OracleCalls += usage.Calls
		s.PromptTokens += usage.PromptTokens
		s.CompletionTokens += usage.CompletionTokens
		s.EstimatedCost += r.p.prices.Cost(usage)
		s.OracleTime += elapsed
	})
}

// noteFatal marks the run as having hit a fatal provider error. The
// warning is surfaced once at run level, not once per sentence.
func (r *run) noteFatal(err error) {
	if apierr.IsFatal(err) && r.fatal.CompareAndSwap(false, true) {
		r.m.update(func(s *Snapshot) { s.FatalWarnings++ })
	}
}

// emit sends a progress event if a channel is configured.
func (r *run) emit(ctx context.Context, lastSentence string) {
	if r.p.progress == nil {
		return
	}
	event := Progress{
		Completed:    int(r.completed.Load()),
		Total:        r.total,
		LastSentence: lastSentence,
		Metrics:      r.m.snapshot(),
	}
	select {
	case r.p.progress <- event:
	case <-ctx.Done():
	}
}

// wordCount counts whitespace-delimited words.
func wordCount(text string) int {
	return sentence.CountWords(text)
}
