package speech

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Synthesizer turns one utterance into audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, u Utterance) ([]byte, error)
}

// SynthesizerFunc adapts a function to Synthesizer.
type SynthesizerFunc func(ctx context.Context, u Utterance) ([]byte, error)

func (f SynthesizerFunc) Synthesize(ctx context.Context, u Utterance) ([]byte, error) {
	return f(ctx, u)
}

// DefaultStreamPrefetch is how many leading segments are fetched while a
// response is still streaming.
const DefaultStreamPrefetch = 2

// Prefetcher issues look-ahead synthesis requests into a Cache.
type Prefetcher struct {
	cache *Cache
	synth Synthesizer
	log   *zap.Logger
	limit int

	mu   sync.Mutex
	next int // index of the first segment not yet prefetched this turn

	wg sync.WaitGroup
}

// NewPrefetcher creates a prefetcher. limit <= 0 selects
// DefaultStreamPrefetch; a nil logger disables logging.
func NewPrefetcher(cache *Cache, synth Synthesizer, limit int, log *zap.Logger) *Prefetcher {
	if limit <= 0 {
		limit = DefaultStreamPrefetch
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Prefetcher{cache: cache, synth: synth, limit: limit, log: log}
}

// OnChunk prefetches segments of a still-growing buffer. Only segments that
// a later language tag has closed are eligible, and never more than the
// stream limit.
func (p *Prefetcher) OnChunk(ctx context.Context, buffer string) {
	utts := ClosedUtterances(buffer)
	if len(utts) == 0 {
		return
	}
	p.fetchUpTo(ctx, utts, min(len(utts), p.limit), false)
}

// OnDone prefetches the segments the stream limit still allows now that the
// text is complete.
func (p *Prefetcher) OnDone(ctx context.Context, buffer string) {
	utts := SplitByLanguage(buffer)
	if len(utts) == 0 {
		return
	}
	p.fetchUpTo(ctx, utts, min(len(utts), p.limit), true)
}

func (p *Prefetcher) fetchUpTo(ctx context.Context, utts []Utterance, limit int, final bool) {
	p.mu.Lock()
	start := p.next
	if final || limit > p.next {
		p.next = limit
	}
	p.mu.Unlock()

	for i := start; i < limit && i < len(utts); i++ {
		p.Fetch(ctx, utts[i])
	}
}

// Fetch starts a background fetch of u unless it is already cached or in
// flight. It reports whether a fetch was started.
func (p *Prefetcher) Fetch(ctx context.Context, u Utterance) bool {
	if len([]rune(u.Text)) < minUtteranceLen {
		return false
	}
	ticket, ok := p.cache.Reserve(u.Key())
	if !ok {
		return false
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		data, err := p.synth.Synthesize(ctx, u)
		if err != nil || len(data) == 0 {
			p.log.Warn("prefetch failed", zap.String("lang", string(u.Lang)), zap.String("text", truncate(u.Text, 40)), zap.Error(err))
			p.cache.Fail(ticket)
			return
		}
		p.cache.Resolve(ticket, data)
	}()
	return true
}

// Reset forgets the progress of the current turn. Call it together with
// Cache.Clear.
func (p *Prefetcher) Reset() {
	p.mu.Lock()
	p.next = 0
	p.mu.Unlock()
}

// Wait blocks until every fetch started so far has finished.
func (p *Prefetcher) Wait() {
	p.wg.Wait()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
