package speech

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrNotReady is returned when no audio could be obtained for an utterance.
var ErrNotReady = errors.New("speech: no audio")

// Sink plays one clip and blocks until it ends or ctx is cancelled.
type Sink interface {
	Play(ctx context.Context, clip *Clip) error
}

const (
	DefaultLookAhead   = 2
	DefaultWaitTimeout = 15 * time.Second
)

// PlayerConfig tunes sequential playback.
type PlayerConfig struct {
	// LookAhead is how many upcoming segments are fetched while one plays.
	LookAhead int
	// WaitTimeout bounds the wait for a clip another fetch is producing.
	WaitTimeout time.Duration
}

// Player speaks utterances back to back. Only one playback session runs at
// a time: starting a new one stops the previous one first.
type Player struct {
	cache    *Cache
	prefetch *Prefetcher
	synth    Synthesizer
	sink     Sink
	log      *zap.Logger
	cfg      PlayerConfig

	speaking atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPlayer wires a player to the shared cache and prefetcher.
func NewPlayer(cache *Cache, prefetch *Prefetcher, synth Synthesizer, sink Sink, cfg PlayerConfig, log *zap.Logger) *Player {
	if cfg.LookAhead <= 0 {
		cfg.LookAhead = DefaultLookAhead
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = DefaultWaitTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Player{cache: cache, prefetch: prefetch, synth: synth, sink: sink, cfg: cfg, log: log}
}

// Speaking reports whether a playback session is active.
func (p *Player) Speaking() bool {
	return p.speaking.Load()
}

// Stop ends the active session, if any, and waits for it to wind down.
func (p *Player) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	p.speaking.Store(false)
	if cancel != nil {
		cancel()
		<-done
	}
}

// begin stops any running session and registers a new one.
func (p *Player) begin(ctx context.Context) (context.Context, func()) {
	p.Stop()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.mu.Lock()
	p.cancel, p.done = cancel, done
	p.mu.Unlock()
	p.speaking.Store(true)

	return ctx, func() {
		p.mu.Lock()
		if p.done == done {
			p.cancel, p.done = nil, nil
			p.speaking.Store(false)
		}
		p.mu.Unlock()
		cancel()
		close(done)
	}
}

// Play speaks utts in order. A segment whose audio cannot be obtained is
// skipped. Play returns nil when the sequence finished or was stopped, and
// ctx's error when ctx was cancelled.
func (p *Player) Play(ctx context.Context, utts []Utterance) error {
	session, end := p.begin(ctx)
	defer end()

	for i, u := range utts {
		if !p.speaking.Load() || session.Err() != nil {
			break
		}
		for j := i + 1; j <= i+p.cfg.LookAhead && j < len(utts); j++ {
			p.prefetch.Fetch(session, utts[j])
		}

		clip, err := p.obtain(session, u)
		if err != nil {
			if session.Err() != nil {
				break
			}
			p.log.Warn("skipping segment", zap.String("lang", string(u.Lang)), zap.String("text", truncate(u.Text, 40)), zap.Error(err))
			continue
		}
		err = p.sink.Play(session, clip)
		clip.Release()
		if err != nil && session.Err() == nil {
			p.log.Warn("playback failed", zap.String("key", u.Key()), zap.Error(err))
		}
	}
	return ctx.Err()
}

// Say plays a single piece of text, stopping whatever was playing.
func (p *Player) Say(ctx context.Context, u Utterance, synth Synthesizer) error {
	session, end := p.begin(ctx)
	defer end()

	if synth == nil {
		synth = p.synth
	}
	data, err := synth.Synthesize(session, u)
	if err != nil {
		if session.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	clip := NewClip(u.Key(), data)
	defer clip.Release()
	if err := p.sink.Play(session, clip); err != nil && session.Err() == nil {
		return err
	}
	return ctx.Err()
}

// obtain returns the clip for u: the cached one if it is or becomes ready
// within the wait bound, otherwise a direct fetch.
func (p *Player) obtain(ctx context.Context, u Utterance) (*Clip, error) {
	key := u.Key()
	if p.cache.State(key) == StateFetching {
		waitCtx, cancel := context.WithTimeout(ctx, p.cfg.WaitTimeout)
		_, err := p.cache.Wait(waitCtx, key)
		cancel()
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			p.log.Debug("cached clip not ready, fetching directly", zap.String("key", key))
		}
	}
	if clip, ok := p.cache.Take(key); ok {
		return clip, nil
	}

	data, err := p.synth.Synthesize(ctx, u)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrNotReady
	}
	return NewClip(key, data), nil
}
