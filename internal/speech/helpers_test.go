package speech

import (
	"context"
	"errors"
	"sync"
)

// fakeSynth returns the utterance key as audio and records every call.
type fakeSynth struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
	gate  chan struct{} // when non-nil every call waits for it to close
}

func newFakeSynth() *fakeSynth {
	return &fakeSynth{calls: map[string]int{}, fail: map[string]bool{}}
}

func (f *fakeSynth) Synthesize(ctx context.Context, u Utterance) ([]byte, error) {
	f.mu.Lock()
	f.calls[u.Key()]++
	fail := f.fail[u.Key()]
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, errors.New("synthesis failed")
	}
	return []byte(u.Key()), nil
}

func (f *fakeSynth) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeSynth) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// fakeSink records played clips. Clips whose key is in block wait for ctx.
type fakeSink struct {
	mu      sync.Mutex
	played  []string
	block   map[string]bool
	started chan string
}

func newFakeSink() *fakeSink {
	return &fakeSink{block: map[string]bool{}, started: make(chan string, 16)}
}

func (s *fakeSink) Play(ctx context.Context, clip *Clip) error {
	s.mu.Lock()
	s.played = append(s.played, string(clip.Data))
	block := s.block[clip.Key]
	s.mu.Unlock()
	s.started <- clip.Key

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (s *fakeSink) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.played...)
}
