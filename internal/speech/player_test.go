package speech

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPlayer(synth *fakeSynth, sink *fakeSink, cfg PlayerConfig) (*Player, *Cache, *Prefetcher) {
	cache := NewCache()
	prefetch := NewPrefetcher(cache, synth, 2, nil)
	return NewPlayer(cache, prefetch, synth, sink, cfg, nil), cache, prefetch
}

var threeUtterances = []Utterance{
	{Text: "xin chào", Lang: LangVi},
	{Text: "hello there", Lang: LangEn},
	{Text: "tạm biệt", Lang: LangVi},
}

func TestPlayerPlaysInOrder(t *testing.T) {
	synth := newFakeSynth()
	sink := newFakeSink()
	player, cache, prefetch := newTestPlayer(synth, sink, PlayerConfig{})

	require.NoError(t, player.Play(context.Background(), threeUtterances))
	prefetch.Wait()

	assert.Equal(t, []string{"vi:xin chào", "en:hello there", "vi:tạm biệt"}, sink.keys())
	for _, u := range threeUtterances {
		assert.Equal(t, 1, synth.count(u.Key()), "look-ahead and playback share one fetch for %s", u.Key())
	}
	assert.Equal(t, 0, cache.Live(), "played clips are released")
	assert.False(t, player.Speaking())
}

func TestPlayerSkipsFailedSegments(t *testing.T) {
	synth := newFakeSynth()
	synth.fail["en:hello there"] = true
	sink := newFakeSink()
	player, _, prefetch := newTestPlayer(synth, sink, PlayerConfig{})

	require.NoError(t, player.Play(context.Background(), threeUtterances))
	prefetch.Wait()
	assert.Equal(t, []string{"vi:xin chào", "vi:tạm biệt"}, sink.keys())
}

func TestPlayerStop(t *testing.T) {
	synth := newFakeSynth()
	sink := newFakeSink()
	sink.block["vi:xin chào"] = true
	player, _, prefetch := newTestPlayer(synth, sink, PlayerConfig{})

	errc := make(chan error, 1)
	go func() { errc <- player.Play(context.Background(), threeUtterances) }()

	<-sink.started
	assert.True(t, player.Speaking())
	player.Stop()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("playback did not stop")
	}
	prefetch.Wait()
	assert.Equal(t, []string{"vi:xin chào"}, sink.keys())
	assert.False(t, player.Speaking())
}

func TestPlayerStopCancelsLookAhead(t *testing.T) {
	synth := newFakeSynth()
	synth.gate = make(chan struct{})
	defer close(synth.gate)
	player, cache, prefetch := newTestPlayer(synth, newFakeSink(), PlayerConfig{})

	errc := make(chan error, 1)
	go func() { errc <- player.Play(context.Background(), threeUtterances) }()

	require.Eventually(t, func() bool { return synth.total() == 3 }, time.Second, 5*time.Millisecond)
	player.Stop()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("playback did not stop")
	}

	fetched := make(chan struct{})
	go func() {
		prefetch.Wait()
		close(fetched)
	}()
	select {
	case <-fetched:
	case <-time.After(time.Second):
		t.Fatal("look-ahead fetches outlived the session")
	}
	assert.Equal(t, StateAbsent, cache.State("en:hello there"))
	assert.Equal(t, StateAbsent, cache.State("vi:tạm biệt"))
}

func TestPlayerNewSessionStopsPrevious(t *testing.T) {
	synth := newFakeSynth()
	sink := newFakeSink()
	sink.block["vi:xin chào"] = true
	player, _, prefetch := newTestPlayer(synth, sink, PlayerConfig{})

	first := make(chan error, 1)
	go func() { first <- player.Play(context.Background(), threeUtterances) }()
	<-sink.started

	require.NoError(t, player.Play(context.Background(), []Utterance{{Text: "next one", Lang: LangEn}}))
	select {
	case err := <-first:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("first session still running")
	}
	prefetch.Wait()
	assert.Equal(t, []string{"vi:xin chào", "en:next one"}, sink.keys())
}

func TestPlayerBoundedWaitFallsBackToDirectFetch(t *testing.T) {
	synth := newFakeSynth()
	sink := newFakeSink()
	player, cache, _ := newTestPlayer(synth, sink, PlayerConfig{WaitTimeout: 20 * time.Millisecond})

	// a reservation that never resolves
	cache.Reserve("en:stuck")

	start := time.Now()
	require.NoError(t, player.Play(context.Background(), []Utterance{{Text: "stuck", Lang: LangEn}}))
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, []string{"en:stuck"}, sink.keys())
	assert.Equal(t, 1, synth.count("en:stuck"))
}

func TestPlayerContextCancel(t *testing.T) {
	synth := newFakeSynth()
	sink := newFakeSink()
	sink.block["vi:xin chào"] = true
	player, _, prefetch := newTestPlayer(synth, sink, PlayerConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- player.Play(ctx, threeUtterances) }()
	<-sink.started
	cancel()

	assert.ErrorIs(t, <-errc, context.Canceled)
	prefetch.Wait()
}

func TestPlayerSay(t *testing.T) {
	synth := newFakeSynth()
	passage := newFakeSynth()
	sink := newFakeSink()
	player, _, _ := newTestPlayer(synth, sink, PlayerConfig{})

	u := Utterance{Text: "good morning", Lang: LangEn}
	require.NoError(t, player.Say(context.Background(), u, passage))
	assert.Equal(t, []string{"en:good morning"}, sink.keys())
	assert.Equal(t, 1, passage.count(u.Key()))
	assert.Equal(t, 0, synth.total())
}
