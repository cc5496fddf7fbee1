package speech

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheReserveDeduplicates(t *testing.T) {
	c := NewCache()
	_, ok := c.Reserve("en:hello")
	require.True(t, ok)
	_, ok = c.Reserve("en:hello")
	assert.False(t, ok)
	assert.Equal(t, StateFetching, c.State("en:hello"))

	_, ok = c.Reserve("vi:hello")
	assert.True(t, ok, "same text in another language is a different key")
}

func TestCacheResolveAndTake(t *testing.T) {
	c := NewCache()
	ticket, _ := c.Reserve("en:hi")
	c.Resolve(ticket, []byte("audio"))
	assert.Equal(t, StateReady, c.State("en:hi"))
	assert.Equal(t, 1, c.Live())

	clip, ok := c.Take("en:hi")
	require.True(t, ok)
	assert.Equal(t, []byte("audio"), clip.Data)
	assert.Equal(t, StateAbsent, c.State("en:hi"))

	clip.Release()
	assert.Equal(t, 0, c.Live())
	assert.Nil(t, clip.Data)
}

func TestCacheFailAllowsRetry(t *testing.T) {
	c := NewCache()
	ticket, _ := c.Reserve("en:hi")
	c.Fail(ticket)
	assert.Equal(t, StateAbsent, c.State("en:hi"))
	_, ok := c.Reserve("en:hi")
	assert.True(t, ok)
}

func TestCacheClearReleasesReadyClips(t *testing.T) {
	c := NewCache()
	t1, _ := c.Reserve("en:a")
	t2, _ := c.Reserve("en:b")
	c.Resolve(t1, []byte("a"))
	c.Resolve(t2, []byte("b"))
	require.Equal(t, 2, c.Live())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, c.Live())
}

func TestCacheLateResolveAfterClear(t *testing.T) {
	c := NewCache()
	ticket, _ := c.Reserve("en:late")
	c.Clear()

	// the key is reserved again by the next turn before the old fetch lands
	fresh, ok := c.Reserve("en:late")
	require.True(t, ok)

	c.Resolve(ticket, []byte("stale"))
	assert.Equal(t, StateFetching, c.State("en:late"))
	assert.Equal(t, 0, c.Live())

	c.Fail(ticket)
	assert.Equal(t, StateFetching, c.State("en:late"), "stale ticket must not drop the new reservation")

	c.Resolve(fresh, []byte("fresh"))
	clip, ok := c.Take("en:late")
	require.True(t, ok)
	assert.Equal(t, []byte("fresh"), clip.Data)
	clip.Release()
}

func TestCacheAcquireOutlivesClear(t *testing.T) {
	c := NewCache()
	ticket, _ := c.Reserve("en:keep")
	c.Resolve(ticket, []byte("keep"))

	clip, ok := c.Acquire("en:keep")
	require.True(t, ok)
	c.Clear()
	assert.Equal(t, 1, c.Live())
	assert.Equal(t, []byte("keep"), clip.Data)

	clip.Release()
	assert.Equal(t, 0, c.Live())
}

func TestCacheWait(t *testing.T) {
	c := NewCache()
	ticket, _ := c.Reserve("en:wait")
	go func() {
		time.Sleep(10 * time.Millisecond)
		c.Resolve(ticket, []byte("x"))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	state, err := c.Wait(ctx, "en:wait")
	require.NoError(t, err)
	assert.Equal(t, StateReady, state)
}

func TestCacheWaitBounded(t *testing.T) {
	c := NewCache()
	c.Reserve("en:never")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	state, err := c.Wait(ctx, "en:never")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateFetching, state)
}

func TestCacheWaitWakesOnClearAndFail(t *testing.T) {
	c := NewCache()
	ticket, _ := c.Reserve("en:a")
	c.Reserve("en:b")

	results := make(chan State, 2)
	for _, key := range []string{"en:a", "en:b"} {
		go func(key string) {
			state, _ := c.Wait(context.Background(), key)
			results <- state
		}(key)
	}

	c.Fail(ticket)
	c.Clear()
	for i := 0; i < 2; i++ {
		select {
		case s := <-results:
			assert.Equal(t, StateAbsent, s)
		case <-time.After(time.Second):
			t.Fatal("waiter not woken")
		}
	}
}

func TestCacheWaitAbsent(t *testing.T) {
	state, err := NewCache().Wait(context.Background(), "en:none")
	require.NoError(t, err)
	assert.Equal(t, StateAbsent, state)
}
