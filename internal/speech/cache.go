package speech

import (
	"context"
	"sync"
	"sync/atomic"
)

// State of a prefetch cache entry.
type State int

const (
	StateAbsent State = iota
	// StateFetching reserves the key so a second fetch is not issued.
	StateFetching
	StateReady
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateReady:
		return "ready"
	default:
		return "absent"
	}
}

// Clip is synthesized audio for one utterance. It is reference counted: the
// cache holds one reference while the clip is stored, and every Acquire or
// Take hands one to the caller, who must Release it.
type Clip struct {
	Key  string
	Data []byte

	refs  atomic.Int32
	owner *Cache
}

// Release drops one reference. The audio is freed when the last one goes.
func (c *Clip) Release() {
	if c == nil {
		return
	}
	if c.refs.Add(-1) == 0 {
		c.Data = nil
		if c.owner != nil {
			c.owner.live.Add(-1)
		}
	}
}

// NewClip wraps audio that is not stored in any cache.
func NewClip(key string, data []byte) *Clip {
	c := &Clip{Key: key, Data: data}
	c.refs.Store(1)
	return c
}

type entry struct {
	state State
	clip  *Clip
	// ready is closed when the entry leaves StateFetching.
	ready chan struct{}
	gen   uint64
}

// Ticket identifies one reservation. Resolving a ticket issued before the
// last Clear is a no-op apart from freeing the audio.
type Ticket struct {
	key string
	gen uint64
}

// Key returns the reserved cache key.
func (t Ticket) Key() string { return t.key }

// Cache maps "<lang>:<text>" to a pending reservation or a ready clip. It
// lives for one conversation turn and is cleared when the next turn starts.
// Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	gen     uint64

	// live counts clips handed to this cache that are not yet freed.
	live atomic.Int64
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*entry)}
}

// Reserve marks key as being fetched. It returns false when the key is
// already fetching or ready.
func (c *Cache) Reserve(key string) (Ticket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return Ticket{}, false
	}
	c.entries[key] = &entry{state: StateFetching, ready: make(chan struct{}), gen: c.gen}
	return Ticket{key: key, gen: c.gen}, true
}

// Resolve stores fetched audio for a reservation. A reservation that was
// cleared in the meantime frees the audio straight away.
func (c *Cache) Resolve(t Ticket, data []byte) {
	clip := &Clip{Key: t.key, Data: data, owner: c}
	clip.refs.Store(1)
	c.live.Add(1)

	c.mu.Lock()
	e, ok := c.entries[t.key]
	if !ok || e.gen != t.gen || t.gen != c.gen || e.state != StateFetching {
		c.mu.Unlock()
		clip.Release()
		return
	}
	e.state = StateReady
	e.clip = clip
	close(e.ready)
	c.mu.Unlock()
}

// Fail drops a reservation so a later attempt can fetch the key again.
func (c *Cache) Fail(t Ticket) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[t.key]
	if !ok || e.gen != t.gen || e.state != StateFetching {
		return
	}
	delete(c.entries, t.key)
	close(e.ready)
}

// State reports the state of key.
func (c *Cache) State(key string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.state
	}
	return StateAbsent
}

// Wait blocks while key is fetching and returns the state it settles in.
// It returns early with ctx's error.
func (c *Cache) Wait(ctx context.Context, key string) (State, error) {
	for {
		c.mu.Lock()
		e, ok := c.entries[key]
		if !ok {
			c.mu.Unlock()
			return StateAbsent, nil
		}
		if e.state != StateFetching {
			c.mu.Unlock()
			return e.state, nil
		}
		ready := e.ready
		c.mu.Unlock()

		select {
		case <-ready:
		case <-ctx.Done():
			return StateFetching, ctx.Err()
		}
	}
}

// Take removes a ready clip from the cache and hands its reference to the
// caller.
func (c *Cache) Take(key string) (*Clip, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.state != StateReady {
		return nil, false
	}
	delete(c.entries, key)
	return e.clip, true
}

// Acquire returns a ready clip with an extra reference, leaving it cached.
func (c *Cache) Acquire(key string) (*Clip, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.state != StateReady {
		return nil, false
	}
	e.clip.refs.Add(1)
	return e.clip, true
}

// Clear empties the cache and releases the cache's reference on every ready
// clip. Clips still held by a player stay alive until released. Fetches in
// flight are orphaned: their results are freed on arrival.
func (c *Cache) Clear() {
	c.mu.Lock()
	old := c.entries
	c.entries = make(map[string]*entry)
	c.gen++
	c.mu.Unlock()

	for _, e := range old {
		switch e.state {
		case StateReady:
			e.clip.Release()
		case StateFetching:
			close(e.ready)
		}
	}
}

// Len returns the number of entries, pending or ready.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Live returns how many clips fetched into this cache are still in memory,
// whether cached or held by a player.
func (c *Cache) Live() int {
	return int(c.live.Load())
}
