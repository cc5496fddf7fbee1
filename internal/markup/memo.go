package markup

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoSize is used when NewMemo is given a non-positive size.
const DefaultMemoSize = 128

type memoKey struct {
	content   string
	streaming bool
}

// Memo caches finished renders so redrawing a conversation does not
// re-render messages that have not changed. Safe for concurrent use.
type Memo struct {
	cache *lru.Cache[memoKey, string]
}

// NewMemo creates a memo holding at most size renders.
func NewMemo(size int) *Memo {
	if size <= 0 {
		size = DefaultMemoSize
	}
	cache, _ := lru.New[memoKey, string](size)
	return &Memo{cache: cache}
}

// Render returns the cached render of content or renders and stores it.
func (m *Memo) Render(content string, opts Options) string {
	key := memoKey{content: content, streaming: opts.Streaming}
	if html, ok := m.cache.Get(key); ok {
		return html
	}
	html := Render(content, opts)
	m.cache.Add(key, html)
	return html
}

// Len returns the number of cached renders.
func (m *Memo) Len() int {
	return m.cache.Len()
}

// Purge drops every cached render.
func (m *Memo) Purge() {
	m.cache.Purge()
}
