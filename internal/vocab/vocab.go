// Package vocab filters the saved vocabulary list.
package vocab

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/samsaffron/term-tutor/internal/api"
)

// source implements fuzzy.Source over "word note".
type source []api.Vocabulary

func (s source) String(i int) string {
	return s[i].Word + " " + s[i].Note
}

func (s source) Len() int {
	return len(s)
}

// Filter returns the entries matching query, best match first. Entries
// whose word starts with the query come before other fuzzy matches. An
// empty query returns every entry in its original order.
func Filter(entries []api.Vocabulary, query string) []api.Vocabulary {
	query = strings.TrimSpace(query)
	if query == "" {
		return entries
	}

	lower := strings.ToLower(query)
	var prefix, rest []api.Vocabulary
	for _, m := range fuzzy.FindFrom(query, source(entries)) {
		e := entries[m.Index]
		if strings.HasPrefix(strings.ToLower(e.Word), lower) {
			prefix = append(prefix, e)
		} else {
			rest = append(rest, e)
		}
	}
	sort.SliceStable(prefix, func(i, j int) bool {
		return len(prefix[i].Word) < len(prefix[j].Word)
	})
	return append(prefix, rest...)
}

// Lookup finds an entry by word, ignoring case and surrounding spaces.
func Lookup(entries []api.Vocabulary, word string) (api.Vocabulary, bool) {
	word = strings.TrimSpace(word)
	for _, e := range entries {
		if strings.EqualFold(e.Word, word) {
			return e, true
		}
	}
	return api.Vocabulary{}, false
}
