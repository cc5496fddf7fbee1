package vocab

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/samsaffron/term-tutor/internal/api"
)

var entries = []api.Vocabulary{
	{ID: 1, Word: "breakfast", Note: "bữa sáng"},
	{ID: 2, Word: "break", Note: "nghỉ giải lao"},
	{ID: 3, Word: "umbrella", Note: "cái ô"},
	{ID: 4, Word: "library", Note: "thư viện"},
}

func words(list []api.Vocabulary) []string {
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.Word
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"empty keeps order", "  ", []string{"breakfast", "break", "umbrella", "library"}},
		{"prefix shortest first", "brea", []string{"break", "breakfast", "umbrella"}},
		{"fuzzy on word", "umbr", []string{"umbrella"}},
		{"fuzzy on note", "viện", []string{"library"}},
		{"no match", "zzz", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, words(Filter(entries, tt.query)))
		})
	}
}

func TestLookup(t *testing.T) {
	e, ok := Lookup(entries, " Umbrella ")
	assert.True(t, ok)
	assert.Equal(t, 3, e.ID)

	_, ok = Lookup(entries, "umbrellas")
	assert.False(t, ok)
}
