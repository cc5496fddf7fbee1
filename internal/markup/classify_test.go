package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsEnglishText(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"hello", true},
		{"xin chào", false},
		{"Đây là test", false},
		{"123", false},
		{"", false},
		{"go / went", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsEnglishText(tt.text), "text %q", tt.text)
	}
}

func TestClassifyEnglish(t *testing.T) {
	colon := &Segment{Tag: TagVietsub, Text: ": nghĩa là táo"}
	plainVi := &Segment{Tag: TagVietsub, Text: "nghĩa là táo"}

	tests := []struct {
		name string
		text string
		next *Segment
		want Kind
	}{
		{"grammar pattern", "S + V + O", nil, KindGrammar},
		{"single word", "apple", nil, KindShortPhrase},
		{"six words", "one two three four five six", nil, KindShortPhrase},
		{"seven words", "one two three four five six seven", nil, KindSentence},
		{"sentence punctuation", "Hello!", nil, KindSentence},
		{"question", "How are you?", plainVi, KindSentence},
		{"ends with colon", "For example, you can say this sentence here:", nil, KindShortPhrase},
		{"bold colon", "**Example:**", nil, KindShortPhrase},
		{"next starts with colon", "I usually drink coffee in the morning.", colon, KindShortPhrase},
		{"file extension is not sentence end", "Done. Open app.js", nil, KindShortPhrase},
		{"full stop mid text", "Done. Open it", nil, KindSentence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyEnglish(tt.text, tt.next))
		})
	}
}

func TestClassifyVietnamese(t *testing.T) {
	tests := []struct {
		text string
		want ViKind
	}{
		{"trước *** sau", ViDivider},
		{"**A:** Chào bạn", ViDialogue},
		{"1. Táo", ViListItem},
		{"12.Cam", ViListItem},
		{"**Phần 1**", ViSection},
		{"chỉ là văn bản", ViPlain},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyVietnamese(tt.text), "text %q", tt.text)
	}
}

func TestSpeakText(t *testing.T) {
	assert.Equal(t, "I am going to", SpeakText("**I am going to...**"))
	assert.Equal(t, "word", SpeakText("  word  "))
}
