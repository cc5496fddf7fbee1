package markup

import (
	"regexp"
	"strings"
)

// Kind is the layout treatment chosen for an English segment.
type Kind int

const (
	// KindSentence flows as its own block.
	KindSentence Kind = iota
	// KindShortPhrase stays inline with the surrounding Vietnamese.
	KindShortPhrase
	// KindGrammar is a "Subject + Verb" style pattern.
	KindGrammar
)

func (k Kind) String() string {
	switch k {
	case KindShortPhrase:
		return "short"
	case KindGrammar:
		return "grammar"
	default:
		return "sentence"
	}
}

// ViKind is the structural role of a Vietnamese segment.
type ViKind int

const (
	ViPlain ViKind = iota
	ViDivider
	ViDialogue
	ViListItem
	ViSection
)

// shortPhraseMaxWords is the word count at or below which an English line
// without sentence punctuation is rendered inline.
const shortPhraseMaxWords = 6

var (
	sentenceEnding = regexp.MustCompile(`[.!?](?:\s|$)`)
	fileExtension  = regexp.MustCompile(`(?i)\.(js|ts|py|go|rs|rb|php|css|html|json|xml|yaml|yml|md|txt|sh|bash|c|cpp|h|java|kt|swift|vue|jsx|tsx)$`)
	dialogueLabel  = regexp.MustCompile(`\*\*[^*]+:\*\*`)
	listItemPrefix = regexp.MustCompile(`^(\d+)\.\s*`)
)

// vietnameseLetters are the lower-case letters that only occur in
// Vietnamese text.
const vietnameseLetters = "àáạảãâầấậẩẫăằắặẳẵèéẹẻẽêềếệểễìíịỉĩòóọỏõôồốộổỗơờớợởỡùúụủũưừứựửữỳýỵỷỹđ"

// IsEnglishText reports whether text has ASCII letters and no Vietnamese
// diacritics.
func IsEnglishText(text string) bool {
	hasLatin := strings.IndexFunc(text, func(r rune) bool {
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
	}) >= 0
	return hasLatin && !strings.ContainsAny(strings.ToLower(text), vietnameseLetters)
}

// stripBold removes every "**" marker.
func stripBold(s string) string {
	return strings.ReplaceAll(s, "**", "")
}

// ClassifyEnglish decides how an [Engsub] segment is laid out. next is the
// segment that follows it, or nil at the end of the message.
func ClassifyEnglish(text string, next *Segment) Kind {
	if strings.Contains(text, "+") {
		return KindGrammar
	}
	clean := stripBold(text)
	if strings.HasSuffix(strings.TrimSpace(clean), ":") {
		return KindShortPhrase
	}
	if next != nil && next.Tag == TagVietsub && strings.HasPrefix(next.Text, ":") {
		return KindShortPhrase
	}
	words := strings.Count(clean, " ") + 1
	hasEnding := sentenceEnding.MatchString(clean) && !fileExtension.MatchString(clean)
	if words <= shortPhraseMaxWords && !hasEnding {
		return KindShortPhrase
	}
	return KindSentence
}

// ClassifyVietnamese picks the structural role of a Vietnamese segment.
// The checks run in priority order: divider, dialogue, list item, section.
func ClassifyVietnamese(text string) ViKind {
	switch {
	case strings.Contains(text, "***"):
		return ViDivider
	case dialogueLabel.MatchString(text):
		return ViDialogue
	case listItemPrefix.MatchString(text):
		return ViListItem
	case strings.HasPrefix(text, "**"):
		return ViSection
	}
	return ViPlain
}

// SpeakText is the text handed to the audio layer for a speakable element.
func SpeakText(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(stripBold(text), "...", ""))
}
