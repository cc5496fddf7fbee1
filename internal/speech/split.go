package speech

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/samsaffron/term-tutor/internal/markup"
)

// Lang is the language of an utterance as the synthesis endpoint expects it.
type Lang string

const (
	LangVi Lang = "vi"
	LangEn Lang = "en"
)

// Utterance is one speakable segment.
type Utterance struct {
	Text string
	Lang Lang
}

// Key is the prefetch cache key: "<lang>:<text>". The same text in two
// languages gives two keys.
func (u Utterance) Key() string {
	return string(u.Lang) + ":" + u.Text
}

var (
	// Bodies of these tags are never spoken.
	unspokenBodies = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\[Table\][^\[]*`),
		regexp.MustCompile(`(?i)\[Tip\][^\[]*`),
		regexp.MustCompile(`(?i)\[List\][^\[]*`),
	}
	boldMarkers     = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	markdownChars   = regexp.MustCompile("[*#_`~]")
	speakerPrefix   = regexp.MustCompile(`^[A-Z]\s*-\s*`)
	anyBracketed    = regexp.MustCompile(`\[[^\]]*\]`)
	languageTagName = regexp.MustCompile(`(?i)\[(Vietsub|Engsub)\]`)
)

// minUtteranceLen is the shortest text, in runes, worth synthesizing.
const minUtteranceLen = 2

// SplitByLanguage turns message content into the ordered utterances the
// player speaks. Actions, tables, tips and lists are dropped, markdown is
// stripped, and "A - " dialogue prefixes, quotes and slashes are cleaned.
func SplitByLanguage(content string) []Utterance {
	text := markup.RemoveActions(content)
	for _, re := range unspokenBodies {
		text = re.ReplaceAllString(text, "")
	}
	text = boldMarkers.ReplaceAllString(text, "$1")
	text = markdownChars.ReplaceAllString(text, "")

	segs := markup.Parse(text)
	if len(segs) == 1 && segs[0].Tag == markup.TagPlainVi {
		clean := strings.TrimSpace(anyBracketed.ReplaceAllString(segs[0].Text, ""))
		clean = strings.ReplaceAll(clean, "/", " ")
		if utf8.RuneCountInString(clean) < minUtteranceLen {
			return nil
		}
		return []Utterance{{Text: clean, Lang: LangVi}}
	}

	var out []Utterance
	for _, seg := range segs {
		var lang Lang
		switch seg.Tag {
		case markup.TagVietsub:
			lang = LangVi
		case markup.TagEngsub:
			lang = LangEn
		default:
			continue
		}
		t := speakerPrefix.ReplaceAllString(seg.Text, "")
		t = strings.ReplaceAll(t, `"`, "")
		t = strings.TrimSpace(strings.ReplaceAll(t, "/", " "))
		if utf8.RuneCountInString(t) < minUtteranceLen {
			continue
		}
		out = append(out, Utterance{Text: t, Lang: lang})
	}
	return out
}

// ClosedUtterances returns the leading utterances of a still-growing buffer
// that a later [Vietsub] or [Engsub] tag has closed. Their text can no
// longer change as more of the buffer arrives.
func ClosedUtterances(buffer string) []Utterance {
	tags := languageTagName.FindAllStringIndex(buffer, -1)
	if len(tags) < 2 {
		return nil
	}
	full := SplitByLanguage(buffer)
	closed := SplitByLanguage(buffer[:tags[len(tags)-1][0]])
	n := 0
	for n < len(full) && n < len(closed) && full[n] == closed[n] {
		n++
	}
	return full[:n]
}
