package markup

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// Tag identifies the bracketed marker that introduced a segment.
type Tag int

const (
	// TagPlainVi is the implicit tag of a message that carries no tags at all.
	TagPlainVi Tag = iota
	TagVietsub
	TagEngsub
	TagTable
	TagTip
	TagList
)

func (t Tag) String() string {
	switch t {
	case TagVietsub:
		return "vietsub"
	case TagEngsub:
		return "engsub"
	case TagTable:
		return "table"
	case TagTip:
		return "tip"
	case TagList:
		return "list"
	default:
		return "plain"
	}
}

// Segment is one tagged span of message text. Segments are values: a
// re-parse produces new ones rather than mutating old ones.
type Segment struct {
	Tag  Tag
	Text string
}

// MinSegmentLen is the shortest trimmed body (in runes) kept as a segment.
const MinSegmentLen = 2

// tagNames lists every tag of the dialect, including [Actions].
var tagNames = []string{"Vietsub", "Engsub", "Table", "Tip", "List", "Actions"}

// segmentPattern matches one tag and its body up to the next tag or the end
// of input. The body may not contain brackets, so a stray "[" inside a body
// makes that segment unmatched, exactly like a half-received tag would.
var segmentPattern = regexp2.MustCompile(
	`\[(Vietsub|Engsub|Table|Tip|List)\]\s*([^\[\]]*?)(?=\[(?:Vietsub|Engsub|Table|Tip|List)\]|\z)`,
	regexp2.IgnoreCase)

var (
	actionsTag     = regexp.MustCompile(`(?i)\[Actions\]`)
	actionsPattern = regexp.MustCompile(`(?is)\[Actions\]\s*(.+)$`)
)

func tagFromName(name string) Tag {
	switch strings.ToLower(name) {
	case "vietsub":
		return TagVietsub
	case "engsub":
		return TagEngsub
	case "table":
		return TagTable
	case "tip":
		return TagTip
	case "list":
		return TagList
	}
	return TagPlainVi
}

// RemoveActions cuts everything from the first [Actions] tag to the end of
// the text and trims the remainder.
func RemoveActions(content string) string {
	if loc := actionsTag.FindStringIndex(content); loc != nil {
		content = content[:loc[0]]
	}
	return strings.TrimSpace(content)
}

// ExtractActions returns the pipe-separated follow-up prompts after
// [Actions], trimmed and without empty entries.
func ExtractActions(content string) []string {
	m := actionsPattern.FindStringSubmatch(content)
	if m == nil {
		return []string{}
	}
	actions := []string{}
	for _, a := range strings.Split(m[1], "|") {
		if a = strings.TrimSpace(a); a != "" {
			actions = append(actions, a)
		}
	}
	return actions
}

// TrimPartialTag drops a tag that is still being received at the end of a
// streaming buffer ("... [Engs"). Without this the body before it would fail
// to match until the closing bracket arrives.
func TrimPartialTag(text string) string {
	i := strings.LastIndexByte(text, '[')
	if i < 0 {
		return text
	}
	rest := text[i+1:]
	if strings.ContainsRune(rest, ']') {
		return text
	}
	if rest == "" {
		return text[:i]
	}
	for _, name := range tagNames {
		if len(rest) <= len(name) && strings.EqualFold(rest, name[:len(rest)]) {
			return text[:i]
		}
	}
	return text
}

// rawMatch is a single regex match over a parse window.
type rawMatch struct {
	tag Tag
	// body is the untrimmed body capture.
	body string
	// end is the byte offset just past the match within the window.
	end int
	// closed is true when a following tag terminated the body.
	closed bool
}

// scan runs the segment pattern over window and returns every match.
func scan(window string) []rawMatch {
	var out []rawMatch
	m, err := segmentPattern.FindStringMatch(window)
	for err == nil && m != nil {
		end := runeOffsetToByte(window, m.Index+m.Length)
		out = append(out, rawMatch{
			tag:    tagFromName(m.GroupByNumber(1).String()),
			body:   m.GroupByNumber(2).String(),
			end:    end,
			closed: end < len(window),
		})
		m, err = segmentPattern.FindNextMatch(m)
	}
	return out
}

func runeOffsetToByte(s string, runes int) int {
	off := 0
	for i := 0; i < runes && off < len(s); i++ {
		_, size := utf8.DecodeRuneInString(s[off:])
		off += size
	}
	return off
}

func toSegments(matches []rawMatch) []Segment {
	segs := make([]Segment, 0, len(matches))
	for _, m := range matches {
		text := strings.TrimSpace(m.body)
		if utf8.RuneCountInString(text) < MinSegmentLen {
			continue
		}
		segs = append(segs, Segment{Tag: m.tag, Text: text})
	}
	return segs
}

// Parse splits message content into display segments in source order. The
// [Actions] tail is excluded. Text without any tag becomes a single
// TagPlainVi segment; text whose tags all carry blank bodies yields none.
func Parse(content string) []Segment {
	clean := RemoveActions(content)
	matches := scan(clean)
	if len(matches) == 0 {
		if clean == "" {
			return nil
		}
		return []Segment{{Tag: TagPlainVi, Text: clean}}
	}
	return toSegments(matches)
}

// StreamParser parses a growing buffer without rescanning settled text.
// A segment is settled once a following tag has closed it; the parser keeps
// those segments and resumes scanning at the tag that closed the last one.
// A buffer that does not extend the previous one resets the parser.
//
// StreamParser is not safe for concurrent use.
type StreamParser struct {
	prev    string
	cursor  int
	settled []Segment
}

// NewStreamParser returns an empty parser.
func NewStreamParser() *StreamParser {
	return &StreamParser{}
}

// Reset discards all settled state.
func (p *StreamParser) Reset() {
	*p = StreamParser{}
}

// Settled returns how many leading segments can no longer change.
func (p *StreamParser) Settled() int {
	return len(p.settled)
}

// Parse returns the same segments Parse(content) would.
func (p *StreamParser) Parse(content string) []Segment {
	clean := RemoveActions(content)
	if !strings.HasPrefix(clean, p.prev) {
		p.Reset()
	}
	p.prev = clean

	matches := scan(clean[p.cursor:])
	if p.cursor == 0 && len(matches) == 0 {
		if clean == "" {
			return nil
		}
		return []Segment{{Tag: TagPlainVi, Text: clean}}
	}

	// Only bodies closed by a following tag are final.
	n := 0
	for n < len(matches) && matches[n].closed {
		n++
	}
	if n > 0 {
		p.settled = append(p.settled, toSegments(matches[:n])...)
		p.cursor += matches[n-1].end
		matches = matches[n:]
	}

	out := make([]Segment, 0, len(p.settled)+len(matches))
	out = append(out, p.settled...)
	return append(out, toSegments(matches)...)
}
