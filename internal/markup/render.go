package markup

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

// Options control a single render call.
type Options struct {
	// Streaming marks the buffer as still growing. Tables without a row
	// separator render as a loading placeholder instead of a partial table.
	Streaming bool
}

const (
	tipIcon   = `<svg width="18" height="18" viewBox="0 0 24 24" fill="currentColor"><path d="M9 21c0 .5.4 1 1 1h4c.6 0 1-.5 1-1v-1H9v1zm3-19C8.1 2 5 5.1 5 9c0 2.4 1.2 4.5 3 5.7V17c0 .5.4 1 1 1h6c.6 0 1-.5 1-1v-2.3c1.8-1.3 3-3.4 3-5.7 0-3.9-3.1-7-7-7z"/></svg>`
	tableIcon = `<svg width="20" height="20" viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2"><rect x="3" y="3" width="18" height="18" rx="2" ry="2"/><line x1="3" y1="9" x2="21" y2="9"/><line x1="9" y1="21" x2="9" y2="9"/></svg>`

	// TableLoading is shown in place of a table whose first row has not
	// finished streaming.
	TableLoading = `<div class="table-loading"><div class="table-loading-icon">` + tableIcon + `</div><span>Đang tạo bảng...</span></div>`

	dividerHTML = `<hr class="divider">`
)

var (
	boldPattern        = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	lazyBoldPattern    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	dividerLine        = regexp.MustCompile(`(?m)^\*\*\*$`)
	numberedLine       = regexp.MustCompile(`^(\d+)\.\s+(.+)$`)
	headingMarker      = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	dialogueReplace    = regexp.MustCompile(`\*\*([^*]+):\*\*`)
	strayMarkdownChars = strings.NewReplacer("*", "", "`", "", "~", "")
)

// EncodeSpeak escapes text for a data-speak attribute the way
// encodeURIComponent does.
func EncodeSpeak(text string) string {
	s := url.QueryEscape(text)
	return strings.NewReplacer(
		"+", "%20",
		"%21", "!",
		"%27", "'",
		"%28", "(",
		"%29", ")",
		"%2A", "*",
	).Replace(s)
}

// FormatMarkdown renders the small markdown subset used inside Vietnamese
// text: *** dividers, **bold**, numbered lines and blank-line breaks.
func FormatMarkdown(text string) string {
	text = html.EscapeString(text)
	text = dividerLine.ReplaceAllString(text, dividerHTML)
	text = boldPattern.ReplaceAllString(text, "<strong>$1</strong>")
	text = headingMarker.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if m := numberedLine.FindStringSubmatch(line); m != nil {
			lines[i] = `<div class="list-item"><span class="list-num">` + m[1] + `.</span> ` + stripStray(m[2]) + `</div>`
			continue
		}
		if strings.TrimSpace(line) == "" {
			lines[i] = dividerHTML
			continue
		}
		lines[i] = stripStray(line)
	}

	var b strings.Builder
	joined := strings.Join(lines, "\n")
	for i := 0; i < len(joined); i++ {
		if joined[i] != '\n' {
			b.WriteByte(joined[i])
			continue
		}
		if i+1 < len(joined) && joined[i+1] == '<' {
			continue
		}
		b.WriteString("<br>")
	}
	return b.String()
}

// stripStray drops markdown punctuation left over after bold conversion.
// Generated tags never contain these characters.
func stripStray(s string) string {
	return strayMarkdownChars.Replace(s)
}

// inlineBold escapes text and turns **x** into <strong>x</strong>.
func inlineBold(text string) string {
	return lazyBoldPattern.ReplaceAllString(html.EscapeString(text), "<strong>$1</strong>")
}

func viSpan(text string) string {
	return `<span class="vietnamese-text">` + FormatMarkdown(text) + `</span>`
}

// renderState is the per-message state of one render pass.
type renderState struct {
	out     strings.Builder
	pending string
	inList  bool
}

// flush emits the pending Vietnamese buffer, if any.
func (s *renderState) flush(suffix string) {
	if s.pending == "" {
		return
	}
	s.out.WriteString(viSpan(s.pending))
	s.out.WriteString(suffix)
	s.pending = ""
}

// closeList ends an open numbered list, finishing the current item.
func (s *renderState) closeList(after string) {
	if !s.inList {
		return
	}
	s.flush("")
	s.out.WriteString("</li></ul>")
	s.out.WriteString(after)
	s.inList = false
}

// Render converts message content into HTML. It is a pure function of its
// arguments: identical input always yields byte-identical output.
func Render(content string, opts Options) string {
	return RenderSegments(Parse(content), opts)
}

// RenderSegments renders already-parsed segments.
func RenderSegments(segs []Segment, opts Options) string {
	if len(segs) == 1 && segs[0].Tag == TagPlainVi {
		return viSpan(segs[0].Text)
	}
	var s renderState
	for i, seg := range segs {
		var next *Segment
		if i+1 < len(segs) {
			next = &segs[i+1]
		}
		s.segment(seg, next, opts)
	}
	s.closeList("")
	s.flush("")
	return s.out.String()
}

func (s *renderState) segment(seg Segment, next *Segment, opts Options) {
	text := seg.Text
	switch seg.Tag {
	case TagTip:
		s.closeList("")
		s.flush("")
		s.out.WriteString(`<div class="tip-box"><div class="tip-icon">` + tipIcon + `</div><span class="tip-text">` + inlineBold(text) + `</span></div>`)
	case TagTable:
		s.closeList("")
		s.flush("")
		s.out.WriteString(RenderTable(text, opts.Streaming))
	case TagList:
		s.closeList("")
		s.flush("")
		s.out.WriteString(RenderList(text))
	case TagEngsub:
		s.english(text, next)
	default:
		s.vietnamese(text)
	}
}

func (s *renderState) english(text string, next *Segment) {
	s.flush("")
	kind := ClassifyEnglish(text, next)
	if kind == KindGrammar {
		s.out.WriteString(`<span class="english-grammar">` + inlineBold(text) + `</span> `)
		return
	}
	clean := stripBold(text)
	speak := EncodeSpeak(SpeakText(clean))
	if kind == KindShortPhrase {
		s.out.WriteString(`<span class="english-word" data-speak="` + speak + `">` + html.EscapeString(clean) + `</span> `)
		return
	}
	s.out.WriteString(`<span class="english-sentence" data-speak="` + speak + `">` + inlineBold(text) + `</span>`)
}

func (s *renderState) vietnamese(text string) {
	switch ClassifyVietnamese(text) {
	case ViDivider:
		s.closeList("")
		parts := strings.SplitN(text, "***", 2)
		head := strings.TrimSpace(parts[0])
		if s.pending != "" {
			s.pending += " " + head
			s.flush("")
		} else if head != "" {
			s.out.WriteString(viSpan(head))
		}
		s.out.WriteString("<br>" + dividerHTML)
		if len(parts) > 1 {
			s.pending = strings.TrimSpace(parts[1])
		}
	case ViDialogue:
		s.closeList("")
		s.flush("<br><br>")
		lines := dialogueReplace.ReplaceAllString(html.EscapeString(text), "<br><strong>$1:</strong>")
		lines = strings.TrimPrefix(lines, "<br>")
		s.out.WriteString(`<span class="vietnamese-text">` + lines + `</span><br>`)
	case ViListItem:
		if !s.inList {
			s.flush("")
			s.out.WriteString(`<ul class="vocab-list">`)
			s.inList = true
		} else {
			s.flush("")
			s.out.WriteString("</li>")
		}
		m := listItemPrefix.FindStringSubmatch(text)
		s.out.WriteString(`<li><span class="list-num">` + m[1] + `.</span> `)
		s.pending = text[len(m[0]):]
	case ViSection:
		if s.inList {
			s.closeList("<br>")
		} else {
			s.flush("<br><br>")
		}
		s.pending = text
	default:
		if s.pending != "" {
			s.pending += " " + text
		} else {
			s.pending = text
		}
	}
}

func splitRows(content string) []string {
	var rows []string
	for _, r := range strings.Split(content, "||") {
		if r = strings.TrimSpace(r); r != "" {
			rows = append(rows, r)
		}
	}
	return rows
}

func splitCells(row string) []string {
	cells := strings.Split(row, "|")
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}

// RenderTable renders a [Table] body: rows separated by "||", cells by "|",
// the first row being the header. English body cells become speakable.
func RenderTable(content string, streaming bool) string {
	if streaming && !strings.Contains(content, "||") {
		return TableLoading
	}
	rows := splitRows(content)
	if len(rows) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(`<div class="vocab-table-wrapper"><table class="vocab-table"><thead><tr>`)
	for _, cell := range splitCells(rows[0]) {
		b.WriteString("<th>" + html.EscapeString(cell) + "</th>")
	}
	b.WriteString("</tr></thead>")

	if len(rows) > 1 {
		b.WriteString("<tbody>")
		for _, row := range rows[1:] {
			b.WriteString("<tr>")
			for _, cell := range splitCells(row) {
				if IsEnglishText(cell) {
					b.WriteString(`<td class="english-cell" data-speak="` + EncodeSpeak(SpeakText(cell)) + `">` + html.EscapeString(cell) + "</td>")
				} else {
					b.WriteString("<td>" + html.EscapeString(cell) + "</td>")
				}
			}
			b.WriteString("</tr>")
		}
		b.WriteString("</tbody>")
	}
	b.WriteString("</table></div>")
	return b.String()
}

// RenderList renders a [List] body: groups separated by "||"; in each group
// the first item is the header and the rest are entries.
func RenderList(content string) string {
	rows := splitRows(content)
	if len(rows) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(`<div class="generated-list-container">`)
	for _, row := range rows {
		var items []string
		for _, item := range splitCells(row) {
			if item != "" {
				items = append(items, item)
			}
		}
		if len(items) == 0 {
			continue
		}
		b.WriteString(`<div class="list-group"><div class="list-header">` + html.EscapeString(items[0]) + `</div>`)
		if len(items) > 1 {
			b.WriteString(`<ul class="generated-list">`)
			for _, item := range items[1:] {
				speak := strings.ReplaceAll(stripBold(item), "...", "")
				b.WriteString("<li>")
				if IsEnglishText(speak) {
					b.WriteString(`<span class="list-content english-sentence" data-speak="` + EncodeSpeak(speak) + `">` + inlineBold(item) + `</span>`)
				} else {
					b.WriteString(`<span class="list-content">` + inlineBold(item) + `</span>`)
				}
				b.WriteString("</li>")
			}
			b.WriteString("</ul>")
		}
		b.WriteString("</div>")
	}
	b.WriteString("</div>")
	return b.String()
}

// RenderActions renders suggested follow-up prompts as chips.
func RenderActions(actions []string) string {
	if len(actions) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<div class="suggested-actions">`)
	for _, a := range actions {
		b.WriteString(`<button class="suggested-action-btn">` + html.EscapeString(a) + `</button>`)
	}
	b.WriteString("</div>")
	return b.String()
}
