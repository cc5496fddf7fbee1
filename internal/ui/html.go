package ui

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Rendered is a message converted for the terminal.
type Rendered struct {
	Text string
	// Speakables are the English snippets marked [n] in Text, in order.
	Speakables []string
	// Actions are the suggested follow-up prompts.
	Actions []string
}

// Converter turns rendered message HTML into styled terminal text.
type Converter struct {
	styles *Styles
	width  int
}

// NewConverter creates a converter wrapping at width columns. A width of
// zero or less disables wrapping.
func NewConverter(styles *Styles, width int) *Converter {
	return &Converter{styles: styles, width: width}
}

// SetWidth changes the wrap width.
func (c *Converter) SetWidth(width int) {
	c.width = width
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Convert renders an HTML fragment. Malformed markup is tolerated the way
// a browser tolerates it.
func (c *Converter) Convert(fragment string) Rendered {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return Rendered{Text: fragment}
	}

	w := &walker{c: c, st: c.styles}
	for _, n := range nodes {
		w.node(n, c.styles.renderer.NewStyle())
	}
	w.flush()

	text := blankRuns.ReplaceAllString(strings.Join(w.lines, "\n"), "\n\n")
	return Rendered{
		Text:       strings.Trim(text, "\n"),
		Speakables: w.speak,
		Actions:    w.actions,
	}
}

// walker accumulates output lines. Inline content collects in para until a
// block boundary flushes it. The first flushed line gets lead, the others
// hang.
type walker struct {
	c  *Converter
	st *Styles

	lines []string
	para  strings.Builder
	lead  string
	hang  string

	speak   []string
	actions []string
}

func classes(n *html.Node) map[string]bool {
	out := map[string]bool{}
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				out[c] = true
			}
		}
	}
	return out
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// textContent returns the visible text below n, skipping nested icons and
// buttons.
func textContent(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.Type == html.ElementNode && (n.DataAtom == atom.Svg || n.DataAtom == atom.Button):
			return
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			visit(ch)
		}
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		visit(ch)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// flush wraps and emits the pending paragraph.
func (w *walker) flush() {
	raw := w.para.String()
	w.para.Reset()
	if strings.TrimSpace(ansi.Strip(raw)) == "" {
		return
	}

	width := 0
	if w.c.width > 0 {
		width = max(w.c.width-ansi.StringWidth(w.hang), 10)
	}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if width > 0 {
			line = wrap.String(wordwrap.String(line, width), width)
		}
		for _, l := range strings.Split(line, "\n") {
			w.lines = append(w.lines, w.lead+strings.TrimRight(l, " "))
			w.lead = w.hang
		}
	}
}

// block flushes around fn, using lead and hang for the lines fn produces.
func (w *walker) block(lead, hang string, fn func()) {
	w.flush()
	oldLead, oldHang := w.lead, w.hang
	start := len(w.lines)
	w.lead, w.hang = oldLead+lead, oldHang+hang
	fn()
	w.flush()
	w.lead, w.hang = oldLead, oldHang
	if len(w.lines) > start {
		w.lead = w.hang
	}
}

func (w *walker) emit(line string) {
	w.flush()
	w.lines = append(w.lines, w.lead+line)
	w.lead = w.hang
}

func (w *walker) children(n *html.Node, style lipgloss.Style) {
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		w.node(ch, style)
	}
}

// inlineStyle returns the style a class adds to its text.
func (w *walker) inlineStyle(cls map[string]bool) (lipgloss.Style, bool) {
	switch {
	case cls["english-grammar"]:
		return w.st.Grammar, true
	case cls["english-word"]:
		return w.st.English.Bold(true), true
	case cls["english-sentence"], cls["english-cell"]:
		return w.st.English, true
	case cls["vietnamese-text"]:
		return w.st.Vietnamese, true
	case cls["list-num"]:
		return w.st.Bold, true
	case cls["tip-text"]:
		return w.st.Tip, true
	}
	return lipgloss.Style{}, false
}

func (w *walker) node(n *html.Node, style lipgloss.Style) {
	switch n.Type {
	case html.TextNode:
		text := strings.ReplaceAll(n.Data, "\n", " ")
		if text != "" {
			w.para.WriteString(style.Render(text))
		}
		return
	case html.ElementNode:
	default:
		w.children(n, style)
		return
	}

	cls := classes(n)
	switch n.DataAtom {
	case atom.Svg, atom.Button, atom.Script, atom.Style:
		return
	case atom.Br:
		w.para.WriteString("\n")
		return
	case atom.Hr:
		w.emit(w.st.Muted.Render(strings.Repeat("─", w.ruleWidth())))
		return
	case atom.Table:
		w.flush()
		w.table(n)
		return
	case atom.Strong, atom.B:
		w.children(n, w.st.Bold.Inherit(style))
		return
	case atom.Li:
		lead, hang := "  ", "     " // the item number is part of the content
		if n.Parent != nil && classes(n.Parent)["generated-list"] {
			lead, hang = "  • ", "    "
		}
		w.block(lead, hang, func() { w.children(n, style) })
		return
	case atom.Ul, atom.Ol:
		w.block("", "", func() { w.children(n, style) })
		return
	}

	switch {
	case cls["message"] && cls["user"]:
		w.block(w.st.Highlighted.Render("› "), "  ", func() { w.children(n, w.st.User) })
		w.emit("")
	case cls["message"]:
		w.block("", "", func() { w.children(n, style) })
		w.emit("")
	case cls["streaming-cursor"]:
		w.para.WriteString(w.st.Highlighted.Render(Cursor))
	case cls["tip-box"]:
		w.block(TipIcon+" ", "   ", func() { w.children(n, style) })
	case cls["table-loading"]:
		w.emit(w.st.Muted.Render("⋯ " + textContent(n)))
	case cls["list-header"]:
		w.block("", "", func() { w.children(n, w.st.Title.Inherit(style)) })
	case cls["suggested-actions"]:
		w.flush()
		for b := n.FirstChild; b != nil; b = b.NextSibling {
			if b.Type != html.ElementNode || !classes(b)["suggested-action-btn"] {
				continue
			}
			label := textContent(b)
			w.actions = append(w.actions, label)
			w.emit(w.st.Action.Render("→ "+strconv.Itoa(len(w.actions))+". ") + label)
		}
	case cls["message-cancelled"]:
		label := ""
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			if ch.Type == html.ElementNode && classes(ch)["cancelled-text"] {
				label = textContent(ch)
			}
		}
		w.emit(w.st.Error.Render(FailIcon+" "+label) + w.st.Muted.Render("  (:retry · :continue)"))
	case cls["message-actions"]:
		w.flush()
		w.children(n, style)
		w.flush()
	case cls["token-badge"]:
		w.emit(w.st.Muted.Render(textContent(n)))
	case n.DataAtom == atom.Div || n.DataAtom == atom.P:
		w.block("", "", func() { w.children(n, style) })
	default:
		if own, ok := w.inlineStyle(cls); ok {
			style = own.Inherit(style)
		}
		inline := func() {
			w.children(n, style)
			if idx := w.speakable(n); idx > 0 {
				w.para.WriteString(" " + w.st.Muted.Render("["+strconv.Itoa(idx)+"]"))
			}
		}
		// Full English sentences get a line of their own.
		if cls["english-sentence"] && !cls["list-content"] {
			w.block("", "", inline)
			return
		}
		inline()
	}
}

// speakable records the data-speak text of n and returns its 1-based
// number, or 0.
func (w *walker) speakable(n *html.Node) int {
	raw, ok := attr(n, "data-speak")
	if !ok {
		return 0
	}
	text, err := url.PathUnescape(raw)
	if err != nil || text == "" {
		return 0
	}
	w.speak = append(w.speak, text)
	return len(w.speak)
}

func (w *walker) ruleWidth() int {
	if w.c.width > 0 && w.c.width < 40 {
		return w.c.width
	}
	return 40
}

type cell struct {
	text    string
	english bool
}

func (w *walker) table(n *html.Node) {
	var rows [][]cell
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Tr {
			var row []cell
			for td := n.FirstChild; td != nil; td = td.NextSibling {
				if td.Type != html.ElementNode || (td.DataAtom != atom.Td && td.DataAtom != atom.Th) {
					continue
				}
				c := cell{text: textContent(td)}
				if idx := w.speakable(td); idx > 0 {
					c.text += " [" + strconv.Itoa(idx) + "]"
					c.english = true
				}
				row = append(row, c)
			}
			rows = append(rows, row)
			return
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			visit(ch)
		}
	}
	visit(n)
	if len(rows) == 0 {
		return
	}

	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	widths := make([]int, cols)
	for _, r := range rows {
		for i, c := range r {
			widths[i] = max(widths[i], runewidth.StringWidth(c.text))
		}
	}
	fitColumns(widths, w.c.width-ansi.StringWidth(w.hang))

	border := w.st.TableBorder
	line := func(l, m, r string) string {
		parts := make([]string, cols)
		for i, wd := range widths {
			parts[i] = strings.Repeat("─", wd+2)
		}
		return border.Render(l + strings.Join(parts, m) + r)
	}

	w.emit(line("┌", "┬", "┐"))
	for ri, r := range rows {
		var b strings.Builder
		b.WriteString(border.Render("│"))
		for i := range widths {
			var c cell
			if i < len(r) {
				c = r[i]
			}
			text := runewidth.FillRight(Truncate(c.text, widths[i]), widths[i])
			switch {
			case ri == 0:
				text = w.st.TableHeader.Render(text)
			case c.english:
				text = w.st.English.Render(text)
			}
			b.WriteString(" " + text + " " + border.Render("│"))
		}
		w.emit(b.String())
		if ri == 0 && len(rows) > 1 {
			w.emit(line("├", "┼", "┤"))
		}
	}
	w.emit(line("└", "┴", "┘"))
}

// fitColumns shrinks the widest columns until the table fits in avail
// columns, borders included.
func fitColumns(widths []int, avail int) {
	if avail <= 0 {
		return
	}
	total := func() int {
		t := 1
		for _, w := range widths {
			t += w + 3
		}
		return t
	}
	for total() > avail {
		widest := 0
		for i, w := range widths {
			if w > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= 4 {
			return
		}
		widths[widest]--
	}
}
