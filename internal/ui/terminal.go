package ui

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"golang.org/x/term"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the width of w, or fallback when w is not a
// terminal.
func TerminalWidth(w io.Writer, fallback int) int {
	f, ok := w.(*os.File)
	if !ok {
		return fallback
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}

// clearLines moves the cursor up n lines and clears to the end of the
// screen, erasing a block drawn earlier.
func clearLines(n int) string {
	if n <= 0 {
		return ""
	}
	return ansi.CursorUp(n) + ansi.CursorHorizontalAbsolute(1) + ansi.EraseDisplay(0)
}

// countLines returns how many terminal rows rendered occupies at width,
// counting soft wraps. A trailing newline does not start a row.
func countLines(rendered string, width int) int {
	if rendered == "" {
		return 0
	}
	lines := strings.Split(rendered, "\n")
	total := 0
	for i, line := range lines {
		if i == len(lines)-1 && line == "" {
			continue
		}
		w := ansi.StringWidth(line)
		if w == 0 || width <= 0 {
			total++
			continue
		}
		total += (w + width - 1) / width
	}
	return total
}
