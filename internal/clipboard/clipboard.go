// Package clipboard copies text to and reads text from the system
// clipboard through the platform's command-line utilities.
package clipboard

import (
	"bytes"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
)

// tool is one clipboard utility invocation.
type tool struct {
	name string
	args []string
}

// Utilities in order of preference. Wayland tools come before X11 ones.
var (
	copyTools = map[string][]tool{
		"darwin":  {{name: "pbcopy"}},
		"linux":   {{name: "wl-copy"}, {"xclip", []string{"-selection", "clipboard"}}, {"xsel", []string{"--clipboard", "--input"}}},
		"windows": {{name: "clip.exe"}},
	}
	pasteTools = map[string][]tool{
		"darwin": {{name: "pbpaste"}},
		"linux":  {{"wl-paste", []string{"--no-newline"}}, {"xclip", []string{"-selection", "clipboard", "-o"}}, {"xsel", []string{"--clipboard", "--output"}}},
	}
)

var (
	goos     = runtime.GOOS
	lookPath = exec.LookPath
	run      = func(t tool, stdin io.Reader, stdout io.Writer) error {
		cmd := exec.Command(t.name, t.args...)
		cmd.Stdin = stdin
		cmd.Stdout = stdout
		return cmd.Run()
	}
)

// available returns the first installed tool of list.
func available(list []tool) (tool, bool) {
	for _, t := range list {
		if _, err := lookPath(t.name); err == nil {
			return t, true
		}
	}
	return tool{}, false
}

func missing(list []tool) error {
	if len(list) == 0 {
		return fmt.Errorf("clipboard not supported on %s", goos)
	}
	names := make([]string, len(list))
	for i, t := range list {
		names[i] = t.name
	}
	return fmt.Errorf("no clipboard utility found (install %s)", strings.Join(names, " or "))
}

// CopyText copies text to the system clipboard
func CopyText(text string) error {
	list := copyTools[goos]
	t, ok := available(list)
	if !ok {
		return missing(list)
	}
	if err := run(t, strings.NewReader(text), nil); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	return nil
}

// ReadText reads text content from the system clipboard
func ReadText() (string, error) {
	list := pasteTools[goos]
	t, ok := available(list)
	if !ok {
		return "", missing(list)
	}
	var out bytes.Buffer
	if err := run(t, nil, &out); err != nil {
		return "", fmt.Errorf("failed to read clipboard: %w", err)
	}
	return out.String(), nil
}

// System is the system clipboard as a value.
type System struct{}

func (System) CopyText(text string) error { return CopyText(text) }
func (System) ReadText() (string, error)  { return ReadText() }
