package clipboard

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTools struct {
	installed map[string]bool
	used      []string
	stdin     string
	output    string
	err       error
}

func install(t *testing.T, os string, f *fakeTools) {
	t.Helper()
	oldOS, oldLook, oldRun := goos, lookPath, run
	t.Cleanup(func() { goos, lookPath, run = oldOS, oldLook, oldRun })

	goos = os
	lookPath = func(name string) (string, error) {
		if f.installed[name] {
			return "/usr/bin/" + name, nil
		}
		return "", errors.New("not found")
	}
	run = func(tl tool, stdin io.Reader, stdout io.Writer) error {
		f.used = append(f.used, strings.TrimSpace(tl.name+" "+strings.Join(tl.args, " ")))
		if stdin != nil {
			b, _ := io.ReadAll(stdin)
			f.stdin = string(b)
		}
		if stdout != nil {
			io.WriteString(stdout, f.output)
		}
		return f.err
	}
}

func TestCopyTextPrefersWayland(t *testing.T) {
	f := &fakeTools{installed: map[string]bool{"wl-copy": true, "xclip": true}}
	install(t, "linux", f)

	require.NoError(t, CopyText("look forward to"))
	assert.Equal(t, []string{"wl-copy"}, f.used)
	assert.Equal(t, "look forward to", f.stdin)
}

func TestCopyTextFallsBackToXclip(t *testing.T) {
	f := &fakeTools{installed: map[string]bool{"xclip": true}}
	install(t, "linux", f)

	require.NoError(t, CopyText("hello"))
	assert.Equal(t, []string{"xclip -selection clipboard"}, f.used)
}

func TestReadText(t *testing.T) {
	f := &fakeTools{installed: map[string]bool{"pbpaste": true}, output: "xin chào"}
	install(t, "darwin", f)

	got, err := ReadText()
	require.NoError(t, err)
	assert.Equal(t, "xin chào", got)
}

func TestMissingUtility(t *testing.T) {
	install(t, "linux", &fakeTools{})
	err := CopyText("x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wl-copy or xclip or xsel")

	install(t, "plan9", &fakeTools{})
	_, err = ReadText()
	assert.EqualError(t, err, "clipboard not supported on plan9")
}

func TestCopyTextReportsFailure(t *testing.T) {
	install(t, "windows", &fakeTools{installed: map[string]bool{"clip.exe": true}, err: errors.New("exit 1")})
	err := CopyText("x")
	assert.ErrorContains(t, err, "failed to copy to clipboard")
}
