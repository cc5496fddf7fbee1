package ui

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/charmbracelet/x/ansi"

	"github.com/samsaffron/term-tutor/internal/api"
	"github.com/samsaffron/term-tutor/internal/chat"
)

// View prints the transcript to a terminal. The in-flight reply is redrawn
// in place on every update; on a non-interactive output only finished
// messages are printed.
type View struct {
	mu     sync.Mutex
	out    io.Writer
	styles *Styles
	conv   *Converter
	tty    bool
	width  func() int

	streamRows    int
	locked        bool
	speakables    []string
	actions       []string
	conversation  string
	conversations []api.Conversation
}

// NewView creates a view writing to out. width is consulted before every
// draw; a nil width disables wrapping.
func NewView(out io.Writer, styles *Styles, tty bool, width func() int) *View {
	if width == nil {
		width = func() int { return 0 }
	}
	return &View{
		out:    out,
		styles: styles,
		conv:   NewConverter(styles, width()),
		tty:    tty,
		width:  width,
	}
}

var _ chat.View = (*View)(nil)

func (v *View) render(fragment string) Rendered {
	v.conv.SetWidth(v.width())
	return v.conv.Convert(fragment)
}

// eraseStream removes the streaming block. Callers hold mu.
func (v *View) eraseStream() {
	if v.streamRows > 0 {
		io.WriteString(v.out, clearLines(v.streamRows))
		v.streamRows = 0
	}
}

func (v *View) println(s string) {
	fmt.Fprintln(v.out, s)
}

func (v *View) SetLocked(locked bool) {
	v.mu.Lock()
	v.locked = locked
	v.mu.Unlock()
}

// Locked reports whether input is currently blocked.
func (v *View) Locked() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.locked
}

func (v *View) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.streamRows = 0
	v.speakables = nil
	v.actions = nil
	if v.tty {
		io.WriteString(v.out, ansi.EraseDisplay(2)+ansi.CursorPosition(1, 1))
	}
}

func (v *View) ShowMessage(m chat.Message, fragment string) {
	r := v.render(fragment)
	v.mu.Lock()
	defer v.mu.Unlock()
	v.eraseStream()
	v.println(r.Text)
	v.println("")
	if m.Role == api.RoleAssistant {
		v.speakables = r.Speakables
		v.actions = r.Actions
	}
}

func (v *View) ShowStreaming(fragment string) {
	if !v.tty {
		return
	}
	r := v.render(fragment)
	v.mu.Lock()
	defer v.mu.Unlock()
	v.eraseStream()
	text := r.Text + "\n"
	io.WriteString(v.out, text)
	v.streamRows = countLines(text, v.width())
}

func (v *View) RemoveStreaming() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.eraseStream()
}

// ResumeMessage notes that an earlier message is being sent again; printed
// lines cannot be edited in place.
func (v *View) ResumeMessage(id int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.println(v.styles.Muted.Render("↻ gửi lại tin nhắn #" + strconv.Itoa(id)))
}

func (v *View) MarkUnanswered(string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.eraseStream()
	v.println(v.styles.Error.Render(FailIcon+" Chưa nhận được phản hồi") + v.styles.Muted.Render("  (:retry)"))
	v.println("")
}

func (v *View) ConversationChanged(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.conversation = id
}

func (v *View) ConversationsChanged(list []api.Conversation) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.conversations = list
}

// Conversation returns the id of the conversation on screen.
func (v *View) Conversation() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.conversation
}

// Conversations returns the last conversation list received.
func (v *View) Conversations() []api.Conversation {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.conversations
}

// Speakable returns the n-th (1-based) speakable of the last reply.
func (v *View) Speakable(n int) (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if n < 1 || n > len(v.speakables) {
		return "", false
	}
	return v.speakables[n-1], true
}

// Action returns the n-th (1-based) suggested prompt of the last reply.
func (v *View) Action(n int) (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if n < 1 || n > len(v.actions) {
		return "", false
	}
	return v.actions[n-1], true
}

// Notice prints a status line outside the transcript.
func (v *View) Notice(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.println(v.styles.Muted.Render(msg))
}

// Error prints an error line outside the transcript.
func (v *View) Error(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.println(v.styles.FormatResult(false, err.Error()))
}
