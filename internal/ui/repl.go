package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/samsaffron/term-tutor/internal/api"
	"github.com/samsaffron/term-tutor/internal/chat"
	"github.com/samsaffron/term-tutor/internal/clipboard"
	"github.com/samsaffron/term-tutor/internal/markup"
)

// Chat is the conversation surface the REPL drives. *chat.Coordinator
// implements it.
type Chat interface {
	Send(ctx context.Context, text string) error
	RetryLast(ctx context.Context) error
	Continue(ctx context.Context) error
	Stop()
	NewConversation(ctx context.Context) error
	SwitchConversation(ctx context.Context, id string) error
	Conversations(ctx context.Context) ([]api.Conversation, error)
	Speak(ctx context.Context, text string) error
	PlayMessage(ctx context.Context, content string) error
	LastReply() chat.Message
}

var _ Chat = (*chat.Coordinator)(nil)

// Clipboard is where :copy and :paste go.
type Clipboard interface {
	CopyText(text string) error
	ReadText() (string, error)
}

const replHelp = `Commands:
  :new            start a new conversation
  :list           list conversations
  :open N|ID      open conversation N from :list, or by id
  :retry          resend the last unanswered message
  :continue       ask the tutor to continue an interrupted reply
  :say N|TEXT     read speakable [N] of the last reply, or TEXT
  :play           read the last reply aloud
  :a N            send suggested prompt N
  :copy [N]       copy speakable [N], or all of them, to the clipboard
  :paste          send the clipboard contents
  :stats          show statistics for this session
  :help           show this help
  :quit           exit
Ctrl+C stops a reply or playback in progress.`

// REPL reads learner input line by line and runs it against a Chat.
type REPL struct {
	chat  Chat
	view  *View
	in    io.Reader
	out   io.Writer
	style *Styles
	stats *SessionStats
	clip  Clipboard
}

// NewREPL creates a REPL reading from in. Notices go to the view; the
// prompt is written to out.
func NewREPL(c Chat, view *View, in io.Reader, out io.Writer) *REPL {
	return &REPL{chat: c, view: view, in: in, out: out, style: view.styles, stats: NewSessionStats(), clip: clipboard.System{}}
}

// errQuit ends Run without an error.
var errQuit = errors.New("quit")

// Run processes input until EOF, :quit, an interrupt while idle, or ctx
// cancellation. interrupts may be nil. The session statistics are printed
// on the way out.
func (r *REPL) Run(ctx context.Context, interrupts <-chan os.Signal) error {
	defer func() {
		if r.stats.TurnCount > 0 {
			r.view.Notice(r.stats.Render())
		}
	}()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(r.in)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		r.prompt()
		select {
		case <-ctx.Done():
			return nil
		case <-interrupts:
			fmt.Fprintln(r.out)
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			err := r.handle(ctx, line, interrupts)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				r.view.Error(err)
			}
		}
	}
}

func (r *REPL) prompt() {
	io.WriteString(r.out, r.style.Highlighted.Render("› "))
}

// handle runs one input line.
func (r *REPL) handle(ctx context.Context, line string, interrupts <-chan os.Signal) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, ":") {
		return r.exchange(ctx, interrupts, func(ctx context.Context) error {
			return r.chat.Send(ctx, line)
		})
	}

	cmd, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "q", "quit", "exit":
		return errQuit
	case "h", "help":
		r.view.Notice(replHelp)
		return nil
	case "new":
		return r.chat.NewConversation(ctx)
	case "list", "ls":
		return r.list(ctx)
	case "open":
		return r.open(ctx, arg)
	case "retry":
		err := r.exchange(ctx, interrupts, r.chat.RetryLast)
		if errors.Is(err, chat.ErrNothingToRetry) {
			r.view.Notice("Không có tin nhắn nào cần gửi lại.")
			return nil
		}
		return err
	case "continue", "c":
		return r.exchange(ctx, interrupts, r.chat.Continue)
	case "stop":
		r.chat.Stop()
		return nil
	case "say":
		text := arg
		if n, err := strconv.Atoi(arg); err == nil {
			s, ok := r.view.Speakable(n)
			if !ok {
				return fmt.Errorf("no speakable [%d] in the last reply", n)
			}
			text = s
		}
		if text == "" {
			return errors.New("usage: :say N|TEXT")
		}
		return r.speech(ctx, interrupts, func(ctx context.Context) error { return r.chat.Speak(ctx, text) })
	case "play":
		content := r.chat.LastReply().Content
		if content == "" {
			return errors.New("nothing to play yet")
		}
		return r.speech(ctx, interrupts, func(ctx context.Context) error { return r.chat.PlayMessage(ctx, content) })
	case "a":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return errors.New("usage: :a N")
		}
		prompt, ok := r.view.Action(n)
		if !ok {
			return fmt.Errorf("no suggested prompt %d", n)
		}
		return r.exchange(ctx, interrupts, func(ctx context.Context) error {
			return r.chat.Send(ctx, prompt)
		})
	case "copy":
		return r.copy(arg)
	case "paste":
		text, err := r.clip.ReadText()
		if err != nil {
			return err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return errors.New("clipboard is empty")
		}
		return r.exchange(ctx, interrupts, func(ctx context.Context) error {
			return r.chat.Send(ctx, text)
		})
	case "stats":
		r.view.Notice(r.stats.Render())
		return nil
	}
	return fmt.Errorf("unknown command :%s (try :help)", cmd)
}

// interruptible runs fn, calling stop for every interrupt that arrives
// before fn returns.
func (r *REPL) interruptible(ctx context.Context, interrupts <-chan os.Signal, stop func(), fn func(context.Context) error) error {
	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()
	for {
		select {
		case err := <-done:
			return err
		case <-interrupts:
			stop()
		}
	}
}

// exchange runs one request for a reply and counts it in the session
// stats once it finished.
func (r *REPL) exchange(ctx context.Context, interrupts <-chan os.Signal, fn func(context.Context) error) error {
	start := time.Now()
	err := r.interruptible(ctx, interrupts, r.chat.Stop, fn)
	if err == nil {
		r.stats.AddTurn(r.chat.LastReply(), time.Since(start))
	}
	return err
}

// speech runs a playback that an interrupt cancels.
func (r *REPL) speech(ctx context.Context, interrupts <-chan os.Signal, fn func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	err := r.interruptible(ctx, interrupts, cancel, fn)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (r *REPL) copy(arg string) error {
	var text string
	if arg == "" {
		var all []string
		for n := 1; ; n++ {
			s, ok := r.view.Speakable(n)
			if !ok {
				break
			}
			all = append(all, s)
		}
		if len(all) == 0 {
			return errors.New("nothing to copy yet")
		}
		text = strings.Join(all, "\n")
	} else {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return errors.New("usage: :copy [N]")
		}
		s, ok := r.view.Speakable(n)
		if !ok {
			return fmt.Errorf("no speakable [%d] in the last reply", n)
		}
		text = s
	}
	if err := r.clip.CopyText(text); err != nil {
		return err
	}
	r.view.Notice(SuccessIcon + " copied")
	return nil
}

func (r *REPL) list(ctx context.Context) error {
	list, err := r.chat.Conversations(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		r.view.Notice("Chưa có cuộc trò chuyện nào.")
		return nil
	}
	current := r.view.Conversation()
	var b strings.Builder
	for i, c := range list {
		mark := " "
		if c.ID == current {
			mark = "*"
		}
		title := c.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(&b, "%s %2d. %s  %s", mark, i+1, Truncate(title, 48), c.ID)
		if c.TotalTokens > 0 {
			fmt.Fprintf(&b, "  %s tokens", markup.FormatTokens(c.TotalTokens))
		}
		if i < len(list)-1 {
			b.WriteString("\n")
		}
	}
	r.view.Notice(b.String())
	return nil
}

func (r *REPL) open(ctx context.Context, arg string) error {
	if arg == "" {
		return errors.New("usage: :open N|ID")
	}
	id := arg
	if n, err := strconv.Atoi(arg); err == nil {
		list := r.view.Conversations()
		if n < 1 || n > len(list) {
			return fmt.Errorf("no conversation %d; run :list first", n)
		}
		id = list[n-1].ID
	}
	return r.chat.SwitchConversation(ctx, id)
}
