package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/samsaffron/term-tutor/internal/api"
	"github.com/samsaffron/term-tutor/internal/history"
	"github.com/samsaffron/term-tutor/internal/markup"
	"github.com/samsaffron/term-tutor/internal/speech"
)

var (
	ErrBusy           = errors.New("chat: a reply is still in progress")
	ErrEmptyMessage   = errors.New("chat: message is empty")
	ErrNothingToRetry = errors.New("chat: no interrupted message to retry")
)

const finalizeTimeout = 10 * time.Second

// View displays the transcript. Implementations receive rendered HTML.
type View interface {
	SetLocked(locked bool)
	Clear()
	ShowMessage(m Message, html string)
	// ShowStreaming replaces the body of the in-flight reply.
	ShowStreaming(html string)
	RemoveStreaming()
	ResumeMessage(id int)
	MarkUnanswered(localID string)
	ConversationChanged(id string)
	ConversationsChanged(list []api.Conversation)
}

// Coordinator drives chat turns: it feeds events to Transition and carries
// out the intents it returns.
type Coordinator struct {
	app  *App
	view View
	log  *zap.Logger

	mu      sync.Mutex
	turn    Turn
	cancel  context.CancelFunc
	stream  *markup.Stream
	pending *Message // optimistic user message not yet archived
	last    Message  // latest assistant message shown
}

// NewCoordinator creates a coordinator outside any conversation.
func NewCoordinator(app *App, view View) *Coordinator {
	return &Coordinator{app: app, view: view, log: app.Log.Named("chat")}
}

// State returns the state of the current turn.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turn.State
}

// ConversationID returns the active conversation, "" before the first send
// of a new conversation.
func (c *Coordinator) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turn.ConversationID
}

// LastReply returns the most recent assistant message shown.
func (c *Coordinator) LastReply() Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Send submits text as a new user message and blocks until the turn is
// over, including auto-play. Failures are shown in the view.
func (c *Coordinator) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	return c.submit(ctx, Submit{Text: text, LocalID: uuid.NewString(), AutoPlay: c.app.AutoPlay})
}

// Retry re-sends the stored user message id.
func (c *Coordinator) Retry(ctx context.Context, id int, text string) error {
	return c.submit(ctx, Submit{Text: text, RetryID: id, AutoPlay: c.app.AutoPlay})
}

// RetryLast re-sends the latest user message of the conversation if it was
// left without a complete reply.
func (c *Coordinator) RetryLast(ctx context.Context) error {
	convID := c.ConversationID()
	if convID == "" {
		return ErrNothingToRetry
	}
	conv, err := c.app.Backend.Conversation(ctx, convID)
	if err != nil {
		return err
	}
	m, ok := retryTarget(conv.Messages)
	if !ok {
		return ErrNothingToRetry
	}
	return c.Retry(ctx, m.ID, m.Content)
}

// retryTarget finds the last user message whose reply is missing or was
// interrupted.
func retryTarget(msgs []api.Message) (api.Message, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.Role != api.RoleUser {
			continue
		}
		if m.Status == api.StatusCancelled || m.Status == api.StatusPending {
			return m, true
		}
		for _, after := range msgs[i+1:] {
			if after.Status == api.StatusCancelled || after.Status == api.StatusPending {
				return m, true
			}
		}
		return api.Message{}, false
	}
	return api.Message{}, false
}

// Continue asks the tutor to carry on after an interrupted reply.
func (c *Coordinator) Continue(ctx context.Context) error {
	return c.Send(ctx, ContinuePrompt)
}

// Stop aborts the stream in progress, or the auto-play of a finished reply.
func (c *Coordinator) Stop() {
	c.dispatch(context.Background(), StopRequested{})
}

// SwitchConversation loads a stored conversation and shows its messages,
// or the greeting when it has none.
func (c *Coordinator) SwitchConversation(ctx context.Context, id string) error {
	if c.State().Processing() {
		return ErrBusy
	}
	conv, err := c.app.Backend.Conversation(ctx, id)
	if err != nil {
		return err
	}
	if err := c.switchTo(ctx, conv.ID); err != nil {
		return err
	}
	if len(conv.Messages) == 0 {
		c.showGreeting()
		return nil
	}
	for _, m := range conv.Messages {
		c.show(FromAPI(m))
	}
	return nil
}

// NewConversation creates an empty conversation and switches to it.
func (c *Coordinator) NewConversation(ctx context.Context) error {
	if c.State().Processing() {
		return ErrBusy
	}
	conv, err := c.app.Backend.CreateConversation(ctx)
	if err != nil {
		return err
	}
	if err := c.switchTo(ctx, conv.ID); err != nil {
		return err
	}
	c.showGreeting()
	c.refreshList(ctx)
	return nil
}

// Speak plays a single English phrase, stopping any playback.
func (c *Coordinator) Speak(ctx context.Context, text string) error {
	return c.app.Player.Say(ctx, speech.Utterance{Text: text, Lang: speech.LangEn}, c.app.PassageSynth())
}

// PlayMessage reads content aloud segment by segment.
func (c *Coordinator) PlayMessage(ctx context.Context, content string) error {
	return c.app.Player.Play(ctx, speech.SplitByLanguage(content))
}

func (c *Coordinator) submit(ctx context.Context, ev Submit) error {
	c.mu.Lock()
	if c.turn.State != Idle {
		c.mu.Unlock()
		return ErrBusy
	}
	next, intents := Transition(c.turn, ev)
	c.turn = next
	c.mu.Unlock()

	c.run(ctx, intents)
	return nil
}

func (c *Coordinator) switchTo(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.turn.State != Idle {
		c.mu.Unlock()
		return ErrBusy
	}
	next, intents := Transition(c.turn, Switched{ConversationID: id})
	c.turn = next
	c.last = Message{}
	c.mu.Unlock()

	c.run(ctx, intents)
	return nil
}

func (c *Coordinator) dispatch(ctx context.Context, ev Event) {
	c.mu.Lock()
	next, intents := Transition(c.turn, ev)
	c.turn = next
	c.mu.Unlock()

	c.run(ctx, intents)
}

// run executes intents in order. An intent may answer with an event, which
// is dispatched before the next intent runs.
func (c *Coordinator) run(ctx context.Context, intents []Intent) {
	for _, in := range intents {
		if ev := c.execute(ctx, in); ev != nil {
			c.dispatch(ctx, ev)
		}
	}
}

func (c *Coordinator) execute(ctx context.Context, in Intent) Event {
	switch in := in.(type) {
	case LockInput:
		c.view.SetLocked(true)
	case UnlockInput:
		c.view.SetLocked(false)
	case ClearSpeech:
		c.app.ClearSpeech()
	case ShowUser:
		c.mu.Lock()
		m := in.Message
		c.pending = &m
		c.mu.Unlock()
		c.view.ShowMessage(m, c.app.Render(m))
	case ResumeUser:
		c.view.ResumeMessage(in.MessageID)
	case BeginStream:
		c.mu.Lock()
		c.stream = markup.NewStream()
		c.mu.Unlock()
		c.view.ShowStreaming(markup.StreamingCursor)
	case OpenStream:
		return c.openStream(ctx, in.Request)
	case RenderStream:
		c.mu.Lock()
		html := c.stream.Render(in.Buffer)
		c.mu.Unlock()
		c.view.ShowStreaming(html + markup.StreamingCursor)
	case Prefetch:
		c.app.Prefetch.OnChunk(ctx, in.Buffer)
	case PrefetchFinal:
		c.app.Prefetch.OnDone(ctx, in.Buffer)
	case BindConversation:
		c.bind(ctx, in.ConversationID)
	case AbortStream:
		c.mu.Lock()
		cancel := c.cancel
		c.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	case StopPlayback:
		c.app.Player.Stop()
	case RemoveStream:
		c.mu.Lock()
		c.stream = nil
		c.mu.Unlock()
		c.view.RemoveStreaming()
	case ShowMessage:
		c.archivePending(ctx, api.StatusCompleted)
		c.show(in.Message)
		c.archive(ctx, in.Message)
	case MarkUnanswered:
		c.view.MarkUnanswered(in.LocalID)
		c.archivePending(ctx, api.StatusCancelled)
	case FinalizeCancelled:
		return c.finalize(ctx, in.MessageID)
	case ShowError:
		c.archivePending(ctx, api.StatusCompleted)
		m := Message{Role: api.RoleAssistant, Content: in.Text, Status: api.StatusCompleted}
		c.view.ShowMessage(m, c.app.Render(m))
	case RefreshList:
		c.refreshList(ctx)
	case ResetTranscript:
		c.mu.Lock()
		c.pending = nil
		c.mu.Unlock()
		c.view.Clear()
	case AutoPlay:
		if err := c.PlayMessage(ctx, in.Content); err != nil && !errors.Is(err, context.Canceled) {
			c.log.Warn("auto-play failed", zap.Error(err))
		}
		return Settled{}
	case Settle:
		return Settled{}
	}
	return nil
}

// openStream runs the chat stream to its end. Non-final frames are
// dispatched as they arrive; the event that ends the stream is returned.
func (c *Coordinator) openStream(ctx context.Context, req api.ChatRequest) Event {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	c.cancel = cancel
	stopping := c.turn.stopping
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.cancel = nil
		c.mu.Unlock()
	}()
	if stopping {
		cancel()
	}

	body, err := c.app.Backend.StreamChat(streamCtx, req)
	if err != nil {
		if streamCtx.Err() != nil {
			return Aborted{}
		}
		return Failed{Err: err}
	}
	defer body.Close()
	c.dispatch(ctx, Opened{})

	frames := NewFrameReader(body, c.log)
	for {
		f, err := frames.Next()
		switch {
		case streamCtx.Err() != nil:
			return Aborted{}
		case errors.Is(err, io.EOF):
			return Closed{}
		case err != nil:
			return Failed{Err: err}
		}

		switch f.Type {
		case FrameInit:
			c.dispatch(ctx, InitReceived{ConversationID: f.ConversationID, AssistantID: f.AssistantMessageID})
		case FrameChunk:
			c.dispatch(ctx, ChunkReceived{Content: f.Content})
		case FrameDone:
			c.dispatch(ctx, DoneReceived{
				ConversationID: f.ConversationID,
				UserID:         f.MessageID,
				AssistantID:    f.AssistantMessageID,
				Tokens:         f.Tokens,
			})
		case FrameError:
			return Failed{Err: &api.Error{Message: f.Error}}
		}
	}
}

// finalize closes out an interrupted reply. It runs even when ctx was
// cancelled so the server does not keep the message pending.
func (c *Coordinator) finalize(ctx context.Context, id int) Event {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	res, err := c.app.Backend.Finalize(fctx, id, api.StatusCancelled)
	if err != nil {
		c.log.Warn("finalize failed", zap.Int("message_id", id), zap.Error(err))
		return Finalized{}
	}
	return Finalized{Tokens: res.Message.Tokens}
}

func (c *Coordinator) bind(ctx context.Context, id string) {
	c.view.ConversationChanged(id)
	var err error
	if id == "" {
		err = c.app.Archive.ClearCurrent(ctx)
	} else {
		err = c.app.Archive.SetCurrent(ctx, id)
	}
	if err != nil {
		c.log.Debug("remember conversation", zap.String("id", id), zap.Error(err))
	}
}

func (c *Coordinator) show(m Message) {
	if m.Role == api.RoleAssistant {
		c.mu.Lock()
		c.last = m
		c.mu.Unlock()
	}
	c.view.ShowMessage(m, c.app.Render(m))
}

func (c *Coordinator) showGreeting() {
	c.show(Message{Role: api.RoleAssistant, Content: Greeting, Status: api.StatusCompleted})
}

func (c *Coordinator) refreshList(ctx context.Context) {
	if _, err := c.Conversations(ctx); err != nil {
		c.log.Warn("refresh conversations", zap.Error(err))
	}
}

// Conversations fetches the conversation list and passes it to the view.
func (c *Coordinator) Conversations(ctx context.Context) ([]api.Conversation, error) {
	list, err := c.app.Backend.Conversations(ctx)
	if err != nil {
		return nil, err
	}
	c.view.ConversationsChanged(list)
	return list, nil
}

// archivePending stores the optimistic user message of the turn once its
// outcome is known.
func (c *Coordinator) archivePending(ctx context.Context, status api.Status) {
	c.mu.Lock()
	m := c.pending
	c.pending = nil
	if m != nil {
		m.ID = c.turn.UserID
		m.Status = status
	}
	c.mu.Unlock()
	if m != nil {
		c.archive(ctx, *m)
	}
}

func (c *Coordinator) archive(ctx context.Context, m Message) {
	convID := c.ConversationID()
	if convID == "" {
		return
	}
	e := &history.Entry{
		ConversationID: convID,
		ServerID:       m.ID,
		Role:           string(m.Role),
		Content:        m.Content,
		Status:         string(m.Status),
	}
	if m.Tokens != nil {
		e.TotalTokens = m.Tokens.TotalTokens
	}
	if err := c.app.Archive.Append(ctx, e); err != nil {
		c.log.Debug("archive message", zap.Error(err))
	}
}
