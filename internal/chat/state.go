package chat

import (
	"errors"

	"github.com/samsaffron/term-tutor/internal/api"
)

// State is the lifecycle stage of the current chat turn.
type State int

const (
	Idle State = iota
	Sending
	Streaming
	Completed
	Cancelled
	Errored
)

func (s State) String() string {
	switch s {
	case Sending:
		return "sending"
	case Streaming:
		return "streaming"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Errored:
		return "errored"
	default:
		return "idle"
	}
}

// Processing reports whether input is locked. Every state but Idle counts:
// a completed turn stays locked while its reply is auto-played.
func (s State) Processing() bool {
	return s != Idle
}

// Turn is the state of one send or retry, plus the conversation it belongs
// to. The zero value is an idle turn outside any conversation.
type Turn struct {
	State          State
	ConversationID string

	Request     api.ChatRequest
	LocalID     string
	AssistantID int
	UserID      int
	Buffer      string
	Tokens      *api.TokenUsage
	AutoPlay    bool

	stopping bool
}

// Event is an input to Transition.
type Event interface{ event() }

// Submit starts a turn. RetryID re-sends an existing user message.
type Submit struct {
	Text     string
	LocalID  string
	RetryID  int
	AutoPlay bool
}

// Switched selects another conversation. An empty ID starts a fresh one.
type Switched struct{ ConversationID string }

// Opened means the server accepted the request and the stream is flowing.
type Opened struct{}

// InitReceived carries the ids assigned by the server.
type InitReceived struct {
	ConversationID string
	AssistantID    int
}

// ChunkReceived carries a text delta.
type ChunkReceived struct{ Content string }

// DoneReceived carries the final accounting of a reply.
type DoneReceived struct {
	ConversationID string
	UserID         int
	AssistantID    int
	Tokens         *api.TokenUsage
}

// Failed reports a transport failure, a non-OK response or an error frame.
type Failed struct{ Err error }

// StopRequested is the user pressing stop.
type StopRequested struct{}

// Aborted means the stream ended because it was cancelled.
type Aborted struct{}

// Closed means the stream reached its end normally.
type Closed struct{}

// Finalized reports the outcome of the finalize call for a cancelled reply.
// Tokens is nil when the call failed.
type Finalized struct{ Tokens *api.TokenUsage }

// Settled means nothing else is pending for the turn (auto-play finished or
// was not requested).
type Settled struct{}

func (Submit) event()        {}
func (Switched) event()      {}
func (Opened) event()        {}
func (InitReceived) event()  {}
func (ChunkReceived) event() {}
func (DoneReceived) event()  {}
func (Failed) event()        {}
func (StopRequested) event() {}
func (Aborted) event()       {}
func (Closed) event()        {}
func (Finalized) event()     {}
func (Settled) event()       {}

// Intent is a side effect requested by Transition. Intents are executed in
// order by the Coordinator.
type Intent interface{ intent() }

type (
	LockInput   struct{}
	UnlockInput struct{}
	// ClearSpeech stops playback and empties the prefetch cache.
	ClearSpeech struct{}
	// ShowUser appends the outgoing message optimistically.
	ShowUser struct{ Message Message }
	// ResumeUser drops the "no reply" marker of a retried message.
	ResumeUser struct{ MessageID int }
	// BeginStream discards any previous streaming node and render state and
	// shows an empty one.
	BeginStream struct{}
	OpenStream  struct{ Request api.ChatRequest }
	// RenderStream re-renders the whole buffer into the streaming node.
	RenderStream struct{ Buffer string }
	// Prefetch speculatively fetches audio for the closed segments.
	Prefetch      struct{ Buffer string }
	PrefetchFinal struct{ Buffer string }
	// BindConversation records the conversation the turn was stored in.
	BindConversation struct{ ConversationID string }
	AbortStream      struct{}
	StopPlayback     struct{}
	RemoveStream     struct{}
	// ShowMessage appends a finished message.
	ShowMessage struct{ Message Message }
	// MarkUnanswered flags the user message of a turn cancelled before any
	// text arrived.
	MarkUnanswered    struct{ LocalID string }
	FinalizeCancelled struct{ MessageID int }
	ShowError         struct{ Text string }
	RefreshList       struct{}
	ResetTranscript   struct{}
	AutoPlay          struct{ Content string }
	// Settle is answered with a Settled event.
	Settle struct{}
)

func (LockInput) intent()         {}
func (UnlockInput) intent()       {}
func (ClearSpeech) intent()       {}
func (ShowUser) intent()          {}
func (ResumeUser) intent()        {}
func (BeginStream) intent()       {}
func (OpenStream) intent()        {}
func (RenderStream) intent()      {}
func (Prefetch) intent()          {}
func (PrefetchFinal) intent()     {}
func (BindConversation) intent()  {}
func (AbortStream) intent()       {}
func (StopPlayback) intent()      {}
func (RemoveStream) intent()      {}
func (ShowMessage) intent()       {}
func (MarkUnanswered) intent()    {}
func (FinalizeCancelled) intent() {}
func (ShowError) intent()         {}
func (RefreshList) intent()       {}
func (ResetTranscript) intent()   {}
func (AutoPlay) intent()          {}
func (Settle) intent()            {}

// ErrorPrefix starts the assistant message shown for a failed turn.
const ErrorPrefix = "Lỗi: "

// Transition is the chat state machine. It is pure: it returns the next
// turn and the side effects to perform, and never performs them itself.
// Events that do not apply to the current state are ignored.
func Transition(t Turn, ev Event) (Turn, []Intent) {
	switch ev := ev.(type) {
	case Submit:
		if t.State != Idle {
			return t, nil
		}
		next := Turn{
			State:          Sending,
			ConversationID: t.ConversationID,
			Request: api.ChatRequest{
				Message:        ev.Text,
				ConversationID: t.ConversationID,
				RetryMessageID: ev.RetryID,
			},
			LocalID:  ev.LocalID,
			AutoPlay: ev.AutoPlay,
		}
		intents := []Intent{LockInput{}, ClearSpeech{}}
		if ev.RetryID != 0 {
			intents = append(intents, ResumeUser{MessageID: ev.RetryID})
		} else {
			intents = append(intents, ShowUser{Message: Message{
				LocalID: ev.LocalID,
				Role:    api.RoleUser,
				Content: ev.Text,
				Status:  api.StatusCompleted,
			}})
		}
		return next, append(intents, BeginStream{}, OpenStream{Request: next.Request})

	case Switched:
		if t.State != Idle {
			return t, nil
		}
		return Turn{ConversationID: ev.ConversationID}, []Intent{
			ClearSpeech{},
			BindConversation{ConversationID: ev.ConversationID},
			ResetTranscript{},
		}

	case Opened:
		if t.State == Sending {
			t.State = Streaming
		}
		return t, nil

	case InitReceived:
		if !t.live() {
			return t, nil
		}
		t.AssistantID = ev.AssistantID
		return t.bind(ev.ConversationID, nil)

	case ChunkReceived:
		if !t.live() || ev.Content == "" {
			return t, nil
		}
		t.State = Streaming
		t.Buffer += ev.Content
		return t, []Intent{RenderStream{Buffer: t.Buffer}, Prefetch{Buffer: t.Buffer}}

	case DoneReceived:
		if !t.live() {
			return t, nil
		}
		t.Tokens = ev.Tokens
		t.UserID = ev.UserID
		if ev.AssistantID != 0 {
			t.AssistantID = ev.AssistantID
		}
		return t.bind(ev.ConversationID, []Intent{PrefetchFinal{Buffer: t.Buffer}})

	case Closed:
		if !t.live() {
			return t, nil
		}
		if t.stopping {
			return Transition(t, Aborted{})
		}
		t.State = Completed
		intents := []Intent{
			RemoveStream{},
			ShowMessage{Message: t.reply(api.StatusCompleted, t.Tokens)},
			RefreshList{},
		}
		if t.AutoPlay && t.Buffer != "" {
			return t, append(intents, AutoPlay{Content: t.Buffer})
		}
		return t, append(intents, Settle{})

	case StopRequested:
		switch {
		case t.live() && !t.stopping:
			t.stopping = true
			return t, []Intent{AbortStream{}}
		case t.State == Completed:
			return t, []Intent{StopPlayback{}}
		}
		return t, nil

	case Aborted:
		if !t.live() {
			return t, nil
		}
		t.State = Cancelled
		switch {
		case t.Buffer != "" && t.AssistantID != 0:
			return t, []Intent{RemoveStream{}, FinalizeCancelled{MessageID: t.AssistantID}}
		case t.Buffer != "":
			return t, []Intent{
				RemoveStream{},
				ShowMessage{Message: t.reply(api.StatusCancelled, nil)},
				RefreshList{},
				Settle{},
			}
		}
		intents := []Intent{RemoveStream{}}
		if t.Request.RetryMessageID == 0 {
			intents = append(intents, MarkUnanswered{LocalID: t.LocalID})
		}
		return t, append(intents, RefreshList{}, Settle{})

	case Finalized:
		if t.State != Cancelled {
			return t, nil
		}
		return t, []Intent{
			ShowMessage{Message: t.reply(api.StatusCancelled, ev.Tokens)},
			RefreshList{},
			Settle{},
		}

	case Failed:
		if !t.live() {
			return t, nil
		}
		if t.stopping {
			return Transition(t, Aborted{})
		}
		t.State = Errored
		return t, []Intent{RemoveStream{}, ShowError{Text: ErrorPrefix + errorText(ev.Err)}, Settle{}}

	case Settled:
		switch t.State {
		case Completed, Cancelled, Errored:
			return Turn{ConversationID: t.ConversationID}, []Intent{UnlockInput{}}
		}
		return t, nil
	}
	return t, nil
}

// live reports whether a stream is open or being opened.
func (t Turn) live() bool {
	return t.State == Sending || t.State == Streaming
}

func (t Turn) bind(conversationID string, intents []Intent) (Turn, []Intent) {
	if conversationID != "" && conversationID != t.ConversationID {
		t.ConversationID = conversationID
		intents = append(intents, BindConversation{ConversationID: conversationID})
	}
	return t, intents
}

func (t Turn) reply(status api.Status, tokens *api.TokenUsage) Message {
	return Message{
		ID:      t.AssistantID,
		Role:    api.RoleAssistant,
		Content: t.Buffer,
		Status:  status,
		Tokens:  tokens,
	}
}

func errorText(err error) string {
	if err == nil {
		return "Lỗi server"
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
