package chat

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/samsaffron/term-tutor/internal/api"
	"github.com/samsaffron/term-tutor/internal/history"
	"github.com/samsaffron/term-tutor/internal/markup"
	"github.com/samsaffron/term-tutor/internal/speech"
)

// Backend is the part of the tutoring server the chat needs.
// *api.Client implements it.
type Backend interface {
	StreamChat(ctx context.Context, req api.ChatRequest) (io.ReadCloser, error)
	Finalize(ctx context.Context, messageID int, status api.Status) (*api.FinalizeResult, error)
	Conversations(ctx context.Context) ([]api.Conversation, error)
	Conversation(ctx context.Context, id string) (*api.Conversation, error)
	CreateConversation(ctx context.Context) (*api.Conversation, error)
	SynthesizeSegment(ctx context.Context, text, lang string) ([]byte, error)
	SynthesizePassage(ctx context.Context, text, lang string, speed float64) ([]byte, error)
}

// AppOptions tune NewApp. Zero values select the defaults.
type AppOptions struct {
	AutoPlay       bool
	Speed          float64
	LookAhead      int
	StreamPrefetch int
	WaitTimeout    time.Duration
	MemoSize       int
	Archive        history.Store
	Logger         *zap.Logger
}

// App holds the process-wide state shared by every turn: the speech cache,
// the prefetcher and player built on it, and the render memo.
type App struct {
	Backend  Backend
	Cache    *speech.Cache
	Prefetch *speech.Prefetcher
	Player   *speech.Player
	Memo     *markup.Memo
	Archive  history.Store
	Log      *zap.Logger

	AutoPlay bool
	Speed    float64
}

// NewApp wires the shared state around backend. Audio goes to sink.
func NewApp(backend Backend, sink speech.Sink, opts AppOptions) *App {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	archive := opts.Archive
	if archive == nil {
		archive = &history.NoopStore{}
	}
	if opts.Speed <= 0 {
		opts.Speed = 1.0
	}

	a := &App{
		Backend:  backend,
		Cache:    speech.NewCache(),
		Memo:     markup.NewMemo(opts.MemoSize),
		Archive:  archive,
		Log:      log,
		AutoPlay: opts.AutoPlay,
		Speed:    opts.Speed,
	}
	segments := a.SegmentSynth()
	a.Prefetch = speech.NewPrefetcher(a.Cache, segments, opts.StreamPrefetch, log.Named("prefetch"))
	a.Player = speech.NewPlayer(a.Cache, a.Prefetch, segments, sink, speech.PlayerConfig{
		LookAhead:   opts.LookAhead,
		WaitTimeout: opts.WaitTimeout,
	}, log.Named("player"))
	return a
}

// SegmentSynth synthesizes short utterances through the segment endpoint.
func (a *App) SegmentSynth() speech.Synthesizer {
	return speech.SynthesizerFunc(func(ctx context.Context, u speech.Utterance) ([]byte, error) {
		return a.Backend.SynthesizeSegment(ctx, u.Text, string(u.Lang))
	})
}

// PassageSynth synthesizes a whole passage at the configured speed.
func (a *App) PassageSynth() speech.Synthesizer {
	return speech.SynthesizerFunc(func(ctx context.Context, u speech.Utterance) ([]byte, error) {
		return a.Backend.SynthesizePassage(ctx, u.Text, string(u.Lang), a.Speed)
	})
}

// ClearSpeech stops playback and drops every cached clip.
func (a *App) ClearSpeech() {
	a.Player.Stop()
	a.Cache.Clear()
	a.Prefetch.Reset()
}

// Reset clears speech and forgets memoized renders.
func (a *App) Reset() {
	a.ClearSpeech()
	a.Memo.Purge()
}

// Render draws m as HTML.
func (a *App) Render(m Message) string {
	return markup.RenderMessage(m.View(), a.Memo)
}
