package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/samsaffron/term-tutor/internal/api"
	"github.com/samsaffron/term-tutor/internal/chat"
	"github.com/samsaffron/term-tutor/internal/config"
	"github.com/samsaffron/term-tutor/internal/history"
	"github.com/samsaffron/term-tutor/internal/signal"
	"github.com/samsaffron/term-tutor/internal/ui"
)

var (
	chatConversation string
	chatNew          bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the tutor",
	Long: `Start an interactive lesson. Without flags the conversation used last
is resumed, or the most recent one on the server.

Type a message and press Enter. Commands start with ':' (:help lists them).
Ctrl+C stops a reply or playback in progress; on an empty prompt it exits.

Examples:
  term-tutor chat
  term-tutor chat --new
  term-tutor chat -c 3f2a9c
  term-tutor chat --auto-play`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	AddConversationFlag(chatCmd, &chatConversation)
	chatCmd.Flags().BoolVar(&chatNew, "new", false, "Start a new conversation")
	rootCmd.AddCommand(chatCmd)
}

const preflightTimeout = 5 * time.Second

func runChat(cmd *cobra.Command, args []string) error {
	cfg, client, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := context.Background()
	if err := preflight(ctx, client); err != nil {
		return err
	}

	archive := openHistory(cfg)
	defer archive.Close()

	app := chat.NewApp(client, newSink(cfg), chat.AppOptions{
		AutoPlay:       cfg.Speech.AutoPlay && !cfg.Speech.Disabled,
		Speed:          cfg.Speech.Speed,
		LookAhead:      cfg.Speech.LookAhead,
		StreamPrefetch: cfg.Speech.StreamPrefetch,
		WaitTimeout:    cfg.Speech.WaitTimeout,
		MemoSize:       cfg.Render.MemoSize,
		Archive:        archive,
		Logger:         log,
	})
	defer app.Player.Stop()

	out := os.Stdout
	view := newTerminalView(out, cfg)
	coord := chat.NewCoordinator(app, view)

	if err := openConversation(ctx, coord, archive); err != nil {
		return explain(err)
	}
	view.Notice(fmt.Sprintf("term-tutor %s · %s · :help for commands", Version, client.BaseURL()))

	interrupts, stop := signal.Interrupts()
	defer stop()
	return ui.NewREPL(coord, view, os.Stdin, out).Run(ctx, interrupts)
}

func newTerminalView(out *os.File, cfg *config.Config) *ui.View {
	width := func() int {
		if cfg.Render.Width > 0 {
			return cfg.Render.Width
		}
		return ui.TerminalWidth(out, 80)
	}
	return ui.NewView(out, ui.NewStyles(out), ui.IsTerminal(out), width)
}

func preflight(ctx context.Context, client *api.Client) error {
	ctx, cancel := context.WithTimeout(ctx, preflightTimeout)
	defer cancel()
	if _, err := client.Health(ctx); err != nil {
		return fmt.Errorf("server %s is not reachable: %w", client.BaseURL(), err)
	}
	return nil
}

// conversationOpener is the part of the coordinator used to pick the
// conversation a chat starts in.
type conversationOpener interface {
	NewConversation(ctx context.Context) error
	SwitchConversation(ctx context.Context, id string) error
	Conversations(ctx context.Context) ([]api.Conversation, error)
}

// openConversation honours --new and --conversation, then falls back to the
// conversation used last, the most recent one, or a new one.
func openConversation(ctx context.Context, c conversationOpener, archive history.Store) error {
	switch {
	case chatNew:
		return c.NewConversation(ctx)
	case chatConversation != "":
		return c.SwitchConversation(ctx, chatConversation)
	}

	if id, err := archive.Current(ctx); err == nil && id != "" {
		err := c.SwitchConversation(ctx, id)
		if err == nil || !errors.Is(err, api.ErrNotFound) {
			return err
		}
	}
	list, err := c.Conversations(ctx)
	if err != nil {
		return err
	}
	if len(list) > 0 {
		return c.SwitchConversation(ctx, list[0].ID)
	}
	return c.NewConversation(ctx)
}

// readInput joins args, or reads stdin when there are none.
func readInput(args []string, in io.Reader) (string, error) {
	if len(args) > 0 {
		return joinArgs(args), nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}
