package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/samsaffron/term-tutor/internal/api"
	"github.com/samsaffron/term-tutor/internal/chat"
	"github.com/samsaffron/term-tutor/internal/config"
	"github.com/samsaffron/term-tutor/internal/history"
	"github.com/samsaffron/term-tutor/internal/markup"
	"github.com/samsaffron/term-tutor/internal/ui"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse the local transcript",
	Long: `Browse and search messages recorded on this machine. Works offline.

Examples:
  term-tutor history                  # recent conversations
  term-tutor history search "train station"
  term-tutor history show <conversation-id>`,
	RunE: runHistoryList,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent conversations",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over recorded messages",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHistorySearch,
}

var historyShowCmd = &cobra.Command{
	Use:               "show <conversation-id>",
	Short:             "Print the transcript of a conversation",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: ConversationArgCompletion,
	RunE:              runHistoryShow,
}

var (
	historyLimit int
	historyRaw   bool
)

func init() {
	for _, c := range []*cobra.Command{historyCmd, historyListCmd, historySearchCmd, historyShowCmd} {
		AddLimitFlag(c, &historyLimit, 20)
	}
	historyShowCmd.Flags().BoolVar(&historyRaw, "raw", false, "Print the tagged text as stored")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historySearchCmd)
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}

// openLocalHistory opens the transcript for reading; unlike openHistory it
// fails loudly since there is nothing else to show.
func openLocalHistory(cmd *cobra.Command) (*config.Config, history.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.History.Enabled {
		return nil, nil, errors.New("local history is disabled (history.enabled: false)")
	}
	store, err := history.NewStore(cfg.History)
	if err != nil {
		return nil, nil, fmt.Errorf("open history: %w", err)
	}
	return cfg, store, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	_, store, err := openLocalHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.Conversations(context.Background(), historyLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No local history yet.")
		return nil
	}
	s := ui.DefaultStyles()
	now := time.Now()
	for _, c := range list {
		fmt.Fprintf(out, "%s  %s\n", s.Bold.Render(c.ConversationID), s.Muted.Render(formatRelativeTime(c.UpdatedAt, now)))
		first := strings.Join(strings.Fields(c.FirstMessage), " ")
		if first == "" {
			first = "(no messages from you)"
		}
		fmt.Fprintf(out, "  %s\n", ui.Truncate(first, 72))
		fmt.Fprintf(out, "  %s\n", s.Muted.Render(fmt.Sprintf("%d messages, %s tokens", c.MessageCount, markup.FormatTokens(c.TotalTokens))))
	}
	return nil
}

func runHistorySearch(cmd *cobra.Command, args []string) error {
	_, store, err := openLocalHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	query := joinArgs(args)
	results, err := store.Search(context.Background(), query, historyLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintf(out, "No messages match %q.\n", query)
		return nil
	}
	s := ui.DefaultStyles()
	for _, r := range results {
		snippet := highlightSnippet(s, strings.Join(strings.Fields(r.Snippet), " "))
		fmt.Fprintf(out, "%s %s %s\n  %s\n",
			s.Muted.Render(r.CreatedAt.Local().Format("2006-01-02 15:04")),
			s.Role.Render(r.Role),
			s.Muted.Render(r.ConversationID),
			snippet)
	}
	return nil
}

// highlightSnippet styles the **match** markers inserted by the FTS
// snippet function.
func highlightSnippet(s *ui.Styles, snippet string) string {
	parts := strings.Split(snippet, "**")
	var b strings.Builder
	for i, p := range parts {
		if i%2 == 1 {
			b.WriteString(s.Highlighted.Render(p))
		} else {
			b.WriteString(p)
		}
	}
	return b.String()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	cfg, store, err := openLocalHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Transcript(context.Background(), args[0], historyLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintf(out, "No local messages for %s.\n", args[0])
		return nil
	}
	if historyRaw {
		for _, e := range entries {
			fmt.Fprintf(out, "[%s] %s\n\n", e.Role, e.Content)
		}
		return nil
	}

	width := cfg.Render.Width
	if width <= 0 {
		width = ui.TerminalWidth(out, 80)
	}
	conv := ui.NewConverter(ui.DefaultStyles(), width)
	for _, e := range entries {
		m := chat.Message{
			ID:      e.ServerID,
			Role:    api.Role(e.Role),
			Content: e.Content,
			Status:  api.Status(e.Status),
		}
		if e.TotalTokens > 0 {
			m.Tokens = &api.TokenUsage{TotalTokens: e.TotalTokens}
		}
		fmt.Fprintln(out, conv.Convert(markup.RenderMessage(m.View(), nil)).Text)
		fmt.Fprintln(out)
	}
	return nil
}
