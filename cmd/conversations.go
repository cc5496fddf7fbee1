package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/samsaffron/term-tutor/internal/api"
	"github.com/samsaffron/term-tutor/internal/markup"
	"github.com/samsaffron/term-tutor/internal/ui"
)

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"conv"},
	Short:   "Manage conversations on the server",
	Long: `List, open, rename, delete and restore conversations.

Examples:
  term-tutor conversations                 # list
  term-tutor conversations open            # pick one and chat
  term-tutor conversations rename <id> "Ordering food"
  term-tutor conversations delete <id>
  term-tutor conversations restore <id>    # within 15 seconds of deleting`,
	RunE: runConversationsList,
}

var conversationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations",
	Args:  cobra.NoArgs,
	RunE:  runConversationsList,
}

var conversationsOpenCmd = &cobra.Command{
	Use:               "open [id]",
	Short:             "Chat in a conversation, picking it interactively without an id",
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: ConversationArgCompletion,
	RunE:              runConversationsOpen,
}

var conversationsRenameCmd = &cobra.Command{
	Use:               "rename <id> <title...>",
	Short:             "Rename a conversation",
	Args:              cobra.MinimumNArgs(2),
	ValidArgsFunction: ConversationArgCompletion,
	RunE:              runConversationsRename,
}

var conversationsDeleteCmd = &cobra.Command{
	Use:               "delete <id>",
	Short:             "Delete a conversation",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: ConversationArgCompletion,
	RunE:              runConversationsDelete,
}

var conversationsRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Restore a conversation deleted moments ago",
	Args:  cobra.ExactArgs(1),
	RunE:  runConversationsRestore,
}

var conversationsJSON bool

func init() {
	AddJSONFlag(conversationsListCmd, &conversationsJSON)

	conversationsCmd.AddCommand(conversationsListCmd)
	conversationsCmd.AddCommand(conversationsOpenCmd)
	conversationsCmd.AddCommand(conversationsRenameCmd)
	conversationsCmd.AddCommand(conversationsDeleteCmd)
	conversationsCmd.AddCommand(conversationsRestoreCmd)
	rootCmd.AddCommand(conversationsCmd)
}

func runConversationsList(cmd *cobra.Command, args []string) error {
	_, client, _, err := setup(cmd)
	if err != nil {
		return err
	}
	list, err := client.Conversations(context.Background())
	if err != nil {
		return explain(err)
	}
	out := cmd.OutOrStdout()
	if conversationsJSON {
		return printJSON(out, list)
	}
	if len(list) == 0 {
		fmt.Fprintln(out, "No conversations yet. Start one with 'term-tutor chat --new'.")
		return nil
	}
	printConversations(out, list, time.Now())
	return nil
}

func printConversations(out io.Writer, list []api.Conversation, now time.Time) {
	fmt.Fprintf(out, "%-36s %-32s %10s  %s\n", "ID", "TITLE", "TOKENS", "UPDATED")
	fmt.Fprintln(out, strings.Repeat("-", 96))
	for _, c := range list {
		title := c.Title
		if title == "" {
			title = "(untitled)"
		}
		tokens := "-"
		if c.TotalTokens > 0 {
			tokens = markup.FormatTokens(c.TotalTokens)
		}
		fmt.Fprintf(out, "%-36s %-32s %10s  %s\n", c.ID, ui.Truncate(title, 32), tokens, formatRelativeTime(c.UpdatedAt.Time, now))
	}
}

// formatRelativeTime formats a time as "5m ago", "2h ago", "3d ago", or a date.
func formatRelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
	return t.Local().Format("2006-01-02")
}

func runConversationsOpen(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		chatConversation = args[0]
		return runChat(cmd, nil)
	}
	_, client, _, err := setup(cmd)
	if err != nil {
		return err
	}
	list, err := client.Conversations(context.Background())
	if err != nil {
		return explain(err)
	}
	if len(list) == 0 {
		return errors.New("no conversations yet; start one with 'term-tutor chat --new'")
	}

	options := make([]huh.Option[string], 0, len(list))
	for _, c := range list {
		title := c.Title
		if title == "" {
			title = "(untitled)"
		}
		options = append(options, huh.NewOption(ui.Truncate(title, 48)+"  "+formatRelativeTime(c.UpdatedAt.Time, time.Now()), c.ID))
	}
	var selected string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Open a conversation").
				Options(options...).
				Value(&selected),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		return err
	}
	chatConversation = selected
	return runChat(cmd, nil)
}

func runConversationsRename(cmd *cobra.Command, args []string) error {
	_, client, _, err := setup(cmd)
	if err != nil {
		return err
	}
	title := strings.TrimSpace(joinArgs(args[1:]))
	if title == "" {
		return errors.New("title is empty")
	}
	conv, err := client.RenameConversation(context.Background(), args[0], title)
	if err != nil {
		return explain(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.DefaultStyles().FormatResult(true, fmt.Sprintf("Renamed %s to %q", conv.ID, conv.Title)))
	return nil
}

func runConversationsDelete(cmd *cobra.Command, args []string) error {
	_, client, _, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := client.DeleteConversation(context.Background(), args[0]); err != nil {
		return explain(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.DefaultStyles().FormatResult(true,
		fmt.Sprintf("Deleted %s (undo within 15s: term-tutor conversations restore %s)", args[0], args[0])))
	return nil
}

func runConversationsRestore(cmd *cobra.Command, args []string) error {
	_, client, _, err := setup(cmd)
	if err != nil {
		return err
	}
	conv, err := client.RestoreConversation(context.Background(), args[0])
	if err != nil {
		return explain(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.DefaultStyles().FormatResult(true, "Restored "+conv.ID))
	return nil
}
