package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
)

// AddConversationFlag adds the --conversation/-c flag with completion
func AddConversationFlag(cmd *cobra.Command, dest *string) {
	cmd.Flags().StringVarP(dest, "conversation", "c", "", "Conversation id")
	if err := cmd.RegisterFlagCompletionFunc("conversation", ConversationArgCompletion); err != nil {
		panic("failed to register conversation completion: " + err.Error())
	}
}

// AddLimitFlag adds the --limit/-n flag
func AddLimitFlag(cmd *cobra.Command, dest *int, def int) {
	cmd.Flags().IntVarP(dest, "limit", "n", def, "Maximum number of entries to show")
}

// AddJSONFlag adds the --json flag
func AddJSONFlag(cmd *cobra.Command, dest *bool) {
	cmd.Flags().BoolVar(dest, "json", false, "Output as JSON")
}

// parseID parses a numeric id argument.
func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, &usageError{"invalid id " + strconv.Quote(arg)}
	}
	return id, nil
}

type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func joinArgs(args []string) string {
	return strings.Join(args, " ")
}

// printJSON writes v as indented JSON.
func printJSON(out io.Writer, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
