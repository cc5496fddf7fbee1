package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/samsaffron/term-tutor/internal/api"
	"github.com/samsaffron/term-tutor/internal/ui"
	"github.com/samsaffron/term-tutor/internal/vocab"
)

var vocabCmd = &cobra.Command{
	Use:     "vocab",
	Aliases: []string{"words"},
	Short:   "Manage your saved vocabulary",
	Long: `List, add, edit and remove saved words.

Examples:
  term-tutor vocab                          # list
  term-tutor vocab add "look forward to" "mong chờ"
  term-tutor vocab search brea
  term-tutor vocab edit 12 --note "nghỉ giải lao"
  term-tutor vocab rm 12`,
	RunE: runVocabList,
}

var vocabListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved words",
	Args:  cobra.NoArgs,
	RunE:  runVocabList,
}

var vocabSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Fuzzy-search saved words and notes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vocabFilter = joinArgs(args)
		return runVocabList(cmd, nil)
	},
}

var vocabAddCmd = &cobra.Command{
	Use:   "add <word> [note...]",
	Short: "Save a word",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runVocabAdd,
}

var vocabEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change the word or note of an entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runVocabEdit,
}

var vocabRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Remove an entry",
	Args:    cobra.ExactArgs(1),
	RunE:    runVocabRm,
}

var (
	vocabFilter string
	vocabJSON   bool
	vocabLimit  int
	vocabWord   string
	vocabNote   string
)

func init() {
	for _, c := range []*cobra.Command{vocabCmd, vocabListCmd} {
		c.Flags().StringVarP(&vocabFilter, "filter", "f", "", "Fuzzy filter on word and note")
	}
	for _, c := range []*cobra.Command{vocabCmd, vocabListCmd, vocabSearchCmd} {
		AddJSONFlag(c, &vocabJSON)
		AddLimitFlag(c, &vocabLimit, 0)
	}
	vocabEditCmd.Flags().StringVar(&vocabWord, "word", "", "New word")
	vocabEditCmd.Flags().StringVar(&vocabNote, "note", "", "New note")

	vocabCmd.AddCommand(vocabListCmd)
	vocabCmd.AddCommand(vocabSearchCmd)
	vocabCmd.AddCommand(vocabAddCmd)
	vocabCmd.AddCommand(vocabEditCmd)
	vocabCmd.AddCommand(vocabRmCmd)
	rootCmd.AddCommand(vocabCmd)
}

func runVocabList(cmd *cobra.Command, args []string) error {
	_, client, _, err := setup(cmd)
	if err != nil {
		return err
	}
	entries, err := client.Vocabularies(context.Background())
	if err != nil {
		return explain(err)
	}
	entries = vocab.Filter(entries, vocabFilter)
	if vocabLimit > 0 && len(entries) > vocabLimit {
		entries = entries[:vocabLimit]
	}

	out := cmd.OutOrStdout()
	if vocabJSON {
		return printJSON(out, entries)
	}
	if len(entries) == 0 {
		if vocabFilter != "" {
			fmt.Fprintf(out, "No words match %q.\n", vocabFilter)
		} else {
			fmt.Fprintln(out, "No saved words yet. Add one with 'term-tutor vocab add <word> [note]'.")
		}
		return nil
	}
	printVocab(out, ui.DefaultStyles(), entries)
	return nil
}

func printVocab(out io.Writer, s *ui.Styles, entries []api.Vocabulary) {
	width := 4
	for _, e := range entries {
		width = max(width, len([]rune(e.Word)))
	}
	width = min(width, 32)
	for _, e := range entries {
		word := ui.Truncate(e.Word, width)
		pad := strings.Repeat(" ", width-len([]rune(word)))
		fmt.Fprintf(out, "%5d  %s%s  %s\n", e.ID, s.English.Render(word), pad, s.Vietnamese.Render(e.Note))
	}
}

func runVocabAdd(cmd *cobra.Command, args []string) error {
	_, client, _, err := setup(cmd)
	if err != nil {
		return err
	}
	word := strings.TrimSpace(args[0])
	note := strings.TrimSpace(joinArgs(args[1:]))
	if word == "" {
		return &usageError{"word is empty"}
	}

	s := ui.DefaultStyles()
	entry, err := client.AddVocabulary(context.Background(), word, note)
	if errors.Is(err, api.ErrConflict) {
		msg := fmt.Sprintf("%q is already saved", word)
		if entry != nil {
			msg = fmt.Sprintf("%q is already saved as #%d", entry.Word, entry.ID)
			if entry.Note != "" {
				msg += ": " + entry.Note
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), s.FormatResult(false, msg))
		return nil
	}
	if err != nil {
		return explain(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), s.FormatResult(true, fmt.Sprintf("Saved #%d %s", entry.ID, entry.Word)))
	return nil
}

func runVocabEdit(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	var update api.VocabularyUpdate
	if cmd.Flags().Changed("word") {
		w := strings.TrimSpace(vocabWord)
		if w == "" {
			return &usageError{"--word cannot be empty"}
		}
		update.Word = &w
	}
	if cmd.Flags().Changed("note") {
		n := strings.TrimSpace(vocabNote)
		update.Note = &n
	}
	if update.Word == nil && update.Note == nil {
		return &usageError{"nothing to change; pass --word or --note"}
	}

	_, client, _, err := setup(cmd)
	if err != nil {
		return err
	}
	entry, err := client.UpdateVocabulary(context.Background(), id, update)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return fmt.Errorf("no word #%d", id)
		}
		return explain(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.DefaultStyles().FormatResult(true, fmt.Sprintf("Updated #%d %s", entry.ID, entry.Word)))
	return nil
}

func runVocabRm(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	_, client, _, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := client.DeleteVocabulary(context.Background(), id); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return fmt.Errorf("no word #%d", id)
		}
		return explain(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.DefaultStyles().FormatResult(true, fmt.Sprintf("Removed #%d", id)))
	return nil
}
