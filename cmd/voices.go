package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/samsaffron/term-tutor/internal/api"
	"github.com/samsaffron/term-tutor/internal/ui"
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "Show or choose the text-to-speech voices",
	Long: `List the available voices per language, or choose the ones used for
Vietnamese and English.

Examples:
  term-tutor voices
  term-tutor voices set                      # interactive
  term-tutor voices set --en en-US-AriaNeural`,
	RunE: runVoicesList,
}

var voicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available voices",
	Args:  cobra.NoArgs,
	RunE:  runVoicesList,
}

var voicesSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Choose the voice per language",
	Args:  cobra.NoArgs,
	RunE:  runVoicesSet,
}

var (
	voicesVi   string
	voicesEn   string
	voicesJSON bool
)

func init() {
	AddJSONFlag(voicesCmd, &voicesJSON)
	AddJSONFlag(voicesListCmd, &voicesJSON)
	voicesSetCmd.Flags().StringVar(&voicesVi, "vi", "", "Voice id for Vietnamese")
	voicesSetCmd.Flags().StringVar(&voicesEn, "en", "", "Voice id for English")

	voicesCmd.AddCommand(voicesListCmd)
	voicesCmd.AddCommand(voicesSetCmd)
	rootCmd.AddCommand(voicesCmd)
}

var voiceLanguages = []struct{ code, name string }{
	{"vi", "Vietnamese"},
	{"en", "English"},
}

func currentVoice(prefs api.VoicePrefs, lang string) string {
	if lang == "vi" {
		return prefs.Vi
	}
	return prefs.En
}

func runVoicesList(cmd *cobra.Command, args []string) error {
	_, client, _, err := setup(cmd)
	if err != nil {
		return err
	}
	voices, err := client.Voices(context.Background())
	if err != nil {
		return explain(err)
	}
	if voicesJSON {
		return printJSON(cmd.OutOrStdout(), voices)
	}
	printVoices(cmd.OutOrStdout(), ui.DefaultStyles(), voices)
	return nil
}

func printVoices(out io.Writer, s *ui.Styles, voices *api.Voices) {
	for i, lang := range voiceLanguages {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, s.Title.Render(lang.name))
		current := currentVoice(voices.Current, lang.code)
		list := voices.Available[lang.code]
		if len(list) == 0 {
			fmt.Fprintln(out, s.Muted.Render("  (none)"))
			continue
		}
		for _, v := range list {
			mark := " "
			if v.ID == current {
				mark = s.Highlighted.Render("*")
			}
			fmt.Fprintf(out, "%s %-28s %-24s %s\n", mark, v.ID, v.Name, s.Muted.Render(v.Gender))
		}
	}
}

func runVoicesSet(cmd *cobra.Command, args []string) error {
	_, client, _, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := context.Background()
	voices, err := client.Voices(ctx)
	if err != nil {
		return explain(err)
	}

	prefs := api.VoicePrefs{Vi: voicesVi, En: voicesEn}
	if prefs.Vi == "" && prefs.En == "" {
		prefs, err = pickVoices(voices)
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return err
		}
	}
	if err := validateVoices(voices, prefs); err != nil {
		return err
	}

	current, err := client.SetVoices(ctx, prefs)
	if err != nil {
		return explain(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.DefaultStyles().FormatResult(true,
		fmt.Sprintf("Voices: vi=%s en=%s", current.Vi, current.En)))
	return nil
}

// validateVoices rejects ids the server does not offer for their language.
func validateVoices(voices *api.Voices, prefs api.VoicePrefs) error {
	for _, lang := range voiceLanguages {
		id := currentVoice(prefs, lang.code)
		if id == "" {
			continue
		}
		found := false
		var ids []string
		for _, v := range voices.Available[lang.code] {
			ids = append(ids, v.ID)
			found = found || v.ID == id
		}
		if !found {
			sort.Strings(ids)
			return &usageError{fmt.Sprintf("unknown %s voice %q (available: %v)", lang.name, id, ids)}
		}
	}
	return nil
}

func pickVoices(voices *api.Voices) (api.VoicePrefs, error) {
	prefs := voices.Current
	options := func(lang string) []huh.Option[string] {
		var opts []huh.Option[string]
		for _, v := range voices.Available[lang] {
			opts = append(opts, huh.NewOption(fmt.Sprintf("%s (%s)", v.Name, v.Gender), v.ID))
		}
		return opts
	}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Vietnamese voice").
				Options(options("vi")...).
				Value(&prefs.Vi),
			huh.NewSelect[string]().
				Title("English voice").
				Options(options("en")...).
				Value(&prefs.En),
		),
	)
	if err := form.Run(); err != nil {
		return api.VoicePrefs{}, err
	}
	return prefs, nil
}
