package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/samsaffron/term-tutor/internal/chat"
	"github.com/samsaffron/term-tutor/internal/signal"
	"github.com/samsaffron/term-tutor/internal/speech"
	"github.com/samsaffron/term-tutor/internal/ui"
)

var (
	sayLang   string
	saySpeed  float64
	sayTagged bool
	sayCheck  bool
)

var sayCmd = &cobra.Command{
	Use:   "say [text...]",
	Short: "Read text aloud",
	Long: `Synthesize and play text through the tutor's voices. Without arguments
the text is read from stdin.

With --tagged the input is tutor markup ([Vietsub]/[Engsub] ...) and is
read segment by segment in both languages.

Examples:
  term-tutor say "Nice to meet you"
  term-tutor say --lang vi "Xin chào"
  term-tutor say --speed 0.7 "Could you say that again?"
  cat lesson.txt | term-tutor say --tagged
  term-tutor say --check                 # is speech synthesis working?`,
	RunE: runSay,
}

func init() {
	sayCmd.Flags().StringVarP(&sayLang, "lang", "l", "en", "Language of the text (en or vi)")
	sayCmd.Flags().Float64Var(&saySpeed, "speed", 0, "Playback speed (default from speech.speed)")
	sayCmd.Flags().BoolVar(&sayTagged, "tagged", false, "Input is tagged tutor markup")
	sayCmd.Flags().BoolVar(&sayCheck, "check", false, "Ask the server whether speech synthesis works, then exit")
	rootCmd.AddCommand(sayCmd)
}

func parseLang(s string) (speech.Lang, error) {
	switch strings.ToLower(s) {
	case "en", "english":
		return speech.LangEn, nil
	case "vi", "vietnamese":
		return speech.LangVi, nil
	}
	return "", fmt.Errorf("unknown language %q (use en or vi)", s)
}

func runSay(cmd *cobra.Command, args []string) error {
	if sayCheck {
		return runSayCheck(cmd)
	}
	lang, err := parseLang(sayLang)
	if err != nil {
		return err
	}
	text, err := readInput(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("nothing to say")
	}

	cfg, client, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()
	if cfg.Speech.Disabled {
		return errors.New("speech is disabled (speech.disabled in config)")
	}

	speed := cfg.Speech.Speed
	if saySpeed > 0 {
		speed = saySpeed
	}
	app := chat.NewApp(client, newSink(cfg), chat.AppOptions{
		Speed:       speed,
		LookAhead:   cfg.Speech.LookAhead,
		WaitTimeout: cfg.Speech.WaitTimeout,
		Logger:      log,
	})

	ctx, stop := signal.NotifyContext()
	defer stop()

	if sayTagged {
		err = app.Player.Play(ctx, speech.SplitByLanguage(text))
	} else {
		err = app.Player.Say(ctx, speech.Utterance{Text: text, Lang: lang}, app.PassageSynth())
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return explain(err)
}

func runSayCheck(cmd *cobra.Command) error {
	_, client, _, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ok, err := client.TTSStatus(ctx)
	if err != nil {
		return explain(err)
	}
	s := ui.DefaultStyles()
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), s.FormatResult(false, "Speech synthesis is not working on "+client.BaseURL()))
		return errors.New("speech synthesis unavailable")
	}
	fmt.Fprintln(cmd.OutOrStdout(), s.FormatResult(true, "Speech synthesis works"))
	return nil
}
