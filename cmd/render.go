package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/samsaffron/term-tutor/internal/api"
	"github.com/samsaffron/term-tutor/internal/chat"
	"github.com/samsaffron/term-tutor/internal/markup"
	"github.com/samsaffron/term-tutor/internal/ui"
)

var (
	renderHTML       bool
	renderStream     bool
	renderDelay      time.Duration
	renderSpeakables bool
	renderWidth      int
)

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render tutor markup without a server",
	Long: `Render a reply written in tutor markup ([Vietsub], [Engsub], [Table],
[Tip], [List], [Actions]). Reads stdin when no file is given.

Examples:
  term-tutor render lesson.txt
  term-tutor render --html lesson.txt > lesson.html
  term-tutor render --stream --delay 30ms lesson.txt
  echo "[Engsub] Good morning!" | term-tutor render --speakables`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().BoolVar(&renderHTML, "html", false, "Print the generated HTML")
	renderCmd.Flags().BoolVar(&renderStream, "stream", false, "Replay the reply as if it were streaming")
	renderCmd.Flags().DurationVar(&renderDelay, "delay", 20*time.Millisecond, "Delay between chunks with --stream")
	renderCmd.Flags().BoolVar(&renderSpeakables, "speakables", false, "List the speakable English snippets")
	renderCmd.Flags().IntVarP(&renderWidth, "width", "w", 0, "Wrap width (default: terminal width)")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	content, err := readRenderInput(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if renderWidth > 0 {
		cfg.Render.Width = renderWidth
	}

	m := chat.Message{Role: api.RoleAssistant, Content: content, Status: api.StatusCompleted}
	fragment := markup.RenderMessage(m.View(), nil)
	out := cmd.OutOrStdout()

	switch {
	case renderHTML:
		_, err := fmt.Fprintln(out, fragment)
		return err
	case renderSpeakables:
		for i, s := range markup.Speakables(fragment) {
			fmt.Fprintf(out, "%d. %s\n", i+1, s)
		}
		return nil
	case renderStream:
		view := newTerminalView(os.Stdout, cfg)
		replay(view, content, renderDelay)
		view.ShowMessage(m, fragment)
		return nil
	}

	width := cfg.Render.Width
	if width <= 0 {
		width = ui.TerminalWidth(out, 80)
	}
	r := ui.NewConverter(ui.NewStyles(out), width).Convert(fragment)
	_, err = fmt.Fprintln(out, r.Text)
	return err
}

func readRenderInput(args []string, in io.Reader) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return readInput(nil, in)
}

// replay feeds content to view in small chunks the way the chat stream
// delivers it.
func replay(view *ui.View, content string, delay time.Duration) {
	const chunk = 4
	stream := markup.NewStream()
	runes := []rune(strings.TrimRight(content, "\n"))
	for i := chunk; i < len(runes)+chunk; i += chunk {
		end := min(i, len(runes))
		view.ShowStreaming(stream.Render(string(runes[:end])) + markup.StreamingCursor)
		time.Sleep(delay)
	}
	view.RemoveStreaming()
}
