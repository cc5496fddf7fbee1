package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/samsaffron/term-tutor/internal/ui"
)

// Version is set at build time.
var Version = "dev"

var (
	serverFlag   string
	debugFlag    bool
	autoPlayFlag bool
	colorFlag    string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "Tutoring server base URL (overrides server.base_url)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false, "Write debug logs to the state directory")
	rootCmd.PersistentFlags().BoolVar(&autoPlayFlag, "auto-play", false, "Read every reply aloud (overrides speech.auto_play)")
	rootCmd.PersistentFlags().StringVar(&colorFlag, "color", "auto", "Colorize output: auto, always or never")
}

var rootCmd = &cobra.Command{
	Use:   "term-tutor",
	Short: "Learn English with Teacher Da Vinci from the terminal",
	Long: `term-tutor is a terminal client for the Da Vinci English tutoring server.

Examples:
  term-tutor login                      # save a session
  term-tutor chat                       # resume the last conversation
  term-tutor chat --new                 # start a new one
  term-tutor say "How are you today?"   # hear a sentence
  term-tutor vocab search brea          # find saved words
  term-tutor history search coffee      # search the local transcript`,
	Version:           Version,
	SilenceUsage:      true,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return ui.SetColorMode(colorFlag)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
