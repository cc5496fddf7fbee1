package cmd

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/samsaffron/term-tutor/internal/config"
	"github.com/samsaffron/term-tutor/internal/history"
	"github.com/samsaffron/term-tutor/internal/ui"
)

// ConversationArgCompletion completes conversation ids from the local
// transcript, so completion works offline.
func ConversationArgCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cfg, err := config.Load()
	if err != nil || !cfg.History.Enabled {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	store, err := history.NewStore(cfg.History)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	list, err := store.Conversations(ctx, 50)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var completions []string
	for _, c := range list {
		if strings.HasPrefix(c.ConversationID, toComplete) {
			completions = append(completions, c.ConversationID+"\t"+ui.Truncate(c.FirstMessage, 40))
		}
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

// ThemePresetCompletion completes theme preset names.
func ThemePresetCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var completions []string
	for _, name := range ui.PresetThemeNames() {
		if strings.HasPrefix(name, toComplete) {
			completions = append(completions, name+"\t"+ui.PresetThemes[name].Description)
		}
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

var completionCmd = &cobra.Command{
	Use:       "completion [bash|zsh|fish|powershell]",
	Short:     "Generate shell completion scripts",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletionV2(out, true)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(out)
		}
		return &usageError{"unsupported shell " + args[0]}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
