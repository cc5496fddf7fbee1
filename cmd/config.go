package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/samsaffron/term-tutor/internal/config"
	"github.com/samsaffron/term-tutor/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage term-tutor configuration",
	Long: `View or edit your term-tutor configuration.

Examples:
  term-tutor config                   # show current config
  term-tutor config edit              # edit in $EDITOR
  term-tutor config init --force      # write the defaults
  term-tutor config theme nord        # pick a color theme`,
	RunE: configShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print configuration file path",
	Args:  cobra.NoArgs,
	RunE:  configPath,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file in $EDITOR",
	Args:  cobra.NoArgs,
	RunE:  configEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	Args:  cobra.NoArgs,
	RunE:  configInit,
}

var configThemeCmd = &cobra.Command{
	Use:   "theme [preset]",
	Short: "Select a UI color theme",
	Long: `Save a color theme preset. Without an argument the presets are
offered in an interactive picker.`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: ThemePresetCompletion,
	RunE:              configTheme,
}

var (
	configShowSecrets bool
	configInitForce   bool
)

func init() {
	configCmd.Flags().BoolVar(&configShowSecrets, "show-secrets", false, "Print the session cookie unmasked")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing configuration file")

	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configThemeCmd)
	rootCmd.AddCommand(configCmd)
}

func configShow(cmd *cobra.Command, args []string) error {
	path, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !configShowSecrets {
		cfg.Server.SessionCookie = config.MaskSecret(cfg.Server.SessionCookie)
	}
	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if config.Exists() {
		fmt.Fprintf(out, "# %s\n\n", path)
	} else {
		fmt.Fprintf(out, "# No config file (using defaults)\n# Create one with: term-tutor config init\n\n")
	}
	_, err = out.Write(data)
	return err
}

func configPath(cmd *cobra.Command, args []string) error {
	path, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func configInit(cmd *cobra.Command, args []string) error {
	path, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	if config.Exists() && !configInitForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.DefaultStyles().FormatResult(true, "Wrote "+path))
	return nil
}

func configEdit(cmd *cobra.Command, args []string) error {
	path, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if !config.Exists() {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		editor = "vi"
	}
	editorCmd := exec.Command(editor, path)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr
	return editorCmd.Run()
}

func configTheme(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var selected string
	if len(args) == 1 {
		selected = args[0]
	} else {
		selected, err = pickTheme(cfg)
		if err != nil || selected == "" {
			return err
		}
	}
	preset := ui.GetPresetTheme(selected)
	if preset == nil {
		return &usageError{fmt.Sprintf("unknown theme %q (available: %v)", selected, ui.PresetThemeNames())}
	}

	// Color overrides would shadow the preset, so they are cleared.
	cfg.Theme = config.ThemeConfig{Preset: selected}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save theme: %w", err)
	}
	ui.InitTheme(selected, ui.ThemeConfig{})
	fmt.Fprintln(cmd.OutOrStdout(), ui.DefaultStyles().FormatResult(true, "Theme set to "+selected))
	return nil
}

func pickTheme(cfg *config.Config) (string, error) {
	current := cfg.Theme.Preset
	if current == "" {
		current = ui.MatchPresetTheme(ui.ThemeConfig{
			Primary:    cfg.Theme.Primary,
			Secondary:  cfg.Theme.Secondary,
			Error:      cfg.Theme.Error,
			Muted:      cfg.Theme.Muted,
			Text:       cfg.Theme.Text,
			English:    cfg.Theme.English,
			Vietnamese: cfg.Theme.Vietnamese,
			Tip:        cfg.Theme.Tip,
		})
	}

	var options []huh.Option[string]
	for _, name := range ui.PresetThemeNames() {
		styles := ui.NewStyledWithTheme(os.Stdout, ui.ThemeFromConfig(name, ui.ThemeConfig{}))
		label := fmt.Sprintf("%-8s %s %s", name,
			styles.English.Render("Nice to meet you."),
			styles.Vietnamese.Render("Rất vui được gặp bạn."))
		if name == current {
			label += " (current)"
		}
		options = append(options, huh.NewOption(label, name))
	}

	selected := current
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Color theme").
				Options(options...).
				Value(&selected),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", nil
		}
		return "", err
	}
	return selected, nil
}
