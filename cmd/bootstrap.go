package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/samsaffron/term-tutor/internal/api"
	"github.com/samsaffron/term-tutor/internal/config"
	"github.com/samsaffron/term-tutor/internal/history"
	"github.com/samsaffron/term-tutor/internal/logging"
	"github.com/samsaffron/term-tutor/internal/speech"
	"github.com/samsaffron/term-tutor/internal/ui"
)

// loadConfig reads the configuration and applies the persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	var autoPlay *bool
	if f := cmd.Flags().Lookup("auto-play"); f != nil && f.Changed {
		autoPlay = &autoPlayFlag
	}
	cfg.ApplyOverrides(serverFlag, autoPlay)
	initThemeFromConfig(cfg)
	return cfg, nil
}

func initThemeFromConfig(cfg *config.Config) {
	ui.InitTheme(cfg.Theme.Preset, ui.ThemeConfig{
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

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := logging.New(cfg.Log, debugFlag)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return log, nil
}

func newClient(cfg *config.Config, log *zap.Logger) (*api.Client, error) {
	return api.New(api.Options{
		BaseURL:   cfg.Server.BaseURL,
		Cookie:    cfg.Server.SessionCookie,
		Timeout:   cfg.Server.Timeout,
		UserAgent: "term-tutor/" + Version,
		Logger:    log.Named("api"),
	})
}

// setup loads config, logger and client for commands that talk to the
// server.
func setup(cmd *cobra.Command) (*config.Config, *api.Client, *zap.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	client, err := newClient(cfg, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, client, log, nil
}

// openHistory opens the local transcript. Write failures are reported once
// on stderr instead of interrupting the chat.
func openHistory(cfg *config.Config) history.Store {
	store, err := history.NewStore(cfg.History)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: local history unavailable: %v\n", err)
		return &history.NoopStore{}
	}
	return history.NewLoggingStore(store, func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
	})
}

func newSink(cfg *config.Config) speech.Sink {
	if cfg.Speech.Disabled {
		return speech.MuteSink{}
	}
	return speech.NewBeepSink()
}

// explain turns well-known API errors into actionable messages.
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, api.ErrUnauthorized):
		return fmt.Errorf("%w (run 'term-tutor login')", err)
	case errors.Is(err, api.ErrForbidden):
		return fmt.Errorf("%w (check your token budget with 'term-tutor whoami')", err)
	}
	return err
}
