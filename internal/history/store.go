package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Store keeps a local transcript of finished chat messages.
type Store interface {
	// Append records a message. e.ID is set on success.
	Append(ctx context.Context, e *Entry) error
	// Transcript returns the messages of one conversation in order.
	Transcript(ctx context.Context, conversationID string, limit int) ([]Entry, error)
	// Conversations lists conversations seen locally, most recent first.
	Conversations(ctx context.Context, limit int) ([]ConversationSummary, error)
	// Search runs a full-text query over message text.
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)

	// Current conversation tracking (for resuming the last conversation).
	SetCurrent(ctx context.Context, conversationID string) error
	Current(ctx context.Context) (string, error)
	ClearCurrent(ctx context.Context) error

	Close() error
}

// Config holds transcript storage configuration.
type Config struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Path       string `mapstructure:"path" yaml:"path,omitempty"`       // Database file; empty selects the data dir
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"` // Drop entries older than N days (0=never)
}

// DefaultConfig returns the default history configuration.
func DefaultConfig() Config {
	return Config{Enabled: true}
}

// GetDataDir returns the XDG data directory for term-tutor.
// Uses $XDG_DATA_HOME if set, otherwise ~/.local/share
func GetDataDir() (string, error) {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "term-tutor"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "term-tutor"), nil
}

// GetDBPath returns the path of the transcript database for cfg.
func GetDBPath(cfg Config) (string, error) {
	if cfg.Path != "" {
		return cfg.Path, nil
	}
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "history.db"), nil
}

// NewStore creates a Store for cfg. Disabled history yields a no-op store.
func NewStore(cfg Config) (Store, error) {
	if !cfg.Enabled {
		return &NoopStore{}, nil
	}
	return NewSQLiteStore(cfg)
}
