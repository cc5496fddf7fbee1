package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/samsaffron/term-tutor/internal/history"
	"github.com/samsaffron/term-tutor/internal/logging"
)

// EnvPrefix prefixes every environment override: TERM_TUTOR_SERVER_BASE_URL.
const EnvPrefix = "TERM_TUTOR"

type Config struct {
	Server  ServerConfig   `mapstructure:"server" yaml:"server"`
	Speech  SpeechConfig   `mapstructure:"speech" yaml:"speech"`
	Render  RenderConfig   `mapstructure:"render" yaml:"render"`
	History history.Config `mapstructure:"history" yaml:"history"`
	Log     logging.Config `mapstructure:"log" yaml:"log"`
	Theme   ThemeConfig    `mapstructure:"theme" yaml:"theme"`
}

// ServerConfig locates the tutoring server and the session to use.
type ServerConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// SessionCookie is a Cookie header value saved by "term-tutor login".
	SessionCookie string        `mapstructure:"session_cookie" yaml:"session_cookie,omitempty"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type SpeechConfig struct {
	AutoPlay       bool          `mapstructure:"auto_play" yaml:"auto_play"`
	LookAhead      int           `mapstructure:"look_ahead" yaml:"look_ahead"`           // segments fetched ahead of playback
	StreamPrefetch int           `mapstructure:"stream_prefetch" yaml:"stream_prefetch"` // segments fetched while streaming
	WaitTimeout    time.Duration `mapstructure:"wait_timeout" yaml:"wait_timeout"`
	Speed          float64       `mapstructure:"speed" yaml:"speed"`
	Disabled       bool          `mapstructure:"disabled" yaml:"disabled"` // no audio device
}

type RenderConfig struct {
	MemoSize int `mapstructure:"memo_size" yaml:"memo_size"`
	Width    int `mapstructure:"width" yaml:"width,omitempty"` // 0 follows the terminal
}

// ThemeConfig allows customization of UI colors
// Colors can be ANSI color numbers (0-255) or hex codes (#RRGGBB)
type ThemeConfig struct {
	Preset     string `mapstructure:"preset" yaml:"preset,omitempty"`
	Primary    string `mapstructure:"primary" yaml:"primary,omitempty"`
	Secondary  string `mapstructure:"secondary" yaml:"secondary,omitempty"`
	Error      string `mapstructure:"error" yaml:"error,omitempty"`
	Muted      string `mapstructure:"muted" yaml:"muted,omitempty"`
	Text       string `mapstructure:"text" yaml:"text,omitempty"`
	English    string `mapstructure:"english" yaml:"english,omitempty"`
	Vietnamese string `mapstructure:"vietnamese" yaml:"vietnamese,omitempty"`
	Tip        string `mapstructure:"tip" yaml:"tip,omitempty"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.base_url", "http://localhost:5000")
	v.SetDefault("server.session_cookie", "")
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("speech.auto_play", false)
	v.SetDefault("speech.look_ahead", 2)
	v.SetDefault("speech.stream_prefetch", 2)
	v.SetDefault("speech.wait_timeout", 15*time.Second)
	v.SetDefault("speech.speed", 1.0)
	v.SetDefault("speech.disabled", false)
	v.SetDefault("render.memo_size", 128)
	v.SetDefault("render.width", 0)
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "")
	v.SetDefault("history.max_age_days", 0)

	logDefaults := logging.DefaultConfig()
	v.SetDefault("log.level", logDefaults.Level)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", logDefaults.MaxSize)
	v.SetDefault("log.max_age", logDefaults.MaxAge)
	v.SetDefault("log.max_backups", logDefaults.MaxBackups)
	v.SetDefault("log.console", false)

	for _, k := range []string{"preset", "primary", "secondary", "error", "muted", "text", "english", "vietnamese", "tip"} {
		v.SetDefault("theme."+k, "")
	}
}

// Load reads config.yaml from the config directory or the working
// directory, then applies .env and TERM_TUTOR_* environment overrides.
// A missing config file is not an error.
func Load() (*Config, error) {
	configPath, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config dir: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Server.BaseURL = strings.TrimRight(expandEnv(cfg.Server.BaseURL), "/")
	cfg.Server.SessionCookie = expandEnv(cfg.Server.SessionCookie)
	cfg.History.Path = expandEnv(cfg.History.Path)
	cfg.Log.Filename = expandEnv(cfg.Log.Filename)

	return &cfg, nil
}

// ApplyOverrides applies command-line overrides. Empty values are ignored.
func (c *Config) ApplyOverrides(baseURL string, autoPlay *bool) {
	if baseURL != "" {
		c.Server.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if autoPlay != nil {
		c.Speech.AutoPlay = *autoPlay
	}
}

// expandEnv expands ${VAR} or $VAR in a string
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		return os.Getenv(varName)
	}
	if strings.HasPrefix(s, "$") {
		return os.Getenv(s[1:])
	}
	return s
}

// MaskSecret shows only the first and last characters of s.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

// GetConfigDir returns the XDG config directory for term-tutor.
// Uses $XDG_CONFIG_HOME if set, otherwise ~/.config
func GetConfigDir() (string, error) {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, "term-tutor"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "term-tutor"), nil
}

// GetConfigPath returns the path where the config file should be located
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// Exists returns true if a config file exists
func Exists() bool {
	path, err := GetConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

const header = `term-tutor configuration.
Every key can be overridden with TERM_TUTOR_<SECTION>_<KEY>, for example
TERM_TUTOR_SERVER_BASE_URL. Values of the form ${VAR} are read from the
environment.`

// Save writes cfg to the config file. The file holds the session cookie, so
// it is only readable by the owner.
func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Marshal renders cfg as commented YAML.
func Marshal(cfg *Config) ([]byte, error) {
	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	doc.HeadComment = header
	comment(&doc, "speech", "auto_play reads every reply aloud; input stays locked until it ends.")
	comment(&doc, "history", "Local transcript of finished messages, searchable with 'term-tutor history search'.")
	comment(&doc, "theme", "Colors are ANSI numbers (0-255) or #RRGGBB. preset: gruvbox, dracula, nord, classic.")

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}

func comment(doc *yaml.Node, key, text string) {
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value == key {
			doc.Content[i].HeadComment = text
			return
		}
	}
}
