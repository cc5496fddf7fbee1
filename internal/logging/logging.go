package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls where and how much is logged.
type Config struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Filename   string `mapstructure:"file" yaml:"file,omitempty"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`   // days
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	// Console also writes warnings and errors to stderr.
	Console bool `mapstructure:"console" yaml:"console"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{Level: "info", MaxSize: 10, MaxAge: 14, MaxBackups: 3}
}

// GetStateDir returns the XDG state directory for term-tutor.
// Uses $XDG_STATE_HOME if set, otherwise ~/.local/state
func GetStateDir() (string, error) {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "term-tutor"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "term-tutor"), nil
}

// DefaultFilename is the log file used when Config.Filename is empty.
func DefaultFilename() (string, error) {
	dir, err := GetStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "term-tutor.log"), nil
}

// New builds a logger from cfg. Logging is off unless debug is set or a
// file is configured, so nothing interferes with the terminal view.
func New(cfg Config, debug bool) (*zap.Logger, error) {
	if !debug && cfg.Filename == "" {
		return zap.NewNop(), nil
	}

	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
			return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
		}
	}
	if debug {
		level = zapcore.DebugLevel
	}

	filename := cfg.Filename
	if filename == "" {
		var err error
		if filename, err = DefaultFilename(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	file := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		LocalTime:  true,
	}
	return build(zapcore.AddSync(file), level, cfg.Console, os.Stderr), nil
}

func build(out zapcore.WriteSyncer, level zapcore.Level, console bool, stderr io.Writer) *zap.Logger {
	core := zapcore.NewCore(jsonEncoder(), out, level)
	if console {
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		high := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return l >= zapcore.WarnLevel && l >= level
		})
		core = zapcore.NewTee(core, zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(stderr), high))
	}
	return zap.New(core, zap.AddCaller())
}

func jsonEncoder() zapcore.Encoder {
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.TimeKey = "time"
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	enc.EncodeDuration = zapcore.StringDurationEncoder
	enc.EncodeCaller = zapcore.ShortCallerEncoder
	return zapcore.NewJSONEncoder(enc)
}
