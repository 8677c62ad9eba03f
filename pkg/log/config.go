package log

import (
	"fmt"
	"strings"
)

// Config declares how to build a logger.
type Config struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// ParseLevel maps debug|info|warn|error (any case) to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	}
	return InfoLevel, fmt.Errorf("log: unknown level %q", s)
}

// ApplyConfig builds a console logger from cfg.
func ApplyConfig(cfg *Config, extra ...LoggerOption) (Logger, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	var formatter Formatter
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		formatter = &TextFormatter{}
	case "json":
		formatter = &JSONFormatter{}
	default:
		return nil, fmt.Errorf("log: unknown format %q", cfg.Format)
	}
	opts := append([]LoggerOption{WithLevel(level), WithFormatter(formatter)}, extra...)
	return NewLogger(opts...), nil
}
