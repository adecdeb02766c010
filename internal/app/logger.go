package app

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns a configured slog.Logger based on configuration.
func NewLogger(cfg *Config) *slog.Logger {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg *Config, out io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg != nil && !cfg.IsProduction() {
		opts.Level = slog.LevelDebug
	}
	var handler slog.Handler = slog.NewTextHandler(out, opts)
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(out, opts)
	}
	env := "development"
	if cfg != nil {
		env = cfg.AppEnv
	}
	return slog.New(handler).With(slog.String("service", "showroom"), slog.String("env", env))
}
