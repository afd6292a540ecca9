package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/patiponrmutl/thaimilitary/config"
)

// newLogger: JSON ใน production, text ตอนพัฒนา
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if cfg.IsProduction() {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(h).With("app", "thaimilitary", "env", cfg.AppEnv)
}
