package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/hwalton/keap-console/internal/config"
)

// New builds the process logger from cfg and installs it as slog's default.
// Format "json" writes JSON lines; anything else writes text with source
// locations. Output goes to stderr so keapctl can keep stdout for results.
func New(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: !strings.EqualFold(cfg.Format, "json"),
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	l := slog.New(handler)
	slog.SetDefault(l)
	return l
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
