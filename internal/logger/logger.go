// Package logger builds the slog logger used by every command.
package logger

import (
	"os"

	"golang.org/x/exp/slog"

	"github.com/MufengNiu/Paradisec/internal/config"
)

// New returns a colored text logger for local runs and JSON otherwise.
// level, when not empty, overrides the environment default.
func New(env string, level ...string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case config.EnvLocal:
		log = setupPrettySlog(levelFor(slog.LevelDebug, level))
	case config.EnvDev:
		log = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: levelFor(slog.LevelDebug, level)}))
	default:
		log = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: levelFor(slog.LevelInfo, level)}))
	}

	return log
}

func levelFor(def slog.Level, override []string) slog.Level {
	if len(override) == 0 || override[0] == "" {
		return def
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(override[0])); err != nil {
		return def
	}
	return l
}

func setupPrettySlog(level slog.Level) *slog.Logger {
	return slog.New(NewPrettyHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
