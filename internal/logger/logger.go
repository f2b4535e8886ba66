package logger

import (
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Log discards everything until Init is called.
var Log = slog.New(slog.NewTextHandler(io.Discard, nil))

type Config struct {
	Path   string
	Level  string // debug, info, warn, error
	Format string // text or json
}

var file *lumberjack.Logger

func Init(cfg Config) error {
	if cfg.Path == "" {
		cfg.Path = "dispatch.log"
	}
	w := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    16, // MB
		MaxBackups: 3,
		MaxAge:     14,
	}
	// lumberjack opens lazily; write once so a bad path fails here.
	if _, err := w.Write(nil); err != nil {
		return err
	}
	file = w

	Log = slog.New(newHandler(w, cfg))
	Log.Info("Logger initialized.", slog.String("file", cfg.Path))
	return nil
}

func Close() error {
	if file == nil {
		return nil
	}
	return file.Close()
}

func newHandler(w io.Writer, cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
