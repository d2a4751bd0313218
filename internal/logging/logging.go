package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New creates a *slog.Logger writing JSON to stderr and optionally to logFile.
// The log file is rotated by size. It also sets the logger as the slog default
// so package-level slog calls work. The returned cleanup func closes the log
// file if one was opened; callers must defer it.
func New(level, logFile string) (*slog.Logger, func(), error) {
	return newWithWriter(os.Stderr, level, logFile)
}

func newWithWriter(out io.Writer, level, logFile string) (*slog.Logger, func(), error) {
	lvl := parseLevel(level)

	writers := []io.Writer{out}
	cleanup := func() {}

	if logFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
		}
		writers = append(writers, rotator)
		cleanup = func() { _ = rotator.Close() }
	}

	w := io.MultiWriter(writers...)
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, cleanup, nil
}

func parseLevel(s string) slog.Level {
	switch s {
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
