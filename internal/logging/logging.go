package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls where and how verbosely docsearch writes structured
// log lines when --debug is set on either CLI.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// FilePath is the log file to write to; DefaultLogPath() if empty.
	FilePath string
	// MaxSizeMB is the rotation threshold in megabytes.
	MaxSizeMB int
	// MaxFiles caps how many rotated generations are kept.
	MaxFiles int
	// WriteToStderr also mirrors every line to stderr.
	WriteToStderr bool
}

// DefaultConfig returns the info-level file-logging configuration that
// DebugConfig builds on. Runs without --debug set up no file logging.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
	}
}

// DebugConfig is DefaultConfig with the level lowered to debug, wired
// to the root commands' --debug flag.
func DebugConfig() Config {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	return cfg
}

// Setup builds a slog.Logger writing JSON lines to a rotating file
// (and, if cfg.WriteToStderr, to stderr as well) and returns a cleanup
// function the caller must run before exiting to flush and close the
// file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	if err := EnsureLogDir(); err != nil {
		return nil, nil, err
	}

	writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		return nil, nil, err
	}

	handler := slog.NewJSONHandler(sinkFor(writer, cfg.WriteToStderr), &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})

	cleanup := func() {
		_ = writer.Sync()
		_ = writer.Close()
	}
	return slog.New(handler), cleanup, nil
}

// sinkFor returns the writer the JSON handler writes to: the rotating
// file alone, or fanned out to stderr as well.
func sinkFor(writer io.Writer, alsoStderr bool) io.Writer {
	if !alsoStderr {
		return writer
	}
	return io.MultiWriter(writer, os.Stderr)
}

// parseLevel maps a config string to its slog.Level, defaulting
// unrecognized input to Info rather than erroring: a typo'd
// --log-level shouldn't crash the build.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelFromString exposes parseLevel for docsearch-query's log viewer,
// which filters displayed lines by level.
func LevelFromString(level string) slog.Level {
	return parseLevel(level)
}
