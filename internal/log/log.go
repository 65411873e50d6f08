// Package log builds the [slog.Handler] used by the baby-meals commands.
package log

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/muesli/termenv"

	charmlog "github.com/charmbracelet/log"
)

type Format string

const (
	FormatJSON   Format = "json"
	FormatLogfmt Format = "logfmt"
	FormatText   Format = "text"
)

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrUnknownLogLevel  = errors.New("unknown log level")
	ErrUnknownLogFormat = errors.New("unknown log format")

	Formats = []string{string(FormatText), string(FormatLogfmt), string(FormatJSON)}
	Levels  = []string{"error", "warn", "info", "debug"}
)

// Options describe the handler to build.
type Options struct {
	Level  string
	Format string
	// Source adds the caller's file and line to each record.
	Source bool
	// Prefix labels every line of text output.
	Prefix string
}

// NewHandler builds a handler writing to w. Text output is colored only
// when w is a terminal.
func NewHandler(w io.Writer, opts Options) (slog.Handler, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	format, err := ParseFormat(opts.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	handlerOpts := &slog.HandlerOptions{AddSource: opts.Source, Level: level}
	switch format {
	case FormatJSON:
		return slog.NewJSONHandler(w, handlerOpts), nil
	case FormatLogfmt:
		return slog.NewTextHandler(w, handlerOpts), nil
	}

	logger := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(level),
		Prefix:          opts.Prefix,
		ReportCaller:    opts.Source,
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
	})
	logger.SetColorProfile(termenv.NewOutput(w).ColorProfile())

	return logger, nil
}

func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "error":
		return slog.LevelError, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	}

	return 0, fmt.Errorf("%w %q", ErrUnknownLogLevel, level)
}

func ParseFormat(format string) (Format, error) {
	f := Format(strings.ToLower(format))
	if slices.Contains(Formats, string(f)) {
		return f, nil
	}

	return "", fmt.Errorf("%w %q", ErrUnknownLogFormat, format)
}

// Setup installs a handler built from opts as the slog default.
func Setup(w io.Writer, opts Options) (*slog.Logger, error) {
	handler, err := NewHandler(w, opts)
	if err != nil {
		return nil, err
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger, nil
}
