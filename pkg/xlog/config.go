package xlog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewConfig returns the default logging configuration.
func NewConfig() Config {
	return Config{
		Level:        slog.LevelInfo,
		AddSource:    false,
		AttrReplacer: NormalizeSourceAttrReplacer(),
		StdFormat:    "text",
		StdWriter:    os.Stderr,
		Path:         "",
		MaxSize:      30,
	}
}

// Config controls how log records are formatted and where they go.
type Config struct {
	// Level is the minimum record level, default LevelInfo.
	Level slog.Level
	// AddSource includes the source file and position of the log call.
	AddSource bool
	// AttrReplacer rewrites attributes, default NormalizeSourceAttrReplacer.
	AttrReplacer AttrReplacer

	// StdFormat is the standard output format, oneof ["text", "json"].
	StdFormat string
	// StdWriter is the standard output io.Writer, default os.Stderr.
	StdWriter io.Writer

	// Path is the log file path. Empty means no file output.
	Path string
	// MaxSize is the max size of a single log file in MB before rotation,
	// default 30 MB.
	MaxSize int
	// MaxAge is the max days to retain rotated files, default unlimited.
	MaxAge int
	// MaxBackups is the max count of rotated files, default unlimited.
	MaxBackups int
	// Compress enables compression of rotated files.
	Compress bool
}

// BuildHandler creates a new slog.Handler with config.
func (c *Config) BuildHandler() slog.Handler {
	opts := &slog.HandlerOptions{
		AddSource:   c.AddSource,
		Level:       c.Level,
		ReplaceAttr: c.AttrReplacer,
	}
	if c.StdFormat == "json" {
		writer := c.StdWriter
		if fw := c.buildFileWriter(); fw != nil {
			writer = io.MultiWriter(c.StdWriter, fw)
		}
		return NewLeveledHandlerCreator(JSONHandlerCreator)(writer, opts)
	}

	handlers := []slog.Handler{
		NewLeveledHandlerCreator(TextHandlerCreator)(c.StdWriter, opts),
	}
	if fw := c.buildFileWriter(); fw != nil {
		// file output is always structured
		handlers = append(handlers, NewLeveledHandlerCreator(JSONHandlerCreator)(fw, opts))
	}
	return MultiHandler(handlers...)
}

func (c *Config) buildFileWriter() io.Writer {
	if c.Path == "" {
		return nil
	}
	return &lumberjack.Logger{
		Filename:   c.Path,
		MaxSize:    c.MaxSize,
		MaxAge:     c.MaxAge,
		MaxBackups: c.MaxBackups,
		Compress:   c.Compress,
	}
}

// AttrReplacer is called to rewrite each non-group attribute before it is logged.
type AttrReplacer func(groups []string, attr slog.Attr) slog.Attr

// NormalizeSourceAttrReplacer replaces source file path as basename.
func NormalizeSourceAttrReplacer() AttrReplacer {
	return func(groups []string, attr slog.Attr) slog.Attr {
		if attr.Key == slog.SourceKey {
			if source, ok := attr.Value.Any().(*slog.Source); ok {
				source.File = filepath.Base(source.File)
			}
		}
		return attr
	}
}

// SuppressTimeAttrReplacer removes the top-level time attribute.
// It is intended to make example and test output deterministic.
func SuppressTimeAttrReplacer() AttrReplacer {
	return func(groups []string, attr slog.Attr) slog.Attr {
		if attr.Key == slog.TimeKey && len(groups) == 0 {
			return slog.Attr{}
		}
		return attr
	}
}
