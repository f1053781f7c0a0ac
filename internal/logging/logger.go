// Package logging provides a structured logger for the capture/replay
// pipeline, built on zerolog.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration.
type Config struct {
	Level       string // DEBUG, INFO, WARN, ERROR
	Output      string // "stdout", "stderr", or a file path
	Component   string
	IncludeFile bool // include caller file:line
	JSONFormat  bool // JSON lines vs. console-pretty
}

// Logger wraps a zerolog.Logger with the component/trace-id/fields idiom
// the rest of this codebase expects.
type Logger struct {
	zl zerolog.Logger
}

var (
	defaultLogger *Logger
	defaultOnce   sync.Once
	defaultMu     sync.RWMutex
)

func parseLevel(s string) zerolog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "FATAL":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

func resolveOutput(cfg *Config) io.Writer {
	switch cfg.Output {
	case "", "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return os.Stdout
		}
		return f
	}
}

// New creates a new logger from the given configuration.
func New(cfg *Config) *Logger {
	var w io.Writer = resolveOutput(cfg)
	if !cfg.JSONFormat {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	zl := zerolog.New(w).Level(parseLevel(cfg.Level)).With().Timestamp().Logger()
	if cfg.IncludeFile {
		zl = zl.With().Caller().Logger()
	}
	if cfg.Component != "" {
		zl = zl.With().Str("component", cfg.Component).Logger()
	}
	return &Logger{zl: zl}
}

// Default returns the process-wide default logger.
func Default() *Logger {
	defaultOnce.Do(func() {
		defaultMu.Lock()
		defaultLogger = New(&Config{Level: "INFO", Output: "stdout", Component: "app", JSONFormat: true})
		defaultMu.Unlock()
	})
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the process-wide default logger.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// WithComponent returns a derived logger tagged with the given component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", component).Logger()}
}

// WithTraceID returns a derived logger tagged with the given trace ID.
func (l *Logger) WithTraceID(traceID string) *Logger {
	return &Logger{zl: l.zl.With().Str("trace_id", traceID).Logger()}
}

// WithField returns a derived logger with one additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

// WithFields returns a derived logger with additional fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.zl.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zl: ctx.Logger()}
}

// WithError returns a derived logger with an error field attached.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return &Logger{zl: l.zl.With().Err(err).Logger()}
}

// WithDuration returns a derived logger with a duration field attached.
func (l *Logger) WithDuration(d time.Duration) *Logger {
	return &Logger{zl: l.zl.With().Dur("duration", d).Logger()}
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.zl.Debug().Msgf(msg, args...) }
func (l *Logger) Info(msg string, args ...interface{})  { l.zl.Info().Msgf(msg, args...) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.zl.Warn().Msgf(msg, args...) }
func (l *Logger) Error(msg string, args ...interface{}) { l.zl.Error().Msgf(msg, args...) }

// Fatal logs and terminates the process, matching the teacher's convention.
func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.zl.Fatal().Msgf(msg, args...)
}

// Package-level convenience wrappers over the default logger.

func Debug(msg string, args ...interface{}) { Default().Debug(msg, args...) }
func Info(msg string, args ...interface{})  { Default().Info(msg, args...) }
func Warn(msg string, args ...interface{})  { Default().Warn(msg, args...) }
func Error(msg string, args ...interface{}) { Default().Error(msg, args...) }
func Fatal(msg string, args ...interface{}) { Default().Fatal(msg, args...) }

func WithComponent(component string) *Logger           { return Default().WithComponent(component) }
func WithField(key string, value interface{}) *Logger  { return Default().WithField(key, value) }
func WithFields(fields map[string]interface{}) *Logger { return Default().WithFields(fields) }
func WithError(err error) *Logger                      { return Default().WithError(err) }
