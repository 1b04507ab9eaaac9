// Package logging routes component-tagged structured logs to a rotating
// file, with an optional stderr mirror for verbose runs.
//
// Basic usage:
//
//	cfg := logging.Config{
//	    Level: "info",
//	    Path:  logging.DefaultLogPath(),
//	}
//	if err := logging.Init(cfg); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Close()
//
//	logger := logging.Get("catalog")
//	logger.Info("build started", "root", "/mnt/photos")
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level represents a logging level.
type Level int

// Log levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

var charmLevels = [...]log.Level{
	LevelDebug: log.DebugLevel,
	LevelInfo:  log.InfoLevel,
	LevelWarn:  log.WarnLevel,
	LevelError: log.ErrorLevel,
}

// String returns the string representation of the level.
func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return "unknown"
	}
	return levelNames[l]
}

func (l Level) charm() log.Level {
	if l < LevelDebug || l > LevelError {
		return log.InfoLevel
	}
	return charmLevels[l]
}

// ErrInvalidLevel is returned when an invalid log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a string into a Level. "warning" is accepted as an
// alias for "warn".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// Config configures the logging system.
type Config struct {
	// Level is the default log level (debug, info, warn, error).
	Level string

	// Path is the log file path. Empty uses DefaultLogPath().
	Path string

	// Rotation configures log file rotation.
	Rotation RotationConfig

	// Components maps component names (catalog, store, compare, plan,
	// script, cli) to per-component log level overrides.
	Components map[string]string

	// ConsoleLevel mirrors logs at this level and above onto stderr.
	// Empty disables the mirror. The CLI leaves it empty while an
	// interactive picker owns the terminal.
	ConsoleLevel string
}

// Logger tags every line with its component and fans it out to the file
// sink and, when enabled, stderr.
type Logger struct {
	component string
	targets   []*log.Logger
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...interface{}) { l.emit(LevelDebug, msg, args...) }

// Info logs an info message.
func (l *Logger) Info(msg string, args ...interface{}) { l.emit(LevelInfo, msg, args...) }

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...interface{}) { l.emit(LevelWarn, msg, args...) }

// Error logs an error message.
func (l *Logger) Error(msg string, args ...interface{}) { l.emit(LevelError, msg, args...) }

func (l *Logger) emit(level Level, msg string, args ...interface{}) {
	for _, t := range l.targets {
		switch level {
		case LevelDebug:
			t.Debug(msg, args...)
		case LevelInfo:
			t.Info(msg, args...)
		case LevelWarn:
			t.Warn(msg, args...)
		case LevelError:
			t.Error(msg, args...)
		}
	}
}

// With returns a new logger carrying additional key-value context.
func (l *Logger) With(args ...interface{}) *Logger {
	next := &Logger{component: l.component, targets: make([]*log.Logger, len(l.targets))}
	for i, t := range l.targets {
		next.targets[i] = t.With(args...)
	}
	return next
}

// sink is the output configuration Init installs: where lines go and at
// which levels.
type sink struct {
	writer       *RotatingWriter
	level        Level
	components   map[string]Level
	console      bool
	consoleLevel Level
}

var (
	mu      sync.Mutex
	current *sink // nil before Init and after Close
	cache   = make(map[string]*Logger)
)

// Init installs the logging configuration. Everything is validated and
// the new log file opened before the previous sink, if any, is replaced,
// so a failed Init leaves logging as it was. Loggers handed out earlier
// through Get are rebuilt against the new sink.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	next := &sink{components: make(map[string]Level)}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	next.level = level

	for comp, lvl := range cfg.Components {
		parsed, err := ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("parsing level for component %s: %w", comp, err)
		}
		next.components[comp] = parsed
	}

	if cfg.ConsoleLevel != "" {
		parsed, err := ParseLevel(cfg.ConsoleLevel)
		if err != nil {
			return fmt.Errorf("parsing console level: %w", err)
		}
		next.consoleLevel = parsed
		next.console = true
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}
	writer, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return fmt.Errorf("creating log writer: %w", err)
	}
	next.writer = writer

	if current != nil {
		if err := current.writer.Close(); err != nil {
			_ = writer.Close()
			return fmt.Errorf("closing existing writer: %w", err)
		}
	}
	current = next

	for component := range cache {
		cache[component] = build(component)
	}
	return nil
}

// Get returns the logger for the given component, honoring any
// per-component level override from the config. Loggers requested
// before Init write to io.Discard.
func Get(component string) *Logger {
	mu.Lock()
	defer mu.Unlock()

	if logger, ok := cache[component]; ok {
		return logger
	}
	logger := build(component)
	cache[component] = logger
	return logger
}

// build assembles the logger for a component against the current sink.
// Callers hold mu.
func build(component string) *Logger {
	if current == nil {
		silent := log.NewWithOptions(io.Discard, log.Options{Prefix: component})
		return &Logger{component: component, targets: []*log.Logger{silent}}
	}

	level := current.level
	if override, ok := current.components[component]; ok {
		level = override
	}

	file := log.NewWithOptions(current.writer, log.Options{
		Level:           level.charm(),
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          component,
	})
	targets := []*log.Logger{file}

	if current.console {
		// The stderr mirror trades the full timestamp for a short one.
		console := log.NewWithOptions(os.Stderr, log.Options{
			Level:           current.consoleLevel.charm(),
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
			Prefix:          component,
		})
		targets = append(targets, console)
	}

	return &Logger{component: component, targets: targets}
}

// Close flushes and closes the log file. Call it on application exit.
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	if current == nil {
		return nil
	}

	err := current.writer.Close()
	current = nil
	cache = make(map[string]*Logger)

	if err != nil {
		return fmt.Errorf("closing log writer: %w", err)
	}
	return nil
}

// DefaultLogPath returns the default log file path,
// $XDG_STATE_HOME/reconcile/reconcile.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "reconcile", "reconcile.log")
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Level:    "info",
		Path:     DefaultLogPath(),
		Rotation: DefaultRotationConfig(),
	}
}
