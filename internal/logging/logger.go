// Package logging provides the namespaced, leveled logger used across redspot.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Level is a log verbosity level. Higher values are more verbose.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

var levelNames = map[Level]string{
	LevelError: "ERROR",
	LevelWarn:  "WARN",
	LevelInfo:  "INFO",
	LevelDebug: "DEBUG",
	LevelTrace: "TRACE",
}

var levelColors = map[Level]*color.Color{
	LevelError: color.New(color.FgRed, color.Bold),
	LevelWarn:  color.New(color.FgYellow),
	LevelInfo:  color.New(color.FgCyan),
	LevelDebug: color.New(color.FgMagenta),
	LevelTrace: color.New(color.FgHiBlack),
}

// String returns the upper-case level name.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "LEVEL(" + strconv.Itoa(int(l)) + ")"
}

// ParseLevel accepts either a level number (0-4) or a level name.
func ParseLevel(s string) (Level, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < int(LevelError) || n > int(LevelTrace) {
			return LevelInfo, fmt.Errorf("log level %d out of range 0-%d", n, LevelTrace)
		}
		return Level(n), nil
	}
	for lvl, name := range levelNames {
		if strings.EqualFold(name, s) {
			return lvl, nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// sink holds the process-wide output state shared by every Logger.
type sink struct {
	mu    sync.RWMutex
	level Level
	out   io.Writer
	file  *os.File
}

var std = &sink{level: LevelInfo, out: color.Error}

// SetLevel sets the process-wide log level.
func SetLevel(l Level) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.level = l
}

// GetLevel returns the process-wide log level.
func GetLevel() Level {
	std.mu.RLock()
	defer std.mu.RUnlock()
	return std.level
}

// SetOutput redirects leveled output. Passing nil restores stderr.
func SetOutput(w io.Writer) {
	std.mu.Lock()
	defer std.mu.Unlock()
	if w == nil {
		w = color.Error
	}
	std.out = w
}

// OpenFile appends every message, regardless of level, to the file at path.
// Parent directories are created if they don't exist.
func OpenFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	std.mu.Lock()
	defer std.mu.Unlock()
	if std.file != nil {
		std.file.Close()
	}
	std.file = f
	fmt.Fprintf(f, "=== redspot log started at %s ===\n", time.Now().Format(time.RFC3339))
	return nil
}

// Close closes the debug log file, if any.
func Close() error {
	std.mu.Lock()
	defer std.mu.Unlock()
	if std.file == nil {
		return nil
	}
	err := std.file.Close()
	std.file = nil
	return err
}

// Logger writes messages tagged with a namespace such as "core:rse".
// The zero value and a nil *Logger are usable and log under "redspot".
type Logger struct {
	namespace string
}

// New returns a logger for the given namespace.
func New(namespace string) *Logger {
	return &Logger{namespace: namespace}
}

// With returns a child logger whose namespace is extended by suffix.
func (l *Logger) With(suffix string) *Logger {
	if l == nil || l.namespace == "" {
		return New(suffix)
	}
	return New(l.namespace + ":" + suffix)
}

// Namespace returns the fully qualified namespace, e.g. "redspot:core:rse".
func (l *Logger) Namespace() string {
	if l == nil || l.namespace == "" {
		return "redspot"
	}
	return "redspot:" + l.namespace
}

func (l *Logger) Errorf(format string, args ...interface{}) { l.log(LevelError, format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.log(LevelWarn, format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.log(LevelInfo, format, args...) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.log(LevelDebug, format, args...) }
func (l *Logger) Tracef(format string, args ...interface{}) { l.log(LevelTrace, format, args...) }

// Enabled reports whether messages at lvl are written to the leveled output.
func (l *Logger) Enabled(lvl Level) bool {
	return lvl <= GetLevel()
}

func (l *Logger) log(lvl Level, format string, args ...interface{}) {
	std.mu.RLock()
	out, file, threshold := std.out, std.file, std.level
	std.mu.RUnlock()

	if lvl > threshold && file == nil {
		return
	}

	msg := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format("15:04:05.000")
	tag := fmt.Sprintf("%-5s", lvl.String())
	ns := l.Namespace()

	if lvl <= threshold && out != nil {
		fmt.Fprintf(out, "[%s] %s %s %s\n", timestamp, levelColors[lvl].Sprint(tag), ns, msg)
	}
	if file != nil {
		std.mu.Lock()
		fmt.Fprintf(file, "[%s] %s %s %s\n", timestamp, tag, ns, msg)
		std.mu.Unlock()
	}
}
