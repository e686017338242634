// Package logging configures the logrus logger shared by confman components.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ComponentField is the field components attach to their logger.
const ComponentField = "component"

// Formatter renders one entry per line:
//
//	[2026-01-02 15:04:05] [info ] [plugins] plugin loaded | plugin=clock, version=1.0.0
type Formatter struct {
	// DisableTimestamp drops the leading timestamp.
	DisableTimestamp bool
}

// Format renders a single log entry.
func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	buffer := entry.Buffer
	if buffer == nil {
		buffer = &bytes.Buffer{}
	}

	if !f.DisableTimestamp {
		fmt.Fprintf(buffer, "[%s] ", entry.Time.Format("2006-01-02 15:04:05"))
	}

	level := entry.Level.String()
	if level == "warning" {
		level = "warn"
	}

	component := "--------"
	if c, ok := entry.Data[ComponentField].(string); ok && c != "" {
		component = c
	}
	fmt.Fprintf(buffer, "[%-5s] [%s] %s", level, component, strings.TrimRight(entry.Message, "\r\n"))

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k != ComponentField {
			keys = append(keys, k)
		}
	}
	if len(keys) > 0 {
		slices.Sort(keys)
		buffer.WriteString(" |")
		for i, k := range keys {
			if i > 0 {
				buffer.WriteByte(',')
			}
			fmt.Fprintf(buffer, " %s=%v", k, entry.Data[k])
		}
	}
	buffer.WriteByte('\n')
	return buffer.Bytes(), nil
}

var levels = map[string]logrus.Level{
	"debug":   logrus.DebugLevel,
	"info":    logrus.InfoLevel,
	"warn":    logrus.WarnLevel,
	"warning": logrus.WarnLevel,
	"error":   logrus.ErrorLevel,
}

// ParseLevel parses a level name. Unknown names map to info.
func ParseLevel(s string) logrus.Level {
	if level, ok := levels[strings.ToLower(s)]; ok {
		return level
	}
	return logrus.InfoLevel
}

// ValidLevel reports whether ParseLevel recognizes s.
func ValidLevel(s string) bool {
	_, ok := levels[strings.ToLower(s)]
	return ok
}

// Config configures a Logger.
type Config struct {
	// Level is the minimum level name (debug, info, warn, error).
	Level string

	// File switches output to a size-rotated log file when set.
	File string

	// MaxSizeMB is the rotation size of File. Zero uses 10.
	MaxSizeMB int

	// Output is used when File is empty. Defaults to os.Stderr.
	Output io.Writer
}

// Logger is a logrus logger whose level and destination can be changed
// after creation, e.g. when the core config file is reloaded.
type Logger struct {
	*logrus.Logger

	mu     sync.Mutex
	writer *lumberjack.Logger
}

// New creates a Logger from cfg.
func New(cfg Config) (*Logger, error) {
	l := &Logger{Logger: logrus.New()}
	l.SetFormatter(&Formatter{})
	if err := l.Apply(cfg); err != nil {
		return nil, err
	}
	return l, nil
}

// Apply switches the level and output to cfg. A previous log file is
// closed when the destination changes.
func (l *Logger) Apply(cfg Config) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.SetLevel(ParseLevel(cfg.Level))

	if cfg.File == "" {
		out := cfg.Output
		if out == nil {
			out = os.Stderr
		}
		l.SetOutput(out)
		return l.closeWriterLocked()
	}

	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	if l.writer != nil && l.writer.Filename == cfg.File && l.writer.MaxSize == maxSize {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return fmt.Errorf("logging: failed to create log directory: %w", err)
	}

	// A writer handed to logrus is never modified; swap in a new one.
	old := l.writer
	l.writer = &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    maxSize,
		MaxBackups: 3,
	}
	l.SetOutput(l.writer)
	if old != nil {
		return old.Close()
	}
	return nil
}

// Close closes the log file, if any. Output falls back to stderr.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writer == nil {
		return nil
	}
	l.SetOutput(os.Stderr)
	return l.closeWriterLocked()
}

func (l *Logger) closeWriterLocked() error {
	if l.writer == nil {
		return nil
	}
	err := l.writer.Close()
	l.writer = nil
	return err
}

// Component returns a logger tagged with the component name.
func Component(log logrus.FieldLogger, name string) logrus.FieldLogger {
	return log.WithField(ComponentField, name)
}
