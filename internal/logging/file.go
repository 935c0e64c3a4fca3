package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// FileLogger appends formatted lines to a debug log file. A single underlying
// file is shared by all component loggers derived from it.
type FileLogger struct {
	mu        sync.Mutex
	out       *log.Logger
	closer    io.Closer
	level     Level
	component string
}

// NewFileLogger opens (or creates) the log file at path.
func NewFileLogger(path string, level Level) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &FileLogger{
		out:    log.New(file, "", 0),
		closer: file,
		level:  level,
	}, nil
}

// Component returns a logger that tags every line with the component name
// while sharing the parent's file handle and level.
func (l *FileLogger) Component(name string) Logger {
	return &FileLogger{
		out:       l.out,
		level:     l.level,
		component: name,
	}
}

// Close closes the underlying log file. Only the root logger holds the
// closer; component loggers return nil.
func (l *FileLogger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func (l *FileLogger) write(level Level, tag, format string, args ...any) {
	if l == nil || l.out == nil || level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := time.Now().Format("2006-01-02 15:04:05.000")
	msg := fmt.Sprintf(format, args...)
	if l.component != "" {
		l.out.Printf("[%s] [%s] [%s] %s", ts, tag, l.component, msg)
		return
	}
	l.out.Printf("[%s] [%s] %s", ts, tag, msg)
}

func (l *FileLogger) Debug(format string, args ...any) { l.write(LevelDebug, "DEBUG", format, args...) }
func (l *FileLogger) Info(format string, args ...any)  { l.write(LevelInfo, "INFO", format, args...) }
func (l *FileLogger) Warn(format string, args ...any)  { l.write(LevelWarn, "WARN", format, args...) }
func (l *FileLogger) Error(format string, args ...any) { l.write(LevelError, "ERROR", format, args...) }
