// Package logger provides leveled, structured logging for commongo with an
// optional subscriber stream so embedding processes can capture entries.
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// ANSI color codes for console output
const (
	ColorReset        = "\033[0m"
	ColorCyan         = "\033[36m"
	ColorGreen        = "\033[32m"
	ColorBrightRed    = "\033[91m"
	ColorBrightYellow = "\033[93m"
	ColorBrightGray   = "\033[90m"
)

// Column widths for aligned console output
const (
	componentNameWidth = 16
	logLevelWidth      = 7
)

// LogEntry represents a single log entry
type LogEntry struct {
	Time    time.Time
	Level   string
	Message string
	Fields  map[string]string
}

// Logger provides structured logging with streaming support.
// All methods are safe for concurrent use. A nil *Logger is valid and
// discards everything, so callers never need to guard their log sites.
type Logger struct {
	component string
	version   string

	mu             sync.RWMutex
	subscribers    []chan LogEntry
	colorEnabled   bool
	disableConsole bool
	minRank        int
}

var levelRank = map[string]int{
	"DEBUG": 0,
	"INFO":  1,
	"WARN":  2,
	"ERROR": 3,
	"FATAL": 4,
}

// New creates a new logger instance for the named component.
func New(component, version string) *Logger {
	return &Logger{
		component:    component,
		version:      version,
		colorEnabled: isTerminal(),
	}
}

func isTerminal() bool {
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	fileInfo, _ := os.Stdout.Stat()
	if fileInfo == nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

func levelColor(level string) string {
	switch level {
	case "DEBUG":
		return ColorBrightGray
	case "INFO":
		return ColorGreen
	case "WARN":
		return ColorBrightYellow
	case "ERROR", "FATAL":
		return ColorBrightRed
	default:
		return ColorReset
	}
}

// Subscribe returns a channel that receives every subsequent log entry.
// Entries are dropped for subscribers that fall behind.
func (l *Logger) Subscribe() <-chan LogEntry {
	ch := make(chan LogEntry, 100)

	l.mu.Lock()
	l.subscribers = append(l.subscribers, ch)
	l.mu.Unlock()

	return ch
}

// DisableConsoleOutput suppresses console output; subscribers still receive entries.
func (l *Logger) DisableConsoleOutput() {
	l.mu.Lock()
	l.disableConsole = true
	l.mu.Unlock()
}

// EnableConsoleOutput restores console output (default behavior).
func (l *Logger) EnableConsoleOutput() {
	l.mu.Lock()
	l.disableConsole = false
	l.mu.Unlock()
}

// SetMinLevel drops entries below the given level ("debug", "info", "warn",
// "error"). Unknown levels leave the threshold unchanged.
func (l *Logger) SetMinLevel(level string) {
	rank, ok := levelRank[strings.ToUpper(level)]
	if !ok {
		return
	}
	l.mu.Lock()
	l.minRank = rank
	l.mu.Unlock()
}

func (l *Logger) log(level, message string, fields map[string]string) {
	if l == nil {
		return
	}

	l.mu.RLock()
	suppressed := levelRank[level] < l.minRank
	l.mu.RUnlock()
	if suppressed {
		return
	}

	now := time.Now()
	entry := LogEntry{
		Time:    now,
		Level:   level,
		Message: message,
		Fields:  fields,
	}

	l.mu.RLock()
	toConsole := !l.disableConsole
	color := ""
	reset := ""
	if l.colorEnabled {
		color = levelColor(level)
		reset = ColorReset
	}
	l.mu.RUnlock()

	if toConsole {
		line := fmt.Sprintf("%s[%s] [%-*s] [%s%-*s%s] %s",
			ColorCyan,
			now.Format("2006-01-02 15:04:05.000"),
			componentNameWidth, l.component,
			color, logLevelWidth, level, reset,
			message)
		for k, v := range fields {
			line += fmt.Sprintf(" %s=%s", k, v)
		}
		fmt.Println(line + reset)
	}

	l.mu.RLock()
	for _, ch := range l.subscribers {
		select {
		case ch <- entry:
		default:
			// Skip if channel is full
		}
	}
	l.mu.RUnlock()
}

// Debug logs a debug message with optional formatting args.
func (l *Logger) Debug(message string, args ...interface{}) {
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}
	l.log("DEBUG", message, nil)
}

// Info logs an info message with optional formatting args.
func (l *Logger) Info(message string, args ...interface{}) {
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}
	l.log("INFO", message, nil)
}

// Warn logs a warning message with optional formatting args.
func (l *Logger) Warn(message string, args ...interface{}) {
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}
	l.log("WARN", message, nil)
}

// Error logs an error message with optional formatting args.
func (l *Logger) Error(message string, args ...interface{}) {
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}
	l.log("ERROR", message, nil)
}

// Fatal logs a fatal message and exits.
func (l *Logger) Fatal(message string, args ...interface{}) {
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}
	l.log("FATAL", message, nil)
	os.Exit(1)
}

// WithFields returns a context that attaches fields to every entry it logs.
func (l *Logger) WithFields(fields map[string]string) *LogContext {
	return &LogContext{logger: l, fields: fields}
}

// LogDatabaseOperation records a structured database operation event:
// the statement kind, an excerpt of the statement, its duration, and the
// number of rows returned or affected.
func (l *Logger) LogDatabaseOperation(operation, query string, duration time.Duration, rows int64) {
	if l == nil {
		return
	}
	l.log("INFO", fmt.Sprintf("database operation %s completed", operation), map[string]string{
		"operation":   operation,
		"query":       truncate(query, 120),
		"duration_ms": fmt.Sprintf("%d", duration.Milliseconds()),
		"rows":        fmt.Sprintf("%d", rows),
	})
}

// LogMessagingOperation records a structured messaging operation event.
// messageID and size may be zero-valued when the backend cannot supply them.
func (l *Logger) LogMessagingOperation(operation, queue, messageID string, size int, duration time.Duration) {
	if l == nil {
		return
	}
	fields := map[string]string{
		"operation":   operation,
		"queue":       queue,
		"duration_ms": fmt.Sprintf("%d", duration.Milliseconds()),
	}
	if messageID != "" {
		fields["message_id"] = messageID
	}
	if size > 0 {
		fields["size"] = fmt.Sprintf("%d", size)
	}
	l.log("INFO", fmt.Sprintf("messaging operation %s completed", operation), fields)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

// LogContext provides field-based logging
type LogContext struct {
	logger *Logger
	fields map[string]string
}

func (c *LogContext) Debug(message string) {
	c.logger.log("DEBUG", message, c.fields)
}

func (c *LogContext) Info(message string) {
	c.logger.log("INFO", message, c.fields)
}

func (c *LogContext) Warn(message string) {
	c.logger.log("WARN", message, c.fields)
}

func (c *LogContext) Error(message string) {
	c.logger.log("ERROR", message, c.fields)
}
