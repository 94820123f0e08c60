package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Level represents a logging level
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	PROGRESS // Special level that always displays
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case PROGRESS:
		return "PROGRESS"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a level name to a Level, defaulting to INFO
func ParseLevel(name string) Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Format represents the log output format
type Format int

const (
	Text Format = iota
	JSON
)

// ParseFormat maps a format name to a Format, defaulting to Text
func ParseFormat(name string) Format {
	if strings.EqualFold(strings.TrimSpace(name), "json") {
		return JSON
	}
	return Text
}

// Logger handles structured logging
type Logger struct {
	out    io.Writer
	level  Level
	format Format
	mu     sync.RWMutex
}

// LogConfig contains logger configuration
type LogConfig struct {
	Level  Level
	Format Format
	// Output defaults to stderr so command output on stdout stays machine readable
	Output io.Writer
}

var (
	defaultLogger = New(LogConfig{Level: INFO, Format: Text})

	// Color definitions
	debugColor    = color.New(color.FgCyan)
	infoColor     = color.New(color.FgGreen)
	warnColor     = color.New(color.FgYellow)
	errorColor    = color.New(color.FgRed)
	progressColor = color.New(color.FgBlue, color.Bold)
)

// New creates a logger from the given configuration
func New(config LogConfig) *Logger {
	out := config.Output
	if out == nil {
		out = os.Stderr
	}
	return &Logger{
		out:    out,
		level:  config.Level,
		format: config.Format,
	}
}

// Configure sets up the default logger
func Configure(config LogConfig) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.level = config.Level
	defaultLogger.format = config.Format
	if config.Output != nil {
		defaultLogger.out = config.Output
	}
}

type logEntry struct {
	Timestamp string      `json:"timestamp"`
	Level     string      `json:"level"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
}

func (l *Logger) log(level Level, msg string, data interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Always show PROGRESS level, otherwise respect level setting
	if level != PROGRESS && level < l.level {
		return
	}

	timestamp := time.Now().Format("2006/01/02 15:04:05")

	if l.format == JSON {
		entry := logEntry{
			Timestamp: timestamp,
			Level:     level.String(),
			Message:   msg,
			Data:      data,
		}
		if err := json.NewEncoder(l.out).Encode(entry); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode log entry: %v\n", err)
		}
		return
	}

	var levelColor *color.Color
	switch level {
	case DEBUG:
		levelColor = debugColor
	case INFO:
		levelColor = infoColor
	case WARN:
		levelColor = warnColor
	case ERROR:
		levelColor = errorColor
	case PROGRESS:
		levelColor = progressColor
	default:
		levelColor = infoColor
	}

	levelStr := levelColor.Sprintf("%-5s", level.String())
	fmt.Fprintf(l.out, "%s %s: %s", timestamp, levelStr, msg)
	if data != nil {
		fmt.Fprintf(l.out, " %+v", data)
	}
	fmt.Fprintln(l.out)
}

func (l *Logger) Debug(msg string, data ...interface{}) {
	l.log(DEBUG, msg, firstOrNil(data))
}

func (l *Logger) Info(msg string, data ...interface{}) {
	l.log(INFO, msg, firstOrNil(data))
}

func (l *Logger) Warn(msg string, data ...interface{}) {
	l.log(WARN, msg, firstOrNil(data))
}

func (l *Logger) Error(msg string, err error, data ...interface{}) {
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	l.log(ERROR, msg, firstOrNil(data))
}

func (l *Logger) Progress(msg string, data interface{}) {
	l.log(PROGRESS, msg, data)
}

// firstOrNil returns the first element of data if present, nil otherwise
func firstOrNil(data []interface{}) interface{} {
	if len(data) > 0 {
		return data[0]
	}
	return nil
}

// FetchStart logs the start of a cost query
func (l *Logger) FetchStart(timeRange, subscription string) {
	data := map[string]interface{}{
		"range": timeRange,
	}
	if subscription != "" {
		data["subscription"] = subscription
	}
	l.Info("Fetching Azure costs", data)
}

// FetchComplete logs the outcome of a cost query
func (l *Logger) FetchComplete(source string, records, skipped int) {
	data := map[string]interface{}{
		"source":  source,
		"records": records,
		"skipped": skipped,
	}
	l.Info("Cost data loaded", data)
}

// DemoFallback logs that live data could not be used
func (l *Logger) DemoFallback(reason error) {
	l.Warn("Live cost data unavailable, using demo data", map[string]interface{}{
		"reason": reason.Error(),
	})
}

// AnalysisError logs a failed inference request
func (l *Logger) AnalysisError(backend string, err error) {
	l.Error("AI analysis failed", err, map[string]interface{}{
		"backend": backend,
	})
}

// Default logger methods
func Debug(msg string, data ...interface{}) {
	defaultLogger.Debug(msg, data...)
}

func Info(msg string, data ...interface{}) {
	defaultLogger.Info(msg, data...)
}

func Warn(msg string, data ...interface{}) {
	defaultLogger.Warn(msg, data...)
}

func Error(msg string, err error, data ...interface{}) {
	defaultLogger.Error(msg, err, data...)
}

func Progress(msg string, data ...interface{}) {
	defaultLogger.Progress(msg, firstOrNil(data))
}

func FetchStart(timeRange, subscription string) {
	defaultLogger.FetchStart(timeRange, subscription)
}

func FetchComplete(source string, records, skipped int) {
	defaultLogger.FetchComplete(source, records, skipped)
}

func DemoFallback(reason error) {
	defaultLogger.DemoFallback(reason)
}

func AnalysisError(backend string, err error) {
	defaultLogger.AnalysisError(backend, err)
}
