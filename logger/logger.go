package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset   = "\033[0m"
	ansiRed     = "\033[31m"
	ansiGreen   = "\033[32m"
	ansiYellow  = "\033[33m"
	ansiMagenta = "\033[35m"
	ansiCyan    = "\033[36m"
)

// LogLevel defines the severity of the log
type LogLevel int

const (
	LogLevelSilent LogLevel = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// ParseLevel converts a level name (silent, error, warn, info, debug) to a LogLevel.
func ParseLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "silent":
		return LogLevelSilent, nil
	case "error":
		return LogLevelError, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "", "info":
		return LogLevelInfo, nil
	case "debug":
		return LogLevelDebug, nil
	}
	return LogLevelInfo, fmt.Errorf("unknown log level %q", name)
}

// LogFormat defines the output format of the log
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// Logger is the interface for logging store statements, callback traces and internal messages
type Logger interface {
	SetLevel(level LogLevel)
	SetFormat(format LogFormat)
	SetOutput(w io.Writer)
	WithFields(fields map[string]any) Logger
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	SQL(sql string, duration time.Duration, args ...any)
	Hook(chain, name string, duration time.Duration, result string)
}

// baseLogger contains common logging functionality
type baseLogger struct {
	mu     *sync.Mutex
	level  LogLevel
	format LogFormat
	writer io.Writer
	fields map[string]any
}

func (l *baseLogger) SetLevel(level LogLevel) {
	l.level = level
}

func (l *baseLogger) SetFormat(format LogFormat) {
	l.format = format
}

func (l *baseLogger) SetOutput(w io.Writer) {
	l.writer = w
}

func (l *baseLogger) clone() *baseLogger {
	newFields := make(map[string]any, len(l.fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	return &baseLogger{
		mu:     l.mu,
		level:  l.level,
		format: l.format,
		writer: l.writer,
		fields: newFields,
	}
}

// stdLogger is the default implementation of Logger
type stdLogger struct {
	baseLogger
}

// NewStdLogger creates a new standard logger
func NewStdLogger() Logger {
	return &stdLogger{
		baseLogger: baseLogger{
			mu:     &sync.Mutex{},
			level:  LogLevelInfo,
			format: LogFormatText,
			writer: os.Stdout,
			fields: make(map[string]any),
		},
	}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() Logger {
	l := NewStdLogger()
	l.SetLevel(LogLevelSilent)
	l.SetOutput(io.Discard)
	return l
}

func (l *stdLogger) WithFields(fields map[string]any) Logger {
	newLogger := &stdLogger{
		baseLogger: *l.clone(),
	}
	for k, v := range fields {
		newLogger.fields[k] = v
	}
	return newLogger
}

func (l *stdLogger) Debug(format string, args ...any) {
	if l.level >= LogLevelDebug {
		l.log("DEBUG", format, args...)
	}
}

func (l *stdLogger) Info(format string, args ...any) {
	if l.level >= LogLevelInfo {
		l.log("INFO", format, args...)
	}
}

func (l *stdLogger) Warn(format string, args ...any) {
	if l.level >= LogLevelWarn {
		l.log("WARN", format, args...)
	}
}

func (l *stdLogger) Error(format string, args ...any) {
	if l.level >= LogLevelError {
		l.log("ERROR", format, args...)
	}
}

func (l *stdLogger) SQL(sql string, duration time.Duration, args ...any) {
	if l.level < LogLevelInfo {
		return
	}
	if l.format == LogFormatJSON {
		l.logKV("SQL", "", "sql", sql, "duration", duration.String(), "args", args)
		return
	}
	msg := fmt.Sprintf("[%v] %s | args: %v", duration, sql, args)
	l.write("SQL", getSQLColor(sql)+msg+ansiReset)
}

// Hook logs one callback invocation at debug level.
func (l *stdLogger) Hook(chain, name string, duration time.Duration, result string) {
	if l.level < LogLevelDebug {
		return
	}
	if l.format == LogFormatJSON {
		l.logKV("HOOK", "", "chain", chain, "name", name, "duration", duration.String(), "result", result)
		return
	}
	color := ansiCyan
	if result != "continue" {
		color = ansiMagenta
	}
	if name == "" {
		name = "-"
	}
	l.write("HOOK", fmt.Sprintf("%s[%v] %s %s -> %s%s", color, duration, chain, name, result, ansiReset))
}

func (l *stdLogger) log(level string, format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	if l.format == LogFormatJSON {
		l.logKV(level, msg)
		return
	}
	l.write(level, msg)
}

// logKV writes a JSON entry; kv holds alternating key/value pairs.
func (l *stdLogger) logKV(level, msg string, kv ...any) {
	data := make(map[string]any, len(l.fields)+3+len(kv)/2)
	for k, v := range l.fields {
		data[k] = v
	}
	data["time"] = time.Now().Format(time.RFC3339)
	data["level"] = level
	if msg != "" {
		data["msg"] = msg
	}
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			data[key] = kv[i+1]
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = json.NewEncoder(l.writer).Encode(data)
}

func (l *stdLogger) write(level, msg string) {
	fieldStr := ""
	if len(l.fields) > 0 {
		fieldStr = fmt.Sprintf(" fields: %v", l.fields)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.writer, "[JRECORD] %s %s: %s%s\n", time.Now().Format("2006-01-02 15:04:05"), level, msg, fieldStr)
}

func getSQLColor(sqlStr string) string {
	s := strings.TrimSpace(strings.ToUpper(sqlStr))
	switch {
	case strings.HasPrefix(s, "SELECT"), strings.HasPrefix(s, "GET"):
		return ansiYellow
	case strings.HasPrefix(s, "INSERT"), strings.HasPrefix(s, "UPDATE"), strings.HasPrefix(s, "SET"):
		return ansiGreen
	case strings.HasPrefix(s, "DELETE"), strings.HasPrefix(s, "DEL"):
		return ansiRed
	default:
		return ansiCyan
	}
}
