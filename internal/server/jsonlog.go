package server

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity of a log entry
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var levelRank = map[LogLevel]int{
	LogLevelDebug: 0,
	LogLevelInfo:  1,
	LogLevelWarn:  2,
	LogLevelError: 3,
}

// Logger writes one entry per line, either as JSON or as plain text.
type Logger struct {
	mu         sync.Mutex
	output     io.Writer
	minLevel   LogLevel
	enableJSON bool
}

// LogEntry is the JSON shape of a log line.
type LogEntry struct {
	Level   LogLevel       `json:"level"`
	Time    string         `json:"time"`
	Message string         `json:"msg"`
	Fields  map[string]any `json:"fields,omitempty"`
	Error   string         `json:"error,omitempty"`
	Caller  string         `json:"caller,omitempty"`
}

// DefaultLogger is configured from PHOTOWALL_LOG_FORMAT, PHOTOWALL_LOG_LEVEL
// and PHOTOWALL_ENV.
var DefaultLogger = LoggerFromEnv(os.Stdout, os.Getenv)

// NewLogger returns a logger writing to out.
func NewLogger(out io.Writer, level LogLevel, enableJSON bool) *Logger {
	if _, ok := levelRank[level]; !ok {
		level = LogLevelInfo
	}
	return &Logger{output: out, minLevel: level, enableJSON: enableJSON}
}

// LoggerFromEnv builds a logger from environment settings. JSON output is
// on when the format is "json" or the environment is "production".
func LoggerFromEnv(out io.Writer, getenv func(string) string) *Logger {
	enableJSON := strings.EqualFold(getenv("PHOTOWALL_LOG_FORMAT"), "json") ||
		strings.EqualFold(getenv("PHOTOWALL_ENV"), "production")
	level := LogLevel(strings.ToLower(strings.TrimSpace(getenv("PHOTOWALL_LOG_LEVEL"))))
	return NewLogger(out, level, enableJSON)
}

func (l *Logger) shouldLog(level LogLevel) bool {
	return levelRank[level] >= levelRank[l.minLevel]
}

func getCaller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	if i := strings.LastIndexByte(file, '/'); i >= 0 {
		file = file[i+1:]
	}
	return fmt.Sprintf("%s:%d", file, line)
}

func (l *Logger) log(level LogLevel, msg string, fields map[string]any, err error) {
	if l == nil || !l.shouldLog(level) {
		return
	}

	entry := LogEntry{
		Level:   level,
		Time:    time.Now().UTC().Format(time.RFC3339),
		Message: msg,
		Fields:  fields,
		Caller:  getCaller(3),
	}
	if err != nil {
		entry.Error = err.Error()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.enableJSON {
		data, mErr := json.Marshal(entry)
		if mErr != nil {
			fmt.Fprintf(l.output, `{"level":"error","msg":"log_marshal_failed","error":%q}`+"\n", mErr.Error())
			return
		}
		fmt.Fprintln(l.output, string(data))
		return
	}

	// Plain text, fields in key order so lines are stable.
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s", entry.Level, entry.Time, entry.Message)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	if entry.Error != "" {
		fmt.Fprintf(&b, " error=%q", entry.Error)
	}
	fmt.Fprintln(l.output, b.String())
}

func (l *Logger) Debug(msg string, fields map[string]any) {
	l.log(LogLevelDebug, msg, fields, nil)
}

func (l *Logger) Info(msg string, fields map[string]any) {
	l.log(LogLevelInfo, msg, fields, nil)
}

func (l *Logger) Warn(msg string, fields map[string]any) {
	l.log(LogLevelWarn, msg, fields, nil)
}

func (l *Logger) Error(msg string, fields map[string]any, err error) {
	l.log(LogLevelError, msg, fields, err)
}
