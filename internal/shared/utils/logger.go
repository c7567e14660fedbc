package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	logDirEnvVar     = "ASKVIEW_LOG_DIR"
	serverModeEnvVar = "ASKVIEW_SERVER_MODE"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

type LogCategory string

const (
	LogCategoryService LogCategory = "service"
	LogCategoryDecode  LogCategory = "decode"
)

var (
	categoryMu      sync.Mutex
	categoryLoggers = make(map[LogCategory]*Logger)
)

// Logger writes leveled lines to askview-<category>.log.
type Logger struct {
	logger    *log.Logger
	echo      io.Writer
	level     LogLevel
	mu        *sync.Mutex
	component string
	category  LogCategory
	logID     string
}

// NewComponentLogger creates a service logger for a specific component
func NewComponentLogger(component string) *Logger {
	return NewCategorizedLogger(LogCategoryService, component)
}

// NewCategorizedLogger creates a logger for a specific category and component.
// Loggers of one category share the underlying file.
func NewCategorizedLogger(category LogCategory, component string) *Logger {
	base := getOrCreateCategoryLogger(category)
	clone := *base
	clone.component = component
	return &clone
}

// NewWriterLogger builds a logger that writes to w instead of a log file.
func NewWriterLogger(w io.Writer, category LogCategory, component string, level LogLevel) *Logger {
	return &Logger{
		logger:    log.New(w, "", 0),
		level:     level,
		mu:        &sync.Mutex{},
		component: component,
		category:  category,
	}
}

func getOrCreateCategoryLogger(category LogCategory) *Logger {
	categoryMu.Lock()
	defer categoryMu.Unlock()

	if logger, ok := categoryLoggers[category]; ok {
		return logger
	}

	logger := newFileLogger(DEBUG, category)
	categoryLoggers[category] = logger
	return logger
}

func newFileLogger(level LogLevel, category LogCategory) *Logger {
	l := &Logger{
		level:    level,
		mu:       &sync.Mutex{},
		category: category,
	}
	if os.Getenv(serverModeEnvVar) == "deploy" {
		l.echo = os.Stdout
	}

	file, err := OpenLogFile(category)
	if err != nil {
		log.Printf("Failed to open askview log file: %v", err)
		return l
	}
	l.logger = log.New(file, "", 0) // We'll format ourselves
	return l
}

func resolveLogDirectory() (string, error) {
	if override := strings.TrimSpace(os.Getenv(logDirEnvVar)); override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return home, nil
}

func logFileName(category LogCategory) string {
	if category == "" {
		category = LogCategoryService
	}
	return fmt.Sprintf("askview-%s.log", category)
}

// OpenLogFile opens (or creates) the log file for the given category.
func OpenLogFile(category LogCategory) (*os.File, error) {
	logDir, err := resolveLogDirectory()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}

	logPath := filepath.Join(logDir, logFileName(category))
	return os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// WithLogID returns a shallow copy of the logger that tags log lines with a log id.
func (l *Logger) WithLogID(logID string) *Logger {
	if l == nil {
		return nil
	}
	if strings.TrimSpace(logID) == "" {
		return l
	}
	clone := *l
	clone.logID = logID
	return &clone
}

// ParseLevel maps a config level name to a LogLevel, defaulting to INFO.
func ParseLevel(name string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

func (l *Logger) log(level LogLevel, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level || (l.logger == nil && l.echo == nil) {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	if ok {
		file = filepath.Base(file)
	} else {
		file = "???"
		line = 0
	}

	// Format: 2025-09-30 12:34:56 [INFO] [SERVICE] [Component] file.go:123 - Message
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	component := l.component
	if component == "" {
		component = "ASKVIEW"
	}
	category := strings.ToUpper(string(l.category))
	if category == "" {
		category = "SERVICE"
	}
	message := fmt.Sprintf(format, args...)

	var logLine string
	if logID := strings.TrimSpace(l.logID); logID != "" {
		logLine = fmt.Sprintf("%s [%s] [%s] [%s] [log_id=%s] %s:%d - %s\n",
			timestamp, levelToString(level), category, component, logID, file, line, message)
	} else {
		logLine = fmt.Sprintf("%s [%s] [%s] [%s] %s:%d - %s\n",
			timestamp, levelToString(level), category, component, file, line, message)
	}

	if l.logger != nil {
		l.logger.Print(logLine)
	}
	if l.echo != nil {
		fmt.Fprint(l.echo, logLine)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...any) {
	l.log(DEBUG, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...any) {
	l.log(INFO, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...any) {
	l.log(WARN, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...any) {
	l.log(ERROR, format, args...)
}

func levelToString(level LogLevel) string {
	switch level {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
