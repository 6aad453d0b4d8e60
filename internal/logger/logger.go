package logger

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sensorlink/internal/config"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Log file names, one per level.
const (
	InfoFile    = "info.log"
	WarningFile = "warning.log"
	ErrorFile   = "error.log"
)

// Logger provides leveled logging (info/warning/error) to files and stdout/stderr.
type Logger struct {
	infoLog    zerolog.Logger
	warningLog zerolog.Logger
	errorLog   zerolog.Logger
	files      []*os.File
	logDir     string
	mu         sync.Mutex
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(config *config.Config) *Logger {
	if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	logger := &Logger{
		logDir: config.LogDirectory,
	}

	logger.setupLoggers()
	return logger
}

// Discard returns a Logger that drops every entry.
func Discard() *Logger {
	nop := zerolog.Nop()
	return &Logger{infoLog: nop, warningLog: nop, errorLog: nop}
}

// setupLoggers initializes writers and per-level loggers.
func (l *Logger) setupLoggers() {
	infoFile := l.openLogFile(filepath.Join(l.logDir, InfoFile))
	warningFile := l.openLogFile(filepath.Join(l.logDir, WarningFile))
	errorFile := l.openLogFile(filepath.Join(l.logDir, ErrorFile))

	l.infoLog = newLevelLogger(os.Stdout, infoFile)
	l.warningLog = newLevelLogger(os.Stdout, warningFile)
	l.errorLog = newLevelLogger(os.Stderr, errorFile)
}

func newLevelLogger(console io.Writer, file io.Writer) zerolog.Logger {
	writer := zerolog.MultiLevelWriter(
		zerolog.ConsoleWriter{Out: console, TimeFormat: time.DateTime},
		zerolog.ConsoleWriter{Out: file, TimeFormat: time.DateTime, NoColor: true},
	)
	return zerolog.New(writer).With().Timestamp().CallerWithSkipFrameCount(3).Logger()
}

// openLogFile opens or creates a log file for appending.
func (l *Logger) openLogFile(filename string) *os.File {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file %s: %v", filename, err)
	}
	l.files = append(l.files, file)
	return file
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Info().Msgf(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Warn().Msgf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Error().Msgf(format, v...)
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) {
	if l.logDir == "" {
		return
	}
	filePath := filepath.Join(l.logDir, filepath.Base(fileName))
	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		l.Error("Error opening file: %v", err)
		return
	}
	defer file.Close()

	l.Info("File %s has been cleared.", fileName)
}

// LogDirectory returns the directory the level files are written to.
func (l *Logger) LogDirectory() string {
	return l.logDir
}

// Close releases the level files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = nil
	return firstErr
}
