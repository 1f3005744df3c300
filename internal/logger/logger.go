package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const maxBufferSize = 1000

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

var (
	instance *Logger
	once     sync.Once
	initMu   sync.Mutex
)

type LogEntry struct {
	Timestamp time.Time
	Level     Level
	Message   string
}

type Logger struct {
	file    *os.File
	logger  *log.Logger
	mu      sync.Mutex
	buffer  []LogEntry
	enabled bool
	debug   bool
}

// Init opens the log file once per process. On failure the in-memory buffer
// still works.
func Init(logPath string) error {
	var initErr error
	once.Do(func() {
		if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
			return
		}
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			initErr = fmt.Errorf("failed to open log file: %w", err)
			return
		}

		initMu.Lock()
		instance = &Logger{
			file:    file,
			logger:  log.New(file, "", log.LstdFlags),
			buffer:  make([]LogEntry, 0, maxBufferSize),
			enabled: true,
		}
		initMu.Unlock()
	})

	EnsureInit()
	return initErr
}

func EnsureInit() {
	initMu.Lock()
	defer initMu.Unlock()
	if instance == nil {
		instance = &Logger{
			buffer: make([]LogEntry, 0, maxBufferSize),
		}
	}
}

// SetDebug toggles whether Debug entries are kept.
func SetDebug(enabled bool) {
	EnsureInit()
	instance.mu.Lock()
	defer instance.mu.Unlock()
	instance.debug = enabled
}

func DebugEnabled() bool {
	EnsureInit()
	instance.mu.Lock()
	defer instance.mu.Unlock()
	return instance.debug
}

func Close() error {
	if instance != nil && instance.file != nil {
		return instance.file.Close()
	}
	return nil
}

func write(level Level, message string) {
	EnsureInit()
	instance.mu.Lock()
	defer instance.mu.Unlock()

	if level == LevelDebug && !instance.debug {
		return
	}

	if len(instance.buffer) >= maxBufferSize {
		instance.buffer = instance.buffer[1:]
	}
	instance.buffer = append(instance.buffer, LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
	})

	if instance.enabled && instance.logger != nil {
		instance.logger.Printf("[%s] %s", level, message)
	}
}

func GetLogs() []LogEntry {
	EnsureInit()
	instance.mu.Lock()
	defer instance.mu.Unlock()

	logs := make([]LogEntry, len(instance.buffer))
	copy(logs, instance.buffer)
	return logs
}

func LogFileOpen(path string) {
	write(LevelInfo, fmt.Sprintf("[FILE_OPEN] %s", path))
}

func LogFileWrite(path string) {
	write(LevelInfo, fmt.Sprintf("[FILE_WRITE] %s", path))
}

func LogError(operation, subject string, err error) {
	write(LevelError, fmt.Sprintf("%s: %s - %v", operation, subject, err))
}

func Log(message string, args ...interface{}) {
	write(LevelInfo, fmt.Sprintf(message, args...))
}

func Debug(message string, args ...interface{}) {
	write(LevelDebug, fmt.Sprintf(message, args...))
}
