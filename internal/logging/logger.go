// Package logging provides the session log the interactive shell writes
// behind the user's back: one file per session, shared by every component,
// with a stderr fallback when the file can't be had.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// Session ID shared by every logger of this process
	sessionID     string
	sessionIDOnce sync.Once
)

// SessionID returns the process-wide session id, creating it on first use
func SessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.NewString()
	})
	return sessionID
}

// DefaultDir returns the default log directory under the user's home
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".tiekv", "logs"), nil
}

// Logger writes level-tagged entries to the session's log file
//
// Several components may hold their own Logger, they all append to the
// same file named after the session id. A logger that can't reach its
// file degrades to stderr instead of failing the caller.
type Logger struct {
	component string
	file      *os.File // nil when running on the stderr fallback
	logger    *log.Logger
	path      string
	mu        sync.Mutex
	closeOnce sync.Once
}

// New creates a logger for component writing under dir
// An empty dir selects DefaultDir. On any setup failure the returned
// logger is a working stderr fallback and the error says why.
func New(dir, component string) (*Logger, error) {
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return fallback(component, err), err
		}
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		err = fmt.Errorf("create log directory: %w", err)
		return fallback(component, err), err
	}

	path := filepath.Join(dir, SessionID()+"-tiekv.log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		err = fmt.Errorf("open log file: %w", err)
		return fallback(component, err), err
	}

	return &Logger{
		component: component,
		file:      file,
		logger:    log.New(file, "", 0),
		path:      path,
	}, nil
}

// fallback builds a stderr logger announcing why the file wasn't available
func fallback(component string, err error) *Logger {
	l := &Logger{
		component: component,
		logger:    log.New(os.Stderr, "", 0),
	}
	l.Errorf("file logging unavailable, using stderr: %v", err)
	return l
}

// entry renders one line with timestamp, component and level
func (l *Logger) entry(level, message string) string {
	ts := time.Now().Format("2006-01-02 15:04:05.000")
	return fmt.Sprintf("[%s] [%s] [%s] %s", ts, l.component, level, message)
}

func (l *Logger) write(level, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Println(l.entry(level, fmt.Sprintf(format, v...)))
}

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) {
	l.write("INFO", format, v...)
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.write("DEBUG", format, v...)
}

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.write("ERROR", format, v...)
}

// Path returns the log file path, empty on the stderr fallback
func (l *Logger) Path() string {
	return l.path
}

// Close closes the log file, safe to call more than once
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}
