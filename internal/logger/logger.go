// Package logger provides levelled logging for sercha-nodes.
//
// Warnings always reach the output. Debug and info messages are printed only
// in verbose mode, enabled with the --verbose flag or log.verbose setting, to
// show what scans and syncs are doing.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Level orders log messages by importance.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
)

// String returns the tag printed in front of a message.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

var (
	mu        sync.RWMutex
	threshold           = LevelWarn
	output    io.Writer = os.Stderr
)

// SetVerbose lowers the threshold to LevelDebug, or restores LevelWarn.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	if v {
		threshold = LevelDebug
	} else {
		threshold = LevelWarn
	}
}

// IsVerbose returns true if debug messages are printed.
func IsVerbose() bool {
	return Enabled(LevelDebug)
}

// Enabled reports whether messages at level are printed.
func Enabled(level Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return level >= threshold
}

// SetOutput sets the output writer. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func logf(level Level, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if level >= threshold {
		fmt.Fprintf(output, "["+level.String()+"] "+format+"\n", args...)
	}
}

// Debug prints a message in verbose mode.
func Debug(format string, args ...any) { logf(LevelDebug, format, args...) }

// Info prints an informational message in verbose mode.
func Info(format string, args ...any) { logf(LevelInfo, format, args...) }

// Warn prints a warning.
func Warn(format string, args ...any) { logf(LevelWarn, format, args...) }

// Section prints a section header in verbose mode.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if LevelInfo >= threshold {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}
