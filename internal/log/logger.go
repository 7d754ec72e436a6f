// Package log provides the library's global leveled logger. Logging is off by default so
// the library stays quiet when embedded; CLIs enable it from a -debug flag.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type Level int

const (
	LevelNone    Level = iota // Disables logging.
	LevelError                // Logs anomalies that are not expected to occur during normal use.
	LevelWarning              // Logs anomalies that are expected to occur occasionally during normal use.
	LevelInfo                 // Logs major events.
	LevelDebug                // Logs detailed IO, including full request and response bodies.
)

var (
	mu          sync.Mutex
	globalLevel Level
	output      io.Writer = os.Stderr
)

var labels = map[Level]string{
	LevelDebug:   "[debug]",
	LevelInfo:    "[info ]",
	LevelWarning: "[warn ]",
	LevelError:   "[error]",
}

func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	globalLevel = level
}

// SetOutput redirects log messages away from stderr. Intended for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func emit(level Level, format string, a ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if level > globalLevel {
		return
	}
	msg := fmt.Sprintf("%s %s ", time.Now().Format(time.RFC3339), labels[level])
	msg += fmt.Sprintf(format, a...)
	fmt.Fprintln(output, msg)
}

func Debug(format string, a ...interface{}) {
	emit(LevelDebug, format, a...)
}

func Info(format string, a ...interface{}) {
	emit(LevelInfo, format, a...)
}

func Warning(format string, a ...interface{}) {
	emit(LevelWarning, format, a...)
}

func Error(format string, a ...interface{}) {
	emit(LevelError, format, a...)
}
