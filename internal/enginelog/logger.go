// Package enginelog provides the small structured-enough logger the engine
// core and its Vulkan adapter log through: an info/warn/error triple of
// *log.Logger instances writing to an injected io.Writer rather than a
// hardcoded file, so tests can assert against an in-memory buffer instead
// of touching the filesystem.
package enginelog

import (
	"io"
	"log"
	"os"
)

// Logger bundles three *log.Logger instances at different severities.
type Logger struct {
	Info  *log.Logger
	Warn  *log.Logger
	Error *log.Logger
}

// New builds a Logger writing all three severities to w, each with its own
// prefix.
func New(w io.Writer) *Logger {
	flags := log.Ldate | log.Ltime | log.Lshortfile
	return &Logger{
		Info:  log.New(w, "INFO: ", flags),
		Warn:  log.New(w, "WARN: ", flags),
		Error: log.New(w, "ERROR: ", flags),
	}
}

// NewFileLogger opens (creating if needed) a log file at path and returns a
// Logger writing to it, for callers that want file-backed output instead of
// an in-memory writer.
func NewFileLogger(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		return nil, err
	}
	return New(f), nil
}

// Nop returns a Logger that discards everything, for callers (tests,
// fire-and-forget demos) that don't care about log output.
func Nop() *Logger {
	return New(io.Discard)
}
