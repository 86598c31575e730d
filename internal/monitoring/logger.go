// Package monitoring provides the diagnostic trace used while scenes run.
//
// A Logger is passed explicitly from the run configuration down to the
// components that trace; there is no package-level switch.
package monitoring

import (
	"io"
	"log"
)

// Logger emits diagnostic trace lines. A nil *Logger is valid and discards
// everything, as does one built with Discard.
type Logger struct {
	logf func(format string, v ...interface{})
}

// New returns a Logger writing to w with the standard log flags.
func New(w io.Writer) *Logger {
	l := log.New(w, "", log.LstdFlags)
	return &Logger{logf: l.Printf}
}

// NewFunc wraps an existing printf-style function. Passing nil yields a
// no-op logger.
func NewFunc(f func(format string, v ...interface{})) *Logger {
	if f == nil {
		return Discard()
	}
	return &Logger{logf: f}
}

// Discard returns a Logger that drops all output.
func Discard() *Logger {
	return &Logger{}
}

// ForVerbosity returns a Logger writing to w when verbose is set and a
// discarding Logger otherwise.
func ForVerbosity(w io.Writer, verbose bool) *Logger {
	if !verbose {
		return Discard()
	}
	return New(w)
}

// Logf formats and emits one trace line.
func (l *Logger) Logf(format string, v ...interface{}) {
	if l == nil || l.logf == nil {
		return
	}
	l.logf(format, v...)
}

// Enabled reports whether trace lines are emitted.
func (l *Logger) Enabled() bool {
	return l != nil && l.logf != nil
}
