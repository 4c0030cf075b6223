// Package logger provides the coloured, prefixed line logger shared by every component.
package logger

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/beka-birhanu/maze-swarm/config"
)

var ErrNilWriter = errors.New("logger writer is nil")

// Logger writes lines of the form "[PREFIX] [LEVEL] message" with a coloured prefix.
type Logger struct {
	out    *log.Logger
	prefix string
}

// New creates a logger writing to w. color is one of the config.Color* constants.
func New(prefix, color string, w io.Writer) (*Logger, error) {
	if w == nil {
		return nil, ErrNilWriter
	}
	return &Logger{
		out:    log.New(w, "", log.LstdFlags),
		prefix: fmt.Sprintf("%s[%s]%s", color, prefix, config.ColorReset),
	}, nil
}

// Info logs an informational message.
func (l *Logger) Info(msg string) {
	l.print(config.LogInfoColor, "INFO", msg)
}

// Warning logs a recoverable problem.
func (l *Logger) Warning(msg string) {
	l.print(config.LogWarningColor, "WARNING", msg)
}

// Error logs a failure.
func (l *Logger) Error(msg string) {
	l.print(config.LogErrorColor, "ERROR", msg)
}

func (l *Logger) print(color, level, msg string) {
	l.out.Printf("%s %s[%s]%s %s", l.prefix, color, level, config.LogColorReset, msg)
}
