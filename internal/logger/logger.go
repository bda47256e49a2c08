// Package logger provides structured logging with verbosity control.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Level represents logging verbosity.
type Level int

// Log levels.
const (
	LevelInfo Level = iota
	LevelDebug
)

// Logger provides leveled logging with an optional dry-run prefix.
type Logger struct {
	out    io.Writer
	errOut io.Writer
	level  Level
	prefix string
}

// New creates a new logger.
func New(verbose bool) *Logger {
	level := LevelInfo
	if verbose {
		level = LevelDebug
	}
	return &Logger{
		out:    os.Stdout,
		errOut: os.Stderr,
		level:  level,
	}
}

// SetDryRun sets dry-run mode for the log prefix.
func (l *Logger) SetDryRun(dryRun bool) {
	if dryRun {
		l.prefix = "[DRY RUN] "
	} else {
		l.prefix = ""
	}
}

// Info logs informational messages (always shown).
func (l *Logger) Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.out, "%s%s\n", l.prefix, msg)
}

// Debug logs debug messages (only in verbose mode).
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level >= LevelDebug {
		msg := fmt.Sprintf(format, args...)
		fmt.Fprintf(l.out, "%s[DEBUG] %s\n", l.prefix, msg)
	}
}

// Warn logs warning messages.
func (l *Logger) Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.out, "%s[WARN] %s\n", l.prefix, msg)
}

// Error logs error messages to stderr.
func (l *Logger) Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.errOut, "%s[ERROR] %s\n", l.prefix, msg)
}

// Diff logs one line of a pending change, marked with "+", "-" or "~".
func (l *Logger) Diff(op, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.out, "%s  %s %s\n", l.prefix, op, msg)
}

// MaskSecret masks sensitive data, showing only first and last 2 chars.
func MaskSecret(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:2] + strings.Repeat("*", len(secret)-4) + secret[len(secret)-2:]
}
