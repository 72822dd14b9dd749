// Package logging builds the process logger.
package logging

import (
	"io"
	"strings"

	"github.com/labstack/gommon/log"
)

// Logger is the subset of *log.Logger components depend on.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

const header = `${time_rfc3339} ${level} ${prefix} ${short_file}:${line}`

// New returns a leveled logger; unknown levels mean info.
func New(prefix, level string) *log.Logger {
	l := log.New(prefix)
	l.SetHeader(header)
	l.SetLevel(ParseLevel(level))
	return l
}

// Discard is a logger that writes nowhere, for tests.
func Discard() *log.Logger {
	l := log.New("-")
	l.SetOutput(io.Discard)
	return l
}

func ParseLevel(s string) log.Lvl {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}
