// Package logging builds the leveled console logger shared by every command.
package logging

import (
	"io"

	"github.com/charmbracelet/log"
)

const DefaultLevel = "info"

// New returns a logger writing to w. Unknown levels fall back to info.
func New(w io.Writer, level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          "tada",
		ReportTimestamp: true,
	})
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
