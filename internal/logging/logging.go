// Package logging builds the hclog logger shared by savekeep components.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Name is the root logger name.
const Name = "savekeep"

// New returns a logger writing to w at the named level ("trace", "debug",
// "info", "warn", "error" or "off"). Unknown levels fall back to info.
// A nil writer means stderr.
func New(level string, w io.Writer) hclog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   Name,
		Level:  ParseLevel(level),
		Output: w,
		Color:  hclog.AutoColor,
	})
}

// ParseLevel converts a level name to an hclog level.
func ParseLevel(level string) hclog.Level {
	lvl := hclog.LevelFromString(strings.TrimSpace(level))
	if lvl == hclog.NoLevel {
		return hclog.Info
	}
	return lvl
}
