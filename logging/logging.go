package logging

import "io"
import "log/slog"
import "strings"

// New returns a text logger writing to w at level. A non-verbose replica
// gets a logger that discards everything.
func New(w io.Writer, verbose bool, level slog.Level) *slog.Logger {
	if !verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// ParseLevel maps debug, info, warn and error to a level, info by default
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}
