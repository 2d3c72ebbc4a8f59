// Package geolog wraps slog.Logger with the structured fields the rtree
// and kdtree packages emit around Finish and around the *Logged buffer
// parse functions. Query operations stay off the logger entirely.
package geolog

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with geoindex-specific context.
type Logger struct {
	*slog.Logger
}

// New wraps handler in a Logger. A nil handler falls back to a text
// handler on stderr at info level.
func New(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// LogBuild reports a completed index construction.
func (l *Logger) LogBuild(kind string, numItems uint32, numNodes, numLevels int, method string) {
	l.Info("index built",
		"kind", kind,
		"num_items", numItems,
		"num_nodes", numNodes,
		"num_levels", numLevels,
		"method", method,
	)
}

// LogParse reports a buffer having been parsed into a queryable index.
func (l *Logger) LogParse(kind string, numItems uint32, numBytes int, err error) {
	if err != nil {
		l.Warn("index parse failed", "kind", kind, "error", err)
		return
	}
	l.Debug("index parsed", "kind", kind, "num_items", numItems, "num_bytes", numBytes)
}
