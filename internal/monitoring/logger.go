package monitoring

import (
	"io"
	stdlog "log"
	"time"

	"github.com/charmbracelet/log"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger or UseLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = stdlog.Printf

// Debugf receives verbose diagnostics (cache hits, skipped optional columns).
// It is muted until UseLogger installs a logger at debug level.
var Debugf func(format string, v ...interface{}) = func(string, ...interface{}) {}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// NewLogger builds a structured logger writing to w. Unknown levels fall back to info.
func NewLogger(w io.Writer, level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "accidents",
	})
}

// UseLogger routes Logf and Debugf through l.
func UseLogger(l *log.Logger) {
	if l == nil {
		SetLogger(nil)
		Debugf = func(string, ...interface{}) {}
		return
	}
	Logf = l.Infof
	Debugf = l.Debugf
}
