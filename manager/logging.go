package manager

import (
	"log/slog"

	"github.com/c360/inputcore/errors"
)

// Logger wraps a slog.Logger, tagging every record with the owning
// component's name on every call. It has no publish-to-transport half;
// this core has no transport component to publish through, only local
// structured logging.
type Logger struct {
	component string
	slog      *slog.Logger
}

// NewLogger wraps l, tagging every record with component="manager".
func NewLogger(l *slog.Logger) *Logger {
	if l == nil {
		l = slog.Default()
	}
	return &Logger{component: "manager", slog: l}
}

func (l *Logger) Info(msg string, args ...any) {
	l.slog.Info(msg, append([]any{"component", l.component}, args...)...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.slog.Warn(msg, append([]any{"component", l.component}, args...)...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.slog.Error(msg, append([]any{"component", l.component}, args...)...)
}

// LogError logs err at a severity chosen by errors.Classify: a
// transient error (one a retry or the next snapshot might clear on its
// own) logs at Warn, an invalid or fatal one logs at Error. err is
// appended to args under the "error" key.
func (l *Logger) LogError(msg string, err error, args ...any) {
	args = append(args, "error", err)
	if errors.Classify(err) == errors.ErrorTransient {
		l.Warn(msg, args...)
		return
	}
	l.Error(msg, args...)
}
