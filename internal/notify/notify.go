// Package notify carries user-facing messages (upload prompts, validation
// failures, confirmations) from the session to whatever is showing them.
package notify

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarn    Level = "warning"
	LevelError   Level = "error"
)

// Notice is one message for the user. Code is the error code, if any.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Sink receives notices.
type Sink interface {
	Notify(Notice)
}

// Recorder keeps notices in memory. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns a copy of everything recorded so far.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// LogSink writes notices to a logger, at a level matching the notice.
type LogSink struct {
	Logger *log.Logger
}

func (s LogSink) Notify(n Notice) {
	l := s.Logger
	if l == nil {
		l = log.Default()
	}
	switch n.Level {
	case LevelError:
		l.Error(n.Message, "code", n.Code)
	case LevelWarn:
		l.Warn(n.Message, "code", n.Code)
	default:
		l.Info(n.Message)
	}
}

type discard struct{}

func (discard) Notify(Notice) {}

// Discard drops every notice.
var Discard Sink = discard{}

type ctxKey int

const sinkKey ctxKey = 0

// WithSink returns a context carrying s.
func WithSink(ctx context.Context, s Sink) context.Context {
	return context.WithValue(ctx, sinkKey, s)
}

// FromContext returns the sink attached to ctx, or fallback.
func FromContext(ctx context.Context, fallback Sink) Sink {
	if s, ok := ctx.Value(sinkKey).(Sink); ok && s != nil {
		return s
	}
	if fallback == nil {
		return Discard
	}
	return fallback
}
