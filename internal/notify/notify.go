// Package notify carries short-lived user-facing notifications (toasts) emitted by
// cart operations.
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Action is an affordance attached to a notification, such as a link to the cart view.
type Action struct {
	Label  string
	Target string
}

type Notification struct {
	Level   Level
	Message string
	Action  *Action
}

func Success(message string) Notification {
	return Notification{Level: LevelSuccess, Message: message}
}

func Error(message string) Notification {
	return Notification{Level: LevelError, Message: message}
}

func (n Notification) WithAction(label, target string) Notification {
	n.Action = &Action{Label: label, Target: target}
	return n
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, n)
}

func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]Notification, len(r.items))
	copy(result, r.items)
	return result
}

func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int
	for _, n := range r.items {
		if n.Level == level {
			count++
		}
	}
	return count
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = nil
}

type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(n Notification) {
	event := l.logger.Info()
	if n.Level == LevelError {
		event = l.logger.Warn()
	}
	if n.Action != nil {
		event = event.Str("action", n.Action.Label).Str("target", n.Action.Target)
	}
	event.Str("kind", string(n.Level)).Msg(n.Message)
}

// WriterNotifier prints one line per notification.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (wn *WriterNotifier) Notify(n Notification) {
	wn.mu.Lock()
	defer wn.mu.Unlock()

	line := fmt.Sprintf("[%s] %s", n.Level, n.Message)
	if n.Action != nil {
		line += fmt.Sprintf(" (%s: %s)", n.Action.Label, n.Action.Target)
	}
	_, _ = fmt.Fprintln(wn.w, line)
}
