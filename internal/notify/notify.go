// Package notify delivers user-facing success and error messages produced by
// engine operations.
package notify

import (
	"sync"
	"time"

	"github.com/justyntemme/filepane/internal/logging"
)

// Level indicates the severity of a message
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notifier receives operation outcomes.
type Notifier interface {
	NotifySuccess(message string)
	NotifyError(message string)
}

// ToastDuration is how long a toast stays visible.
const ToastDuration = 3 * time.Second

// Message is one toast as shown to the user.
type Message struct {
	Text      string
	Level     Level
	ExpiresAt time.Time
}

// Toast keeps the most recent message until it expires.
type Toast struct {
	mu      sync.Mutex
	current Message
	visible bool
	now     func() time.Time
}

// NewToast returns an empty toast.
func NewToast() *Toast {
	return &Toast{now: time.Now}
}

func (t *Toast) NotifySuccess(message string) { t.show(message, LevelSuccess) }

func (t *Toast) NotifyError(message string) { t.show(message, LevelError) }

func (t *Toast) show(message string, level Level) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = Message{Text: message, Level: level, ExpiresAt: t.now().Add(ToastDuration)}
	t.visible = true
}

// Current returns the visible message, if any.
func (t *Toast) Current() (Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.visible && t.now().After(t.current.ExpiresAt) {
		t.visible = false
	}
	return t.current, t.visible
}

// Dismiss hides the current message.
func (t *Toast) Dismiss() {
	t.mu.Lock()
	t.visible = false
	t.mu.Unlock()
}

// Log writes notifications to the structured logger.
type Log struct{}

func (Log) NotifySuccess(message string) {
	logging.Info(message, logging.String("level", LevelSuccess.String()))
}

func (Log) NotifyError(message string) {
	logging.Warn(message, logging.String("level", LevelError.String()))
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

func (m Multi) NotifySuccess(message string) {
	for _, n := range m {
		n.NotifySuccess(message)
	}
}

func (m Multi) NotifyError(message string) {
	for _, n := range m {
		n.NotifyError(message)
	}
}

// Discard drops every notification.
type Discard struct{}

func (Discard) NotifySuccess(string) {}
func (Discard) NotifyError(string)   {}

// Recorder keeps every notification in order. Useful in tests and for
// replaying messages to a shell.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) NotifySuccess(message string) { r.add(message, LevelSuccess) }

func (r *Recorder) NotifyError(message string) { r.add(message, LevelError) }

func (r *Recorder) add(message string, level Level) {
	r.mu.Lock()
	r.messages = append(r.messages, Message{Text: message, Level: level})
	r.mu.Unlock()
}

// Messages returns the recorded notifications.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Drain returns and forgets the recorded notifications.
func (r *Recorder) Drain() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.messages
	r.messages = nil
	return out
}
