// Package logtarget collects log messages from any goroutine and hands them to
// the goroutine owning the host's log window.
//
// Messages are queued by [Target.Post] and rendered in order by [Target.Drain].
// A [Handler] adapts a Target to [log/slog].
package logtarget

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Category is the severity of a log message as shown by the host.
type Category uint8

const (
	CategoryDebug Category = iota
	CategoryInfo
	CategoryWarning
	CategoryError
	CategoryFatal
)

func (c Category) String() string {
	switch c {
	case CategoryDebug:
		return "debug"
	case CategoryInfo:
		return "info"
	case CategoryWarning:
		return "warning"
	case CategoryError:
		return "error"
	case CategoryFatal:
		return "fatal"
	}
	return "unknown"
}

// CategoryOf maps a slog level to a category.
func CategoryOf(level slog.Level) Category {
	switch {
	case level < slog.LevelInfo:
		return CategoryDebug
	case level < slog.LevelWarn:
		return CategoryInfo
	case level < slog.LevelError:
		return CategoryWarning
	}
	return CategoryError
}

// LevelFromFlags returns the level selected by the command line verbosity flags.
// The flags are evaluated in order, so vv wins over q.
//   - vv: [slog.LevelDebug]
//   - v: [slog.LevelInfo]
//   - q: [slog.LevelError]
//   - default: [slog.LevelWarn]
func LevelFromFlags(vv, v, q bool) slog.Level {
	switch {
	case vv:
		return slog.LevelDebug
	case v:
		return slog.LevelInfo
	case q:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Message is a posted log message split into lines.
type Message struct {
	Category Category
	Lines    []string
}

// OpenMode selects when the log window opens after a session.
type OpenMode uint8

const (
	OpenErrors OpenMode = iota
	OpenAlways
	OpenNever
)

var ErrUnknownOpenMode = errors.New("unknown log open mode")

func (m OpenMode) String() string {
	switch m {
	case OpenAlways:
		return "always"
	case OpenNever:
		return "never"
	}
	return "errors"
}

// ParseOpenMode parses "always", "never" or "errors".
func ParseOpenMode(s string) (OpenMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "always":
		return OpenAlways, nil
	case "never":
		return OpenNever, nil
	case "errors":
		return OpenErrors, nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownOpenMode, s)
}

// DefaultSessionSize is the number of session messages kept by [New] when
// given a non-positive size.
const DefaultSessionSize = 1000

// Target is a goroutine-safe log message queue. It also remembers the most
// recent messages of the current session. The zero Target remembers
// [DefaultSessionSize] messages.
type Target struct {
	mu        sync.Mutex
	queue     []Message
	session   []Message
	next      int
	full      bool
	hadErrors bool
}

// New returns a target remembering up to sessionSize messages of a session.
func New(sessionSize int) *Target {
	if sessionSize <= 0 {
		sessionSize = DefaultSessionSize
	}
	return &Target{session: make([]Message, sessionSize)}
}

// Post queues message split on newlines. It may be called from any goroutine.
func (t *Target) Post(c Category, message string) {
	msg := Message{Category: c, Lines: strings.Split(strings.TrimRight(message, "\n"), "\n")}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queue = append(t.queue, msg)
	if len(t.session) == 0 {
		t.session = make([]Message, DefaultSessionSize)
	}
	t.session[t.next] = msg
	t.next++
	if t.next == len(t.session) {
		t.next = 0
		t.full = true
	}
	if c >= CategoryError {
		t.hadErrors = true
	}
}

// Drain removes every queued message and passes it to render in posting order
// on the calling goroutine. It returns the number of messages rendered.
// render may post new messages; they are rendered by the next Drain.
func (t *Target) Drain(render func(Message)) int {
	t.mu.Lock()
	pending := t.queue
	t.queue = nil
	t.mu.Unlock()
	for _, msg := range pending {
		render(msg)
	}
	return len(pending)
}

// Pending returns the number of queued messages.
func (t *Target) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

// BeginSession forgets the messages and error state of the previous session.
// Queued messages are kept.
func (t *Target) BeginSession() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.session)
	t.next = 0
	t.full = false
	t.hadErrors = false
}

// HadErrors reports whether an error or fatal message was posted during the session.
func (t *Target) HadErrors() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hadErrors
}

// LastSession returns the most recent messages of the session, oldest first.
func (t *Target) LastSession() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.full {
		return append([]Message(nil), t.session[:t.next]...)
	}
	msgs := make([]Message, 0, len(t.session))
	msgs = append(msgs, t.session[t.next:]...)
	return append(msgs, t.session[:t.next]...)
}

// ShouldOpen reports whether the log window should be shown after the session.
func (t *Target) ShouldOpen(mode OpenMode) bool {
	switch mode {
	case OpenAlways:
		return true
	case OpenNever:
		return false
	}
	return t.HadErrors()
}
