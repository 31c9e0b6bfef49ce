// Package transcript writes counseling sessions to per-session NDJSON files.
package transcript

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/Rahul-s27/Pace/internal/session"
)

// Event is one transcript line.
type Event struct {
	Time      time.Time `json:"ts"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	EventType string    `json:"event_type"`
	MessageID string    `json:"message_id,omitempty"`
	Sender    string    `json:"sender,omitempty"`
	Content   string    `json:"content,omitempty"`
	Turns     int       `json:"turns,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Logger records transcript events.
type Logger interface {
	Log(Event)
	Close() error
}

// Config controls the NDJSON logger.
type Config struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Nop discards every event.
type Nop struct{}

func (Nop) Log(Event)    {}
func (Nop) Close() error { return nil }

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// NDJSON appends events to Dir/<user>/<session>.ndjson from a single writer
// goroutine. Events are dropped when the queue is full.
type NDJSON struct {
	dir    string
	queue  chan Event
	logger *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// New returns Nop when logging is disabled.
func New(cfg Config, logger *slog.Logger) (Logger, error) {
	if !cfg.Enabled {
		return Nop{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 1000
	}

	l := &NDJSON{
		dir:    cfg.Dir,
		queue:  make(chan Event, size),
		logger: logger,
		done:   make(chan struct{}),
	}
	go l.run()
	return l, nil
}

// Log enqueues e without blocking.
func (l *NDJSON) Log(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	select {
	case l.queue <- e:
	default:
		l.logger.Warn("Transcript queue full, dropping event", "session_id", e.SessionID, "event_type", e.EventType)
	}
}

// Close flushes queued events and stops the writer. Log must not be called
// after Close.
func (l *NDJSON) Close() error {
	l.closeOnce.Do(func() { close(l.queue) })
	<-l.done
	return nil
}

func (l *NDJSON) run() {
	defer close(l.done)

	files := make(map[string]*os.File)
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()

	for e := range l.queue {
		path := l.path(e.UserID, e.SessionID)
		f, ok := files[path]
		if !ok {
			var err error
			f, err = l.open(path)
			if err != nil {
				l.logger.Error("Failed to open transcript", "path", path, "error", err)
				continue
			}
			files[path] = f
		}

		line, err := json.Marshal(e)
		if err != nil {
			l.logger.Error("Failed to encode transcript event", "error", err)
			continue
		}
		if _, err := f.Write(append(line, '\n')); err != nil {
			l.logger.Error("Failed to write transcript", "path", path, "error", err)
		}

		if e.EventType == string(session.EventEnded) {
			_ = f.Close()
			delete(files, path)
		}
	}
}

func (l *NDJSON) path(userID, sessionID string) string {
	return filepath.Join(l.dir, safeName(userID, "anonymous"), safeName(sessionID, "session")+".ndjson")
}

func (l *NDJSON) open(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

func safeName(v, fallback string) string {
	v = unsafePathChars.ReplaceAllString(v, "_")
	if v == "" || v == "." || v == ".." {
		return fallback
	}
	return v
}

// FromSessionEvent converts an engine event. Tick and state events are not
// part of the transcript and report false.
func FromSessionEvent(ev session.Event) (Event, bool) {
	e := Event{
		UserID:    ev.UserID,
		SessionID: ev.SessionID,
		EventType: string(ev.Type),
		Turns:     ev.Turns,
		Error:     ev.Error,
	}
	switch ev.Type {
	case session.EventMessage:
		if ev.Message == nil {
			return Event{}, false
		}
		e.MessageID = ev.Message.ID
		e.Sender = string(ev.Message.Sender)
		e.Content = ev.Message.Content
		e.Time = ev.Message.Timestamp.UTC()
	case session.EventEnded:
		e.Reason = string(ev.Reason)
		e.Summary = ev.Summary
	default:
		return Event{}, false
	}
	return e, true
}

// Observer returns a session event hook that records transcript events.
func Observer(l Logger) func(session.Event) {
	return func(ev session.Event) {
		if e, ok := FromSessionEvent(ev); ok {
			l.Log(e)
		}
	}
}
