package domain

import (
	"time"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderMentor Sender = "mentor"
)

// Valid reports whether s is a known sender.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderMentor
}

// Message is one turn of dialogue. Messages are append-only.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// Turn is the transport-neutral form of a message sent to a response provider.
type Turn struct {
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Turns converts messages to their transport-neutral form.
func Turns(messages []Message) []Turn {
	out := make([]Turn, len(messages))
	for i, m := range messages {
		out[i] = Turn{Sender: m.Sender, Content: m.Content, Timestamp: m.Timestamp}
	}
	return out
}
