// Package session implements the counseling session engine: a pure state
// machine, the actor goroutine that drives it, and the registry of active
// sessions.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rahul-s27/Pace/internal/domain"
	"github.com/google/uuid"
)

var (
	// ErrAwaitingResponse is returned when a submission arrives while a reply is pending.
	ErrAwaitingResponse = errors.New("awaiting mentor response")
	// ErrSessionEnded is returned when a submission arrives after termination.
	ErrSessionEnded = errors.New("session ended")
)

// DefaultFallbackMessage replaces a mentor reply when the provider fails.
const DefaultFallbackMessage = "I'm here to support you in your journey. Could you tell me more about what's on your mind?"

// SummarySeparator joins user utterances in a session summary.
const SummarySeparator = " | "

// WelcomeMessageID is the fixed ID of the synthesized welcome message.
const WelcomeMessageID = "welcome"

// State is the lifecycle state of a session.
type State int

const (
	StateIdle State = iota
	StateAwaitingResponse
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingResponse:
		return "awaiting_response"
	case StateEnded:
		return "ended"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name written by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = StateIdle
	case "awaiting_response":
		*s = StateAwaitingResponse
	case "ended":
		*s = StateEnded
	default:
		return fmt.Errorf("unknown session state %q", text)
	}
	return nil
}

// EndReason records why a session terminated.
type EndReason string

const (
	EndClockExpired  EndReason = "clock_expired"
	EndTurnLimit     EndReason = "turn_limit"
	EndUserRequested EndReason = "user_requested"
)

// Config holds the session engine constants.
type Config struct {
	Budget          time.Duration
	TickInterval    time.Duration
	TurnThreshold   int
	GraceDelay      time.Duration
	ResponseTimeout time.Duration
	FallbackMessage string
}

// DefaultConfig returns the stock session settings: a 30 minute budget
// counted down once per second, termination 2s after the 8th mentor reply.
func DefaultConfig() Config {
	return Config{
		Budget:          30 * time.Minute,
		TickInterval:    time.Second,
		TurnThreshold:   8,
		GraceDelay:      2 * time.Second,
		ResponseTimeout: 30 * time.Second,
		FallbackMessage: DefaultFallbackMessage,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	if c.Budget <= 0 {
		c.Budget = d.Budget
	}
	if c.TurnThreshold <= 0 {
		c.TurnThreshold = d.TurnThreshold
	}
	if c.GraceDelay < 0 {
		c.GraceDelay = 0
	}
	if c.ResponseTimeout <= 0 {
		c.ResponseTimeout = d.ResponseTimeout
	}
	if c.FallbackMessage == "" {
		c.FallbackMessage = d.FallbackMessage
	}
	return c
}

// Request is what a response provider receives for one turn.
type Request struct {
	SessionID   string
	UserMessage string
	History     []domain.Turn
	Profile     domain.Profile
}

// Snapshot is a read-only copy of session state.
type Snapshot struct {
	SessionID        string           `json:"session_id"`
	State            State            `json:"state"`
	Messages         []domain.Message `json:"messages"`
	RemainingSeconds int              `json:"remaining_seconds"`
	Turns            int              `json:"turns"`
	Waiting          bool             `json:"is_waiting"`
	EndReason        EndReason        `json:"end_reason,omitempty"`
	Summary          string           `json:"summary,omitempty"`
	Profile          domain.Profile   `json:"profile"`
	StartedAt        time.Time        `json:"started_at"`
	EndedAt          time.Time        `json:"ended_at,omitempty"`
}

// MachineOption customizes a Machine.
type MachineOption func(*Machine)

// WithClock overrides the message timestamp source.
func WithClock(now func() time.Time) MachineOption {
	return func(m *Machine) { m.now = now }
}

// WithIDGenerator overrides message ID generation.
func WithIDGenerator(newID func() string) MachineOption {
	return func(m *Machine) { m.newID = newID }
}

// Machine is the session state machine. It is not safe for concurrent use;
// Session confines it to one goroutine.
type Machine struct {
	cfg       Config
	profile   domain.Profile
	messages  []domain.Message
	remaining int // ticks left on the clock
	turns     int
	state     State
	inFlight  bool
	endQueued bool
	endReason EndReason
	summary   string
	now       func() time.Time
	newID     func() string
}

// NewMachine validates the profile and seeds the transcript with the
// welcome message.
func NewMachine(profile domain.Profile, cfg Config, opts ...MachineOption) (*Machine, error) {
	profile = profile.Normalized()
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	m := &Machine{
		cfg:       cfg,
		profile:   profile,
		remaining: max(int(cfg.Budget/cfg.TickInterval), 1),
		state:     StateIdle,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.messages = append(m.messages, domain.Message{
		ID:        WelcomeMessageID,
		Content:   WelcomeMessage(profile),
		Sender:    domain.SenderMentor,
		Timestamp: m.now(),
	})
	return m, nil
}

// State returns the current lifecycle state.
func (m *Machine) State() State { return m.state }

// Turns returns the number of completed mentor replies.
func (m *Machine) Turns() int { return m.turns }

// Waiting reports whether a provider call is outstanding.
func (m *Machine) Waiting() bool { return m.inFlight }

// Remaining returns the time left on the session clock.
func (m *Machine) Remaining() time.Duration {
	return time.Duration(m.remaining) * m.cfg.TickInterval
}

// Messages returns a copy of the transcript.
func (m *Machine) Messages() []domain.Message {
	out := make([]domain.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Profile returns the session's profile.
func (m *Machine) Profile() domain.Profile { return m.profile }

// Submit appends a user utterance and enters AwaitingResponse. Blank text is
// ignored and reported with ok=false.
func (m *Machine) Submit(text string) (msg domain.Message, ok bool, err error) {
	if strings.TrimSpace(text) == "" {
		return domain.Message{}, false, nil
	}
	switch {
	case m.state == StateEnded:
		return domain.Message{}, false, ErrSessionEnded
	case m.state == StateAwaitingResponse || m.inFlight:
		return domain.Message{}, false, ErrAwaitingResponse
	}

	msg = m.appendMessage(domain.SenderUser, text)
	m.state = StateAwaitingResponse
	m.inFlight = true
	return msg, true, nil
}

// Request builds the provider request for the pending user message.
func (m *Machine) Request() Request {
	req := Request{
		History: domain.Turns(m.messages),
		Profile: m.profile,
	}
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].Sender == domain.SenderUser {
			req.UserMessage = m.messages[i].Content
			break
		}
	}
	return req
}

// ResponseArrived appends the mentor reply. scheduleEnd is true exactly once,
// on the reply that brings the turn count to the threshold.
func (m *Machine) ResponseArrived(text string) (msg domain.Message, scheduleEnd bool) {
	if !m.inFlight {
		return domain.Message{}, false
	}
	m.inFlight = false
	msg = m.appendMessage(domain.SenderMentor, text)
	m.turns++

	if m.state == StateEnded {
		return msg, false
	}
	m.state = StateIdle
	if m.turns >= m.cfg.TurnThreshold && !m.endQueued {
		m.endQueued = true
		return msg, true
	}
	return msg, false
}

// ResponseFailed appends the fallback message in place of a mentor reply.
func (m *Machine) ResponseFailed() domain.Message {
	if !m.inFlight {
		return domain.Message{}
	}
	m.inFlight = false
	msg := m.appendMessage(domain.SenderMentor, m.cfg.FallbackMessage)
	if m.state != StateEnded {
		m.state = StateIdle
	}
	return msg
}

// Tick advances the clock by one interval. It returns true exactly once, on
// the tick that exhausts the budget.
func (m *Machine) Tick() bool {
	if m.state == StateEnded || m.remaining == 0 {
		return false
	}
	m.remaining--
	return m.remaining == 0
}

// End terminates the session. Only the first call has an effect; every call
// returns the frozen summary.
func (m *Machine) End(reason EndReason) (summary string, first bool) {
	if m.state == StateEnded {
		return m.summary, false
	}
	m.state = StateEnded
	m.endReason = reason
	m.summary = Summarize(m.messages)
	return m.summary, true
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{
		State:            m.state,
		Messages:         m.Messages(),
		RemainingSeconds: int(m.Remaining() / time.Second),
		Turns:            m.turns,
		Waiting:          m.inFlight,
		EndReason:        m.endReason,
		Summary:          m.summary,
		Profile:          m.profile,
	}
}

func (m *Machine) appendMessage(sender domain.Sender, content string) domain.Message {
	msg := domain.Message{
		ID:        m.newID(),
		Content:   content,
		Sender:    sender,
		Timestamp: m.now(),
	}
	m.messages = append(m.messages, msg)
	return msg
}

// Summarize joins the user utterances of a transcript in order.
func Summarize(messages []domain.Message) string {
	var parts []string
	for _, msg := range messages {
		if msg.Sender == domain.SenderUser {
			parts = append(parts, msg.Content)
		}
	}
	return strings.Join(parts, SummarySeparator)
}

// WelcomeMessage renders the mentor's opening message for a profile.
func WelcomeMessage(p domain.Profile) string {
	stream := p.StreamOfInterest
	if stream == "" {
		return fmt.Sprintf("Hi %s! 👋 I'm your personal career mentor. I see you're currently at %s level. "+
			"I'm here to help you discover your ideal career path through our conversation.\n\n"+
			"Let's start with something simple - which subjects or activities make you lose track of time?",
			p.Name, p.EducationLevel)
	}
	return fmt.Sprintf("Hi %s! 👋 I'm your personal career mentor. I see you're interested in %s and currently at %s level. "+
		"I'm here to help you discover your ideal career path through our conversation.\n\n"+
		"Let's start with something simple - what draws you most to %s? Is it a particular subject, "+
		"a career you've heard about, or something else entirely?",
		p.Name, stream, p.EducationLevel, stream)
}
