package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Rahul-s27/Pace/internal/domain"
	"github.com/google/uuid"
)

// ErrClosed is returned by operations on a session whose actor has stopped.
var ErrClosed = errors.New("session closed")

// ResponseProvider produces the mentor reply for one user turn.
type ResponseProvider interface {
	Respond(ctx context.Context, req Request) (string, error)
}

// ProviderFunc adapts a function to ResponseProvider.
type ProviderFunc func(ctx context.Context, req Request) (string, error)

// Respond calls f.
func (f ProviderFunc) Respond(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// EventType identifies a session event.
type EventType string

const (
	EventMessage EventType = "message"
	EventState   EventType = "state"
	EventTick    EventType = "tick"
	EventEnded   EventType = "ended"
)

// Event is pushed to subscribers and the observer hook.
type Event struct {
	Type             EventType       `json:"type"`
	SessionID        string          `json:"session_id"`
	UserID           string          `json:"-"`
	Message          *domain.Message `json:"message,omitempty"`
	State            State           `json:"state"`
	Waiting          bool            `json:"is_waiting"`
	RemainingSeconds int             `json:"remaining_seconds"`
	Turns            int             `json:"turns"`
	Reason           EndReason       `json:"reason,omitempty"`
	Summary          string          `json:"summary,omitempty"`
	Error            string          `json:"-"`
}

// Result is handed to the OnEnd hook when a session terminates.
type Result struct {
	SessionID string
	UserID    string
	Profile   domain.Profile
	Summary   string
	Reason    EndReason
	Turns     int
	Messages  []domain.Message
	StartedAt time.Time
	EndedAt   time.Time
}

// Options configures a Session.
type Options struct {
	ID       string
	UserID   string
	Config   Config
	Provider ResponseProvider
	Logger   *slog.Logger
	// OnEnd runs once, in its own goroutine, when the session terminates.
	OnEnd func(Result)
	// OnEvent observes every event synchronously on the actor goroutine. It must not block.
	OnEvent func(Event)
	// MachineOptions are passed through to NewMachine.
	MachineOptions []MachineOption
}

type command struct {
	fn   func()
	done chan struct{}
}

type providerResult struct {
	text string
	err  error
}

// Session runs a Machine on a single goroutine. All state changes happen on
// that goroutine; callers talk to it through channels.
type Session struct {
	id        string
	userID    string
	cfg       Config
	provider  ResponseProvider
	logger    *slog.Logger
	onEnd     func(Result)
	onEvent   func(Event)
	startedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	cmds   chan command
	resCh  chan providerResult
	done   chan struct{}
	ended  chan struct{}
	wg     sync.WaitGroup
	once   sync.Once

	// Owned by the run goroutine.
	m       *Machine
	ticker  *time.Ticker
	tickC   <-chan time.Time
	grace   *time.Timer
	graceC  <-chan time.Time
	endedAt time.Time

	// Written by run before done is closed.
	final Snapshot

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
	subsOff bool
}

// Start validates the profile, creates the session and starts its actor.
func Start(profile domain.Profile, opts Options) (*Session, error) {
	if opts.Provider == nil {
		return nil, errors.New("session: response provider is required")
	}
	m, err := NewMachine(profile, opts.Config, opts.MachineOptions...)
	if err != nil {
		return nil, err
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:        opts.ID,
		userID:    opts.UserID,
		cfg:       m.cfg,
		provider:  opts.Provider,
		logger:    logger.With("session_id", opts.ID, "user_id", opts.UserID),
		onEnd:     opts.OnEnd,
		onEvent:   opts.OnEvent,
		startedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		cmds:      make(chan command),
		resCh:     make(chan providerResult),
		done:      make(chan struct{}),
		ended:     make(chan struct{}),
		m:         m,
		subs:      make(map[int]chan Event),
	}
	s.ticker = time.NewTicker(s.cfg.TickInterval)
	s.tickC = s.ticker.C

	go s.run()
	s.logger.Info("Counseling session started", "budget", s.cfg.Budget, "turn_threshold", s.cfg.TurnThreshold)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// UserID returns the owning user.
func (s *Session) UserID() string { return s.userID }

// StartedAt returns when the session was created.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// Ended is closed when the session terminates.
func (s *Session) Ended() <-chan struct{} { return s.ended }

// Done is closed when the actor goroutine has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Submit appends a user utterance and starts the provider call. The returned
// message is already part of the transcript. Blank text reports ok=false.
func (s *Session) Submit(ctx context.Context, text string) (msg domain.Message, ok bool, err error) {
	doErr := s.do(ctx, func() {
		msg, ok, err = s.m.Submit(text)
		if !ok {
			return
		}
		s.emit(s.event(EventMessage, &msg))
		s.emit(s.event(EventState, nil))
		s.request()
	})
	if doErr != nil {
		return domain.Message{}, false, doErr
	}
	return msg, ok, err
}

// End terminates the session immediately. Repeated calls return the summary
// frozen by the first termination.
func (s *Session) End(ctx context.Context, reason EndReason) (string, error) {
	var summary string
	err := s.do(ctx, func() {
		summary = s.end(reason)
	})
	if errors.Is(err, ErrClosed) {
		return s.final.Summary, nil
	}
	return summary, err
}

// Snapshot returns the current state. After Close it returns the final state.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.do(ctx, func() {
		snap = s.snapshot()
	})
	if errors.Is(err, ErrClosed) {
		return s.final, nil
	}
	return snap, err
}

// Subscribe returns a channel of session events and a cancel func. Events are
// dropped when the channel is full. The channel is closed on cancel or when the
// session is closed.
func (s *Session) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.subsOff {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// Close stops the actor and waits for every goroutine it started. Provider
// replies that arrive afterwards are discarded. Close does not fire OnEnd for
// a session that has not ended.
func (s *Session) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
		s.wg.Wait()
		s.logger.Debug("Counseling session closed")
	})
}

func (s *Session) do(ctx context.Context, fn func()) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case s.cmds <- cmd:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-cmd.done
	return nil
}

func (s *Session) run() {
	defer func() {
		s.stopTimers()
		s.final = s.snapshot()
		s.closeSubscribers()
		close(s.done)
	}()

	for {
		select {
		case <-s.ctx.Done():
			return

		case cmd := <-s.cmds:
			cmd.fn()
			close(cmd.done)

		case <-s.tickC:
			expired := s.m.Tick()
			s.emit(s.event(EventTick, nil))
			if expired {
				s.end(EndClockExpired)
			}

		case res := <-s.resCh:
			s.handleResult(res)

		case <-s.graceC:
			s.graceC = nil
			s.end(EndTurnLimit)
		}
	}
}

// request launches the provider call for the pending user message.
func (s *Session) request() {
	req := s.m.Request()
	req.SessionID = s.id

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.ResponseTimeout)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()

		text, err := s.provider.Respond(ctx, req)
		select {
		case s.resCh <- providerResult{text: text, err: err}:
		case <-s.ctx.Done():
			s.logger.Debug("Discarding provider reply for closed session")
		}
	}()
}

func (s *Session) handleResult(res providerResult) {
	if res.err == nil && strings.TrimSpace(res.text) == "" {
		res.err = errors.New("empty reply from response provider")
	}

	if res.err != nil {
		s.logger.Warn("Response provider failed, using fallback", "error", res.err)
		msg := s.m.ResponseFailed()
		ev := s.event(EventMessage, &msg)
		ev.Error = res.err.Error()
		s.emit(ev)
		s.emit(s.event(EventState, nil))
		return
	}

	msg, scheduleEnd := s.m.ResponseArrived(res.text)
	s.emit(s.event(EventMessage, &msg))
	s.emit(s.event(EventState, nil))
	if scheduleEnd {
		s.logger.Info("Turn threshold reached, scheduling end", "turns", s.m.Turns(), "grace", s.cfg.GraceDelay)
		s.grace = time.NewTimer(s.cfg.GraceDelay)
		s.graceC = s.grace.C
	}
}

func (s *Session) end(reason EndReason) string {
	summary, first := s.m.End(reason)
	if !first {
		return summary
	}
	s.stopTimers()
	s.endedAt = time.Now()
	close(s.ended)

	ev := s.event(EventEnded, nil)
	ev.Reason = reason
	ev.Summary = summary
	s.emit(ev)
	s.logger.Info("Counseling session ended", "reason", reason, "turns", s.m.Turns())

	if s.onEnd != nil {
		res := Result{
			SessionID: s.id,
			UserID:    s.userID,
			Profile:   s.m.Profile(),
			Summary:   summary,
			Reason:    reason,
			Turns:     s.m.Turns(),
			Messages:  s.m.Messages(),
			StartedAt: s.startedAt,
			EndedAt:   s.endedAt,
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.onEnd(res)
		}()
	}
	return summary
}

func (s *Session) stopTimers() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.tickC = nil
	}
	if s.grace != nil {
		s.grace.Stop()
		s.graceC = nil
	}
}

func (s *Session) snapshot() Snapshot {
	snap := s.m.Snapshot()
	snap.SessionID = s.id
	snap.StartedAt = s.startedAt
	snap.EndedAt = s.endedAt
	return snap
}

func (s *Session) event(t EventType, msg *domain.Message) Event {
	return Event{
		Type:             t,
		SessionID:        s.id,
		UserID:           s.userID,
		Message:          msg,
		State:            s.m.State(),
		Waiting:          s.m.Waiting(),
		RemainingSeconds: int(s.m.Remaining() / time.Second),
		Turns:            s.m.Turns(),
	}
}

func (s *Session) emit(ev Event) {
	if s.onEvent != nil {
		s.onEvent(ev)
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *Session) closeSubscribers() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subsOff = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
