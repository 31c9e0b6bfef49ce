package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/Rahul-s27/Pace/internal/identity"
	"github.com/Rahul-s27/Pace/internal/session"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Frame types sent to the client.
const (
	FrameSnapshot = "snapshot"
	FrameEvent    = "event"
	FrameError    = "error"
	FramePong     = "pong"
)

const (
	writeTimeout     = 10 * time.Second
	subscriberBuffer = 64
)

// Frame is one server-to-client message.
type Frame struct {
	Type     string            `json:"type"`
	Snapshot *session.Snapshot `json:"snapshot,omitempty"`
	Event    *session.Event    `json:"event,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// clientMessage is one client-to-server message.
type clientMessage struct {
	Type string `json:"type"` // ping or end
}

// Handler streams the caller's current session over WebSocket.
type Handler struct {
	sessions       *session.Manager
	registry       *Registry
	allowedOrigins []string
	isDev          bool
	logger         *slog.Logger
}

// NewHandler creates a stream handler.
func NewHandler(sessions *session.Manager, registry *Registry, allowedOrigins []string, isDev bool, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		sessions:       sessions,
		registry:       registry,
		allowedOrigins: allowedOrigins,
		isDev:          isDev,
		logger:         logger,
	}
}

// ServeHTTP upgrades the connection, sends a snapshot of the caller's session
// and then every session event until the session or the client goes away.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := session.Key{
		UserID: identity.UserIDFromContext(r.Context()),
		TabID:  identity.SessionIDFromContext(r.Context()),
	}
	logger := h.logger.With("user_id", key.UserID, "tab_id", key.TabID)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		logger.Error("Failed to accept WebSocket", "error", err)
		return
	}
	var closeOnce sync.Once
	closeWS := func(reason string) {
		closeOnce.Do(func() {
			if closeErr := ws.Close(websocket.StatusNormalClosure, reason); closeErr != nil {
				logger.Debug("Failed to close websocket", "error", closeErr)
			}
		})
	}
	defer closeWS("stream ended")

	h.registry.Register(key.UserID, key.TabID, ws)
	defer h.registry.Unregister(key.UserID, key.TabID, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	s, ok := h.sessions.Get(key)
	if !ok {
		if err := write(ctx, ws, Frame{Type: FrameError, Error: "no_active_session"}); err != nil {
			logger.Debug("Failed to send no_active_session", "error", err)
		}
		return
	}

	// Subscribe before the snapshot so no event falls between the two.
	events, unsubscribe := s.Subscribe(subscriberBuffer)
	defer unsubscribe()

	snap, err := s.Snapshot(ctx)
	if err != nil {
		logger.Warn("Failed to snapshot session", "error", err)
		return
	}
	if err := write(ctx, ws, Frame{Type: FrameSnapshot, Snapshot: &snap}); err != nil {
		logger.Debug("Failed to send snapshot", "error", err)
		return
	}
	logger.Info("Session stream started", "session_id", s.ID())

	inputDone := make(chan struct{})
	go func() {
		defer close(inputDone)
		defer cancel()
		h.inputLoop(ctx, ws, s, logger)
	}()

	h.outputLoop(ctx, ws, events, logger)
	// Closing with a handshake unblocks the reader without cancelling its context.
	closeWS("session closed")
	<-inputDone
	logger.Info("Session stream ended", "session_id", s.ID())
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(h.allowedOrigins, "*") || slices.Contains(h.allowedOrigins, origin) {
		return true
	}
	h.logger.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigins)
	return false
}

func (h *Handler) inputLoop(ctx context.Context, ws *websocket.Conn, s *session.Session, logger *slog.Logger) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || ctx.Err() != nil {
				logger.Debug("WebSocket closed by client")
			} else {
				logger.Warn("WebSocket read error", "error", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Debug("Ignoring malformed client message", "error", err)
			continue
		}

		switch msg.Type {
		case "ping":
			if err := write(ctx, ws, Frame{Type: FramePong}); err != nil {
				logger.Debug("Failed to send pong", "error", err)
			}
		case "end":
			if _, err := s.End(ctx, session.EndUserRequested); err != nil {
				logger.Warn("Failed to end session from stream", "error", err)
			}
		}
	}
}

func (h *Handler) outputLoop(ctx context.Context, ws *websocket.Conn, events <-chan session.Event, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				// The session was closed or replaced.
				return
			}
			if err := write(ctx, ws, Frame{Type: FrameEvent, Event: &ev}); err != nil {
				if ctx.Err() == nil {
					logger.Debug("WebSocket write error", "error", err)
				}
				return
			}
		}
	}
}

func write(ctx context.Context, ws *websocket.Conn, f Frame) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, f)
}
