package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Rahul-s27/Pace/internal/domain"
	"github.com/Rahul-s27/Pace/internal/identity"
	"github.com/Rahul-s27/Pace/internal/session"
	"github.com/Rahul-s27/Pace/internal/store"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	recordTimeout       = 5 * time.Second
)

// SubmitRequest is the body of POST /api/sessions/current/messages.
type SubmitRequest struct {
	Content string `json:"content"`
}

// EndResponse is returned when a session is ended on request.
type EndResponse struct {
	SessionID string            `json:"session_id"`
	Summary   string            `json:"summary"`
	Reason    session.EndReason `json:"reason"`
}

func sessionKey(r *http.Request) session.Key {
	return session.Key{
		UserID: identity.UserIDFromContext(r.Context()),
		TabID:  identity.SessionIDFromContext(r.Context()),
	}
}

func (h *Handler) providerFor(r *http.Request) session.ResponseProvider {
	if h.providers == nil {
		return nil
	}
	return h.providers(identity.TokenFromContext(r.Context()))
}

// StartSession starts a counseling session from the posted intake profile,
// replacing any session in the caller's tab.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var profile domain.Profile
	if err := decode(r, &profile); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	profile = profile.Normalized()
	if err := profile.Validate(); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	key := sessionKey(r)
	s, err := h.sessions.Start(key, profile, h.providerFor(r))
	if err != nil {
		h.logger.Error("Failed to start session", "user_id", key.UserID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to start session")
		return
	}

	// Client state is best-effort; the session is already running.
	if err := h.state.SetProfile(r.Context(), key.UserID, &profile); err != nil {
		h.logger.Warn("Failed to persist profile", "user_id", key.UserID, "error", err)
	}
	if err := h.state.SetAppState(r.Context(), key.UserID, store.PhaseCounselling); err != nil {
		h.logger.Warn("Failed to persist app state", "user_id", key.UserID, "error", err)
	}

	snap, err := s.Snapshot(r.Context())
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to read session")
		return
	}
	h.logger.Info("Counseling session started", "user_id", key.UserID, "session_id", s.ID())
	JSON(w, http.StatusCreated, snap)
}

// CurrentSession returns the snapshot of the caller's session.
func (h *Handler) CurrentSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessions.Get(sessionKey(r))
	if !ok {
		Error(w, http.StatusNotFound, "no active session")
		return
	}
	snap, err := s.Snapshot(r.Context())
	if err != nil {
		h.sessionError(w, err)
		return
	}
	JSON(w, http.StatusOK, snap)
}

// SubmitMessage appends a user message to the caller's session.
func (h *Handler) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	key := sessionKey(r)
	if !h.limiter.Allow(key.UserID) {
		w.Header().Set("Retry-After", strconv.Itoa(int(h.cfg.RateLimit.WindowDuration.Seconds())))
		Error(w, http.StatusTooManyRequests, "rate limit exceeded, please slow down")
		return
	}

	var req SubmitRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	s, ok := h.sessions.Get(key)
	if !ok {
		Error(w, http.StatusNotFound, "no active session")
		return
	}

	msg, accepted, err := s.Submit(r.Context(), req.Content)
	if err != nil {
		h.sessionError(w, err)
		return
	}
	if !accepted {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	JSON(w, http.StatusCreated, msg)
}

// EndSession ends the caller's session and returns the frozen summary.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessions.Get(sessionKey(r))
	if !ok {
		Error(w, http.StatusNotFound, "no active session")
		return
	}
	summary, err := s.End(r.Context(), session.EndUserRequested)
	if err != nil {
		h.sessionError(w, err)
		return
	}
	snap, err := s.Snapshot(r.Context())
	if err != nil {
		h.sessionError(w, err)
		return
	}
	JSON(w, http.StatusOK, EndResponse{SessionID: s.ID(), Summary: summary, Reason: snap.EndReason})
}

// DiscardSession closes the caller's session and resets the client state, the
// equivalent of starting over from the welcome screen.
func (h *Handler) DiscardSession(w http.ResponseWriter, r *http.Request) {
	key := sessionKey(r)
	h.sessions.Close(key)
	if err := h.state.Reset(r.Context(), key.UserID); err != nil {
		h.logger.Warn("Failed to reset client state", "user_id", key.UserID, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// SessionHistory lists the caller's ended sessions, newest first.
func (h *Handler) SessionHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	userID := identity.UserIDFromContext(r.Context())
	records, err := h.repo.ListSessionRecords(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("Failed to list session history", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to list session history")
		return
	}
	if records == nil {
		records = []*domain.SessionRecord{}
	}
	JSON(w, http.StatusOK, map[string]any{"sessions": records})
}

func (h *Handler) sessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrAwaitingResponse):
		Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrSessionEnded):
		Error(w, http.StatusGone, err.Error())
	case errors.Is(err, session.ErrClosed):
		Error(w, http.StatusNotFound, "no active session")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		Error(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		Error(w, http.StatusInternalServerError, "session error")
	}
}

// SessionRecorder returns an OnEnd hook that persists each ended session.
func SessionRecorder(repo store.Repository, logger *slog.Logger) func(session.Result) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(res session.Result) {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		rec := &domain.SessionRecord{
			SessionID: res.SessionID,
			UserID:    res.UserID,
			Profile:   res.Profile,
			Summary:   res.Summary,
			Reason:    string(res.Reason),
			Turns:     res.Turns,
			Messages:  res.Messages,
			StartedAt: res.StartedAt,
			EndedAt:   res.EndedAt,
		}
		if err := repo.SaveSessionRecord(ctx, rec); err != nil {
			logger.Error("Failed to save session record", "session_id", res.SessionID, "user_id", res.UserID, "error", err)
			return
		}
		logger.Info("Session record saved", "session_id", res.SessionID, "reason", res.Reason, "turns", res.Turns)
	}
}
