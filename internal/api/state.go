package api

import (
	"net/http"

	"github.com/Rahul-s27/Pace/internal/config"
	"github.com/Rahul-s27/Pace/internal/domain"
	"github.com/Rahul-s27/Pace/internal/identity"
	"github.com/Rahul-s27/Pace/internal/store"
)

// StateBody is the body of GET and PUT /api/state.
type StateBody struct {
	AppState store.AppPhase `json:"appState"`
}

// GetMe returns the calling user.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())
	if user == nil {
		userID := identity.UserIDFromContext(r.Context())
		if userID == "" {
			Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		u, err := h.repo.GetUser(r.Context(), userID)
		if err != nil || u == nil {
			Error(w, http.StatusUnauthorized, "user not found")
			return
		}
		user = u
	}

	JSON(w, http.StatusOK, map[string]any{
		"user_id":      user.UserID,
		"email":        user.Email,
		"display_name": user.DisplayName(),
		"picture":      user.Picture,
		"anonymous":    user.Anonymous,
	})
}

// GetConfig returns the server configuration for the frontend.
func (h *Handler) GetConfig(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"auth_mode":              h.cfg.AuthMode,
		"provider":               h.cfg.Provider,
		"session_budget_seconds": int(h.cfg.Session.Budget.Seconds()),
		"turn_threshold":         h.cfg.Session.TurnThreshold,
		"upstream_enabled":       h.upstream != nil,
		"auth_required":          h.cfg.AuthMode == config.AuthBearer,
	})
}

// GetProfile returns the stored intake profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := h.state.Profile(r.Context(), identity.UserIDFromContext(r.Context()))
	if !ok {
		Error(w, http.StatusNotFound, "no stored profile")
		return
	}
	JSON(w, http.StatusOK, p)
}

// PutProfile stores the intake profile without starting a session.
func (h *Handler) PutProfile(w http.ResponseWriter, r *http.Request) {
	var p domain.Profile
	if err := decode(r, &p); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	p = p.Normalized()
	if err := p.Validate(); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := identity.UserIDFromContext(r.Context())
	if err := h.state.SetProfile(r.Context(), userID, &p); err != nil {
		h.logger.Error("Failed to store profile", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to store profile")
		return
	}
	JSON(w, http.StatusOK, p)
}

// GetState returns the stored app phase, welcome when none is stored.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	phase := h.state.AppState(r.Context(), identity.UserIDFromContext(r.Context()))
	JSON(w, http.StatusOK, StateBody{AppState: phase})
}

// PutState stores the app phase.
func (h *Handler) PutState(w http.ResponseWriter, r *http.Request) {
	var body StateBody
	if err := decode(r, &body); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	switch body.AppState {
	case store.PhaseWelcome, store.PhaseCounselling:
	default:
		Error(w, http.StatusBadRequest, "appState must be welcome or counselling")
		return
	}

	userID := identity.UserIDFromContext(r.Context())
	if err := h.state.SetAppState(r.Context(), userID, body.AppState); err != nil {
		h.logger.Error("Failed to store app state", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to store app state")
		return
	}
	JSON(w, http.StatusOK, body)
}
