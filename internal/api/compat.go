package api

import (
	"net/http"
	"strings"

	"github.com/Rahul-s27/Pace/internal/backend"
	"github.com/Rahul-s27/Pace/internal/identity"
	"github.com/Rahul-s27/Pace/internal/provider"
)

// VerifyToken answers the backend's token check for the authenticated caller.
func (h *Handler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())
	if user == nil {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"uid":   user.UserID,
		"email": user.Email,
		"name":  user.Name,
	})
}

// Counselling serves the backend counseling contract with the configured
// provider. Provider failures are answered with fallback text, not an error.
func (h *Handler) Counselling(w http.ResponseWriter, r *http.Request) {
	var req backend.CounselingRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.UserMessage) == "" {
		Error(w, http.StatusBadRequest, "user_message is required")
		return
	}

	p := h.providerFor(r)
	if p == nil {
		Error(w, http.StatusServiceUnavailable, "no response provider configured")
		return
	}
	JSON(w, http.StatusOK, provider.Counsel(r.Context(), p, req, h.logger))
}
