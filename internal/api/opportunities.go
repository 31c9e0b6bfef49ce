package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Rahul-s27/Pace/internal/backend"
	"github.com/Rahul-s27/Pace/internal/domain"
	"github.com/Rahul-s27/Pace/internal/guidance"
	"github.com/Rahul-s27/Pace/internal/identity"
	"github.com/Rahul-s27/Pace/internal/opportunity"
	"github.com/Rahul-s27/Pace/internal/store"
	"github.com/go-chi/chi/v5"
)

const recommendedLimit = 10

// SearchOpportunities searches the upstream listing, or the catalog when no
// upstream is configured. An upstream failure falls back to the catalog and
// marks the result partial.
func (h *Handler) SearchOpportunities(w http.ResponseWriter, r *http.Request) {
	var req backend.SearchRequest
	if err := decode(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.upstream != nil {
		resp, err := h.upstream.SearchOpportunities(r.Context(), identity.TokenFromContext(r.Context()), req)
		if err == nil {
			if resp.Items == nil {
				resp.Items = []domain.Opportunity{}
			}
			JSON(w, http.StatusOK, resp)
			return
		}
		if backend.IsStatus(err, http.StatusBadRequest) {
			Error(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Warn("Upstream search failed, using catalog", "error", err)
	}

	resp, err := opportunity.Search(h.catalog.Current().Opportunities, req, h.now())
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	resp.Partial = h.upstream != nil
	JSON(w, http.StatusOK, resp)
}

// GetOpportunity returns one opportunity.
func (h *Handler) GetOpportunity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if h.upstream != nil {
		item, err := h.upstream.GetOpportunity(r.Context(), identity.TokenFromContext(r.Context()), id)
		if err == nil {
			JSON(w, http.StatusOK, item)
			return
		}
		if !backend.IsStatus(err, http.StatusNotFound) {
			h.logger.Warn("Upstream lookup failed, using catalog", "opportunity_id", id, "error", err)
		}
	}

	item, ok := opportunity.Lookup(h.catalog.Current().Opportunities, id)
	if !ok {
		Error(w, http.StatusNotFound, "opportunity not found")
		return
	}
	JSON(w, http.StatusOK, item)
}

// ownUser resolves the {uid} path parameter, which must name the caller.
func ownUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid := chi.URLParam(r, "uid")
	if uid != identity.UserIDFromContext(r.Context()) {
		Error(w, http.StatusForbidden, "forbidden")
		return "", false
	}
	return uid, true
}

func savedOpportunityID(r *http.Request) (string, error) {
	if id := strings.TrimSpace(r.URL.Query().Get("opportunityId")); id != "" {
		return id, nil
	}
	var req backend.SaveOpportunityRequest
	if err := decode(r, &req); err != nil {
		return "", err
	}
	id := strings.TrimSpace(req.OpportunityID)
	if id == "" {
		return "", errors.New("opportunityId is required")
	}
	return id, nil
}

// ListSavedOpportunities returns the caller's saved opportunity IDs.
func (h *Handler) ListSavedOpportunities(w http.ResponseWriter, r *http.Request) {
	uid, ok := ownUser(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"ids":     h.state.SavedIDs(r.Context(), uid, store.KeySavedOpportunities),
	})
}

// SaveOpportunity adds an opportunity to the caller's saved list and mirrors
// it upstream when configured.
func (h *Handler) SaveOpportunity(w http.ResponseWriter, r *http.Request) {
	uid, ok := ownUser(w, r)
	if !ok {
		return
	}
	id, err := savedOpportunityID(r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.state.AddSaved(r.Context(), uid, store.KeySavedOpportunities, id); err != nil {
		h.logger.Error("Failed to save opportunity", "user_id", uid, "opportunity_id", id, "error", err)
		Error(w, http.StatusInternalServerError, "failed to save opportunity")
		return
	}
	if h.upstream != nil {
		if _, err := h.upstream.SaveOpportunity(r.Context(), identity.TokenFromContext(r.Context()), uid, id); err != nil {
			h.logger.Warn("Upstream save failed", "user_id", uid, "opportunity_id", id, "error", err)
		}
	}
	JSON(w, http.StatusOK, backend.SuccessResponse{Success: true})
}

// UnsaveOpportunity removes an opportunity from the caller's saved list.
func (h *Handler) UnsaveOpportunity(w http.ResponseWriter, r *http.Request) {
	uid, ok := ownUser(w, r)
	if !ok {
		return
	}
	id, err := savedOpportunityID(r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.state.RemoveSaved(r.Context(), uid, store.KeySavedOpportunities, id); err != nil {
		h.logger.Error("Failed to remove saved opportunity", "user_id", uid, "opportunity_id", id, "error", err)
		Error(w, http.StatusInternalServerError, "failed to remove saved opportunity")
		return
	}
	JSON(w, http.StatusOK, backend.SuccessResponse{Success: true})
}

// Recommended returns opportunities for the caller, from upstream when it
// answers and otherwise ranked locally against the stored profile.
func (h *Handler) Recommended(w http.ResponseWriter, r *http.Request) {
	uid, ok := ownUser(w, r)
	if !ok {
		return
	}

	if h.upstream != nil {
		resp, err := h.upstream.Recommended(r.Context(), identity.TokenFromContext(r.Context()), uid)
		if err == nil && resp.Success {
			if resp.Items == nil {
				resp.Items = []domain.Opportunity{}
			}
			JSON(w, http.StatusOK, resp)
			return
		}
		h.logger.Warn("Upstream recommendations unavailable, using catalog", "user_id", uid, "error", err)
	}

	profile, _ := h.state.Profile(r.Context(), uid)
	items := guidance.RecommendOpportunities(h.catalog.Current().Opportunities, profile, recommendedLimit)
	JSON(w, http.StatusOK, backend.RecommendedResponse{Success: true, Items: items})
}
