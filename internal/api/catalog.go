package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Rahul-s27/Pace/internal/domain"
	"github.com/Rahul-s27/Pace/internal/guidance"
	"github.com/Rahul-s27/Pace/internal/identity"
	"github.com/Rahul-s27/Pace/internal/store"
	"github.com/go-chi/chi/v5"
)

// RecommendationRequest is the body of POST /api/recommendations. A missing
// profile falls back to the stored one.
type RecommendationRequest struct {
	Profile *domain.Profile   `json:"profile,omitempty"`
	Answers map[string]string `json:"answers"`
}

// ListCareers returns every career in the catalog.
func (h *Handler) ListCareers(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]any{"careers": h.catalog.Current().Careers})
}

// Recommendations returns the careers matching the questionnaire answers.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	var req RecommendationRequest
	if err := decode(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	var profile domain.Profile
	if req.Profile != nil {
		profile = req.Profile.Normalized()
	} else {
		profile, _ = h.state.Profile(r.Context(), identity.UserIDFromContext(r.Context()))
	}

	cat := h.catalog.Current()
	JSON(w, http.StatusOK, map[string]any{
		"careers":      guidance.Recommend(cat.Careers, profile, req.Answers),
		"learningPath": guidance.LearningPath(cat.LearningPath),
	})
}

// LearningPath returns the base learning path.
func (h *Handler) LearningPath(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]any{"steps": guidance.LearningPath(h.catalog.Current().LearningPath)})
}

// ListPathways returns pathways for the stream query parameter, defaulting to
// the stored profile's stream.
func (h *Handler) ListPathways(w http.ResponseWriter, r *http.Request) {
	stream := strings.TrimSpace(r.URL.Query().Get("stream"))
	if stream == "" {
		if p, ok := h.state.Profile(r.Context(), identity.UserIDFromContext(r.Context())); ok {
			stream = p.StreamOfInterest
		}
	}
	JSON(w, http.StatusOK, map[string]any{"pathways": guidance.PathwaysFor(h.catalog.Current().Pathways, stream)})
}

// ListTrends returns the industry trends.
func (h *Handler) ListTrends(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]any{"trends": h.catalog.Current().Trends})
}

// SkillGap returns the skill gap report.
func (h *Handler) SkillGap(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, guidance.Analyze(h.catalog.Current().Skills))
}

// SearchMentors filters mentors and marks the ones the caller saved.
func (h *Handler) SearchMentors(w http.ResponseWriter, r *http.Request) {
	var f guidance.MentorFilter
	if err := decode(r, &f); err != nil && !errors.Is(err, errEmptyBody) {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	userID := identity.UserIDFromContext(r.Context())
	mentors := guidance.MatchMentors(h.catalog.Current().Mentors, f)
	if mentors == nil {
		mentors = []domain.Mentor{}
	}
	JSON(w, http.StatusOK, map[string]any{
		"mentors": mentors,
		"saved":   h.state.SavedIDs(r.Context(), userID, store.KeySavedMentors),
	})
}

// ListSavedMentors returns the caller's saved mentor IDs.
func (h *Handler) ListSavedMentors(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	JSON(w, http.StatusOK, map[string]any{"saved": h.state.SavedIDs(r.Context(), userID, store.KeySavedMentors)})
}

// ToggleMentor saves or unsaves a mentor.
func (h *Handler) ToggleMentor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.catalog.Current().Mentor(id); !ok {
		Error(w, http.StatusNotFound, "mentor not found")
		return
	}

	userID := identity.UserIDFromContext(r.Context())
	saved, err := h.state.ToggleSaved(r.Context(), userID, store.KeySavedMentors, id)
	if err != nil {
		h.logger.Error("Failed to toggle saved mentor", "user_id", userID, "mentor_id", id, "error", err)
		Error(w, http.StatusInternalServerError, "failed to update saved mentors")
		return
	}
	JSON(w, http.StatusOK, map[string]any{"id": id, "saved": saved})
}
