package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/Rahul-s27/Pace/internal/config"
	"github.com/Rahul-s27/Pace/internal/domain"
	"github.com/Rahul-s27/Pace/internal/guidance"
	"github.com/Rahul-s27/Pace/internal/identity"
	"github.com/Rahul-s27/Pace/internal/session"
)

// Answer sources reported by AskMentor.
const (
	AnswerSourceProvider = "provider"
	AnswerSourceRules    = "rules"
)

// maxMentorHistory bounds the prior turns forwarded to the provider.
const maxMentorHistory = 10

// AskRequest is the body of POST /api/mentor/ask.
type AskRequest struct {
	Query   string        `json:"query"`
	History []domain.Turn `json:"history,omitempty"`
}

// AskResponse is the mentor's answer.
type AskResponse struct {
	Answer string `json:"answer"`
	Source string `json:"source"`
}

// QuickQuestions returns the mentor chat's opening message and suggested questions.
func (h *Handler) QuickQuestions(w http.ResponseWriter, r *http.Request) {
	profile, _ := h.state.Profile(r.Context(), identity.UserIDFromContext(r.Context()))
	questions := h.catalog.Current().QuickQuestions
	if questions == nil {
		questions = []domain.QuickQuestion{}
	}
	JSON(w, http.StatusOK, map[string]any{
		"welcome":   guidance.MentorWelcome(profile.Name),
		"questions": questions,
	})
}

// AskMentor answers a free-form question outside a timed session. The
// configured provider answers first; when it is offline or fails the
// keyword rules answer instead.
func (h *Handler) AskMentor(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if !h.limiter.Allow(userID) {
		w.Header().Set("Retry-After", strconv.Itoa(int(h.cfg.RateLimit.WindowDuration.Seconds())))
		Error(w, http.StatusTooManyRequests, "rate limit exceeded, please slow down")
		return
	}

	var req AskRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		Error(w, http.StatusBadRequest, "query is required")
		return
	}

	if answer, ok := h.askProvider(r, userID, query, req.History); ok {
		JSON(w, http.StatusOK, AskResponse{Answer: answer, Source: AnswerSourceProvider})
		return
	}
	JSON(w, http.StatusOK, AskResponse{Answer: guidance.MentorAnswer(query), Source: AnswerSourceRules})
}

func (h *Handler) askProvider(r *http.Request, userID, query string, history []domain.Turn) (string, bool) {
	if h.cfg.Provider == config.ProviderScripted {
		return "", false
	}
	p := h.providerFor(r)
	if p == nil {
		return "", false
	}

	if len(history) > maxMentorHistory {
		history = history[len(history)-maxMentorHistory:]
	}
	turns := make([]domain.Turn, 0, len(history)+1)
	for _, t := range history {
		if t.Sender.Valid() && strings.TrimSpace(t.Content) != "" {
			turns = append(turns, t)
		}
	}
	turns = append(turns, domain.Turn{Sender: domain.SenderUser, Content: query, Timestamp: h.now()})

	profile, _ := h.state.Profile(r.Context(), userID)
	timeout := h.cfg.Session.ResponseTimeout
	if timeout <= 0 {
		timeout = session.DefaultConfig().ResponseTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	answer, err := p.Respond(ctx, session.Request{
		SessionID:   "mentor-" + userID,
		UserMessage: query,
		History:     turns,
		Profile:     profile,
	})
	if err != nil {
		h.logger.Warn("Mentor provider failed, answering from rules", "user_id", userID, "error", err)
		return "", false
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		h.logger.Warn("Mentor provider returned an empty answer, answering from rules", "user_id", userID)
		return "", false
	}
	return answer, true
}
