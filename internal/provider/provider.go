// Package provider implements the response providers that generate mentor
// replies for the session engine.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Rahul-s27/Pace/internal/backend"
	"github.com/Rahul-s27/Pace/internal/config"
	"github.com/Rahul-s27/Pace/internal/domain"
	"github.com/Rahul-s27/Pace/internal/session"
)

// Source yields the response provider for a caller's bearer token.
type Source func(token string) session.ResponseProvider

// NewSource builds the provider selected by configuration.
func NewSource(ctx context.Context, cfg *config.Config, client Counselor, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Provider {
	case config.ProviderUpstream:
		if client == nil {
			return nil, fmt.Errorf("provider %q requires a backend client", cfg.Provider)
		}
		logger.Info("Response provider configured", "provider", cfg.Provider, "upstream", cfg.UpstreamURL)
		return func(token string) session.ResponseProvider {
			return NewUpstream(client, token)
		}, nil

	case config.ProviderGemini:
		g, err := NewGemini(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("Response provider configured", "provider", cfg.Provider, "model", cfg.Gemini.Model)
		return func(string) session.ResponseProvider { return g }, nil

	case config.ProviderScripted:
		logger.Info("Response provider configured", "provider", cfg.Provider)
		s := NewScripted()
		return func(string) session.ResponseProvider { return s }, nil

	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// Counsel serves a backend-shaped counseling request with p. Failures are
// logged and answered with ServiceFallbackText.
func Counsel(ctx context.Context, p session.ResponseProvider, req backend.CounselingRequest, logger *slog.Logger) backend.CounselingResponse {
	if logger == nil {
		logger = slog.Default()
	}

	history := make([]domain.Turn, len(req.ConversationHistory))
	for i, t := range req.ConversationHistory {
		history[i] = domain.Turn{Sender: t.Sender, Content: t.Content, Timestamp: t.Timestamp}
	}

	text, err := p.Respond(ctx, session.Request{
		SessionID:   req.SessionID,
		UserMessage: req.UserMessage,
		History:     history,
		Profile:     req.UserProfile.Domain(),
	})
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty reply")
	}
	if err != nil {
		logger.Warn("Counselling reply failed, returning fallback", "error", err, "session_id", req.SessionID)
		return backend.CounselingResponse{
			Success:          true,
			Text:             ServiceFallbackText,
			Answer:           ServiceFallbackText,
			FollowUpQuestion: ServiceFallbackFollowUp,
			Raw:              map[string]string{"error": err.Error()},
		}
	}

	reply := splitNextStep(text)
	return backend.CounselingResponse{
		Success:          true,
		Text:             text,
		Answer:           reply.Answer,
		FollowUpQuestion: reply.FollowUp,
		Raw:              text,
	}
}

// splitNextStep separates a trailing "Next step:" paragraph from the answer.
func splitNextStep(text string) Reply {
	const marker = "Next step:"
	i := strings.LastIndex(text, marker)
	if i < 0 {
		return Reply{Answer: strings.TrimSpace(text)}
	}
	return Reply{
		Answer:   strings.TrimSpace(text[:i]),
		FollowUp: strings.TrimSpace(text[i+len(marker):]),
	}
}
