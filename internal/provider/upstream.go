package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/Rahul-s27/Pace/internal/backend"
	"github.com/Rahul-s27/Pace/internal/session"
)

// Counselor is the backend call the upstream provider needs.
type Counselor interface {
	Counsel(ctx context.Context, token string, req backend.CounselingRequest) (*backend.CounselingResponse, error)
}

// Upstream forwards each turn to the external backend's /counselling endpoint.
type Upstream struct {
	client Counselor
	token  string
}

// NewUpstream creates a provider that calls the backend with token.
func NewUpstream(client Counselor, token string) *Upstream {
	return &Upstream{client: client, token: token}
}

// Respond implements session.ResponseProvider.
func (u *Upstream) Respond(ctx context.Context, req session.Request) (string, error) {
	resp, err := u.client.Counsel(ctx, u.token, CounselingRequest(req))
	if err != nil {
		return "", err
	}
	reply := strings.TrimSpace(resp.Reply())
	if reply == "" {
		return "", fmt.Errorf("counselling request: %w: empty reply", backend.ErrMalformedResponse)
	}
	return reply, nil
}

// CounselingRequest converts an engine request to the backend wire shape.
func CounselingRequest(req session.Request) backend.CounselingRequest {
	history := make([]backend.HistoryTurn, len(req.History))
	for i, t := range req.History {
		history[i] = backend.HistoryTurn{Sender: t.Sender, Content: t.Content, Timestamp: t.Timestamp}
	}
	return backend.CounselingRequest{
		UserMessage:         req.UserMessage,
		SessionID:           req.SessionID,
		ConversationHistory: history,
		UserProfile:         backend.ProfileFromDomain(req.Profile),
	}
}
