package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/Rahul-s27/Pace/internal/config"
	"github.com/Rahul-s27/Pace/internal/domain"
	"github.com/Rahul-s27/Pace/internal/guidance"
	"github.com/Rahul-s27/Pace/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProvider struct {
	mu     sync.Mutex
	last   session.Request
	answer string
	err    error
}

func (p *recordingProvider) Respond(_ context.Context, req session.Request) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = req
	return p.answer, p.err
}

func geminiConfig() *config.Config {
	cfg := testConfig()
	cfg.Provider = config.ProviderGemini
	return cfg
}

func TestMentorQuickQuestions(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)

	rec := env.do(t, http.MethodGet, "/api/mentor/quick-questions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[struct {
		Welcome   string                 `json:"welcome"`
		Questions []domain.QuickQuestion `json:"questions"`
	}](t, rec)
	assert.Contains(t, body.Welcome, "Hi there!")
	require.Len(t, body.Questions, 6)
	assert.Equal(t, "Skills", body.Questions[0].Category)

	rec = env.do(t, http.MethodPut, "/api/profile", validProfile)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/mentor/quick-questions", nil)
	assert.Contains(t, decodeBody[map[string]any](t, rec)["welcome"], "Hi Asha!")
}

func TestAskMentorOfflineUsesRules(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)

	rec := env.do(t, http.MethodPost, "/api/mentor/ask", AskRequest{Query: "How can I improve my resume?"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[AskResponse](t, rec)
	assert.Equal(t, AnswerSourceRules, resp.Source)
	assert.Equal(t, guidance.MentorAnswer("resume"), resp.Answer)
}

func TestAskMentorRequiresQuery(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)

	rec := env.do(t, http.MethodPost, "/api/mentor/ask", AskRequest{Query: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/mentor/ask", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskMentorUsesProvider(t *testing.T) {
	p := &recordingProvider{answer: "  Start with one language and build projects.  "}
	env := newTestEnv(t, geminiConfig(), p, nil)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, "/api/profile", validProfile).Code)

	rec := env.do(t, http.MethodPost, "/api/mentor/ask", AskRequest{
		Query: "Which language first?",
		History: []domain.Turn{
			{Sender: domain.SenderUser, Content: "I like coding"},
			{Sender: "system", Content: "ignored"},
			{Sender: domain.SenderMentor, Content: "Great!"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[AskResponse](t, rec)
	assert.Equal(t, AnswerSourceProvider, resp.Source)
	assert.Equal(t, "Start with one language and build projects.", resp.Answer)

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Equal(t, "Which language first?", p.last.UserMessage)
	assert.Equal(t, "Asha", p.last.Profile.Name)
	require.Len(t, p.last.History, 3)
	assert.Equal(t, domain.SenderMentor, p.last.History[1].Sender)
	assert.Equal(t, "Which language first?", p.last.History[2].Content)
}

func TestAskMentorProviderFailureUsesRules(t *testing.T) {
	tests := []struct {
		name string
		p    *recordingProvider
	}{
		{"error", &recordingProvider{err: errors.New("upstream 502: internal-host")}},
		{"empty answer", &recordingProvider{answer: "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, geminiConfig(), tt.p, nil)

			rec := env.do(t, http.MethodPost, "/api/mentor/ask", AskRequest{Query: "What are the latest industry trends?"})
			require.Equal(t, http.StatusOK, rec.Code)
			assert.NotContains(t, rec.Body.String(), "internal-host")
			resp := decodeBody[AskResponse](t, rec)
			assert.Equal(t, AnswerSourceRules, resp.Source)
			assert.Contains(t, resp.Answer, "AI/ML integration")
		})
	}
}
