package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Rahul-s27/Pace/internal/backend"
	"github.com/Rahul-s27/Pace/internal/catalog"
	"github.com/Rahul-s27/Pace/internal/config"
	"github.com/Rahul-s27/Pace/internal/domain"
	"github.com/Rahul-s27/Pace/internal/identity"
	"github.com/Rahul-s27/Pace/internal/provider"
	"github.com/Rahul-s27/Pace/internal/session"
	"github.com/Rahul-s27/Pace/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserID = "user-1"

// gate blocks every reply until released or cancelled.
type gate struct{ release chan struct{} }

func newGate() *gate { return &gate{release: make(chan struct{})} }

func (g *gate) Respond(ctx context.Context, _ session.Request) (string, error) {
	select {
	case <-g.release:
		return "Tell me more about that.", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type fakeUpstream struct {
	searchErr error
	search    *backend.SearchResponse
	saved     []string
}

func (f *fakeUpstream) SearchOpportunities(context.Context, string, backend.SearchRequest) (*backend.SearchResponse, error) {
	return f.search, f.searchErr
}

func (f *fakeUpstream) GetOpportunity(context.Context, string, string) (*domain.Opportunity, error) {
	return nil, &backend.StatusError{Op: "get opportunity", StatusCode: http.StatusNotFound}
}

func (f *fakeUpstream) SaveOpportunity(_ context.Context, _, _, id string) (*backend.SuccessResponse, error) {
	f.saved = append(f.saved, id)
	return &backend.SuccessResponse{Success: true}, nil
}

func (f *fakeUpstream) Recommended(context.Context, string, string) (*backend.RecommendedResponse, error) {
	return nil, errors.New("upstream down")
}

type testEnv struct {
	router   http.Handler
	repo     *store.MemoryStore
	sessions *session.Manager
}

func testConfig() *config.Config {
	return &config.Config{
		AuthMode: config.AuthAnonymous,
		Provider: config.ProviderScripted,
		Session:  config.SessionConfig{Budget: 30 * time.Minute, TickInterval: time.Second, TurnThreshold: 8},
		RateLimit: config.RateLimitConfig{
			RequestsPerWindow: 100,
			WindowDuration:    time.Minute,
		},
		Timeout: config.TimeoutConfig{HealthCheck: time.Second},
	}
}

func newTestEnv(t *testing.T, cfg *config.Config, p session.ResponseProvider, upstream Opportunities) *testEnv {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	if p == nil {
		p = provider.NewScripted()
	}

	repo := store.NewMemory()
	cat, err := catalog.NewStore("", nil)
	require.NoError(t, err)

	sessions := session.NewManager(session.ManagerOptions{
		Config:   session.Config{Budget: cfg.Session.Budget, TickInterval: cfg.Session.TickInterval, TurnThreshold: cfg.Session.TurnThreshold},
		Provider: p,
		OnEnd:    SessionRecorder(repo, nil),
	})
	t.Cleanup(sessions.CloseAll)

	deps := Deps{
		Config:    cfg,
		Repo:      repo,
		Sessions:  sessions,
		Providers: func(string) session.ResponseProvider { return p },
		Catalog:   cat,
		Logger:    nil,
	}
	if upstream != nil {
		deps.Upstream = upstream
	}
	h := NewHandler(deps)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			user := &domain.User{UserID: testUserID, Name: "Asha"}
			next.ServeHTTP(w, req.WithContext(identity.WithUser(req.Context(), user, "tok", "tab-1")))
		})
	})
	h.RegisterRoutes(r)

	return &testEnv{router: r, repo: repo, sessions: sessions}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

var validProfile = domain.Profile{Name: "Asha", Age: "17", EducationLevel: "12th Grade", StreamOfInterest: "Science"}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %q", ct)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestStartSessionRejectsInvalidProfile(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)

	rec := env.do(t, http.MethodPost, "/api/sessions", domain.Profile{Name: "Asha"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "age")
	assert.Equal(t, 0, env.sessions.Len())

	rec = env.do(t, http.MethodPost, "/api/sessions", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionLifecycle(t *testing.T) {
	g := newGate()
	env := newTestEnv(t, nil, g, nil)

	rec := env.do(t, http.MethodGet, "/api/sessions/current", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/sessions", validProfile)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	snap := decodeBody[map[string]any](t, rec)
	assert.NotEmpty(t, snap["session_id"])
	assert.Equal(t, "idle", snap["state"])
	assert.Len(t, snap["messages"], 1)
	assert.EqualValues(t, 1800, snap["remaining_seconds"])

	// The intake profile and phase are persisted with the session.
	rec = env.do(t, http.MethodGet, "/api/state", nil)
	assert.Equal(t, store.PhaseCounselling, decodeBody[StateBody](t, rec).AppState)
	rec = env.do(t, http.MethodGet, "/api/profile", nil)
	assert.Equal(t, validProfile, decodeBody[domain.Profile](t, rec))

	rec = env.do(t, http.MethodPost, "/api/sessions/current/messages", SubmitRequest{Content: "   "})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/sessions/current/messages", SubmitRequest{Content: "I like robots"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	msg := decodeBody[domain.Message](t, rec)
	assert.Equal(t, domain.SenderUser, msg.Sender)
	assert.Equal(t, "I like robots", msg.Content)

	rec = env.do(t, http.MethodPost, "/api/sessions/current/messages", SubmitRequest{Content: "and drawing"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(g.release)
	require.Eventually(t, func() bool {
		rec := env.do(t, http.MethodGet, "/api/sessions/current", nil)
		var snap session.Snapshot
		return json.NewDecoder(rec.Body).Decode(&snap) == nil && snap.Turns == 1
	}, 2*time.Second, 10*time.Millisecond)

	rec = env.do(t, http.MethodPost, "/api/sessions/current/end", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	end := decodeBody[EndResponse](t, rec)
	assert.Equal(t, "I like robots", end.Summary)
	assert.Equal(t, session.EndUserRequested, end.Reason)

	rec = env.do(t, http.MethodPost, "/api/sessions/current/messages", SubmitRequest{Content: "more"})
	assert.Equal(t, http.StatusGone, rec.Code)

	require.Eventually(t, func() bool {
		rec := env.do(t, http.MethodGet, "/api/sessions/history", nil)
		var body struct {
			Sessions []domain.SessionRecord `json:"sessions"`
		}
		_ = json.NewDecoder(rec.Body).Decode(&body)
		return len(body.Sessions) == 1 && body.Sessions[0].Summary == "I like robots"
	}, 2*time.Second, 10*time.Millisecond)

	rec = env.do(t, http.MethodDelete, "/api/sessions/current", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/sessions/current", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/state", nil)
	assert.Equal(t, store.PhaseWelcome, decodeBody[StateBody](t, rec).AppState)
}

func TestSubmitIsRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.RequestsPerWindow = 1
	env := newTestEnv(t, cfg, nil, nil)

	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/sessions", validProfile).Code)

	rec := env.do(t, http.MethodPost, "/api/sessions/current/messages", SubmitRequest{Content: "hello"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/sessions/current/messages", SubmitRequest{Content: "hello again"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestSessionHistoryValidatesLimit(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)

	rec := env.do(t, http.MethodGet, "/api/sessions/history?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/sessions/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sessions":[]}`, rec.Body.String())
}

func TestProfileAndState(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)

	rec := env.do(t, http.MethodGet, "/api/profile", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/profile", domain.Profile{Name: " Ravi ", Age: "20", EducationLevel: "Undergraduate"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ravi", decodeBody[domain.Profile](t, rec).Name)

	rec = env.do(t, http.MethodPut, "/api/profile", domain.Profile{Name: "Ravi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/state", nil)
	assert.Equal(t, store.PhaseWelcome, decodeBody[StateBody](t, rec).AppState)

	rec = env.do(t, http.MethodPut, "/api/state", map[string]string{"appState": "lost"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/state", StateBody{AppState: store.PhaseCounselling})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/state", nil)
	assert.Equal(t, store.PhaseCounselling, decodeBody[StateBody](t, rec).AppState)
}

func TestGetMe(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)

	rec := env.do(t, http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, testUserID, body["user_id"])
	assert.Equal(t, "Asha", body["display_name"])
}

func TestSearchOpportunitiesFromCatalog(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)

	rec := env.do(t, http.MethodPost, "/api/opportunities/search", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[backend.SearchResponse](t, rec)
	assert.Equal(t, len(catalog.Default().Opportunities), resp.Total)
	assert.False(t, resp.Partial)

	rec = env.do(t, http.MethodPost, "/api/opportunities/search", backend.SearchRequest{Sort: "random"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchOpportunitiesUpstreamFallback(t *testing.T) {
	up := &fakeUpstream{searchErr: errors.New("connection refused")}
	env := newTestEnv(t, nil, nil, up)

	rec := env.do(t, http.MethodPost, "/api/opportunities/search", backend.SearchRequest{PageSize: 2})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[backend.SearchResponse](t, rec)
	assert.True(t, resp.Partial)
	assert.Len(t, resp.Items, 2)

	up.searchErr = nil
	up.search = &backend.SearchResponse{Total: 0, Page: 1, PageSize: 20}
	rec = env.do(t, http.MethodPost, "/api/opportunities/search", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":0,"page":1,"page_size":20,"items":[],"partial":false,"cached":false}`, rec.Body.String())
}

func TestGetOpportunity(t *testing.T) {
	env := newTestEnv(t, nil, nil, &fakeUpstream{})

	rec := env.do(t, http.MethodGet, "/api/opportunities/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", decodeBody[domain.Opportunity](t, rec).ID)

	rec = env.do(t, http.MethodGet, "/api/opportunities/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSavedOpportunities(t *testing.T) {
	up := &fakeUpstream{}
	env := newTestEnv(t, nil, nil, up)

	rec := env.do(t, http.MethodGet, "/api/users/someone-else/saved_opportunities", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/users/"+testUserID+"/saved_opportunities", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/users/"+testUserID+"/saved_opportunities", backend.SaveOpportunityRequest{OpportunityID: "3"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.Equal(t, []string{"3"}, up.saved)

	rec = env.do(t, http.MethodGet, "/api/users/"+testUserID+"/saved_opportunities", nil)
	assert.JSONEq(t, `{"success":true,"ids":["3"]}`, rec.Body.String())

	rec = env.do(t, http.MethodDelete, "/api/users/"+testUserID+"/saved_opportunities?opportunityId=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/users/"+testUserID+"/saved_opportunities", nil)
	assert.JSONEq(t, `{"success":true,"ids":[]}`, rec.Body.String())
}

func TestRecommendedFallsBackToCatalog(t *testing.T) {
	env := newTestEnv(t, nil, nil, &fakeUpstream{})

	rec := env.do(t, http.MethodGet, "/api/users/"+testUserID+"/recommended", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[backend.RecommendedResponse](t, rec)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Items)
}

func TestCatalogEndpoints(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)

	for _, path := range []string{"/api/careers", "/api/learning-path", "/api/pathways", "/api/trends", "/api/skills/gap"} {
		rec := env.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := env.do(t, http.MethodPost, "/api/recommendations", RecommendationRequest{Profile: &validProfile})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string][]map[string]any](t, rec)
	assert.NotEmpty(t, body["careers"])
	assert.LessOrEqual(t, len(body["careers"]), 3)
	assert.NotEmpty(t, body["learningPath"])
}

func TestMentors(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)

	rec := env.do(t, http.MethodPost, "/api/mentors/search", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all struct {
		Mentors []domain.Mentor `json:"mentors"`
		Saved   []string        `json:"saved"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&all))
	require.NotEmpty(t, all.Mentors)
	assert.Empty(t, all.Saved)

	rec = env.do(t, http.MethodPost, "/api/mentors/nobody/save", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	id := all.Mentors[0].ID
	rec = env.do(t, http.MethodPost, "/api/mentors/"+id+"/save", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody[map[string]any](t, rec)["saved"])

	rec = env.do(t, http.MethodGet, "/api/mentors/saved", nil)
	assert.JSONEq(t, `{"saved":["`+id+`"]}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/mentors/"+id+"/save", nil)
	assert.Equal(t, false, decodeBody[map[string]any](t, rec)["saved"])
}

func TestCounselling(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)

	rec := env.do(t, http.MethodPost, "/counselling", backend.CounselingRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/counselling", backend.CounselingRequest{UserMessage: "I enjoy maths"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[backend.CounselingResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Answer, "I enjoy maths")
	assert.NotEmpty(t, resp.FollowUpQuestion)
}

func TestCounsellingFallsBackOnProviderError(t *testing.T) {
	failing := session.ProviderFunc(func(context.Context, session.Request) (string, error) {
		return "", errors.New("model overloaded")
	})
	env := newTestEnv(t, nil, failing, nil)

	rec := env.do(t, http.MethodPost, "/counselling", backend.CounselingRequest{UserMessage: "hi"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[backend.CounselingResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, provider.ServiceFallbackText, resp.Text)
}

func TestVerifyToken(t *testing.T) {
	env := newTestEnv(t, nil, nil, nil)

	rec := env.do(t, http.MethodGet, "/verify-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testUserID, decodeBody[map[string]any](t, rec)["uid"])
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	var v map[string]any
	err := decode(req, &v)
	require.Error(t, err)
	assert.NotErrorIs(t, err, errEmptyBody)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	assert.ErrorIs(t, decode(req, &v), errEmptyBody)
}
