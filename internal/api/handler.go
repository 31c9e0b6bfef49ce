// Package api provides HTTP handlers for the Pace API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Rahul-s27/Pace/internal/backend"
	"github.com/Rahul-s27/Pace/internal/catalog"
	"github.com/Rahul-s27/Pace/internal/config"
	"github.com/Rahul-s27/Pace/internal/domain"
	"github.com/Rahul-s27/Pace/internal/provider"
	"github.com/Rahul-s27/Pace/internal/session"
	"github.com/Rahul-s27/Pace/internal/store"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// Opportunities is the upstream opportunity service.
type Opportunities interface {
	SearchOpportunities(ctx context.Context, token string, req backend.SearchRequest) (*backend.SearchResponse, error)
	GetOpportunity(ctx context.Context, token, id string) (*domain.Opportunity, error)
	SaveOpportunity(ctx context.Context, token, uid, opportunityID string) (*backend.SuccessResponse, error)
	Recommended(ctx context.Context, token, uid string) (*backend.RecommendedResponse, error)
}

// Deps are the collaborators of Handler.
type Deps struct {
	Config    *config.Config
	Repo      store.Repository
	Sessions  *session.Manager
	Providers provider.Source
	Catalog   *catalog.Store
	// Upstream serves opportunities when set; otherwise the catalog does.
	Upstream Opportunities
	Logger   *slog.Logger
}

// Handler serves the Pace API.
type Handler struct {
	cfg       *config.Config
	repo      store.Repository
	state     *store.State
	sessions  *session.Manager
	providers provider.Source
	catalog   *catalog.Store
	upstream  Opportunities
	limiter   *RateLimiter
	logger    *slog.Logger
	now       func() time.Time
}

// NewHandler creates a Handler.
func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		cfg:       d.Config,
		repo:      d.Repo,
		state:     store.NewState(d.Repo, logger),
		sessions:  d.Sessions,
		providers: d.Providers,
		catalog:   d.Catalog,
		upstream:  d.Upstream,
		limiter:   NewRateLimiter(d.Config.RateLimit.RequestsPerWindow, d.Config.RateLimit.WindowDuration),
		logger:    logger,
		now:       time.Now,
	}
}

// RegisterRoutes registers every authenticated route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/me", h.GetMe)
		r.Get("/config", h.GetConfig)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.StartSession)
			r.Get("/history", h.SessionHistory)
			r.Get("/current", h.CurrentSession)
			r.Delete("/current", h.DiscardSession)
			r.Post("/current/messages", h.SubmitMessage)
			r.Post("/current/end", h.EndSession)
		})

		r.Get("/profile", h.GetProfile)
		r.Put("/profile", h.PutProfile)
		r.Get("/state", h.GetState)
		r.Put("/state", h.PutState)

		r.Post("/opportunities/search", h.SearchOpportunities)
		r.Get("/opportunities/{id}", h.GetOpportunity)
		r.Route("/users/{uid}", func(r chi.Router) {
			r.Get("/saved_opportunities", h.ListSavedOpportunities)
			r.Post("/saved_opportunities", h.SaveOpportunity)
			r.Delete("/saved_opportunities", h.UnsaveOpportunity)
			r.Get("/recommended", h.Recommended)
		})

		r.Get("/careers", h.ListCareers)
		r.Post("/recommendations", h.Recommendations)
		r.Get("/learning-path", h.LearningPath)
		r.Get("/pathways", h.ListPathways)
		r.Get("/trends", h.ListTrends)
		r.Get("/skills/gap", h.SkillGap)
		r.Post("/mentors/search", h.SearchMentors)
		r.Get("/mentors/saved", h.ListSavedMentors)
		r.Post("/mentors/{id}/save", h.ToggleMentor)
		r.Get("/mentor/quick-questions", h.QuickQuestions)
		r.Post("/mentor/ask", h.AskMentor)
	})

	r.Get("/verify-token", h.VerifyToken)
	r.Post("/counselling", h.Counselling)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to encode response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

var errEmptyBody = errors.New("request body is required")

// decode reads a JSON body into v. An empty body is errEmptyBody.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
