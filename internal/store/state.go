package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/Rahul-s27/Pace/internal/domain"
)

// AppPhase is the top-level screen the client was on.
type AppPhase string

const (
	PhaseWelcome     AppPhase = "welcome"
	PhaseCounselling AppPhase = "counselling"
)

// State provides typed access to a user's persisted client state. Reads never
// fail: unavailable storage or malformed values are logged and reported as
// absent.
type State struct {
	repo   Repository
	logger *slog.Logger

	// mu serializes read-modify-write updates of saved ID lists.
	mu sync.Mutex
}

// NewState wraps repo with typed accessors.
func NewState(repo Repository, logger *slog.Logger) *State {
	if logger == nil {
		logger = slog.Default()
	}
	return &State{repo: repo, logger: logger}
}

func (s *State) read(ctx context.Context, userID, key string) (string, bool) {
	v, ok, err := s.repo.Get(ctx, userID, key)
	if err != nil {
		s.logger.Warn("Client state unavailable", "user_id", userID, "key", key, "error", err)
		return "", false
	}
	return v, ok
}

// Profile returns the stored intake profile.
func (s *State) Profile(ctx context.Context, userID string) (domain.Profile, bool) {
	raw, ok := s.read(ctx, userID, KeyUserProfile)
	if !ok {
		return domain.Profile{}, false
	}
	var p domain.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.logger.Warn("Malformed stored profile", "user_id", userID, "error", err)
		return domain.Profile{}, false
	}
	return p, true
}

// SetProfile stores the profile, or removes it when p is nil.
func (s *State) SetProfile(ctx context.Context, userID string, p *domain.Profile) error {
	if p == nil {
		return s.repo.Remove(ctx, userID, KeyUserProfile)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	return s.repo.Set(ctx, userID, KeyUserProfile, string(data))
}

// AppState returns the stored phase, defaulting to PhaseWelcome.
func (s *State) AppState(ctx context.Context, userID string) AppPhase {
	raw, ok := s.read(ctx, userID, KeyAppState)
	if !ok {
		return PhaseWelcome
	}
	switch phase := AppPhase(raw); phase {
	case PhaseWelcome, PhaseCounselling:
		return phase
	default:
		s.logger.Warn("Unknown stored app state", "user_id", userID, "value", raw)
		return PhaseWelcome
	}
}

// SetAppState stores the phase.
func (s *State) SetAppState(ctx context.Context, userID string, phase AppPhase) error {
	switch phase {
	case PhaseWelcome, PhaseCounselling:
	default:
		return fmt.Errorf("unknown app state %q", phase)
	}
	return s.repo.Set(ctx, userID, KeyAppState, string(phase))
}

// Reset forgets the phase and the profile.
func (s *State) Reset(ctx context.Context, userID string) error {
	if err := s.repo.Remove(ctx, userID, KeyAppState); err != nil {
		return err
	}
	return s.repo.Remove(ctx, userID, KeyUserProfile)
}

// SavedIDs returns the IDs stored under a saved-list key.
func (s *State) SavedIDs(ctx context.Context, userID, key string) []string {
	raw, ok := s.read(ctx, userID, key)
	if !ok {
		return []string{}
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		s.logger.Warn("Malformed saved list", "user_id", userID, "key", key, "error", err)
		return []string{}
	}
	if ids == nil {
		ids = []string{}
	}
	return ids
}

// ToggleSaved adds id when absent and removes it when present. It reports
// whether id is saved afterwards.
func (s *State) ToggleSaved(ctx context.Context, userID, key, id string) (bool, error) {
	var saved bool
	err := s.updateSaved(ctx, userID, key, func(ids []string) []string {
		if i := slices.Index(ids, id); i >= 0 {
			return slices.Delete(ids, i, i+1)
		}
		saved = true
		return append(ids, id)
	})
	return saved, err
}

// AddSaved adds id to the list if it is not already there.
func (s *State) AddSaved(ctx context.Context, userID, key, id string) error {
	return s.updateSaved(ctx, userID, key, func(ids []string) []string {
		if slices.Contains(ids, id) {
			return ids
		}
		return append(ids, id)
	})
}

// RemoveSaved removes id from the list.
func (s *State) RemoveSaved(ctx context.Context, userID, key, id string) error {
	return s.updateSaved(ctx, userID, key, func(ids []string) []string {
		return slices.DeleteFunc(ids, func(v string) bool { return v == id })
	})
}

func (s *State) updateSaved(ctx context.Context, userID, key string, update func([]string) []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := update(s.SavedIDs(ctx, userID, key))
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("marshal saved list: %w", err)
	}
	return s.repo.Set(ctx, userID, key, string(data))
}
