// Package catalog holds the static career, mentor and opportunity data served
// by the API. The data ships embedded and can be overridden by a YAML file that
// is reloaded when it changes on disk.
package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/Rahul-s27/Pace/internal/domain"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embedded []byte

// Catalog is one consistent snapshot of the static data set.
type Catalog struct {
	Careers        []domain.Career        `yaml:"careers"`
	LearningPath   []domain.LearningStep  `yaml:"learning_path"`
	Pathways       []domain.Pathway       `yaml:"pathways"`
	Mentors        []domain.Mentor        `yaml:"mentors"`
	Trends         []domain.Trend         `yaml:"trends"`
	Skills         []domain.Skill         `yaml:"skills"`
	Opportunities  []domain.Opportunity   `yaml:"opportunities"`
	QuickQuestions []domain.QuickQuestion `yaml:"quick_questions"`
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(embedded)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// Load reads a catalog from path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Validate checks that the catalog is usable.
func (c *Catalog) Validate() error {
	if len(c.Careers) == 0 {
		return errors.New("catalog has no careers")
	}
	if err := uniqueIDs("career", len(c.Careers), func(i int) string { return c.Careers[i].ID }); err != nil {
		return err
	}
	if err := uniqueIDs("mentor", len(c.Mentors), func(i int) string { return c.Mentors[i].ID }); err != nil {
		return err
	}
	if err := uniqueIDs("opportunity", len(c.Opportunities), func(i int) string { return c.Opportunities[i].ID }); err != nil {
		return err
	}
	if err := uniqueIDs("quick question", len(c.QuickQuestions), func(i int) string { return c.QuickQuestions[i].ID }); err != nil {
		return err
	}
	for _, s := range c.Skills {
		if s.CurrentLevel < 0 || s.CurrentLevel > 100 || s.RequiredLevel < 0 || s.RequiredLevel > 100 {
			return fmt.Errorf("skill %q: levels must be within 0-100", s.Name)
		}
	}
	return nil
}

func uniqueIDs(kind string, n int, id func(int) string) error {
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		v := id(i)
		if v == "" {
			return fmt.Errorf("%s at index %d has no id", kind, i)
		}
		if _, dup := seen[v]; dup {
			return fmt.Errorf("duplicate %s id %q", kind, v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

// Mentor finds a mentor by ID.
func (c *Catalog) Mentor(id string) (domain.Mentor, bool) {
	for _, m := range c.Mentors {
		if m.ID == id {
			return m, true
		}
	}
	return domain.Mentor{}, false
}

// Store serves the current catalog and swaps it atomically on reload.
type Store struct {
	current atomic.Pointer[Catalog]
	path    string
	logger  *slog.Logger
}

// NewStore loads the catalog at path, or the embedded one when path is empty.
func NewStore(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{path: path, logger: logger}

	if path == "" {
		s.current.Store(Default())
		return s, nil
	}
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	s.current.Store(c)
	logger.Info("Catalog loaded", "path", path, "careers", len(c.Careers), "opportunities", len(c.Opportunities))
	return s, nil
}

// Current returns the active catalog snapshot.
func (s *Store) Current() *Catalog {
	return s.current.Load()
}

// Reload re-reads the override file. On failure the previous catalog stays active.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	c, err := Load(s.path)
	if err != nil {
		s.logger.Warn("Catalog reload failed, keeping previous catalog", "path", s.path, "error", err)
		return err
	}
	s.current.Store(c)
	s.logger.Info("Catalog reloaded", "path", s.path, "careers", len(c.Careers), "opportunities", len(c.Opportunities))
	return nil
}

// Watch reloads the catalog whenever the override file changes, until ctx is
// cancelled. It returns immediately when no override path is configured.
func (s *Store) Watch(ctx context.Context, debounce time.Duration) error {
	if s.path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create catalog watcher: %w", err)
	}
	// Editors often replace the file, so watch the directory.
	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go s.watch(ctx, w, debounce)
	return nil
}

func (s *Store) watch(ctx context.Context, w *fsnotify.Watcher, debounce time.Duration) {
	defer w.Close()

	s.logger.Info("Catalog watcher started", "path", s.path)
	name := filepath.Clean(s.path)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			s.logger.Info("Catalog watcher shutting down")
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != name || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Error("Catalog watcher error", "error", err)

		case <-fire:
			fire = nil
			_ = s.Reload()
		}
	}
}
