// Package pattern implements the durable store for named light patterns. Each
// pattern is a full zone snapshot owned by a single controller. The store is
// a JSON file rewritten atomically on every mutation; a mutation has not
// happened until the file is on disk.
package pattern

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oelohome/oelod/internal/config"
	"github.com/oelohome/oelod/internal/errors"
	"github.com/oelohome/oelod/internal/events"
	"github.com/oelohome/oelod/pkg/oelo"
)

// Pattern is one saved snapshot.
type Pattern struct {
	ID           string          `json:"id"`
	ControllerID string          `json:"controller_id"`
	Name         string          `json:"name"`
	State        oelo.LightState `json:"state"`
	CreatedAt    time.Time       `json:"created_at"`
}

type storeFile struct {
	Patterns []Pattern `json:"patterns"`
}

// Store holds all saved patterns, keyed by pattern ID.
type Store struct {
	logger   *slog.Logger
	path     string
	mu       sync.RWMutex
	patterns map[string]Pattern
	bus      *events.Bus
}

// NewStore opens (or creates) the store file at path and loads its contents.
func NewStore(logger *slog.Logger, path string) (*Store, error) {
	s := &Store{
		logger:   logger,
		path:     path,
		patterns: make(map[string]Pattern),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// SetEventBus wires the event bus so the store emits pattern lifecycle events.
func (s *Store) SetEventBus(bus *events.Bus) { s.bus = bus }

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.logger.Debug("pattern store file does not exist yet", "path", s.path)
		return nil
	}
	if err != nil {
		return errors.WrapErrorf(err, "failed to read pattern store")
	}

	var f storeFile
	if err := json.Unmarshal(data, &f); err != nil {
		return errors.WrapErrorf(err, "failed to parse pattern store %s", s.path)
	}
	for _, p := range f.Patterns {
		s.patterns[p.ID] = p
	}
	s.logger.Info("loaded patterns from store", "count", len(s.patterns), "path", s.path)
	return nil
}

// save writes the store to disk via a temp file rename so a crash mid-write
// never corrupts the existing file. Callers hold s.mu.
func (s *Store) save() error {
	f := storeFile{Patterns: make([]Pattern, 0, len(s.patterns))}
	for _, p := range s.patterns {
		f.Patterns = append(f.Patterns, p)
	}
	sort.Slice(f.Patterns, func(i, j int) bool {
		return f.Patterns[i].CreatedAt.Before(f.Patterns[j].CreatedAt)
	})

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return errors.Internalf("failed to encode pattern store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.WrapErrorf(err, "failed to create pattern store directory")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.WrapErrorf(err, "failed to write pattern store")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.WrapErrorf(err, "failed to replace pattern store")
	}
	return nil
}

// Create saves a new pattern. Names are unique per controller, compared
// case-insensitively, and a controller holds at most MaxPatternsPerController
// patterns.
func (s *Store) Create(controllerID, name string, state oelo.LightState) (*Pattern, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.InvalidInputf("pattern name must not be empty")
	}
	if controllerID == "" {
		return nil, errors.InvalidInputf("controller id must not be empty")
	}
	if len(state.Zones) == 0 {
		return nil, errors.InvalidInputf("pattern state must contain at least one zone")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, p := range s.patterns {
		if p.ControllerID != controllerID {
			continue
		}
		count++
		if strings.EqualFold(p.Name, name) {
			return nil, errors.DuplicateNamef("pattern %q already exists on this controller", name)
		}
	}
	if count >= config.MaxPatternsPerController {
		return nil, errors.InvalidInputf("controller already holds %d patterns", config.MaxPatternsPerController)
	}

	p := Pattern{
		ID:           uuid.NewString(),
		ControllerID: controllerID,
		Name:         name,
		State:        state.Clone(),
		CreatedAt:    time.Now().UTC(),
	}
	s.patterns[p.ID] = p

	if err := s.save(); err != nil {
		delete(s.patterns, p.ID)
		return nil, errors.LogErrorAndReturn(s.logger, err, "pattern create not persisted", "name", name)
	}

	s.logger.Info("pattern: created", "id", p.ID, "name", p.Name, "controller", controllerID)
	s.publish(events.PatternCreated, p)
	return &p, nil
}

// Rename changes a pattern's name. The saved state is untouched.
func (s *Store) Rename(id, newName string) (*Pattern, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, errors.InvalidInputf("pattern name must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.patterns[id]
	if !exists {
		return nil, errors.NotFoundf("pattern %s not found", id)
	}
	for _, other := range s.patterns {
		if other.ID != id && other.ControllerID == p.ControllerID && strings.EqualFold(other.Name, newName) {
			return nil, errors.DuplicateNamef("pattern %q already exists on this controller", newName)
		}
	}

	oldName := p.Name
	p.Name = newName
	s.patterns[id] = p

	if err := s.save(); err != nil {
		p.Name = oldName
		s.patterns[id] = p
		return nil, errors.LogErrorAndReturn(s.logger, err, "pattern rename not persisted", "id", id)
	}

	s.logger.Info("pattern: renamed", "id", id, "from", oldName, "to", newName)
	s.publish(events.PatternRenamed, p)
	return &p, nil
}

// Delete removes a pattern permanently.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.patterns[id]
	if !exists {
		return errors.NotFoundf("pattern %s not found", id)
	}
	delete(s.patterns, id)

	if err := s.save(); err != nil {
		s.patterns[id] = p
		return errors.LogErrorAndReturn(s.logger, err, "pattern delete not persisted", "id", id)
	}

	s.logger.Info("pattern: deleted", "id", id, "name", p.Name)
	s.publish(events.PatternDeleted, p)
	return nil
}

// DeleteByController removes all patterns owned by a controller and returns
// how many were deleted. Used by the façade when a controller is removed.
func (s *Store) DeleteByController(controllerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make([]Pattern, 0)
	for id, p := range s.patterns {
		if p.ControllerID == controllerID {
			removed = append(removed, p)
			delete(s.patterns, id)
		}
	}
	if len(removed) == 0 {
		return 0, nil
	}

	if err := s.save(); err != nil {
		for _, p := range removed {
			s.patterns[p.ID] = p
		}
		return 0, errors.LogErrorAndReturn(s.logger, err, "cascade delete not persisted", "controller", controllerID)
	}

	s.logger.Info("pattern: cascade deleted", "controller", controllerID, "count", len(removed))
	for _, p := range removed {
		s.publish(events.PatternDeleted, p)
	}
	return len(removed), nil
}

// Get returns a pattern by ID.
func (s *Store) Get(id string) (*Pattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, exists := s.patterns[id]
	if !exists {
		return nil, errors.NotFoundf("pattern %s not found", id)
	}
	p.State = p.State.Clone()
	return &p, nil
}

// ListByController returns a controller's patterns ordered by creation time.
func (s *Store) ListByController(controllerID string) []*Pattern {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Pattern, 0)
	for id := range s.patterns {
		if s.patterns[id].ControllerID != controllerID {
			continue
		}
		p := s.patterns[id]
		p.State = p.State.Clone()
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Count returns the number of patterns owned by a controller.
func (s *Store) Count(controllerID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, p := range s.patterns {
		if p.ControllerID == controllerID {
			n++
		}
	}
	return n
}

// Total returns the number of patterns across all controllers.
func (s *Store) Total() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.patterns)
}

func (s *Store) publish(t events.EventType, data any) {
	if s.bus != nil {
		s.bus.Publish(events.NewEvent(t, data))
	}
}
