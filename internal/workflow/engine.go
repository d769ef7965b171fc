// Package workflow drives the per-controller pattern workflow: capturing the
// live zone state, naming and committing it to the store, and applying saved
// patterns back to the device. Each controller has at most one active session,
// so a capture and an apply can never interleave on the same device.
package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oelohome/oelod/internal/config"
	"github.com/oelohome/oelod/internal/controller"
	"github.com/oelohome/oelod/internal/errors"
	"github.com/oelohome/oelod/internal/events"
	"github.com/oelohome/oelod/internal/pattern"
	"github.com/oelohome/oelod/pkg/oelo"
)

// State names the phase of a controller's active session.
type State string

const (
	StateIdle           State = "idle"
	StateCapturing      State = "capturing"
	StateAwaitingNaming State = "awaiting_naming"
	StateApplying       State = "applying"
)

// session tracks one in-flight workflow on one controller. The token changes
// on every new session so a network call that outlives its session (abandoned
// or timed out) can detect it and discard its result.
type session struct {
	token      string
	state      State
	startedAt  time.Time
	snapshot   *oelo.LightState
	committing bool // a commit holds the snapshot outside the lock
}

// Status is the externally visible view of a controller's session.
type Status struct {
	State     State     `json:"state"`
	StartedAt time.Time `json:"started_at,omitzero"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// Engine owns the workflow sessions. The mutex guards session bookkeeping
// only; it is never held across a device call.
type Engine struct {
	logger      *slog.Logger
	cfg         *config.Config
	controllers *controller.Manager
	store       *pattern.Store
	bus         *events.Bus

	mu       sync.Mutex
	sessions map[string]*session

	now func() time.Time
}

// NewEngine creates a workflow engine over the controller registry and the
// pattern store.
func NewEngine(logger *slog.Logger, cfg *config.Config, controllers *controller.Manager, store *pattern.Store) *Engine {
	return &Engine{
		logger:      logger,
		cfg:         cfg,
		controllers: controllers,
		store:       store,
		sessions:    make(map[string]*session),
		now:         time.Now,
	}
}

// SetEventBus wires the event bus so the engine emits workflow events.
func (e *Engine) SetEventBus(bus *events.Bus) { e.bus = bus }

func (e *Engine) sessionTimeout() time.Duration {
	if t := e.cfg.Config.Workflow.SessionTimeout; t > 0 {
		return t
	}
	return config.DefaultSessionTimeout
}

// expireLocked force-resets a session that has outlived its budget. Callers
// hold e.mu.
func (e *Engine) expireLocked(controllerID string) {
	s, exists := e.sessions[controllerID]
	if !exists {
		return
	}
	if e.now().Sub(s.startedAt) >= e.sessionTimeout() {
		e.logger.Warn("workflow: session expired, forcing reset",
			"controller", controllerID, "state", s.state, "started_at", s.startedAt)
		delete(e.sessions, controllerID)
	}
}

// Status reports the controller's current session phase.
func (e *Engine) Status(controllerID string) Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expireLocked(controllerID)

	s, exists := e.sessions[controllerID]
	if !exists {
		return Status{State: StateIdle}
	}
	return Status{
		State:     s.state,
		StartedAt: s.startedAt,
		ExpiresAt: s.startedAt.Add(e.sessionTimeout()),
	}
}

// StartCapture snapshots the controller's live state and leaves the session
// awaiting a name. The device read happens with no lock held; if the session
// expires while the read is in flight, the snapshot is discarded.
func (e *Engine) StartCapture(ctx context.Context, controllerID string) (*oelo.LightState, error) {
	if _, err := e.controllers.GetController(controllerID); err != nil {
		return nil, err
	}
	client, err := e.controllers.ClientFor(controllerID)
	if err != nil {
		return nil, err
	}

	token := uuid.NewString()
	e.mu.Lock()
	e.expireLocked(controllerID)
	if s, exists := e.sessions[controllerID]; exists {
		e.mu.Unlock()
		return nil, errors.Busyf("controller is busy: session in state %s", s.state)
	}
	e.sessions[controllerID] = &session{
		token:     token,
		state:     StateCapturing,
		startedAt: e.now(),
	}
	e.mu.Unlock()

	state, err := client.GetState(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	s, exists := e.sessions[controllerID]
	if !exists || s.token != token {
		// Session was abandoned or force-reset mid-read.
		return nil, errors.Busyf("capture session on controller %s was reset", controllerID)
	}
	if err != nil {
		delete(e.sessions, controllerID)
		return nil, errors.LogErrorAndReturn(e.logger, err,
			"workflow: capture read failed", "controller", controllerID)
	}

	s.state = StateAwaitingNaming
	s.snapshot = state
	e.logger.Info("workflow: captured state, awaiting name",
		"controller", controllerID, "zones", len(state.Zones))
	e.publish(events.PatternCaptured, map[string]any{
		"controller_id": controllerID,
		"zones":         len(state.Zones),
	})

	snap := state.Clone()
	return &snap, nil
}

// CommitCapture names the held snapshot and persists it as a pattern, ending
// the session. On a rejected name (duplicate, empty) the session stays in
// awaiting-naming so the caller can retry with a different name. The session
// is claimed before the store write, so concurrent commits of the same
// capture cannot each persist a pattern.
func (e *Engine) CommitCapture(controllerID, name string) (*pattern.Pattern, error) {
	e.mu.Lock()
	e.expireLocked(controllerID)
	s, exists := e.sessions[controllerID]
	if !exists || s.state != StateAwaitingNaming {
		e.mu.Unlock()
		return nil, errors.InvalidInputf("no capture awaiting naming on controller %s", controllerID)
	}
	if s.committing {
		e.mu.Unlock()
		return nil, errors.Busyf("commit already in progress on controller %s", controllerID)
	}
	s.committing = true
	snapshot := s.snapshot.Clone()
	e.mu.Unlock()

	p, err := e.store.Create(controllerID, name, snapshot)

	e.mu.Lock()
	cur, stillThere := e.sessions[controllerID]
	if err != nil {
		// Session stays open for a corrected name.
		if stillThere && cur == s {
			cur.committing = false
		}
		e.mu.Unlock()
		return nil, err
	}
	if stillThere && cur == s {
		delete(e.sessions, controllerID)
	}
	e.mu.Unlock()

	e.logger.Info("workflow: capture committed", "controller", controllerID, "pattern", p.ID, "name", p.Name)
	return p, nil
}

// AbandonCapture discards a capture that is awaiting a name. Abandoning an
// idle controller is a no-op. While a device call is outstanding (capturing
// or applying) the session cannot be torn down, so the controller stays
// locked until the call resolves.
func (e *Engine) AbandonCapture(controllerID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, exists := e.sessions[controllerID]
	if !exists {
		return nil
	}
	if s.state == StateCapturing || s.state == StateApplying {
		return errors.Busyf("controller is busy: session in state %s", s.state)
	}
	if s.committing {
		return errors.Busyf("controller is busy: commit in progress")
	}
	delete(e.sessions, controllerID)
	e.logger.Info("workflow: capture abandoned", "controller", controllerID, "state", s.state)
	return nil
}

// Apply pushes a saved pattern to its controller. The controller's LastApplied
// marker moves only after the device accepted every zone.
func (e *Engine) Apply(ctx context.Context, controllerID, patternID string) error {
	if _, err := e.controllers.GetController(controllerID); err != nil {
		return err
	}
	p, err := e.store.Get(patternID)
	if err != nil {
		return err
	}
	if p.ControllerID != controllerID {
		return errors.InvalidInputf("pattern %s belongs to a different controller", patternID)
	}
	client, err := e.controllers.ClientFor(controllerID)
	if err != nil {
		return err
	}

	token := uuid.NewString()
	e.mu.Lock()
	e.expireLocked(controllerID)
	if s, exists := e.sessions[controllerID]; exists {
		e.mu.Unlock()
		return errors.Busyf("controller is busy: session in state %s", s.state)
	}
	e.sessions[controllerID] = &session{
		token:     token,
		state:     StateApplying,
		startedAt: e.now(),
	}
	e.mu.Unlock()

	applyErr := client.SetPattern(ctx, p.State)

	e.mu.Lock()
	if s, exists := e.sessions[controllerID]; exists && s.token == token {
		delete(e.sessions, controllerID)
	}
	e.mu.Unlock()

	if applyErr != nil {
		return errors.LogErrorAndReturn(e.logger, applyErr,
			"workflow: apply failed", "controller", controllerID, "pattern", patternID)
	}

	if err := e.controllers.SetLastApplied(controllerID, patternID); err != nil {
		e.logger.Error("workflow: apply succeeded but marker not persisted",
			"controller", controllerID, "pattern", patternID, "error", err)
	}

	e.logger.Info("workflow: pattern applied", "controller", controllerID, "pattern", patternID)
	e.publish(events.PatternApplied, map[string]any{
		"controller_id": controllerID,
		"pattern_id":    patternID,
		"name":          p.Name,
	})
	return nil
}

func (e *Engine) publish(t events.EventType, data any) {
	if e.bus != nil {
		e.bus.Publish(events.NewEvent(t, data))
	}
}
