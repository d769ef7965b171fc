// Package controller maintains the registry of configured Oelo controllers:
// one record and one client handle per device, created when the controller is
// configured and dropped when it is removed.
package controller

import (
	"context"
	"log/slog"
	"net"
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

// Controller is one configured device.
type Controller struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	AddedAt     time.Time `json:"added_at"`
	LastSeen    time.Time `json:"last_seen"`
	Reachable   bool      `json:"reachable"`
	LastApplied string    `json:"last_applied,omitempty"` // pattern id, empty when unknown
}

// Client is the slice of *oelo.Client the registry and the workflow engine
// depend on.
type Client interface {
	GetState(ctx context.Context) (*oelo.LightState, error)
	SetPattern(ctx context.Context, state oelo.LightState) error
	Ping(ctx context.Context) bool
	Addr() string
}

// ClientFactory builds a client for a controller address. Swappable in tests.
type ClientFactory func(address string) Client

// Manager is the process-wide controller registry.
type Manager struct {
	logger      *slog.Logger
	cfg         *config.Config
	mu          sync.RWMutex
	controllers map[string]Controller
	clients     map[string]Client
	newClient   ClientFactory
	bus         *events.Bus
}

// NewManager creates a registry, loading previously configured controllers
// from persisted state. Client handles are rebuilt lazily on first use.
func NewManager(logger *slog.Logger, cfg *config.Config) *Manager {
	m := &Manager{
		logger:      logger,
		cfg:         cfg,
		controllers: make(map[string]Controller),
		clients:     make(map[string]Client),
		newClient:   defaultClientFactory(cfg, logger),
	}
	m.loadControllers()
	return m
}

// SetEventBus wires the event bus so the registry emits lifecycle events.
func (m *Manager) SetEventBus(bus *events.Bus) { m.bus = bus }

// SetClientFactory overrides how device clients are constructed.
func (m *Manager) SetClientFactory(f ClientFactory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.newClient = f
	// Existing handles were built by the old factory; drop them.
	m.clients = make(map[string]Client)
}

func defaultClientFactory(cfg *config.Config, logger *slog.Logger) ClientFactory {
	return func(address string) Client {
		transport := oelo.NewTransport(address, cfg.Config.Controller.CommandTimeout, logger)
		policy := oelo.RetryPolicy{
			MaxAttempts:    uint(cfg.Config.Controller.RetryAttempts),
			InitialBackoff: cfg.Config.Controller.RetryBaseDelay,
			MaxBackoff:     cfg.Config.Controller.RetryMaxDelay,
		}
		return oelo.NewClient(transport, policy, logger)
	}
}

// loadControllers restores the registry from persisted config state.
func (m *Manager) loadControllers() {
	raw := m.cfg.State.Controllers
	if raw == nil {
		m.logger.Debug("no controllers found in config")
		return
	}

	for id, item := range raw {
		cm, ok := item.(map[string]any)
		if !ok {
			m.logger.Error("invalid controller record in config", "id", id)
			continue
		}
		ctrl := Controller{
			ID:          id,
			Name:        stringField(cm, "name"),
			Address:     stringField(cm, "address"),
			LastApplied: stringField(cm, "last_applied"),
		}
		if s := stringField(cm, "added_at"); s != "" {
			if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
				ctrl.AddedAt = ts
			}
		}
		if ctrl.Address == "" {
			m.logger.Error("controller record missing address, skipping", "id", id)
			continue
		}
		m.controllers[id] = ctrl
	}
	m.logger.Info("loaded controllers from config", "count", len(m.controllers))
}

// saveControllers persists the registry to config state, write-through.
func (m *Manager) saveControllers() error {
	m.mu.RLock()
	out := make(map[string]any, len(m.controllers))
	for id, ctrl := range m.controllers {
		rec := map[string]any{
			"name":     ctrl.Name,
			"address":  ctrl.Address,
			"added_at": ctrl.AddedAt.Format(time.RFC3339Nano),
		}
		if ctrl.LastApplied != "" {
			rec["last_applied"] = ctrl.LastApplied
		}
		out[id] = rec
	}
	m.mu.RUnlock()

	m.cfg.State.Controllers = out
	if err := m.cfg.Save(); err != nil {
		return errors.WrapErrorf(err, "failed to save controllers to config")
	}
	return nil
}

// AddController validates the address by probing the live device, then
// registers it, persists the record, and creates the client handle.
func (m *Manager) AddController(ctx context.Context, name, address string) (*Controller, error) {
	name = strings.TrimSpace(name)
	address = strings.TrimSpace(address)
	if name == "" {
		return nil, errors.InvalidInputf("controller name must not be empty")
	}
	if err := validateAddress(address); err != nil {
		return nil, err
	}

	// Probe outside any lock; the device must answer /getController before we
	// accept the entry, matching the original setup-flow validation.
	client := m.factory()(address)
	if _, err := client.GetState(ctx); err != nil {
		return nil, errors.LogErrorAndReturn(m.logger, err,
			"controller validation probe failed", "address", address)
	}

	ctrl := Controller{
		ID:        uuid.NewString(),
		Name:      name,
		Address:   address,
		AddedAt:   time.Now().UTC(),
		LastSeen:  time.Now(),
		Reachable: true,
	}

	m.mu.Lock()
	for _, existing := range m.controllers {
		if existing.Address == address {
			m.mu.Unlock()
			return nil, errors.InvalidInputf("controller at %s is already configured", address)
		}
	}
	m.controllers[ctrl.ID] = ctrl
	m.clients[ctrl.ID] = client
	m.mu.Unlock()

	if err := m.saveControllers(); err != nil {
		// Roll back the in-memory registration so a failed save can't leave a
		// controller that silently vanishes on restart.
		m.mu.Lock()
		delete(m.controllers, ctrl.ID)
		delete(m.clients, ctrl.ID)
		m.mu.Unlock()
		return nil, err
	}

	m.logger.Info("controller: added", "id", ctrl.ID, "name", ctrl.Name, "address", ctrl.Address)
	m.publish(events.ControllerAdded, ctrl)
	return &ctrl, nil
}

// RemoveController deletes a controller and tears down its client handle.
// Cascading deletion of the controller's patterns is the caller's duty and is
// always explicit, never implied here.
func (m *Manager) RemoveController(id string) (*Controller, error) {
	m.mu.Lock()
	ctrl, exists := m.controllers[id]
	if !exists {
		m.mu.Unlock()
		return nil, errors.NotFoundf("controller %s not found", id)
	}
	delete(m.controllers, id)
	delete(m.clients, id)
	m.mu.Unlock()

	if err := m.saveControllers(); err != nil {
		return nil, err
	}

	m.logger.Info("controller: removed", "id", id, "name", ctrl.Name)
	m.publish(events.ControllerRemoved, ctrl)
	return &ctrl, nil
}

// GetController returns a controller record by ID.
func (m *Manager) GetController(id string) (*Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ctrl, exists := m.controllers[id]
	if !exists {
		return nil, errors.NotFoundf("controller %s not found", id)
	}
	return &ctrl, nil
}

// ListControllers returns all controllers ordered by configuration time.
func (m *Manager) ListControllers() []*Controller {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Controller, 0, len(m.controllers))
	for id := range m.controllers {
		ctrl := m.controllers[id]
		out = append(out, &ctrl)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].AddedAt.Before(out[j].AddedAt)
	})
	return out
}

// ClientFor returns the client handle for a controller, creating it if the
// registry was restored from disk and the handle doesn't exist yet.
func (m *Manager) ClientFor(id string) (Client, error) {
	m.mu.RLock()
	ctrl, exists := m.controllers[id]
	client, clientExists := m.clients[id]
	m.mu.RUnlock()

	if !exists {
		return nil, errors.NotFoundf("controller %s not found", id)
	}
	if clientExists {
		return client, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	ctrl, exists = m.controllers[id]
	if !exists {
		return nil, errors.NotFoundf("controller %s not found", id)
	}
	if client, exists := m.clients[id]; exists {
		return client, nil
	}
	client = m.newClient(ctrl.Address)
	m.clients[id] = client
	return client, nil
}

// RefreshState fetches the controller's live state, updating reachability
// bookkeeping. The network call happens outside the lock.
func (m *Manager) RefreshState(ctx context.Context, id string) (*Controller, *oelo.LightState, error) {
	client, err := m.ClientFor(id)
	if err != nil {
		return nil, nil, err
	}

	state, err := client.GetState(ctx)

	m.mu.Lock()
	ctrl, exists := m.controllers[id]
	if !exists {
		m.mu.Unlock()
		return nil, nil, errors.NotFoundf("controller %s removed during refresh", id)
	}
	if err != nil {
		ctrl.Reachable = false
	} else {
		ctrl.Reachable = true
		ctrl.LastSeen = time.Now()
	}
	m.controllers[id] = ctrl
	m.mu.Unlock()

	if err != nil {
		return &ctrl, nil, err
	}
	m.publish(events.ControllerStateChanged, ctrl)
	return &ctrl, state, nil
}

// SetLastApplied records the pattern last pushed to the controller and
// persists it.
func (m *Manager) SetLastApplied(id, patternID string) error {
	m.mu.Lock()
	ctrl, exists := m.controllers[id]
	if !exists {
		m.mu.Unlock()
		return errors.NotFoundf("controller %s not found", id)
	}
	ctrl.LastApplied = patternID
	ctrl.LastSeen = time.Now()
	ctrl.Reachable = true
	m.controllers[id] = ctrl
	m.mu.Unlock()

	return m.saveControllers()
}

func (m *Manager) factory() ClientFactory {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.newClient
}

func (m *Manager) publish(t events.EventType, data any) {
	if m.bus != nil {
		m.bus.Publish(events.NewEvent(t, data))
	}
}

// validateAddress accepts an IP, host, IP:port or host:port.
func validateAddress(address string) error {
	if address == "" {
		return errors.InvalidInputf("controller address must not be empty")
	}
	host := address
	if h, _, err := net.SplitHostPort(address); err == nil {
		host = h
	}
	if host == "" || strings.ContainsAny(host, " /") {
		return errors.InvalidInputf("invalid controller address %q", address)
	}
	return nil
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}
