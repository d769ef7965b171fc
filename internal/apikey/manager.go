// Package apikey manages API keys for the HTTP API. All persistence goes
// through config.Config, which carries its own synchronization; returned
// *config.APIKey values are copies and safe to hand out.
package apikey

import (
	"log/slog"
	"time"

	"github.com/oelohome/oelod/internal/config"
	"github.com/oelohome/oelod/internal/errors"
)

// Manager handles API key lifecycle and validation.
type Manager struct {
	cfg *config.Config
	log *slog.Logger
}

// NewManager creates an API key manager over the loaded config.
func NewManager(cfg *config.Config, logger *slog.Logger) *Manager {
	logger.Info("loaded API keys from config", "count", len(cfg.State.APIKeys))
	return &Manager{cfg: cfg, log: logger}
}

// CreateAPIKey generates a new key, stores it, and persists the config.
// expiresIn <= 0 means the key never expires.
func (m *Manager) CreateAPIKey(name string, expiresIn time.Duration) (*config.APIKey, error) {
	if name == "" {
		return nil, errors.InvalidInputf("API key name must not be empty")
	}
	for _, existing := range m.cfg.GetAPIKeys() {
		if existing.Name == name {
			return nil, errors.DuplicateNamef("API key named %q already exists", name)
		}
	}

	keyString, err := config.GenerateKey(config.DefaultKeyLength)
	if err != nil {
		return nil, errors.Internalf("failed to generate key material: %w", err)
	}

	key := config.APIKey{
		Key:       keyString,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if expiresIn > 0 {
		key.ExpiresAt = key.CreatedAt.Add(expiresIn)
	}

	if err := m.cfg.AddAPIKey(key); err != nil {
		return nil, errors.Internalf("failed to store API key: %w", err)
	}
	if err := m.cfg.Save(); err != nil {
		m.cfg.DeleteAPIKey(key.Key)
		return nil, errors.WrapErrorf(err, "API key not persisted")
	}

	m.log.Info("created API key", "name", name, "key_prefix", key.Key[:4])
	return &key, nil
}

// ListAPIKeys returns all API keys.
func (m *Manager) ListAPIKeys() []config.APIKey {
	return m.cfg.GetAPIKeys()
}

// DeleteAPIKey removes an API key by its key string and persists the change.
func (m *Manager) DeleteAPIKey(key string) error {
	if !m.cfg.DeleteAPIKey(key) {
		return errors.NotFoundf("API key not found")
	}
	if err := m.cfg.Save(); err != nil {
		return errors.WrapErrorf(err, "API key deletion not persisted")
	}
	m.log.Info("deleted API key", "key_prefix", key[:4])
	return nil
}

// ValidateAPIKey checks that a key exists, is enabled, and has not expired.
// Successful validation stamps LastUsedAt; the stamp is persisted best-effort.
func (m *Manager) ValidateAPIKey(key string) (*config.APIKey, error) {
	apiKey, found := m.cfg.FindAPIKey(key)
	if !found {
		return nil, errors.NotFoundf("API key not found")
	}
	if apiKey.IsDisabled() {
		return nil, errors.InvalidInputf("API key is disabled")
	}
	if apiKey.IsExpired() {
		return nil, errors.InvalidInputf("API key has expired")
	}

	if err := m.cfg.UpdateAPIKeyLastUsed(key, time.Now().UTC()); err == nil {
		if err := m.cfg.Save(); err != nil {
			m.log.Error("failed to persist API key last-used stamp", "error", err)
		}
	}
	return apiKey, nil
}

// SetAPIKeyDisabledStatus enables or disables a key, addressed by key string
// or name, and persists the change.
func (m *Manager) SetAPIKeyDisabledStatus(keyOrName string, disabled bool) (*config.APIKey, error) {
	key, err := m.cfg.SetAPIKeyDisabledStatus(keyOrName, disabled)
	if err != nil {
		return nil, errors.NotFoundf("API key %q not found", keyOrName)
	}
	if err := m.cfg.Save(); err != nil {
		return nil, errors.WrapErrorf(err, "API key status change not persisted")
	}
	m.log.Info("set API key disabled status", "name", key.Name, "disabled", disabled)
	return key, nil
}
