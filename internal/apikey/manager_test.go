package apikey

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oelohome/oelod/internal/config"
	apperrors "github.com/oelohome/oelod/internal/errors"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "oelod.yaml")
	cfg, err := config.Load("oelod.yaml", cfgPath)
	require.NoError(t, err)
	return NewManager(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreateAPIKey(t *testing.T) {
	m := newTestManager(t)

	key, err := m.CreateAPIKey("dashboard", 0)
	require.NoError(t, err)
	assert.Len(t, key.Key, config.DefaultKeyLength)
	assert.Equal(t, "dashboard", key.Name)
	assert.True(t, key.ExpiresAt.IsZero(), "zero expiresIn means no expiry")

	_, err = m.CreateAPIKey("dashboard", 0)
	assert.True(t, apperrors.IsDuplicateName(err))

	_, err = m.CreateAPIKey("", 0)
	assert.True(t, apperrors.IsInvalidInput(err))
}

func TestCreateAPIKeyWithExpiry(t *testing.T) {
	m := newTestManager(t)

	key, err := m.CreateAPIKey("short lived", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), key.ExpiresAt, time.Minute)
}

func TestValidateAPIKey(t *testing.T) {
	m := newTestManager(t)

	key, err := m.CreateAPIKey("valid", 0)
	require.NoError(t, err)

	got, err := m.ValidateAPIKey(key.Key)
	require.NoError(t, err)
	assert.Equal(t, "valid", got.Name)

	// Validation stamps last-used.
	got, err = m.ValidateAPIKey(key.Key)
	require.NoError(t, err)
	assert.False(t, got.LastUsedAt.IsZero())

	_, err = m.ValidateAPIKey("no-such-key")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestValidateDisabledAndExpired(t *testing.T) {
	m := newTestManager(t)

	key, err := m.CreateAPIKey("flaky", 0)
	require.NoError(t, err)

	_, err = m.SetAPIKeyDisabledStatus("flaky", true)
	require.NoError(t, err)
	_, err = m.ValidateAPIKey(key.Key)
	assert.True(t, apperrors.IsInvalidInput(err))

	_, err = m.SetAPIKeyDisabledStatus(key.Key, false)
	require.NoError(t, err)
	_, err = m.ValidateAPIKey(key.Key)
	assert.NoError(t, err)

	expired, err := m.CreateAPIKey("expired", time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = m.ValidateAPIKey(expired.Key)
	assert.True(t, apperrors.IsInvalidInput(err))
}

func TestDeleteAPIKey(t *testing.T) {
	m := newTestManager(t)

	key, err := m.CreateAPIKey("doomed", 0)
	require.NoError(t, err)

	require.NoError(t, m.DeleteAPIKey(key.Key))
	assert.True(t, apperrors.IsNotFound(m.DeleteAPIKey(key.Key)))
	assert.Empty(t, m.ListAPIKeys())
}

func TestSetDisabledStatusUnknownKey(t *testing.T) {
	m := newTestManager(t)
	_, err := m.SetAPIKeyDisabledStatus("ghost", true)
	assert.True(t, apperrors.IsNotFound(err))
}
