package controller

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oelohome/oelod/internal/config"
	apperrors "github.com/oelohome/oelod/internal/errors"
	"github.com/oelohome/oelod/internal/events"
	"github.com/oelohome/oelod/pkg/oelo"
)

// fakeClient is an in-memory device. unreachable makes every call fail.
type fakeClient struct {
	mu          sync.Mutex
	addr        string
	unreachable bool
	state       oelo.LightState
	setCalls    int
}

func (f *fakeClient) GetState(ctx context.Context) (*oelo.LightState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unreachable {
		return nil, apperrors.DeviceUnavailablef("device %s unreachable", f.addr)
	}
	s := f.state.Clone()
	return &s, nil
}

func (f *fakeClient) SetPattern(ctx context.Context, state oelo.LightState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unreachable {
		return apperrors.DeviceUnavailablef("device %s unreachable", f.addr)
	}
	f.state = state.Clone()
	f.setCalls++
	return nil
}

func (f *fakeClient) Ping(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.unreachable
}

func (f *fakeClient) Addr() string { return f.addr }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "oelod.yaml")
	cfg, err := config.Load("oelod.yaml", cfgPath)
	require.NoError(t, err)
	return cfg
}

// newTestManager returns a manager whose factory hands out fakeClients, plus
// the set of clients it has created keyed by address.
func newTestManager(t *testing.T, cfg *config.Config) (*Manager, map[string]*fakeClient) {
	t.Helper()
	m := NewManager(testLogger(), cfg)
	clients := make(map[string]*fakeClient)
	var mu sync.Mutex
	m.SetClientFactory(func(address string) Client {
		mu.Lock()
		defer mu.Unlock()
		if c, ok := clients[address]; ok {
			return c
		}
		c := &fakeClient{addr: address, state: oelo.LightState{
			Zones: []oelo.ZoneState{{Zone: 1, PatternType: "solid", Colors: []string{"FFAA00"}, Brightness: 80, Speed: 0, On: 1}},
		}}
		clients[address] = c
		return c
	})
	return m, clients
}

func TestAddController(t *testing.T) {
	cfg := testConfig(t)
	m, _ := newTestManager(t, cfg)

	ctrl, err := m.AddController(context.Background(), "Front Roofline", "192.168.1.42")
	require.NoError(t, err)
	assert.NotEmpty(t, ctrl.ID)
	assert.Equal(t, "Front Roofline", ctrl.Name)
	assert.True(t, ctrl.Reachable)

	got, err := m.GetController(ctrl.ID)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.42", got.Address)
}

func TestAddControllerValidation(t *testing.T) {
	cfg := testConfig(t)
	m, _ := newTestManager(t, cfg)

	_, err := m.AddController(context.Background(), "", "192.168.1.42")
	assert.True(t, apperrors.IsInvalidInput(err))

	_, err = m.AddController(context.Background(), "x", "")
	assert.True(t, apperrors.IsInvalidInput(err))

	_, err = m.AddController(context.Background(), "x", "bad address/with junk")
	assert.True(t, apperrors.IsInvalidInput(err))
}

func TestAddControllerProbeFailure(t *testing.T) {
	cfg := testConfig(t)
	m, clients := newTestManager(t, cfg)

	// Pre-seed an unreachable fake at the address the factory will hand out.
	m.SetClientFactory(func(address string) Client {
		c := &fakeClient{addr: address, unreachable: true}
		clients[address] = c
		return c
	})

	_, err := m.AddController(context.Background(), "dead", "192.168.1.99")
	require.Error(t, err)
	assert.True(t, apperrors.IsDeviceUnavailable(err))
	assert.Empty(t, m.ListControllers(), "failed probe must not register the controller")
}

func TestAddControllerDuplicateAddress(t *testing.T) {
	cfg := testConfig(t)
	m, _ := newTestManager(t, cfg)

	_, err := m.AddController(context.Background(), "one", "192.168.1.42")
	require.NoError(t, err)
	_, err = m.AddController(context.Background(), "two", "192.168.1.42")
	assert.True(t, apperrors.IsInvalidInput(err))
}

func TestRemoveController(t *testing.T) {
	cfg := testConfig(t)
	m, _ := newTestManager(t, cfg)

	ctrl, err := m.AddController(context.Background(), "one", "192.168.1.42")
	require.NoError(t, err)

	removed, err := m.RemoveController(ctrl.ID)
	require.NoError(t, err)
	assert.Equal(t, ctrl.ID, removed.ID)

	_, err = m.GetController(ctrl.ID)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = m.RemoveController(ctrl.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListControllersOrdered(t *testing.T) {
	cfg := testConfig(t)
	m, _ := newTestManager(t, cfg)

	a, err := m.AddController(context.Background(), "a", "10.0.0.1")
	require.NoError(t, err)
	b, err := m.AddController(context.Background(), "b", "10.0.0.2")
	require.NoError(t, err)

	list := m.ListControllers()
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)
}

func TestPersistenceRoundTrip(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "oelod.yaml")
	cfg, err := config.Load("oelod.yaml", cfgPath)
	require.NoError(t, err)

	m, _ := newTestManager(t, cfg)
	ctrl, err := m.AddController(context.Background(), "Front Roofline", "192.168.1.42")
	require.NoError(t, err)
	require.NoError(t, m.SetLastApplied(ctrl.ID, "pattern-7"))

	reloadedCfg, err := config.Load("oelod.yaml", cfgPath)
	require.NoError(t, err)
	m2 := NewManager(testLogger(), reloadedCfg)

	got, err := m2.GetController(ctrl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Front Roofline", got.Name)
	assert.Equal(t, "192.168.1.42", got.Address)
	assert.Equal(t, "pattern-7", got.LastApplied)
	assert.Equal(t, ctrl.AddedAt.UTC(), got.AddedAt.UTC())
}

func TestClientForLazyCreation(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "oelod.yaml")
	cfg, err := config.Load("oelod.yaml", cfgPath)
	require.NoError(t, err)

	m, _ := newTestManager(t, cfg)
	ctrl, err := m.AddController(context.Background(), "one", "10.0.0.5")
	require.NoError(t, err)

	// Fresh manager from the same config has no client handle yet.
	reloadedCfg, err := config.Load("oelod.yaml", cfgPath)
	require.NoError(t, err)
	m2, clients := newTestManager(t, reloadedCfg)

	client, err := m2.ClientFor(ctrl.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", client.Addr())
	assert.Contains(t, clients, "10.0.0.5")

	_, err = m2.ClientFor("nope")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRefreshState(t *testing.T) {
	cfg := testConfig(t)
	m, clients := newTestManager(t, cfg)

	ctrl, err := m.AddController(context.Background(), "one", "10.0.0.5")
	require.NoError(t, err)

	got, state, err := m.RefreshState(context.Background(), ctrl.ID)
	require.NoError(t, err)
	assert.True(t, got.Reachable)
	require.NotNil(t, state)
	require.Len(t, state.Zones, 1)
	assert.Equal(t, "solid", state.Zones[0].PatternType)

	clients["10.0.0.5"].unreachable = true
	got, _, err = m.RefreshState(context.Background(), ctrl.ID)
	require.Error(t, err)
	assert.False(t, got.Reachable)
}

func TestEventsPublished(t *testing.T) {
	cfg := testConfig(t)
	m, _ := newTestManager(t, cfg)

	bus := events.NewBus()
	m.SetEventBus(bus)

	var types []events.EventType
	unsub := bus.Subscribe(func(e events.Event) { types = append(types, e.Type) })
	defer unsub()

	ctrl, err := m.AddController(context.Background(), "one", "10.0.0.5")
	require.NoError(t, err)
	_, err = m.RemoveController(ctrl.ID)
	require.NoError(t, err)

	assert.Equal(t, []events.EventType{events.ControllerAdded, events.ControllerRemoved}, types)
}
