package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oelohome/oelod/pkg/client"
)

type mockClient struct {
	client.Interface
	controllers map[string]map[string]any
	patterns    map[string]map[string]any
	apiKeys     map[string]map[string]any
	applied     []string
	failState   bool
}

func newMockClient() *mockClient {
	return &mockClient{
		controllers: map[string]map[string]any{},
		patterns:    map[string]map[string]any{},
		apiKeys:     map[string]map[string]any{},
	}
}

func (m *mockClient) GetControllers() ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(m.controllers))
	for _, c := range m.controllers {
		out = append(out, c)
	}
	return out, nil
}

func (m *mockClient) GetController(id string) (map[string]any, error) {
	c, ok := m.controllers[id]
	if !ok {
		return nil, errors.New("daemon error: controller not found")
	}
	return c, nil
}

func (m *mockClient) AddController(name, address string) (map[string]any, error) {
	c := map[string]any{"id": "ctl-" + name, "name": name, "address": address, "reachable": true}
	m.controllers[c["id"].(string)] = c
	return c, nil
}

func (m *mockClient) RemoveController(id string) (map[string]any, error) {
	if _, ok := m.controllers[id]; !ok {
		return nil, errors.New("daemon error: controller not found")
	}
	delete(m.controllers, id)
	return map[string]any{"patterns_deleted": float64(2)}, nil
}

func (m *mockClient) GetControllerState(id string) (map[string]any, error) {
	if m.failState {
		return nil, errors.New("daemon error: controller unreachable")
	}
	return map[string]any{"state": map[string]any{
		"zones": []any{
			map[string]any{"zone": float64(1), "patternType": "solid", "colors": "255,0,0", "brightness": float64(80), "speed": float64(0), "power": true},
		},
	}}, nil
}

func (m *mockClient) GetPatterns(controllerID string) ([]map[string]any, error) {
	out := []map[string]any{}
	for _, p := range m.patterns {
		if p["controller_id"] == controllerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockClient) GetPattern(id string) (map[string]any, error) {
	p, ok := m.patterns[id]
	if !ok {
		return nil, errors.New("daemon error: pattern not found")
	}
	return p, nil
}

func (m *mockClient) ApplyPattern(id string) error {
	if _, ok := m.patterns[id]; !ok {
		return errors.New("daemon error: pattern not found")
	}
	m.applied = append(m.applied, id)
	return nil
}

func (m *mockClient) RenamePattern(id, name string) (map[string]any, error) {
	p, ok := m.patterns[id]
	if !ok {
		return nil, errors.New("daemon error: pattern not found")
	}
	p["name"] = name
	return p, nil
}

func (m *mockClient) DeletePattern(id string) error {
	if _, ok := m.patterns[id]; !ok {
		return errors.New("daemon error: pattern not found")
	}
	delete(m.patterns, id)
	return nil
}

func (m *mockClient) AddAPIKey(name, expiresIn string) (map[string]any, error) {
	if _, ok := m.apiKeys[name]; ok {
		return nil, errors.New("daemon error: api key already exists")
	}
	k := map[string]any{"name": name, "key": name + "-secret", "disabled": false}
	m.apiKeys[name] = k
	return k, nil
}

func (m *mockClient) ListAPIKeys() ([]map[string]any, error) {
	out := []map[string]any{}
	for _, k := range m.apiKeys {
		out = append(out, map[string]any{"name": k["name"], "disabled": k["disabled"]})
	}
	return out, nil
}

func TestControllerListParseable(t *testing.T) {
	mock := newMockClient()
	mock.controllers["ctl-1"] = map[string]any{
		"id": "ctl-1", "name": "porch", "address": "10.0.0.5:80", "reachable": true,
	}

	cmd := newControllerListCommand()
	cmd.SetContext(context.WithValue(context.Background(), ClientContextKey, mock))
	cmd.SetArgs([]string{"--parseable"})

	var err error
	out := captureStdout(func() { err = cmd.Execute() })
	require.NoError(t, err)
	assert.Contains(t, out, `id="ctl-1"`)
	assert.Contains(t, out, `name="porch"`)
	assert.Contains(t, out, `address="10.0.0.5:80"`)
}

func TestControllerListEmpty(t *testing.T) {
	cmd := newControllerListCommand()
	cmd.SetContext(context.WithValue(context.Background(), ClientContextKey, newMockClient()))
	cmd.SetArgs([]string{})

	var err error
	out := captureStdout(func() { err = cmd.Execute() })
	require.NoError(t, err)
	assert.Contains(t, out, "No controllers configured")
}

func TestControllerGetUnknown(t *testing.T) {
	cmd := newControllerGetCommand()
	cmd.SetContext(context.WithValue(context.Background(), ClientContextKey, newMockClient()))
	cmd.SetArgs([]string{"nope"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "controller not found")
}

func TestControllerAdd(t *testing.T) {
	mock := newMockClient()
	cmd := newControllerAddCommand()
	cmd.SetContext(context.WithValue(context.Background(), ClientContextKey, mock))
	cmd.SetArgs([]string{"porch", "10.0.0.5:80"})

	var err error
	out := captureStdout(func() { err = cmd.Execute() })
	require.NoError(t, err)
	assert.Contains(t, out, "added")
	assert.Len(t, mock.controllers, 1)
}

func TestControllerRemoveReportsCascade(t *testing.T) {
	mock := newMockClient()
	mock.controllers["ctl-1"] = map[string]any{"id": "ctl-1", "name": "porch"}

	cmd := newControllerRemoveCommand()
	cmd.SetContext(context.WithValue(context.Background(), ClientContextKey, mock))
	cmd.SetArgs([]string{"ctl-1"})

	var err error
	out := captureStdout(func() { err = cmd.Execute() })
	require.NoError(t, err)
	assert.Contains(t, out, "2 pattern(s) deleted")
	assert.Empty(t, mock.controllers)
}

func TestControllerStateParseable(t *testing.T) {
	mock := newMockClient()
	cmd := newControllerStateCommand()
	cmd.SetContext(context.WithValue(context.Background(), ClientContextKey, mock))
	cmd.SetArgs([]string{"ctl-1", "-p"})

	var err error
	out := captureStdout(func() { err = cmd.Execute() })
	require.NoError(t, err)
	assert.Contains(t, out, `patternType="solid"`)
	assert.Contains(t, out, `colors="255,0,0"`)
}

func TestControllerStateUnreachable(t *testing.T) {
	mock := newMockClient()
	mock.failState = true

	cmd := newControllerStateCommand()
	cmd.SetContext(context.WithValue(context.Background(), ClientContextKey, mock))
	cmd.SetArgs([]string{"ctl-1"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
}

func TestPatternListParseable(t *testing.T) {
	mock := newMockClient()
	mock.patterns["pat-1"] = map[string]any{
		"id": "pat-1", "name": "sunset", "controller_id": "ctl-1",
		"state": map[string]any{"zones": []any{map[string]any{"zone": float64(1)}}},
	}

	cmd := newPatternListCommand()
	cmd.SetContext(context.WithValue(context.Background(), ClientContextKey, mock))
	cmd.SetArgs([]string{"ctl-1", "-p"})

	var err error
	out := captureStdout(func() { err = cmd.Execute() })
	require.NoError(t, err)
	assert.Contains(t, out, `id="pat-1"`)
	assert.Contains(t, out, `name="sunset"`)
	assert.Contains(t, out, "zones=1")
}

func TestPatternApply(t *testing.T) {
	mock := newMockClient()
	mock.patterns["pat-1"] = map[string]any{"id": "pat-1", "name": "sunset", "controller_id": "ctl-1"}

	cmd := newPatternApplyCommand()
	cmd.SetContext(context.WithValue(context.Background(), ClientContextKey, mock))
	cmd.SetArgs([]string{"pat-1"})

	var err error
	out := captureStdout(func() { err = cmd.Execute() })
	require.NoError(t, err)
	assert.Contains(t, out, "Pattern applied")
	assert.Equal(t, []string{"pat-1"}, mock.applied)
}

func TestPatternApplyUnknown(t *testing.T) {
	cmd := newPatternApplyCommand()
	cmd.SetContext(context.WithValue(context.Background(), ClientContextKey, newMockClient()))
	cmd.SetArgs([]string{"nope"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pattern not found")
}

func TestPatternRename(t *testing.T) {
	mock := newMockClient()
	mock.patterns["pat-1"] = map[string]any{"id": "pat-1", "name": "sunset", "controller_id": "ctl-1"}

	cmd := newPatternRenameCommand()
	cmd.SetContext(context.WithValue(context.Background(), ClientContextKey, mock))
	cmd.SetArgs([]string{"pat-1", "dusk"})

	var err error
	out := captureStdout(func() { err = cmd.Execute() })
	require.NoError(t, err)
	assert.Contains(t, out, "renamed to dusk")
	assert.Equal(t, "dusk", mock.patterns["pat-1"]["name"])
}

func TestPatternDelete(t *testing.T) {
	mock := newMockClient()
	mock.patterns["pat-1"] = map[string]any{"id": "pat-1", "name": "sunset", "controller_id": "ctl-1"}

	cmd := newPatternDeleteCommand()
	cmd.SetContext(context.WithValue(context.Background(), ClientContextKey, mock))
	cmd.SetArgs([]string{"pat-1"})

	var err error
	out := captureStdout(func() { err = cmd.Execute() })
	require.NoError(t, err)
	assert.Contains(t, out, "Pattern deleted")
	assert.Empty(t, mock.patterns)
}

func TestAPIKeyAddShowsKeyOnce(t *testing.T) {
	mock := newMockClient()
	cmd := newAPIKeyAddCommand()
	cmd.SetContext(context.WithValue(context.Background(), ClientContextKey, mock))
	cmd.SetArgs([]string{"ci"})

	var err error
	out := captureStdout(func() { err = cmd.Execute() })
	require.NoError(t, err)
	assert.Contains(t, out, "ci-secret")

	listCmd := newAPIKeyListCommand()
	listCmd.SetContext(context.WithValue(context.Background(), ClientContextKey, mock))
	listCmd.SetArgs([]string{"-p"})

	out = captureStdout(func() { err = listCmd.Execute() })
	require.NoError(t, err)
	assert.Contains(t, out, `name="ci"`)
	assert.NotContains(t, out, "ci-secret")
}

func TestAPIKeyAddDuplicate(t *testing.T) {
	mock := newMockClient()
	mock.apiKeys["ci"] = map[string]any{"name": "ci", "key": "ci-secret", "disabled": false}

	cmd := newAPIKeyAddCommand()
	cmd.SetContext(context.WithValue(context.Background(), ClientContextKey, mock))
	cmd.SetArgs([]string{"ci"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestObfuscateAPIKey(t *testing.T) {
	assert.Equal(t, "****", obfuscateAPIKey("short"))
	assert.Equal(t, "abcd...wxyz", obfuscateAPIKey("abcdefghijklmnopqrstuvwxyz"))
}

func TestClientFromContextMissing(t *testing.T) {
	cmd := newControllerListCommand()
	cmd.SetContext(context.Background())
	cmd.SetArgs([]string{})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client not found")
}
