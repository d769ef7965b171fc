// Package client implements the Unix socket client for talking to a running
// oelod daemon. oeloctl is built on it; other local tooling can use it too.
package client

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
)

var dial = net.Dial

// Interface defines the daemon operations exposed over the socket.
// Used for testability and mocking in the CLI.
type Interface interface {
	Ping() error
	GetVersion() (map[string]any, error)
	GetControllers() ([]map[string]any, error)
	GetController(id string) (map[string]any, error)
	AddController(name, address string) (map[string]any, error)
	RemoveController(id string) (map[string]any, error)
	GetControllerState(id string) (map[string]any, error)
	GetSession(id string) (map[string]any, error)
	CapturePattern(id string) (map[string]any, error)
	CommitPattern(id, name string) (map[string]any, error)
	AbandonCapture(id string) error
	ApplyPattern(patternID string) error
	GetPatterns(controllerID string) ([]map[string]any, error)
	GetPattern(id string) (map[string]any, error)
	RenamePattern(id, name string) (map[string]any, error)
	DeletePattern(id string) error
	AddAPIKey(name, expiresIn string) (map[string]any, error)
	ListAPIKeys() ([]map[string]any, error)
	DeleteAPIKey(key string) error
	SetAPIKeyDisabledStatus(key string, disabled bool) (map[string]any, error)
}

// Client represents a connection to an oelod daemon.
type Client struct {
	logger *slog.Logger
	socket string
}

// New creates a new client. An empty socket path falls back to the XDG
// runtime directory.
func New(logger *slog.Logger, socket string) *Client {
	if socket == "" {
		if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
			socket = filepath.Join(dir, "oelod.sock")
		} else {
			socket = filepath.Join("/run/user", fmt.Sprintf("%d", os.Getuid()), "oelod.sock")
		}
	}
	logger.Debug("using socket path", "socket", socket)

	return &Client{
		logger: logger,
		socket: socket,
	}
}

// request sends one action request and decodes the response line. A response
// with status "error" becomes a Go error.
func (c *Client) request(action string, data map[string]any) (map[string]any, error) {
	conn, err := dial("unix", c.socket)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to socket %s: %w", c.socket, err)
	}
	defer conn.Close()

	req := map[string]any{"action": action}
	if data != nil {
		req["data"] = data
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var resp map[string]any
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if status, _ := resp["status"].(string); status == "error" {
		msg, _ := resp["error"].(string)
		return nil, fmt.Errorf("daemon error: %s", msg)
	}
	return resp, nil
}

func objectField(resp map[string]any, key string) (map[string]any, error) {
	v, ok := resp[key].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("malformed response: missing %s", key)
	}
	return v, nil
}

func listField(resp map[string]any, key string) ([]map[string]any, error) {
	raw, ok := resp[key].([]any)
	if !ok {
		return nil, fmt.Errorf("malformed response: missing %s", key)
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("malformed response: non-object entry in %s", key)
		}
		out = append(out, m)
	}
	return out, nil
}

// Ping checks that the daemon is alive.
func (c *Client) Ping() error {
	_, err := c.request("ping", nil)
	return err
}

// GetVersion returns the daemon's build information.
func (c *Client) GetVersion() (map[string]any, error) {
	return c.request("get_version", nil)
}

// GetControllers lists all configured controllers.
func (c *Client) GetControllers() ([]map[string]any, error) {
	resp, err := c.request("list_controllers", nil)
	if err != nil {
		return nil, err
	}
	return listField(resp, "controllers")
}

// GetController returns a controller record.
func (c *Client) GetController(id string) (map[string]any, error) {
	resp, err := c.request("get_controller", map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	return objectField(resp, "controller")
}

// AddController configures a new controller.
func (c *Client) AddController(name, address string) (map[string]any, error) {
	resp, err := c.request("add_controller", map[string]any{"name": name, "address": address})
	if err != nil {
		return nil, err
	}
	return objectField(resp, "controller")
}

// RemoveController deletes a controller and all of its patterns.
func (c *Client) RemoveController(id string) (map[string]any, error) {
	return c.request("remove_controller", map[string]any{"id": id})
}

// GetControllerState queries the device for its live zone states.
func (c *Client) GetControllerState(id string) (map[string]any, error) {
	return c.request("get_controller_state", map[string]any{"id": id})
}

// GetSession reports the controller's workflow session phase.
func (c *Client) GetSession(id string) (map[string]any, error) {
	resp, err := c.request("get_session", map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	return objectField(resp, "session")
}

// CapturePattern snapshots the controller's live state.
func (c *Client) CapturePattern(id string) (map[string]any, error) {
	resp, err := c.request("capture_pattern", map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	return objectField(resp, "state")
}

// CommitPattern names and saves the captured snapshot.
func (c *Client) CommitPattern(id, name string) (map[string]any, error) {
	resp, err := c.request("commit_pattern", map[string]any{"id": id, "name": name})
	if err != nil {
		return nil, err
	}
	return objectField(resp, "pattern")
}

// AbandonCapture discards an open capture session.
func (c *Client) AbandonCapture(id string) error {
	_, err := c.request("abandon_capture", map[string]any{"id": id})
	return err
}

// ApplyPattern pushes a saved pattern back to its controller.
func (c *Client) ApplyPattern(patternID string) error {
	_, err := c.request("apply_pattern", map[string]any{"id": patternID})
	return err
}

// GetPatterns lists a controller's saved patterns.
func (c *Client) GetPatterns(controllerID string) ([]map[string]any, error) {
	resp, err := c.request("list_patterns", map[string]any{"controller_id": controllerID})
	if err != nil {
		return nil, err
	}
	return listField(resp, "patterns")
}

// GetPattern returns a saved pattern.
func (c *Client) GetPattern(id string) (map[string]any, error) {
	resp, err := c.request("get_pattern", map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	return objectField(resp, "pattern")
}

// RenamePattern changes a pattern's name.
func (c *Client) RenamePattern(id, name string) (map[string]any, error) {
	resp, err := c.request("rename_pattern", map[string]any{"id": id, "name": name})
	if err != nil {
		return nil, err
	}
	return objectField(resp, "pattern")
}

// DeletePattern removes a pattern permanently.
func (c *Client) DeletePattern(id string) error {
	_, err := c.request("delete_pattern", map[string]any{"id": id})
	return err
}

// AddAPIKey creates a new API key. expiresIn is a duration string; empty
// means the key never expires.
func (c *Client) AddAPIKey(name, expiresIn string) (map[string]any, error) {
	data := map[string]any{"name": name}
	if expiresIn != "" {
		data["expires_in"] = expiresIn
	}
	resp, err := c.request("apikey_add", data)
	if err != nil {
		return nil, err
	}
	return objectField(resp, "apikey")
}

// ListAPIKeys lists all API keys.
func (c *Client) ListAPIKeys() ([]map[string]any, error) {
	resp, err := c.request("apikey_list", nil)
	if err != nil {
		return nil, err
	}
	return listField(resp, "apikeys")
}

// DeleteAPIKey removes an API key.
func (c *Client) DeleteAPIKey(key string) error {
	_, err := c.request("apikey_delete", map[string]any{"key": key})
	return err
}

// SetAPIKeyDisabledStatus enables or disables an API key.
func (c *Client) SetAPIKeyDisabledStatus(key string, disabled bool) (map[string]any, error) {
	resp, err := c.request("apikey_set_disabled_status", map[string]any{"key": key, "disabled": disabled})
	if err != nil {
		return nil, err
	}
	return objectField(resp, "apikey")
}

var _ Interface = (*Client)(nil)
