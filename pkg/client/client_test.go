package client

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeDaemon answers each connection with a canned handler keyed by action.
type fakeDaemon struct {
	t        *testing.T
	socket   string
	listener net.Listener
	handle   func(req map[string]any) map[string]any
}

func newFakeDaemon(t *testing.T, handle func(req map[string]any) map[string]any) *fakeDaemon {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "oelod.sock")
	l, err := net.Listen("unix", socket)
	require.NoError(t, err)

	d := &fakeDaemon{t: t, socket: socket, listener: l, handle: handle}
	go d.serve()
	t.Cleanup(func() { l.Close() })
	return d
}

func (d *fakeDaemon) serve() {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			return
		}
		go func(conn net.Conn) {
			defer conn.Close()
			reader := bufio.NewReader(conn)
			line, err := reader.ReadBytes('\n')
			if err != nil {
				return
			}
			var req map[string]any
			if err := json.Unmarshal(line, &req); err != nil {
				return
			}
			resp := d.handle(req)
			b, _ := json.Marshal(resp)
			conn.Write(append(b, '\n'))
		}(conn)
	}
}

func TestPing(t *testing.T) {
	d := newFakeDaemon(t, func(req map[string]any) map[string]any {
		assert.Equal(t, "ping", req["action"])
		return map[string]any{"status": "ok", "message": "pong"}
	})

	c := New(testLogger(), d.socket)
	assert.NoError(t, c.Ping())
}

func TestDaemonErrorSurfaces(t *testing.T) {
	d := newFakeDaemon(t, func(req map[string]any) map[string]any {
		return map[string]any{"status": "error", "error": "controller xyz not found"}
	})

	c := New(testLogger(), d.socket)
	_, err := c.GetController("xyz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "controller xyz not found")
}

func TestConnectionFailure(t *testing.T) {
	c := New(testLogger(), filepath.Join(t.TempDir(), "missing.sock"))
	err := c.Ping()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}

func TestGetControllers(t *testing.T) {
	d := newFakeDaemon(t, func(req map[string]any) map[string]any {
		assert.Equal(t, "list_controllers", req["action"])
		return map[string]any{
			"status": "ok",
			"controllers": []any{
				map[string]any{"id": "c1", "name": "porch"},
				map[string]any{"id": "c2", "name": "roofline"},
			},
		}
	})

	c := New(testLogger(), d.socket)
	ctrls, err := c.GetControllers()
	require.NoError(t, err)
	require.Len(t, ctrls, 2)
	assert.Equal(t, "porch", ctrls[0]["name"])
}

func TestAddControllerSendsData(t *testing.T) {
	d := newFakeDaemon(t, func(req map[string]any) map[string]any {
		assert.Equal(t, "add_controller", req["action"])
		data := req["data"].(map[string]any)
		assert.Equal(t, "porch", data["name"])
		assert.Equal(t, "10.0.0.9", data["address"])
		return map[string]any{
			"status":     "ok",
			"controller": map[string]any{"id": "c1", "name": "porch", "address": "10.0.0.9"},
		}
	})

	c := New(testLogger(), d.socket)
	ctrl, err := c.AddController("porch", "10.0.0.9")
	require.NoError(t, err)
	assert.Equal(t, "c1", ctrl["id"])
}

func TestWorkflowCalls(t *testing.T) {
	var actions []string
	d := newFakeDaemon(t, func(req map[string]any) map[string]any {
		action := req["action"].(string)
		actions = append(actions, action)
		switch action {
		case "capture_pattern":
			return map[string]any{"status": "ok", "state": map[string]any{"zones": []any{}}}
		case "commit_pattern":
			data := req["data"].(map[string]any)
			return map[string]any{"status": "ok", "pattern": map[string]any{"id": "p1", "name": data["name"]}}
		case "apply_pattern":
			return map[string]any{"status": "ok"}
		default:
			return map[string]any{"status": "error", "error": "unexpected action"}
		}
	})

	c := New(testLogger(), d.socket)

	_, err := c.CapturePattern("c1")
	require.NoError(t, err)

	p, err := c.CommitPattern("c1", "Evening Amber")
	require.NoError(t, err)
	assert.Equal(t, "Evening Amber", p["name"])

	require.NoError(t, c.ApplyPattern("p1"))
	assert.Equal(t, []string{"capture_pattern", "commit_pattern", "apply_pattern"}, actions)
}

func TestMalformedResponse(t *testing.T) {
	d := newFakeDaemon(t, func(req map[string]any) map[string]any {
		return map[string]any{"status": "ok"} // missing the expected field
	})

	c := New(testLogger(), d.socket)
	_, err := c.GetPattern("p1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed response")
}

func TestDefaultSocketPath(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/tmp/xdg-test")
	c := New(testLogger(), "")
	assert.Equal(t, "/tmp/xdg-test/oelod.sock", c.socket)
}
