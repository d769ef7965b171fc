// Package server runs the oelod daemon's two front doors: a Unix socket with
// a JSON-line action protocol for local tooling (oeloctl), and an HTTP REST
// API with API key auth for remote clients.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/oelohome/oelod/internal/apikey"
	"github.com/oelohome/oelod/internal/config"
	"github.com/oelohome/oelod/internal/controller"
	"github.com/oelohome/oelod/internal/events"
	"github.com/oelohome/oelod/internal/http/handlers"
	"github.com/oelohome/oelod/internal/http/mw"
	"github.com/oelohome/oelod/internal/http/routes"
	"github.com/oelohome/oelod/internal/pattern"
	"github.com/oelohome/oelod/internal/workflow"
	"github.com/oelohome/oelod/internal/ws"
)

// Server manages the oelod daemon: controller registry, pattern store,
// workflow engine, and the socket/HTTP APIs in front of them.
type Server struct {
	logger      *slog.Logger
	cfg         *config.Config
	controllers *controller.Manager
	patterns    *pattern.Store
	engine      *workflow.Engine
	apikeys     *apikey.Manager
	eventBus    *events.Bus
	version     handlers.VersionInfo

	socketPath string
	listener   net.Listener
	httpServer *http.Server
	wsHub      *ws.Hub
	shutdown   chan struct{}
	wg         sync.WaitGroup
	rootCtx    context.Context
	rootCancel context.CancelFunc
}

// New creates a server over an already-loaded config and controller registry.
func New(logger *slog.Logger, cfg *config.Config, controllers *controller.Manager, patterns *pattern.Store, version handlers.VersionInfo) *Server {
	eventBus := events.NewBus()
	controllers.SetEventBus(eventBus)
	patterns.SetEventBus(eventBus)

	engine := workflow.NewEngine(logger, cfg, controllers, patterns)
	engine.SetEventBus(eventBus)

	rootCtx, rootCancel := context.WithCancel(context.Background())

	return &Server{
		logger:      logger,
		cfg:         cfg,
		controllers: controllers,
		patterns:    patterns,
		engine:      engine,
		apikeys:     apikey.NewManager(cfg, logger),
		eventBus:    eventBus,
		version:     version,
		socketPath:  cfg.Config.Server.UnixSocket,
		shutdown:    make(chan struct{}),
		rootCtx:     rootCtx,
		rootCancel:  rootCancel,
	}
}

// Engine exposes the workflow engine, mainly for tests.
func (s *Server) Engine() *workflow.Engine { return s.engine }

// Start begins listening on the Unix socket and, when configured, the HTTP API.
func (s *Server) Start() error {
	s.logger.Info("starting oelod server")

	sockDir := filepath.Dir(s.socketPath)
	if err := os.MkdirAll(sockDir, 0o755); err != nil {
		return fmt.Errorf("failed to create socket directory %s: %w", sockDir, err)
	}
	if _, err := os.Stat(s.socketPath); err == nil {
		if err := os.Remove(s.socketPath); err != nil {
			return fmt.Errorf("failed to remove existing socket file %s: %w", s.socketPath, err)
		}
	}

	var err error
	s.listener, err = net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket %s: %w", s.socketPath, err)
	}
	s.logger.Info("listening on unix socket", "path", s.socketPath)

	s.wg.Add(1)
	go s.acceptConnections()

	if s.cfg.Config.API.ListenAddress != "" {
		s.startHTTP()
	}

	return nil
}

func (s *Server) startHTTP() {
	s.logger.Info("starting HTTP API server", "address", s.cfg.Config.API.ListenAddress)

	ctrlHandler := &handlers.ControllerHandler{
		Controllers: s.controllers,
		Patterns:    s.patterns,
		Workflow:    s.engine,
	}
	patHandler := &handlers.PatternHandler{Patterns: s.patterns, Workflow: s.engine}
	keyHandler := &handlers.APIKeyHandler{Manager: s.apikeys}

	// Rate limiting runs at the router level, before auth, to blunt
	// brute-force attempts against the key check.
	router := chi.NewRouter()
	router.Use(mw.RequestLogging(s.logger))
	router.Use(mw.RateLimitByIP(mw.DefaultRateLimitConfig()))

	humaConfig := routes.NewHumaConfig(s.version.Version, "")
	api := humachi.New(router, humaConfig)
	api.UseMiddleware(mw.HumaAuth(api, s.logger, s.apikeys))

	routes.Register(api, &routes.Handlers{
		Version:    s.version,
		Controller: ctrlHandler,
		Pattern:    patHandler,
		APIKey:     keyHandler,
	})

	// The WebSocket endpoint bypasses Huma, so auth is applied directly.
	s.wsHub = ws.NewHub(s.logger, s.eventBus)
	router.With(mw.APIKeyAuth(s.logger, s.apikeys)).Get("/api/v1/ws", s.wsHub.ServeHTTP)

	s.httpServer = &http.Server{
		Addr:         s.cfg.Config.API.ListenAddress,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic in HTTP server goroutine", "recover", r)
			}
		}()
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server failed", "error", err)
		}
		s.logger.Info("HTTP server stopped")
	})
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() {
	s.logger.Info("shutting down oelod server")
	s.rootCancel()
	close(s.shutdown)

	if s.listener != nil {
		s.listener.Close()
	}

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown failed", "error", err)
		}
	}
	if s.wsHub != nil {
		s.wsHub.Shutdown()
	}

	s.wg.Wait()
	s.logger.Info("oelod server shut down")
}

func (s *Server) acceptConnections() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				s.logger.Info("socket listener shutting down")
				return
			default:
				s.logger.Error("failed to accept connection", "error", err)
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in connection handler", "recover", r)
		}
	}()

	ctx, cancel := context.WithCancel(s.rootCtx)
	defer cancel()

	go func() {
		select {
		case <-s.shutdown:
			if uc, ok := conn.(*net.UnixConn); ok {
				uc.CloseRead()
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	reader := bufio.NewReader(conn)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err != nil {
			if errors.Is(err, io.EOF) || strings.Contains(err.Error(), "use of closed network connection") {
				s.logger.Debug("client disconnected")
			} else {
				s.logger.Error("failed to read from connection", "error", err)
			}
			return
		}

		var req map[string]any
		if err := json.Unmarshal(line, &req); err != nil {
			s.sendError(conn, "", fmt.Sprintf("invalid JSON request: %s", err))
			continue
		}

		action, _ := req["action"].(string)
		id, _ := req["id"].(string)
		data, _ := req["data"].(map[string]any)

		s.logger.Debug("received request", "action", action, "id", id)
		s.dispatch(ctx, conn, action, id, data)
	}
}

func (s *Server) dispatch(ctx context.Context, conn net.Conn, action, id string, data map[string]any) {
	switch action {
	case "ping":
		s.sendResponse(conn, id, map[string]any{"message": "pong"})

	case "get_version":
		s.sendResponse(conn, id, map[string]any{
			"version":    s.version.Version,
			"commit":     s.version.Commit,
			"build_date": s.version.BuildDate,
		})

	case "health":
		s.sendResponse(conn, id, map[string]any{
			"healthy":     true,
			"controllers": len(s.controllers.ListControllers()),
			"patterns":    s.patterns.Total(),
		})

	case "list_controllers":
		ctrls := s.controllers.ListControllers()
		s.sendResponse(conn, id, map[string]any{"controllers": toAnySlice(ctrls)})

	case "get_controller":
		ctrlID, _ := data["id"].(string)
		if ctrlID == "" {
			s.sendError(conn, id, "missing controller id for get_controller")
			return
		}
		ctrl, err := s.controllers.GetController(ctrlID)
		if err != nil {
			s.sendError(conn, id, err.Error())
			return
		}
		s.sendResponse(conn, id, map[string]any{"controller": toAny(ctrl)})

	case "add_controller":
		name, _ := data["name"].(string)
		address, _ := data["address"].(string)
		ctrl, err := s.controllers.AddController(ctx, name, address)
		if err != nil {
			s.sendError(conn, id, err.Error())
			return
		}
		s.sendResponse(conn, id, map[string]any{"controller": toAny(ctrl)})

	case "remove_controller":
		ctrlID, _ := data["id"].(string)
		if ctrlID == "" {
			s.sendError(conn, id, "missing controller id for remove_controller")
			return
		}
		if _, err := s.controllers.RemoveController(ctrlID); err != nil {
			s.sendError(conn, id, err.Error())
			return
		}
		// Pattern ownership dies with the controller; the cascade is explicit.
		deleted, err := s.patterns.DeleteByController(ctrlID)
		if err != nil {
			s.sendError(conn, id, err.Error())
			return
		}
		s.sendResponse(conn, id, map[string]any{"status": "ok", "patterns_deleted": deleted})

	case "get_controller_state":
		ctrlID, _ := data["id"].(string)
		if ctrlID == "" {
			s.sendError(conn, id, "missing controller id for get_controller_state")
			return
		}
		ctrl, state, err := s.controllers.RefreshState(ctx, ctrlID)
		if err != nil {
			s.sendError(conn, id, err.Error())
			return
		}
		s.sendResponse(conn, id, map[string]any{"controller": toAny(ctrl), "state": toAny(state)})

	case "get_session":
		ctrlID, _ := data["id"].(string)
		if ctrlID == "" {
			s.sendError(conn, id, "missing controller id for get_session")
			return
		}
		s.sendResponse(conn, id, map[string]any{"session": toAny(s.engine.Status(ctrlID))})

	case "capture_pattern":
		ctrlID, _ := data["id"].(string)
		if ctrlID == "" {
			s.sendError(conn, id, "missing controller id for capture_pattern")
			return
		}
		state, err := s.engine.StartCapture(ctx, ctrlID)
		if err != nil {
			s.sendError(conn, id, err.Error())
			return
		}
		s.sendResponse(conn, id, map[string]any{"state": toAny(state)})

	case "commit_pattern":
		ctrlID, _ := data["id"].(string)
		name, _ := data["name"].(string)
		if ctrlID == "" {
			s.sendError(conn, id, "missing controller id for commit_pattern")
			return
		}
		p, err := s.engine.CommitCapture(ctrlID, name)
		if err != nil {
			s.sendError(conn, id, err.Error())
			return
		}
		s.sendResponse(conn, id, map[string]any{"pattern": toAny(p)})

	case "abandon_capture":
		ctrlID, _ := data["id"].(string)
		if ctrlID == "" {
			s.sendError(conn, id, "missing controller id for abandon_capture")
			return
		}
		if err := s.engine.AbandonCapture(ctrlID); err != nil {
			s.sendError(conn, id, err.Error())
			return
		}
		s.sendResponse(conn, id, map[string]any{"status": "ok"})

	case "apply_pattern":
		patternID, _ := data["id"].(string)
		if patternID == "" {
			s.sendError(conn, id, "missing pattern id for apply_pattern")
			return
		}
		p, err := s.patterns.Get(patternID)
		if err != nil {
			s.sendError(conn, id, err.Error())
			return
		}
		if err := s.engine.Apply(ctx, p.ControllerID, p.ID); err != nil {
			s.sendError(conn, id, err.Error())
			return
		}
		s.sendResponse(conn, id, map[string]any{"status": "ok"})

	case "list_patterns":
		ctrlID, _ := data["controller_id"].(string)
		if ctrlID == "" {
			s.sendError(conn, id, "missing controller_id for list_patterns")
			return
		}
		s.sendResponse(conn, id, map[string]any{"patterns": toAnySlice(s.patterns.ListByController(ctrlID))})

	case "get_pattern":
		patternID, _ := data["id"].(string)
		if patternID == "" {
			s.sendError(conn, id, "missing pattern id for get_pattern")
			return
		}
		p, err := s.patterns.Get(patternID)
		if err != nil {
			s.sendError(conn, id, err.Error())
			return
		}
		s.sendResponse(conn, id, map[string]any{"pattern": toAny(p)})

	case "rename_pattern":
		patternID, _ := data["id"].(string)
		name, _ := data["name"].(string)
		if patternID == "" {
			s.sendError(conn, id, "missing pattern id for rename_pattern")
			return
		}
		p, err := s.patterns.Rename(patternID, name)
		if err != nil {
			s.sendError(conn, id, err.Error())
			return
		}
		s.sendResponse(conn, id, map[string]any{"pattern": toAny(p)})

	case "delete_pattern":
		patternID, _ := data["id"].(string)
		if patternID == "" {
			s.sendError(conn, id, "missing pattern id for delete_pattern")
			return
		}
		if err := s.patterns.Delete(patternID); err != nil {
			s.sendError(conn, id, err.Error())
			return
		}
		s.sendResponse(conn, id, map[string]any{"status": "ok"})

	case "apikey_add":
		name, _ := data["name"].(string)
		var expiresIn time.Duration
		if raw, _ := data["expires_in"].(string); raw != "" {
			var err error
			expiresIn, err = time.ParseDuration(raw)
			if err != nil {
				s.sendError(conn, id, fmt.Sprintf("invalid expires_in duration: %s", err))
				return
			}
		}
		key, err := s.apikeys.CreateAPIKey(name, expiresIn)
		if err != nil {
			s.sendError(conn, id, err.Error())
			return
		}
		s.sendResponse(conn, id, map[string]any{"apikey": apiKeyToMap(key, true)})

	case "apikey_list":
		keys := s.apikeys.ListAPIKeys()
		out := make([]any, len(keys))
		for i := range keys {
			out[i] = apiKeyToMap(&keys[i], false)
		}
		s.sendResponse(conn, id, map[string]any{"apikeys": out})

	case "apikey_delete":
		key, _ := data["key"].(string)
		if key == "" {
			s.sendError(conn, id, "missing key for apikey_delete")
			return
		}
		if err := s.apikeys.DeleteAPIKey(key); err != nil {
			s.sendError(conn, id, err.Error())
			return
		}
		s.sendResponse(conn, id, map[string]any{"status": "ok"})

	case "apikey_set_disabled_status":
		key, _ := data["key"].(string)
		disabled, _ := data["disabled"].(bool)
		if key == "" {
			s.sendError(conn, id, "missing key for apikey_set_disabled_status")
			return
		}
		updated, err := s.apikeys.SetAPIKeyDisabledStatus(key, disabled)
		if err != nil {
			s.sendError(conn, id, err.Error())
			return
		}
		s.sendResponse(conn, id, map[string]any{"apikey": apiKeyToMap(updated, false)})

	default:
		s.sendError(conn, id, fmt.Sprintf("unknown action: %s", action))
	}
}

func (s *Server) sendResponse(conn net.Conn, id string, data map[string]any) {
	resp := map[string]any{"status": "ok"}
	if id != "" {
		resp["id"] = id
	}
	for k, v := range data {
		resp[k] = v
	}
	s.writeJSON(conn, resp)
}

func (s *Server) sendError(conn net.Conn, id, msg string) {
	resp := map[string]any{"status": "error", "error": msg}
	if id != "" {
		resp["id"] = id
	}
	s.writeJSON(conn, resp)
}

func (s *Server) writeJSON(conn net.Conn, payload map[string]any) {
	b, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to marshal socket response", "error", err)
		return
	}
	b = append(b, '\n')
	if _, err := conn.Write(b); err != nil {
		s.logger.Error("failed to write socket response", "error", err)
	}
}

// toAny round-trips a struct through JSON so socket responses carry the same
// field names as the HTTP API.
func toAny(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}

func toAnySlice[T any](items []T) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = toAny(item)
	}
	return out
}

func apiKeyToMap(k *config.APIKey, includeKey bool) map[string]any {
	m := map[string]any{
		"name":     k.Name,
		"disabled": k.Disabled,
	}
	if includeKey {
		m["key"] = k.Key
	}
	if !k.CreatedAt.IsZero() {
		m["created_at"] = k.CreatedAt.Format(time.RFC3339Nano)
	}
	if !k.ExpiresAt.IsZero() {
		m["expires_at"] = k.ExpiresAt.Format(time.RFC3339Nano)
	}
	if !k.LastUsedAt.IsZero() {
		m["last_used_at"] = k.LastUsedAt.Format(time.RFC3339Nano)
	}
	return m
}
