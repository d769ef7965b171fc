package routes

import (
	"github.com/oelohome/oelod/internal/http/handlers"
)

// Handlers aggregates all handler interfaces for route registration.
type Handlers struct {
	Version    handlers.VersionInfo
	Controller handlers.ControllerHandlers
	Pattern    handlers.PatternHandlers
	APIKey     handlers.APIKeyHandlers
}
