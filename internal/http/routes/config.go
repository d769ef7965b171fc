// Package routes provides shared route registration for the oelod HTTP API.
// Both the main server and the OpenAPI generator use the same route
// definitions, so the spec stays in sync with the implementation.
package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/oelohome/oelod/internal/http/mw"
)

// NewHumaConfig creates the shared Huma configuration for the API.
func NewHumaConfig(version, baseURL string) huma.Config {
	cfg := huma.DefaultConfig("oelod API", version)
	cfg.Info.Description = "REST API for managing Oelo Lights controllers and saved patterns via the oelod daemon."

	// Disable $schema field in responses
	cfg.CreateHooks = nil

	if baseURL != "" {
		cfg.Servers = []*huma.Server{
			{URL: baseURL, Description: "API Server"},
		}
	}

	cfg.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		mw.SecurityScheme: {
			Type:        "http",
			Scheme:      "bearer",
			Description: "API key authentication. Include your API key as `Authorization: Bearer <key>` or `X-API-Key: <key>`.",
		},
	}

	cfg.Tags = []*huma.Tag{
		{Name: "Controllers", Description: "Controller configuration and live state"},
		{Name: "Workflow", Description: "Capture, name, and apply pattern workflow"},
		{Name: "Patterns", Description: "Saved pattern management"},
		{Name: "API Keys", Description: "API key management"},
	}

	return cfg
}
