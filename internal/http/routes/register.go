package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/oelohome/oelod/internal/http/handlers"
	"github.com/oelohome/oelod/internal/http/mw"
)

// Register registers all API routes with the given Huma API instance.
func Register(api huma.API, h *Handlers) {
	// --- Health ---
	mw.PublicGet(api, "/api/v1/health", handlers.HealthCheck,
		mw.WithTags("Health"),
		mw.WithSummary("Health check"),
		mw.WithDescription("Returns service health status. This endpoint does not require authentication."),
		mw.WithOperationID("healthCheck"))

	mw.HiddenGet(api, "/healthz", handlers.HealthCheck)

	// --- Version ---
	mw.PublicGet(api, "/api/v1/version", h.Version.VersionCheck,
		mw.WithTags("Version"),
		mw.WithSummary("Daemon version"),
		mw.WithDescription("Returns the running daemon's version, commit, and build date. This endpoint does not require authentication."),
		mw.WithOperationID("getVersion"))

	// --- Controllers ---
	mw.ProtectedGet(api, "/api/v1/controllers", h.Controller.ListControllers,
		mw.WithTags("Controllers"),
		mw.WithSummary("List all controllers"),
		mw.WithOperationID("listControllers"))

	mw.ProtectedPost(api, "/api/v1/controllers", h.Controller.AddController,
		mw.WithTags("Controllers"),
		mw.WithSummary("Configure a controller"),
		mw.WithDescription("Validates the address by probing the live device, then registers it."),
		mw.WithOperationID("addController"),
		mw.WithDefaultStatus(201))

	mw.ProtectedGet(api, "/api/v1/controllers/{id}", h.Controller.GetController,
		mw.WithTags("Controllers"),
		mw.WithSummary("Get a controller"),
		mw.WithOperationID("getController"))

	mw.ProtectedDelete(api, "/api/v1/controllers/{id}", h.Controller.RemoveController,
		mw.WithTags("Controllers"),
		mw.WithSummary("Remove a controller"),
		mw.WithDescription("Removes the controller and deletes all of its saved patterns."),
		mw.WithOperationID("removeController"),
		mw.WithDefaultStatus(204))

	mw.ProtectedGet(api, "/api/v1/controllers/{id}/state", h.Controller.GetControllerState,
		mw.WithTags("Controllers"),
		mw.WithSummary("Get live device state"),
		mw.WithDescription("Queries the device for its current zone states."),
		mw.WithOperationID("getControllerState"))

	// --- Workflow ---
	mw.ProtectedPost(api, "/api/v1/controllers/{id}/capture", h.Controller.Capture,
		mw.WithTags("Workflow"),
		mw.WithSummary("Capture live state"),
		mw.WithDescription("Snapshots the device's current zone states and opens a naming session."),
		mw.WithOperationID("captureState"))

	mw.ProtectedPost(api, "/api/v1/controllers/{id}/capture/commit", h.Controller.CommitCapture,
		mw.WithTags("Workflow"),
		mw.WithSummary("Commit a capture"),
		mw.WithDescription("Names the held snapshot and saves it as a pattern."),
		mw.WithOperationID("commitCapture"),
		mw.WithDefaultStatus(201))

	mw.ProtectedPost(api, "/api/v1/controllers/{id}/capture/abandon", h.Controller.AbandonCapture,
		mw.WithTags("Workflow"),
		mw.WithSummary("Abandon a capture"),
		mw.WithOperationID("abandonCapture"))

	mw.ProtectedGet(api, "/api/v1/controllers/{id}/session", h.Controller.GetSession,
		mw.WithTags("Workflow"),
		mw.WithSummary("Get workflow session"),
		mw.WithDescription("Reports the controller's current workflow phase."),
		mw.WithOperationID("getSession"))

	// --- Patterns ---
	mw.ProtectedGet(api, "/api/v1/controllers/{id}/patterns", h.Controller.ListControllerPatterns,
		mw.WithTags("Patterns"),
		mw.WithSummary("List a controller's patterns"),
		mw.WithOperationID("listControllerPatterns"))

	mw.ProtectedGet(api, "/api/v1/patterns/{id}", h.Pattern.GetPattern,
		mw.WithTags("Patterns"),
		mw.WithSummary("Get a pattern"),
		mw.WithOperationID("getPattern"))

	mw.ProtectedPut(api, "/api/v1/patterns/{id}/name", h.Pattern.RenamePattern,
		mw.WithTags("Patterns"),
		mw.WithSummary("Rename a pattern"),
		mw.WithDescription("Changes the pattern's name; the saved state is untouched."),
		mw.WithOperationID("renamePattern"))

	mw.ProtectedDelete(api, "/api/v1/patterns/{id}", h.Pattern.DeletePattern,
		mw.WithTags("Patterns"),
		mw.WithSummary("Delete a pattern"),
		mw.WithOperationID("deletePattern"),
		mw.WithDefaultStatus(204))

	mw.ProtectedPost(api, "/api/v1/patterns/{id}/apply", h.Pattern.ApplyPattern,
		mw.WithTags("Patterns"),
		mw.WithSummary("Apply a pattern"),
		mw.WithDescription("Pushes the saved zone states back to the owning controller."),
		mw.WithOperationID("applyPattern"))

	// --- API Keys ---
	mw.ProtectedPost(api, "/api/v1/apikeys", h.APIKey.CreateAPIKey,
		mw.WithTags("API Keys"),
		mw.WithSummary("Create an API key"),
		mw.WithOperationID("createApiKey"),
		mw.WithDefaultStatus(201))

	mw.ProtectedGet(api, "/api/v1/apikeys", h.APIKey.ListAPIKeys,
		mw.WithTags("API Keys"),
		mw.WithSummary("List API keys"),
		mw.WithOperationID("listApiKeys"))

	mw.ProtectedDelete(api, "/api/v1/apikeys/{key}", h.APIKey.DeleteAPIKey,
		mw.WithTags("API Keys"),
		mw.WithSummary("Delete an API key"),
		mw.WithOperationID("deleteApiKey"),
		mw.WithDefaultStatus(204))

	mw.ProtectedPut(api, "/api/v1/apikeys/{key}/disabled", h.APIKey.SetAPIKeyDisabled,
		mw.WithTags("API Keys"),
		mw.WithSummary("Enable or disable an API key"),
		mw.WithOperationID("setApiKeyDisabled"))
}
