package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/oelohome/oelod/internal/apikey"
	"github.com/oelohome/oelod/internal/config"
)

// APIKeyResponse is the API representation of an API key.
type APIKeyResponse struct {
	Name       string    `json:"name" doc:"Display name of the key"`
	Key        string    `json:"key,omitempty" doc:"Full key string (only present on creation)"`
	CreatedAt  time.Time `json:"created_at" doc:"When the key was created"`
	ExpiresAt  time.Time `json:"expires_at,omitempty" doc:"When the key expires, zero for never"`
	LastUsedAt time.Time `json:"last_used_at,omitempty" doc:"Last successful authentication"`
	Disabled   bool      `json:"disabled" doc:"Whether the key is disabled"`
}

func apiKeyResponse(k *config.APIKey, includeKey bool) APIKeyResponse {
	resp := APIKeyResponse{
		Name:       k.Name,
		CreatedAt:  k.CreatedAt,
		ExpiresAt:  k.ExpiresAt,
		LastUsedAt: k.LastUsedAt,
		Disabled:   k.Disabled,
	}
	if includeKey {
		resp.Key = k.Key
	}
	return resp
}

// --- Create API Key ---

// CreateAPIKeyInput is the input for creating a new API key.
type CreateAPIKeyInput struct {
	Body struct {
		Name      string `json:"name" doc:"Display name for the API key" minLength:"1"`
		ExpiresIn string `json:"expires_in,omitempty" doc:"Duration string (e.g., '720h')"`
	}
}

// CreateAPIKeyOutput is the output for creating a new API key (HTTP 201).
type CreateAPIKeyOutput struct {
	Body APIKeyResponse
}

// --- List API Keys ---

// ListAPIKeysInput is the input for listing all API keys.
type ListAPIKeysInput struct{}

// ListAPIKeysOutput is the output for listing all API keys.
type ListAPIKeysOutput struct {
	Body []APIKeyResponse
}

// --- Delete API Key ---

// DeleteAPIKeyInput is the input for deleting an API key.
type DeleteAPIKeyInput struct {
	Key string `path:"key" doc:"API key string"`
}

// DeleteAPIKeyOutput is the output for deleting an API key (HTTP 204).
type DeleteAPIKeyOutput struct{}

// --- Set API Key Disabled ---

// SetAPIKeyDisabledInput is the input for enabling/disabling an API key.
type SetAPIKeyDisabledInput struct {
	Key  string `path:"key" doc:"API key string or name"`
	Body struct {
		Disabled bool `json:"disabled" doc:"Whether to disable the key"`
	}
}

// SetAPIKeyDisabledOutput is the output for enabling/disabling an API key.
type SetAPIKeyDisabledOutput struct {
	Body APIKeyResponse
}

// APIKeyHandler implements API key management HTTP handlers.
type APIKeyHandler struct {
	Manager *apikey.Manager
}

// CreateAPIKey creates a new API key. The full key string is only ever
// returned here.
func (h *APIKeyHandler) CreateAPIKey(_ context.Context, input *CreateAPIKeyInput) (*CreateAPIKeyOutput, error) {
	var expiresIn time.Duration
	if input.Body.ExpiresIn != "" {
		var err error
		expiresIn, err = time.ParseDuration(input.Body.ExpiresIn)
		if err != nil {
			return nil, huma.Error400BadRequest(fmt.Sprintf("invalid expires_in duration: %s", err))
		}
	}

	key, err := h.Manager.CreateAPIKey(input.Body.Name, expiresIn)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return &CreateAPIKeyOutput{Body: apiKeyResponse(key, true)}, nil
}

// ListAPIKeys lists all API keys without their key strings.
func (h *APIKeyHandler) ListAPIKeys(_ context.Context, _ *ListAPIKeysInput) (*ListAPIKeysOutput, error) {
	keys := h.Manager.ListAPIKeys()
	out := make([]APIKeyResponse, len(keys))
	for i := range keys {
		out[i] = apiKeyResponse(&keys[i], false)
	}
	return &ListAPIKeysOutput{Body: out}, nil
}

// DeleteAPIKey deletes an API key and returns HTTP 204.
func (h *APIKeyHandler) DeleteAPIKey(_ context.Context, input *DeleteAPIKeyInput) (*DeleteAPIKeyOutput, error) {
	if err := h.Manager.DeleteAPIKey(input.Key); err != nil {
		return nil, mapDomainError(err)
	}
	return &DeleteAPIKeyOutput{}, nil
}

// SetAPIKeyDisabled enables or disables an API key.
func (h *APIKeyHandler) SetAPIKeyDisabled(_ context.Context, input *SetAPIKeyDisabledInput) (*SetAPIKeyDisabledOutput, error) {
	key, err := h.Manager.SetAPIKeyDisabledStatus(input.Key, input.Body.Disabled)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return &SetAPIKeyDisabledOutput{Body: apiKeyResponse(key, false)}, nil
}

// APIKeyHandlers defines the interface for API key operations.
type APIKeyHandlers interface {
	CreateAPIKey(ctx context.Context, input *CreateAPIKeyInput) (*CreateAPIKeyOutput, error)
	ListAPIKeys(ctx context.Context, input *ListAPIKeysInput) (*ListAPIKeysOutput, error)
	DeleteAPIKey(ctx context.Context, input *DeleteAPIKeyInput) (*DeleteAPIKeyOutput, error)
	SetAPIKeyDisabled(ctx context.Context, input *SetAPIKeyDisabledInput) (*SetAPIKeyDisabledOutput, error)
}

var _ APIKeyHandlers = (*APIKeyHandler)(nil)
