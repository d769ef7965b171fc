// Package handlers provides typed Huma request/response structs and handler
// implementations for the oelod HTTP API.
package handlers

import (
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/oelohome/oelod/internal/controller"
	"github.com/oelohome/oelod/internal/errors"
	"github.com/oelohome/oelod/internal/pattern"
	"github.com/oelohome/oelod/pkg/oelo"
)

// --- Controller types ---

// ControllerResponse is the API representation of a configured controller.
type ControllerResponse struct {
	ID          string    `json:"id" doc:"Unique controller identifier (UUID)"`
	Name        string    `json:"name" doc:"Display name of the controller"`
	Address     string    `json:"address" doc:"Network address of the controller"`
	AddedAt     time.Time `json:"added_at" doc:"When the controller was configured"`
	LastSeen    time.Time `json:"last_seen" doc:"Last successful contact with the device"`
	Reachable   bool      `json:"reachable" doc:"Whether the device answered its last probe"`
	LastApplied string    `json:"last_applied,omitempty" doc:"ID of the pattern last applied to this controller"`
}

// ControllerFromInternal converts a controller.Controller to a ControllerResponse.
func ControllerFromInternal(c *controller.Controller) ControllerResponse {
	return ControllerResponse{
		ID:          c.ID,
		Name:        c.Name,
		Address:     c.Address,
		AddedAt:     c.AddedAt,
		LastSeen:    c.LastSeen,
		Reachable:   c.Reachable,
		LastApplied: c.LastApplied,
	}
}

// ControllersFromInternal converts a slice of controllers to responses.
func ControllersFromInternal(ctrls []*controller.Controller) []ControllerResponse {
	out := make([]ControllerResponse, len(ctrls))
	for i, c := range ctrls {
		out[i] = ControllerFromInternal(c)
	}
	return out
}

// --- Pattern types ---

// PatternResponse is the API representation of a saved pattern.
type PatternResponse struct {
	ID           string          `json:"id" doc:"Unique pattern identifier (UUID)"`
	ControllerID string          `json:"controller_id" doc:"Controller that owns this pattern"`
	Name         string          `json:"name" doc:"Display name of the pattern"`
	State        oelo.LightState `json:"state" doc:"Saved zone states"`
	CreatedAt    time.Time       `json:"created_at" doc:"When the pattern was saved"`
}

// PatternFromInternal converts a pattern.Pattern to a PatternResponse.
func PatternFromInternal(p *pattern.Pattern) PatternResponse {
	return PatternResponse{
		ID:           p.ID,
		ControllerID: p.ControllerID,
		Name:         p.Name,
		State:        p.State,
		CreatedAt:    p.CreatedAt,
	}
}

// PatternsFromInternal converts a slice of patterns to responses.
func PatternsFromInternal(patterns []*pattern.Pattern) []PatternResponse {
	out := make([]PatternResponse, len(patterns))
	for i, p := range patterns {
		out[i] = PatternFromInternal(p)
	}
	return out
}

// --- Common response types ---

// StatusResponse is a simple status response.
type StatusResponse struct {
	Status string `json:"status" doc:"Operation status"`
}

// mapDomainError translates domain errors to Huma status errors so every
// handler reports the same codes for the same failures.
func mapDomainError(err error) error {
	switch {
	case errors.IsNotFound(err):
		return huma.Error404NotFound(err.Error())
	case errors.IsBusy(err), errors.IsDuplicateName(err):
		return huma.Error409Conflict(err.Error())
	case errors.IsInvalidInput(err):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.IsDeviceUnavailable(err), errors.IsUnreachable(err), errors.IsTimeout(err):
		return huma.Error503ServiceUnavailable(err.Error())
	default:
		return huma.Error500InternalServerError(err.Error())
	}
}
