package handlers

import (
	"context"

	"github.com/oelohome/oelod/internal/pattern"
	"github.com/oelohome/oelod/internal/workflow"
)

// --- Get Pattern ---

// GetPatternInput is the input for getting a single pattern.
type GetPatternInput struct {
	ID string `path:"id" doc:"Pattern identifier"`
}

// GetPatternOutput is the output for getting a single pattern.
type GetPatternOutput struct {
	Body PatternResponse
}

// --- Rename Pattern ---

// RenamePatternInput is the input for renaming a pattern.
type RenamePatternInput struct {
	ID   string `path:"id" doc:"Pattern identifier"`
	Body struct {
		Name string `json:"name" doc:"New name for the pattern" minLength:"1"`
	}
}

// RenamePatternOutput is the output for renaming a pattern.
type RenamePatternOutput struct {
	Body PatternResponse
}

// --- Delete Pattern ---

// DeletePatternInput is the input for deleting a pattern.
type DeletePatternInput struct {
	ID string `path:"id" doc:"Pattern identifier"`
}

// DeletePatternOutput is the output for deleting a pattern (HTTP 204).
type DeletePatternOutput struct{}

// --- Apply Pattern ---

// ApplyPatternInput is the input for applying a pattern to its controller.
type ApplyPatternInput struct {
	ID string `path:"id" doc:"Pattern identifier"`
}

// ApplyPatternOutput is the output for applying a pattern.
type ApplyPatternOutput struct {
	Body StatusResponse
}

// PatternHandler implements pattern-related HTTP handlers.
type PatternHandler struct {
	Patterns *pattern.Store
	Workflow *workflow.Engine
}

// GetPattern returns a single pattern by ID.
func (h *PatternHandler) GetPattern(_ context.Context, input *GetPatternInput) (*GetPatternOutput, error) {
	p, err := h.Patterns.Get(input.ID)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return &GetPatternOutput{Body: PatternFromInternal(p)}, nil
}

// RenamePattern renames a pattern. The saved state is untouched.
func (h *PatternHandler) RenamePattern(_ context.Context, input *RenamePatternInput) (*RenamePatternOutput, error) {
	p, err := h.Patterns.Rename(input.ID, input.Body.Name)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return &RenamePatternOutput{Body: PatternFromInternal(p)}, nil
}

// DeletePattern removes a pattern permanently and returns HTTP 204.
func (h *PatternHandler) DeletePattern(_ context.Context, input *DeletePatternInput) (*DeletePatternOutput, error) {
	if err := h.Patterns.Delete(input.ID); err != nil {
		return nil, mapDomainError(err)
	}
	return &DeletePatternOutput{}, nil
}

// ApplyPattern pushes a saved pattern back to its controller.
func (h *PatternHandler) ApplyPattern(ctx context.Context, input *ApplyPatternInput) (*ApplyPatternOutput, error) {
	p, err := h.Patterns.Get(input.ID)
	if err != nil {
		return nil, mapDomainError(err)
	}
	if err := h.Workflow.Apply(ctx, p.ControllerID, p.ID); err != nil {
		return nil, mapDomainError(err)
	}
	return &ApplyPatternOutput{Body: StatusResponse{Status: "ok"}}, nil
}

// PatternHandlers defines the interface for pattern operations.
type PatternHandlers interface {
	GetPattern(ctx context.Context, input *GetPatternInput) (*GetPatternOutput, error)
	RenamePattern(ctx context.Context, input *RenamePatternInput) (*RenamePatternOutput, error)
	DeletePattern(ctx context.Context, input *DeletePatternInput) (*DeletePatternOutput, error)
	ApplyPattern(ctx context.Context, input *ApplyPatternInput) (*ApplyPatternOutput, error)
}

var _ PatternHandlers = (*PatternHandler)(nil)
