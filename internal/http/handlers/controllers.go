package handlers

import (
	"context"
	"time"

	"github.com/oelohome/oelod/internal/controller"
	"github.com/oelohome/oelod/internal/pattern"
	"github.com/oelohome/oelod/internal/workflow"
	"github.com/oelohome/oelod/pkg/oelo"
)

// --- List Controllers ---

// ListControllersInput is the input for listing all controllers.
type ListControllersInput struct{}

// ListControllersOutput is the output for listing all controllers.
type ListControllersOutput struct {
	Body []ControllerResponse
}

// --- Add Controller ---

// AddControllerInput is the input for configuring a new controller.
type AddControllerInput struct {
	Body struct {
		Name    string `json:"name" doc:"Display name for the controller" minLength:"1"`
		Address string `json:"address" doc:"IP or host of the device, optionally with port" minLength:"1"`
	}
}

// AddControllerOutput is the output for configuring a controller (HTTP 201).
type AddControllerOutput struct {
	Body ControllerResponse
}

// --- Get Controller ---

// GetControllerInput is the input for getting a single controller.
type GetControllerInput struct {
	ID string `path:"id" doc:"Controller identifier"`
}

// GetControllerOutput is the output for getting a single controller.
type GetControllerOutput struct {
	Body ControllerResponse
}

// --- Remove Controller ---

// RemoveControllerInput is the input for removing a controller.
type RemoveControllerInput struct {
	ID string `path:"id" doc:"Controller identifier"`
}

// RemoveControllerOutput is the output for removing a controller (HTTP 204).
type RemoveControllerOutput struct{}

// --- Controller State ---

// ControllerStateInput is the input for reading a controller's live state.
type ControllerStateInput struct {
	ID string `path:"id" doc:"Controller identifier"`
}

// ControllerStateOutput is the output for reading a controller's live state.
type ControllerStateOutput struct {
	Body struct {
		Controller ControllerResponse `json:"controller"`
		State      oelo.LightState    `json:"state" doc:"Zone states reported by the device"`
	}
}

// --- Workflow: capture / commit / abandon / session ---

// CaptureInput is the input for snapshotting a controller's live state.
type CaptureInput struct {
	ID string `path:"id" doc:"Controller identifier"`
}

// CaptureOutput is the output for a capture; the session now awaits a name.
type CaptureOutput struct {
	Body struct {
		State oelo.LightState `json:"state" doc:"Captured zone states"`
	}
}

// CommitCaptureInput is the input for naming and saving a captured snapshot.
type CommitCaptureInput struct {
	ID   string `path:"id" doc:"Controller identifier"`
	Body struct {
		Name string `json:"name" doc:"Name for the new pattern" minLength:"1"`
	}
}

// CommitCaptureOutput is the output for committing a capture (HTTP 201).
type CommitCaptureOutput struct {
	Body PatternResponse
}

// AbandonCaptureInput is the input for discarding an open capture session.
type AbandonCaptureInput struct {
	ID string `path:"id" doc:"Controller identifier"`
}

// AbandonCaptureOutput is the output for abandoning a capture.
type AbandonCaptureOutput struct {
	Body StatusResponse
}

// SessionInput is the input for inspecting a controller's workflow session.
type SessionInput struct {
	ID string `path:"id" doc:"Controller identifier"`
}

// SessionOutput is the output for inspecting a workflow session.
type SessionOutput struct {
	Body struct {
		State     string    `json:"state" doc:"Current workflow phase"`
		StartedAt time.Time `json:"started_at,omitempty" doc:"When the session began"`
		ExpiresAt time.Time `json:"expires_at,omitempty" doc:"When the session force-resets"`
	}
}

// --- List Controller Patterns ---

// ListControllerPatternsInput is the input for listing a controller's patterns.
type ListControllerPatternsInput struct {
	ID string `path:"id" doc:"Controller identifier"`
}

// ListControllerPatternsOutput is the output for listing a controller's patterns.
type ListControllerPatternsOutput struct {
	Body []PatternResponse
}

// ControllerHandler implements controller and workflow HTTP handlers.
type ControllerHandler struct {
	Controllers *controller.Manager
	Patterns    *pattern.Store
	Workflow    *workflow.Engine
}

// ListControllers returns all configured controllers.
func (h *ControllerHandler) ListControllers(_ context.Context, _ *ListControllersInput) (*ListControllersOutput, error) {
	return &ListControllersOutput{
		Body: ControllersFromInternal(h.Controllers.ListControllers()),
	}, nil
}

// AddController configures a new controller after a live validation probe.
func (h *ControllerHandler) AddController(ctx context.Context, input *AddControllerInput) (*AddControllerOutput, error) {
	ctrl, err := h.Controllers.AddController(ctx, input.Body.Name, input.Body.Address)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return &AddControllerOutput{Body: ControllerFromInternal(ctrl)}, nil
}

// GetController returns a single controller record.
func (h *ControllerHandler) GetController(_ context.Context, input *GetControllerInput) (*GetControllerOutput, error) {
	ctrl, err := h.Controllers.GetController(input.ID)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return &GetControllerOutput{Body: ControllerFromInternal(ctrl)}, nil
}

// RemoveController deletes a controller and all of its saved patterns.
func (h *ControllerHandler) RemoveController(_ context.Context, input *RemoveControllerInput) (*RemoveControllerOutput, error) {
	ctrl, err := h.Controllers.RemoveController(input.ID)
	if err != nil {
		return nil, mapDomainError(err)
	}
	if _, err := h.Patterns.DeleteByController(ctrl.ID); err != nil {
		return nil, mapDomainError(err)
	}
	return &RemoveControllerOutput{}, nil
}

// GetControllerState reads the device's live zone states.
func (h *ControllerHandler) GetControllerState(ctx context.Context, input *ControllerStateInput) (*ControllerStateOutput, error) {
	ctrl, state, err := h.Controllers.RefreshState(ctx, input.ID)
	if err != nil {
		return nil, mapDomainError(err)
	}
	out := &ControllerStateOutput{}
	out.Body.Controller = ControllerFromInternal(ctrl)
	out.Body.State = *state
	return out, nil
}

// Capture snapshots the controller's live state and opens a naming session.
func (h *ControllerHandler) Capture(ctx context.Context, input *CaptureInput) (*CaptureOutput, error) {
	state, err := h.Workflow.StartCapture(ctx, input.ID)
	if err != nil {
		return nil, mapDomainError(err)
	}
	out := &CaptureOutput{}
	out.Body.State = *state
	return out, nil
}

// CommitCapture names the captured snapshot and saves it as a pattern.
func (h *ControllerHandler) CommitCapture(_ context.Context, input *CommitCaptureInput) (*CommitCaptureOutput, error) {
	p, err := h.Workflow.CommitCapture(input.ID, input.Body.Name)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return &CommitCaptureOutput{Body: PatternFromInternal(p)}, nil
}

// AbandonCapture discards an open capture session.
func (h *ControllerHandler) AbandonCapture(_ context.Context, input *AbandonCaptureInput) (*AbandonCaptureOutput, error) {
	if err := h.Workflow.AbandonCapture(input.ID); err != nil {
		return nil, mapDomainError(err)
	}
	return &AbandonCaptureOutput{Body: StatusResponse{Status: "ok"}}, nil
}

// GetSession reports the controller's workflow session phase.
func (h *ControllerHandler) GetSession(_ context.Context, input *SessionInput) (*SessionOutput, error) {
	if _, err := h.Controllers.GetController(input.ID); err != nil {
		return nil, mapDomainError(err)
	}
	status := h.Workflow.Status(input.ID)
	out := &SessionOutput{}
	out.Body.State = string(status.State)
	out.Body.StartedAt = status.StartedAt
	out.Body.ExpiresAt = status.ExpiresAt
	return out, nil
}

// ListControllerPatterns returns the controller's saved patterns in creation order.
func (h *ControllerHandler) ListControllerPatterns(_ context.Context, input *ListControllerPatternsInput) (*ListControllerPatternsOutput, error) {
	if _, err := h.Controllers.GetController(input.ID); err != nil {
		return nil, mapDomainError(err)
	}
	return &ListControllerPatternsOutput{
		Body: PatternsFromInternal(h.Patterns.ListByController(input.ID)),
	}, nil
}

// ControllerHandlers defines the interface for controller operations.
type ControllerHandlers interface {
	ListControllers(ctx context.Context, input *ListControllersInput) (*ListControllersOutput, error)
	AddController(ctx context.Context, input *AddControllerInput) (*AddControllerOutput, error)
	GetController(ctx context.Context, input *GetControllerInput) (*GetControllerOutput, error)
	RemoveController(ctx context.Context, input *RemoveControllerInput) (*RemoveControllerOutput, error)
	GetControllerState(ctx context.Context, input *ControllerStateInput) (*ControllerStateOutput, error)
	Capture(ctx context.Context, input *CaptureInput) (*CaptureOutput, error)
	CommitCapture(ctx context.Context, input *CommitCaptureInput) (*CommitCaptureOutput, error)
	AbandonCapture(ctx context.Context, input *AbandonCaptureInput) (*AbandonCaptureOutput, error)
	GetSession(ctx context.Context, input *SessionInput) (*SessionOutput, error)
	ListControllerPatterns(ctx context.Context, input *ListControllerPatternsInput) (*ListControllerPatternsOutput, error)
}

var _ ControllerHandlers = (*ControllerHandler)(nil)
