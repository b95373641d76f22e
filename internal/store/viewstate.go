package store

import "photo-studio-backend/internal/models"

// ViewState tells a client which screen to show. Exactly one of IsIdle,
// IsEditing and HasResult is true. IsGenerating overlays IsEditing.
type ViewState struct {
	IsIdle       bool
	IsEditing    bool
	IsGenerating bool
	HasResult    bool
}

func DeriveViewState(phase models.Phase, hasImage bool, resultURL string) ViewState {
	hasResult := resultURL != ""
	isEditing := hasImage && !hasResult
	return ViewState{
		HasResult:    hasResult,
		IsGenerating: phase.Working(),
		IsEditing:    isEditing,
		IsIdle:       !isEditing && !hasResult,
	}
}

func Derive(s State) ViewState {
	return DeriveViewState(s.Phase, s.HasImage(), s.ResultURL)
}

func (v ViewState) Response() models.ViewStateResponse {
	return models.ViewStateResponse{
		IsIdle:       v.IsIdle,
		IsEditing:    v.IsEditing,
		IsGenerating: v.IsGenerating,
		HasResult:    v.HasResult,
	}
}
