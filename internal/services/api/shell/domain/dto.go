// Package domain holds DTOs and ports for the shell api
package domain

import (
	"jagapadi/internal/core/chrome"
	"jagapadi/internal/core/record"
	"jagapadi/internal/core/uistate"
	linkdom "jagapadi/internal/services/link/domain"
)

// ConnectInput is the password dialog's submission
type ConnectInput struct {
	Password string `json:"password" validate:"max=256"`
}

// ThemeInput selects a theme
type ThemeInput struct {
	Theme string `json:"theme" validate:"required,max=16"`
}

// DismissInput says how the top modal was dismissed
type DismissInput struct {
	How string `json:"how" validate:"required,max=16"`
}

// DetailsInput names a history record; empty means the active result
type DetailsInput struct {
	ID string `json:"id,omitempty" validate:"max=128"`
}

// LinkResponse reports the backend link
type LinkResponse struct {
	State   linkdom.State `json:"state"`
	Text    string        `json:"text"`
	Message string        `json:"message,omitempty"`
}

// SidebarResponse reports the sidebar after a toggle
type SidebarResponse struct {
	Open bool `json:"open"`
}

// ThemeResponse reports the applied theme
type ThemeResponse struct {
	Theme chrome.Theme `json:"theme"`
}

// DismissResponse reports which modal closed, if any
type DismissResponse struct {
	Closed bool         `json:"closed"`
	Modal  *chrome.Modal `json:"modal,omitempty"`
}

// KeyResponse reports what a shortcut did
type KeyResponse struct {
	Intent chrome.Intent `json:"intent"`
}

// DetailsResponse is the record the detail modal shows
type DetailsResponse struct {
	Record      record.WireRecord `json:"record"`
	SourceLabel string            `json:"sourceLabel"`
}

// SurfaceResponse wraps the surface after an action
type SurfaceResponse struct {
	Surface uistate.Surface `json:"surface"`
}
