// Package domain defines image intake limits and the camera seams
package domain

import (
	"context"

	"jagapadi/internal/core/uistate"
)

// Image is an accepted picture, ready for the state machine
type Image = uistate.Image

// Limits bound what intake accepts
type Limits struct {
	MaxBytes int64
	MinBytes int64
}

// DefaultLimits are 10 MB and 1 KB
var DefaultLimits = Limits{MaxBytes: 10 << 20, MinBytes: 1 << 10}

// Allowed lists the sniffed types intake accepts
var Allowed = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// Device yields a live camera. Acquire may block on a permission prompt
type Device interface {
	Acquire(ctx context.Context) (Handle, error)
}

// Handle is an acquired camera; it must be released exactly once
type Handle interface {
	Snapshot(ctx context.Context) ([]byte, error)
	Release() error
}

// AccessKind is the reason a camera could not be acquired
type AccessKind string

const (
	AccessDenied          AccessKind = "NotAllowedError"
	AccessNotFound        AccessKind = "NotFoundError"
	AccessBusy            AccessKind = "NotReadableError"
	AccessOverconstrained AccessKind = "OverconstrainedError"
	AccessInsecure        AccessKind = "SecurityError"
	AccessUnsupported     AccessKind = "NotSupportedError"
)

// AccessFailure is the payload a host sends when acquireCamera fails
type AccessFailure struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Port is the media surface the shell uses
type Port interface {
	Intake(filename string, data []byte) (Image, error)
	Open(ctx context.Context) error
	Capture(ctx context.Context) (Image, error)
	Close()
	Active() bool
}
