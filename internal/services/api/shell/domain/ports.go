package domain

import (
	"context"

	"jagapadi/internal/core/chrome"
	"jagapadi/internal/core/record"
	"jagapadi/internal/core/uistate"
	linkdom "jagapadi/internal/services/link/domain"
	notifydom "jagapadi/internal/services/notify/domain"
	shelldom "jagapadi/internal/services/shell/domain"
)

// Shell is what the api drives. The shell App satisfies it
type Shell interface {
	Snapshot() shelldom.Frame
	Subscribe(fn func(shelldom.Frame)) (cancel func())
	Ready() bool

	SelectFile(ctx context.Context, filename string, data []byte) (uistate.Surface, error)
	OpenCamera(ctx context.Context) error
	Capture(ctx context.Context) (uistate.Surface, error)
	CloseCamera(ctx context.Context) error
	Detect(ctx context.Context) (uistate.Surface, error)
	NewDetection(ctx context.Context) (uistate.Surface, error)
	ViewDetails(ctx context.Context, id string) (record.Record, error)

	OpenAuth(ctx context.Context) error
	Connect(ctx context.Context, password string) (string, error)
	Disconnect(ctx context.Context) string
	LinkState() linkdom.State

	ToggleSidebar(ctx context.Context) (bool, error)
	SetTheme(ctx context.Context, raw string) (chrome.Theme, error)
	DismissModal(ctx context.Context, how string) (chrome.Modal, bool, error)
	Key(ctx context.Context, k chrome.Key) (chrome.Intent, error)

	DismissNotification(id string) bool
	Notifications() []notifydom.Notification
}
