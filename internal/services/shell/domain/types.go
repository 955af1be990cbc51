// Package domain defines what the shell shows the view
package domain

import (
	"time"

	"jagapadi/internal/core/chrome"
	"jagapadi/internal/core/uistate"
	histdom "jagapadi/internal/services/history/domain"
	linkdom "jagapadi/internal/services/link/domain"
	notifydom "jagapadi/internal/services/notify/domain"
)

// Frame is one complete picture of the shell, pushed to viewers on every change
type Frame struct {
	Seq           uint64                   `json:"seq"`
	Surface       uistate.Surface          `json:"surface"`
	Chrome        chrome.View              `json:"chrome"`
	Notifications []notifydom.Notification `json:"notifications"`
	StatusLine    string                   `json:"statusLine,omitempty"`
	Link          linkdom.State            `json:"link"`
	LinkText      string                   `json:"linkText"`
	Camera        bool                     `json:"camera"`
	Prompt        chrome.Intent            `json:"prompt,omitempty"`
	Today         histdom.Stats            `json:"today"`
	HistoryCount  int                      `json:"historyCount"`
}

// Config tunes the shell
type Config struct {
	// FallbackDelay is how long after a camera failure the file picker is offered
	FallbackDelay time.Duration
	// BootTimeout bounds history and theme hydration
	BootTimeout time.Duration
	// Location reads zoneless timestamps from the host
	Location *time.Location
}
