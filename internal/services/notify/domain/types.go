// Package domain defines notification types and the notify port
package domain

import (
	"strings"
	"time"

	perr "jagapadi/internal/platform/errors"
)

// Severity is how loud a notification is
type Severity string

const (
	Info    Severity = "info"
	Success Severity = "success"
	Warning Severity = "warning"
	Error   Severity = "error"
)

// ParseSeverity accepts the four severities, anything else is InvalidArg
func ParseSeverity(s string) (Severity, error) {
	switch v := Severity(strings.ToLower(strings.TrimSpace(s))); v {
	case Info, Success, Warning, Error:
		return v, nil
	}
	return "", perr.InvalidArgf("unknown severity %q", s)
}

// Notification is one transient toast
type Notification struct {
	ID        string    `json:"id"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// EventKind says what happened to a notification
type EventKind string

const (
	Pushed    EventKind = "pushed"
	Dismissed EventKind = "dismissed"
	Expired   EventKind = "expired"
	Status    EventKind = "status"
)

// Event is delivered to observers. Status events carry the text in Status
type Event struct {
	Kind         EventKind     `json:"kind"`
	Notification *Notification `json:"notification,omitempty"`
	Status       string        `json:"status,omitempty"`
}
