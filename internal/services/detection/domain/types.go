// Package domain defines the detection orchestrator's contract
package domain

import (
	"context"
	"strings"

	"jagapadi/internal/core/record"
	perr "jagapadi/internal/platform/errors"
	bridge "jagapadi/internal/services/bridge/domain"
	linkdom "jagapadi/internal/services/link/domain"
	notifydom "jagapadi/internal/services/notify/domain"
)

// Delivery says which path carries the annotated result
type Delivery string

const (
	// Async waits for the host's deliverResult call; the submit reply is only an ack
	Async Delivery = "async"
	// Response renders straight from the submit reply
	Response Delivery = "response"
)

// ParseDelivery accepts async and response
func ParseDelivery(s string) (Delivery, error) {
	switch d := Delivery(strings.ToLower(strings.TrimSpace(s))); d {
	case Async, Response:
		return d, nil
	case "":
		return Async, nil
	}
	return "", perr.InvalidArgf("unknown delivery mode %q", s)
}

// ResultPayload is what the backend hands back with a finished detection.
// Image is opaque to the shell; detections and recommendations are optional
type ResultPayload struct {
	Image           string               `json:"image" validate:"required"`
	Filename        string               `json:"filename,omitempty" validate:"max=512"`
	Detections      []record.WireFinding `json:"detections,omitempty" validate:"dive"`
	Recommendations []string             `json:"recommendations,omitempty"`
}

// Link is the slice of the backend link the orchestrator needs
type Link interface {
	Connected() bool
	Submit(ctx context.Context, p linkdom.SubmitPayload) (bridge.Reply, error)
}

// Recorder receives completed records
type Recorder interface {
	Append(r record.Record) error
}

// Notifier shows toasts
type Notifier interface {
	Push(sev notifydom.Severity, msg string) notifydom.Notification
}

// Port is the orchestrator. All methods must run on the shell loop
type Port interface {
	StartDetection(ctx context.Context) error
	DeliverResult(ctx context.Context, p ResultPayload) (record.Record, error)
	NewDetection() error
	// RejectResult reverts an outstanding detection after an unusable result
	RejectResult(err error)
	InFlight() bool
}
