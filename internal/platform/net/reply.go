package net

import (
	"net/http"

	perr "jagapadi/internal/platform/errors"
)

// Wire is the error envelope for middleware that answers before any handler
// runs. Its fields match the http package envelope
type Wire struct {
	StatusCode int            `json:"status_code"`
	Status     string         `json:"status"`
	Code       perr.ErrorCode `json:"code,omitempty"`
	Kind       string         `json:"kind,omitempty"`
	Error      string         `json:"error,omitempty"`
	Field      string         `json:"field,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
}

// Error maps err to its status and envelope. The message is the user facing
// one carried by the error, never the wrapped cause
func Error(err error, reqID string) (int, Wire) {
	if err == nil {
		err = perr.Internalf("unknown error")
	}
	status := perr.HTTPStatus(err)
	w := perr.WireFrom(err)
	return status, Wire{
		StatusCode: status,
		Status:     http.StatusText(status),
		Code:       w.Code,
		Kind:       w.Kind,
		Error:      w.Message,
		Field:      w.Field,
		RequestID:  reqID,
	}
}
