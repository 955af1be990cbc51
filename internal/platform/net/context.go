// Package net provides utilities for working with request contexts
package net

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// ctxKey is an unexported key type for context values
type ctxKey string

const (
	keySessionID ctxKey = "session_id"
	keyPeer      ctxKey = "peer"
)

// WithRequest annotates context with common request scoped ids
// sessionID is the shell boot id, stable for the life of the process
func WithRequest(ctx context.Context, reqID, sessionID string) context.Context {
	if reqID != "" {
		// set chi RequestID so chimw.GetReqID can retrieve it
		ctx = context.WithValue(ctx, chimw.RequestIDKey, reqID)
	}
	if sessionID != "" {
		ctx = context.WithValue(ctx, keySessionID, sessionID)
	}
	return ctx
}

// WithPeer annotates context with the authenticated bridge peer (the host process)
func WithPeer(ctx context.Context, peer string) context.Context {
	if peer != "" {
		ctx = context.WithValue(ctx, keyPeer, peer)
	}
	return ctx
}

// RequestID returns the request id on the context if present
func RequestID(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}

// SessionID returns the session id on the context if present
func SessionID(ctx context.Context) string {
	if v, ok := ctx.Value(keySessionID).(string); ok {
		return v
	}
	return ""
}

// Peer returns the bridge peer on the context if present
func Peer(ctx context.Context) string {
	if v, ok := ctx.Value(keyPeer).(string); ok {
		return v
	}
	return ""
}
