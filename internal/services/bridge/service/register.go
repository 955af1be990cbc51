package service

import (
	"context"
	"encoding/json"

	"jagapadi/internal/platform/net/http/bind"
	dom "jagapadi/internal/services/bridge/domain"
)

// payloadOptions are looser than the HTTP defaults: images ride inside
// payloads and hosts may send fields newer than this shell knows about
var payloadOptions = bind.JSONOptions{MaxBytes: 16 << 20, DisallowUnknown: false}

// Decode reads and validates a call payload with the bridge's limits
func Decode[T any](raw json.RawMessage) (T, error) {
	return bind.Decode[T](raw, payloadOptions)
}

// Register installs a typed handler; the payload is decoded and validated into T first
func Register[T any](r dom.Registrar, name string, fn func(ctx context.Context, in T) (any, error)) {
	r.Register(name, func(ctx context.Context, raw json.RawMessage) (any, error) {
		in, err := Decode[T](raw)
		if err != nil {
			return nil, err
		}
		return fn(ctx, in)
	})
}

// RegisterEmpty installs a handler for calls without a payload
func RegisterEmpty(r dom.Registrar, name string, fn func(ctx context.Context) (any, error)) {
	r.Register(name, func(ctx context.Context, _ json.RawMessage) (any, error) {
		return fn(ctx)
	})
}
