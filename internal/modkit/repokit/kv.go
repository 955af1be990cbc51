// Package repokit provides helpers for repositories over the local kv store
package repokit

import (
	"context"
	"encoding/json"

	perr "jagapadi/internal/platform/errors"
	"jagapadi/internal/platform/store"
)

// KV is the store seam repos are built on
type KV = store.KV

// GetJSON reads key and decodes it into T. A miss returns ok=false and no error
func GetJSON[T any](ctx context.Context, kv KV, key string) (v T, ok bool, err error) {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil {
		return v, false, perr.Wrapf(err, perr.ErrorCodePersistence, "read %s", key)
	}
	if !ok {
		return v, false, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, perr.Wrapf(err, perr.ErrorCodePersistence, "decode %s", key)
	}
	return v, true, nil
}

// PutJSON encodes v and writes it under key, replacing what was there
func PutJSON(ctx context.Context, kv KV, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodePersistence, "encode %s", key)
	}
	if err := kv.Set(ctx, key, b); err != nil {
		return perr.Wrapf(err, perr.ErrorCodePersistence, "write %s", key)
	}
	return nil
}

// GetString reads a plain string value such as a preference
func GetString(ctx context.Context, kv KV, key string) (string, bool, error) {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil {
		return "", false, perr.Wrapf(err, perr.ErrorCodePersistence, "read %s", key)
	}
	return string(raw), ok, nil
}

// PutString writes a plain string value
func PutString(ctx context.Context, kv KV, key, v string) error {
	return perr.WrapIf(kv.Set(ctx, key, []byte(v)), perr.ErrorCodePersistence, "write "+key)
}
