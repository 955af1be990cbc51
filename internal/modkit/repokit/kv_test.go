package repokit

import (
	"context"
	"errors"
	"testing"

	perr "jagapadi/internal/platform/errors"
	"jagapadi/internal/platform/store"
	"jagapadi/internal/platform/testkit"
)

type prefs struct {
	Theme string `json:"theme"`
	Open  bool   `json:"open"`
}

func TestJSONRoundTripAndMiss(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()

	_, ok, err := GetJSON[prefs](ctx, kv, "p")
	if err != nil || ok {
		t.Fatalf("miss: ok=%v err=%v", ok, err)
	}
	if err := PutJSON(ctx, kv, "p", prefs{Theme: "dark", Open: true}); err != nil {
		t.Fatal(err)
	}
	got, ok, err := GetJSON[prefs](ctx, kv, "p")
	if err != nil || !ok || got.Theme != "dark" || !got.Open {
		t.Fatalf("got %+v ok=%v err=%v", got, ok, err)
	}
}

func TestGetJSONCorruptIsPersistence(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	_ = kv.Set(ctx, "p", []byte("{nope"))
	_, _, err := GetJSON[prefs](ctx, kv, "p")
	testkit.MustCode(t, err, perr.ErrorCodePersistence)
}

func TestBackendFailureIsPersistence(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	kv.Fail(errors.New("disk full"))

	testkit.MustCode(t, PutJSON(ctx, kv, "p", prefs{}), perr.ErrorCodePersistence)
	testkit.MustCode(t, PutString(ctx, kv, "t", "dark"), perr.ErrorCodePersistence)
	_, _, err := GetString(ctx, kv, "t")
	testkit.MustCode(t, err, perr.ErrorCodePersistence)
}

func TestStringRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	if err := PutString(ctx, kv, "jagapadi_theme", "dark"); err != nil {
		t.Fatal(err)
	}
	v, ok, err := GetString(ctx, kv, "jagapadi_theme")
	if err != nil || !ok || v != "dark" {
		t.Fatalf("got %q ok=%v err=%v", v, ok, err)
	}
}
