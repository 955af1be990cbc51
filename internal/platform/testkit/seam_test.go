package testkit

import (
	"sync/atomic"
	"testing"
	"time"
)

var openFn = func() string { return "real" }

func TestSwapRestores(t *testing.T) {
	t.Run("swapped", func(t *testing.T) {
		Swap(t, &openFn, func() string { return "fake" })
		if got := openFn(); got != "fake" {
			t.Fatalf("got %q", got)
		}
	})
	if got := openFn(); got != "real" {
		t.Fatalf("not restored, got %q", got)
	}
}

func TestSerialExcludes(t *testing.T) {
	var inside, overlap atomic.Int32
	done := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		go func() {
			t.Run("worker", func(t *testing.T) {
				Serial(t)
				if inside.Add(1) > 1 {
					overlap.Store(1)
				}
				time.Sleep(10 * time.Millisecond)
				inside.Add(-1)
			})
			done <- struct{}{}
		}()
	}
	<-done
	<-done
	if overlap.Load() != 0 {
		t.Fatal("Serial let two tests in at once")
	}
}
