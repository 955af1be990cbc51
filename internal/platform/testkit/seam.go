package testkit

import (
	"sync"
	"testing"
)

// seams guards package-level variables that tests replace
var seams sync.Mutex

// Swap sets *target to v until the test ends
func Swap[T any](t *testing.T, target *T, v T) {
	t.Helper()
	prev := *target
	*target = v
	t.Cleanup(func() { *target = prev })
}

// Serial holds the seam lock for the rest of the test. Call it before Swap in
// any test that replaces a variable another test may also replace
func Serial(t *testing.T) {
	t.Helper()
	seams.Lock()
	t.Cleanup(seams.Unlock)
}
