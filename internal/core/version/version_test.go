package version

import (
	"runtime/debug"
	"testing"

	"jagapadi/internal/platform/testkit"
)

func TestInfoDefaults(t *testing.T) {
	testkit.Swap(t, &readBuildInfo, func() (*debug.BuildInfo, bool) { return nil, false })
	b := Info()
	if b.Service != "jagapadi-shell" || b.Version != "dev" || b.Commit != "none" || b.Date != "unknown" {
		t.Fatalf("info=%+v", b)
	}
}

func TestForUsesVCSStamp(t *testing.T) {
	testkit.Swap(t, &readBuildInfo, func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			GoVersion: "go1.25.0",
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "deadbeef"},
				{Key: "vcs.time", Value: "2025-09-02T10:00:00Z"},
			},
		}, true
	})
	b := For("jagapadi-hostsim")
	if b.Service != "jagapadi-hostsim" || b.Commit != "deadbeef" || b.Date != "2025-09-02T10:00:00Z" || b.Go != "go1.25.0" {
		t.Fatalf("info=%+v", b)
	}
}

func TestLdflagsWin(t *testing.T) {
	testkit.Swap(t, &commit, "abc123")
	testkit.Swap(t, &readBuildInfo, func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "deadbeef"}}}, true
	})
	if got := Info().Commit; got != "abc123" {
		t.Fatalf("commit=%q", got)
	}
}
