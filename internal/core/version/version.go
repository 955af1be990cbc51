// Package version reports what build of the shell is running.
package version

import "runtime/debug"

// BuildInfo holds version information about a binary
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
}

// Set via -ldflags "-X 'jagapadi/internal/core/version.version=v0.1.0'
// -X 'jagapadi/internal/core/version.commit=abcd' -X 'jagapadi/internal/core/version.date=2025-09-02'"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// readBuildInfo is swapped in tests
var readBuildInfo = debug.ReadBuildInfo

// Info returns build information for the shell
func Info() BuildInfo { return For("jagapadi-shell") }

// For returns build information under another service name. When ldflags
// were not set the commit and date fall back to the embedded vcs stamp
func For(service string) BuildInfo {
	b := BuildInfo{Service: service, Version: version, Commit: commit, Date: date}
	bi, ok := readBuildInfo()
	if !ok {
		return b
	}
	b.Go = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.Commit == "none" && s.Value != "" {
				b.Commit = s.Value
			}
		case "vcs.time":
			if b.Date == "unknown" && s.Value != "" {
				b.Date = s.Value
			}
		}
	}
	return b
}
