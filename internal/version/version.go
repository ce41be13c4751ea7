// Package version exposes the build identity stamped in via ldflags:
//
//	-X github.com/valshi/whalewatch/internal/version.Version=1.2.0
//	-X github.com/valshi/whalewatch/internal/version.Commit=$(git rev-parse --short HEAD)
//	-X github.com/valshi/whalewatch/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)
//
// Unstamped binaries fall back to the VCS revision recorded by the Go
// toolchain, so "go install" builds still report a usable commit.
package version

import "runtime/debug"

var (
	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

func init() {
	if Commit != "" {
		return
	}
	Commit = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			Commit = s.Value[:7]
		}
	}
}

// String renders the full build identity for startup logs.
func String() string {
	s := "whalewatch " + Version + " (" + Commit + ")"
	if BuildTime != "" {
		s += " built " + BuildTime
	}
	return s
}
