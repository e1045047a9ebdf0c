// Package version provides build-time version information.
//
// Variables are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/marcushennig/limit-order-book-simulation-sub000/internal/version.Version=1.0.0 \
//	                   -X github.com/marcushennig/limit-order-book-simulation-sub000/internal/version.Commit=$(git rev-parse --short HEAD)" \
//	         ./cmd/simulate
package version

import "runtime/debug"

// Build-time variables (set via ldflags)
var (
	// Version is the semantic version (e.g., "1.0.0")
	Version = "dev"

	// Commit is the git commit hash (short form)
	Commit = "unknown"
)

func init() {
	if Commit != "unknown" {
		return
	}
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

// String returns a formatted version string.
func String() string {
	return Version + " (" + Commit + ")"
}
