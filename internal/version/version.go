// Package version provides build-time version information.
package version

import "fmt"

// Set at build time with -ldflags "-X cell-tracker/internal/version.GitCommit=...".
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the version for -version output.
func String() string {
	return fmt.Sprintf("cell-tracker %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
