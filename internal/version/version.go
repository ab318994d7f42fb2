// Package version holds build metadata stamped in via -ldflags.
package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the version with its build metadata.
func String() string {
	return fmt.Sprintf("objectmap %s (commit %s, built %s)", Version, GitSHA, BuildTime)
}
