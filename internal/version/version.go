package version

import "fmt"

var (
	// Version is the current application version, set with -ldflags at build time
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String returns a one-line description used by -version and the dashboard footer.
func String() string {
	return fmt.Sprintf("accident.report %s (%s, built %s)", Version, GitSHA, BuildTime)
}
