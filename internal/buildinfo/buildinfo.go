// Package buildinfo holds version and build metadata stamped at compile time via ldflags.
package buildinfo

import (
	"fmt"
	"runtime"
)

// These variables are set at build time via -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// String returns a one-line summary for logging and the -version flag.
func String() string {
	return fmt.Sprintf("Opsdesk %s (%s) built %s with %s", Version, GitCommit, BuildTime, runtime.Version())
}

// UserAgent returns the User-Agent header value for outbound HTTP requests.
func UserAgent() string {
	return fmt.Sprintf("opsdesk/%s (%s; %s)", Version, runtime.GOOS, runtime.GOARCH)
}
