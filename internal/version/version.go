// Package version holds build metadata set at link time:
//
//	go build -ldflags "-X github.com/kailas-cloud/absola/internal/version.Version=1.4.0 \
//	  -X github.com/kailas-cloud/absola/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the build for logs, e.g. "1.4.0 (3f2c1ab, 2026-09-30)".
func String() string {
	return fmt.Sprintf("%s (%s, %s)", Version, Commit, Date)
}
