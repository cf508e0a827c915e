// Package build holds version information set at link time, e.g.
//
//	go build -ldflags "-X github.com/armadaproject/jobbuffer/internal/jobbuffer/build.ReleaseVersion=v1.0.0"
package build

import "runtime"

var (
	ReleaseVersion = "UNKNOWN_VERSION"
	GitCommit      = "UNKNOWN_GITCOMMIT"
	BuildTime      = "UNKNOWN_BUILDTIME"
	GoVersion      = runtime.Version()
)
