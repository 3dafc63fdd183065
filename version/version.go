// Package version carries the build metadata stamped into the obscura
// binary.
package version

import (
	"fmt"
	"runtime"
)

// Stamped at build time via -ldflags "-X github.com/obscura-io/obscura/version.Version=...".
// Unstamped binaries report a dev build.
var (
	CommitHash = "dev"
	BuildTime  = "unknown"
	Version    = "dev"
)

// Info is the resolved build metadata, including the toolchain and platform
// the binary was compiled with.
type Info struct {
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
	Version    string `json:"version"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// Get resolves the stamped values together with the runtime facts.
func Get() Info {
	return Info{
		CommitHash: CommitHash,
		BuildTime:  BuildTime,
		Version:    Version,
		GoVersion:  runtime.Version(),
		Platform:   fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String renders a one-line summary suitable for CLI output.
func (i Info) String() string {
	if i.Version != "dev" {
		return fmt.Sprintf("obscura %s (commit %s, built %s)", i.Version, i.CommitHash, i.BuildTime)
	}
	return fmt.Sprintf("obscura dev (commit %s, built %s)", i.CommitHash, i.BuildTime)
}

// Short abbreviates the commit hash for compact displays.
func (i Info) Short() string {
	if len(i.CommitHash) >= 7 {
		return i.CommitHash[:7]
	}
	return i.CommitHash
}
