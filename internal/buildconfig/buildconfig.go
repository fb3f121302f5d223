package buildconfig

import (
	"fmt"
	"runtime"
)

// Set with -ldflags "-X github.com/Harshitk-cp/mashaaer/internal/buildconfig.version=..."
var (
	version = "dev"
	commit  = "unknown"
)

func Version() string {
	return version
}

func Commit() string {
	return commit
}

// Info is the build metadata reported by the CLI and the server.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
}

func Current() Info {
	return Info{Version: version, Commit: commit, GoVersion: runtime.Version()}
}

func (i Info) String() string {
	return fmt.Sprintf("mashaaer %s (%s, %s)", i.Version, i.Commit, i.GoVersion)
}
