package buildconfig

import "runtime/debug"

// Set with -ldflags "-X github.com/fleema/fleetcore/internal/buildconfig.version=v1.2.3 ...".
var (
	version = "dev"
	commit  = ""
	builtAt = ""
)

// Info is the build metadata reported by /health.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	BuiltAt string `json:"built_at,omitempty"`
}

func Version() string {
	return version
}

// Commit falls back to the VCS revision stamped by the Go toolchain when
// no ldflags value was given.
func Commit() string {
	if commit != "" {
		return commit
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}

func Current() Info {
	return Info{Version: Version(), Commit: Commit(), BuiltAt: builtAt}
}
