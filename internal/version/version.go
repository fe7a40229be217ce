package version

import (
	"fmt"
	"runtime/debug"
)

// Set via -ldflags "-X github.com/ludo-technologies/connscan/internal/version.Version=..."
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
	BuiltBy = "source"
)

// Info describes the running binary
type Info struct {
	Version string
	Commit  string
	Date    string
	BuiltBy string
}

// Get returns the build metadata. Binaries built with go install carry no
// ldflags, so the module version and VCS stamp fill the gaps.
func Get() Info {
	info := Info{Version: Version, Commit: Commit, Date: Date, BuiltBy: BuiltBy}
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Version != "dev" {
		return info
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if v := bi.Main.Version; v != "" && v != "(devel)" {
		info.Version = v
		info.BuiltBy = "go install"
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "unknown" && len(s.Value) >= 7 {
				info.Commit = s.Value[:7]
			}
		case "vcs.time":
			if info.Date == "unknown" {
				info.Date = s.Value
			}
		}
	}
	return info
}

func (i Info) String() string {
	return i.Version
}

// Full renders every field on one line
func (i Info) Full() string {
	return fmt.Sprintf("%s (commit: %s, built: %s, by: %s)", i.Version, i.Commit, i.Date, i.BuiltBy)
}
