// Package version exposes build version information for the revisar binary.
package version

import "runtime/debug"

// Build information. Populated at build time via -ldflags, with a
// debug.ReadBuildInfo fallback for `go install` builds.
var (
	// Version is the semantic version of the binary.
	Version = "dev"
	// Commit is the git commit hash the binary was built from.
	Commit = "unknown"
	// Date is the build timestamp.
	Date = "unknown"
)

// InitBinaryVersion fills in version info from the embedded build metadata
// when -ldflags did not override the defaults.
func InitBinaryVersion() {
	if Version != "dev" {
		return
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			Commit = setting.Value
		case "vcs.time":
			Date = setting.Value
		}
	}
}
