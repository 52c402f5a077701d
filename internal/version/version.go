// Package version exposes build version information.
package version

import "runtime/debug"

// Version is set via -ldflags at release build time. When unset, the
// module version from build info is used.
var Version = "dev"

// Get returns the effective version string.
func Get() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}
