// Package version provides build and version information.
package version

// Version is the current application version.
// Release builds override it with -ldflags "-X .../internal/version.Version=...".
var Version = "0.1.0"

// Repo is the GitHub repository releases are published to
const Repo = "litescript/ls-magnet"
