// Package version exposes build metadata for the CLI's --version output.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is the application version, set via ldflags.
	Version string
	// BuildDate is when the binary was built, set via ldflags.
	BuildDate string

	// Revision is the git commit revision.
	Revision = getRevision()
	// GoVersion is the Go version used to build.
	GoVersion = runtime.Version()
)

// Print renders a one-line version string for the given program name.
func Print(name string) string {
	v := Version
	if v == "" {
		v = "devel"
	}

	out := fmt.Sprintf("%s %s (%s, %s/%s)", name, v, GoVersion, runtime.GOOS, runtime.GOARCH)

	if Revision != "unknown" {
		out += " " + Revision
	}

	if BuildDate != "" {
		out += " built " + BuildDate
	}

	return out
}

func getRevision() string {
	rev := "unknown"

	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return rev
	}

	modified := false

	for _, v := range buildInfo.Settings {
		switch v.Key {
		case "vcs.revision":
			rev = v.Value
		case "vcs.modified":
			if v.Value == "true" {
				modified = true
			}
		}
	}

	if modified {
		return rev + "-dirty"
	}

	return rev
}
