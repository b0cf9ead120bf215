// Package buildinfo reports the running binary's version and provenance,
// using runtime/debug.ReadBuildInfo to recover VCS metadata embedded at
// build time.
package buildinfo

import (
	"fmt"
	"runtime/debug"
	"strconv"
)

// Version is set at build time via -ldflags "-X 'github.com/northfork-instruments/logicap/internal/buildinfo.Version=X'".
var Version string

func settingOrDefault(bi *debug.BuildInfo, key, def string) string {
	for _, bs := range bi.Settings {
		if bs.Key == key {
			return bs.Value
		}
	}

	return def
}

// String renders a one-line version banner: "logicap <version> (revision <rev>, built at <time>)".
// Suitable for a --version flag on any of the cmd/ binaries.
func String() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "logicap (unknown build)"
	}

	buildTime := settingOrDefault(bi, "vcs.time", "unknown")
	commit := settingOrDefault(bi, "vcs.revision", "unknown")
	dirtyStr := settingOrDefault(bi, "vcs.modified", "false")

	if dirty, err := strconv.ParseBool(dirtyStr); err == nil && dirty {
		commit += "-dirty"
	}

	version := Version
	if version == "" {
		version = "dev"
	}

	return fmt.Sprintf("logicap %s (revision %s, built at %s)", version, commit, buildTime)
}
