// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
)

// Set via -ldflags, for example:
//
//	go build -ldflags "-X github.com/wardenhq/warden/lib/version.GitCommit=$(git rev-parse --short HEAD)"
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty is "true" when the tree had uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version, set manually for releases.
	Version = "0.1.0-dev"
)

// commit returns the injected commit, falling back to the embedded VCS
// stamp. The second result reports uncommitted changes.
func commit() (string, bool) {
	if GitCommit != "unknown" {
		return GitCommit, GitDirty == "true"
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return GitCommit, false
	}
	revision, dirty := GitCommit, false
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
			if len(revision) > 7 {
				revision = revision[:7]
			}
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return revision, dirty
}

// Info returns a formatted version string for the version command.
func Info() string {
	revision, dirty := commit()
	suffix := ""
	if dirty {
		suffix = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, revision, suffix, BuildTime)
}

// Full returns Info plus Go version and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Short returns just the version number.
func Short() string {
	return Version
}

// LogAttrs returns build information as slog attributes.
func LogAttrs() []any {
	revision, dirty := commit()
	return []any{
		slog.String("version", Version),
		slog.String("commit", revision),
		slog.Bool("dirty", dirty),
		slog.String("build_time", BuildTime),
		slog.String("go", runtime.Version()),
	}
}
