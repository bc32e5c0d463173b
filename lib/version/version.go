// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/bureau-foundation/slug/lib/slug"
)

// These variables are set via -ldflags at build time.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty indicates whether there were uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version. This is set manually for releases.
	Version = "0.1.0-dev"
)

type buildStamp struct {
	commit string
	dirty  bool
	time   string
}

var stamp = sync.OnceValue(func() buildStamp {
	result := buildStamp{commit: GitCommit, dirty: GitDirty == "true", time: BuildTime}
	if result.commit != "unknown" {
		return result
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return result
	}
	return fromSettings(result, info.Settings)
})

// fromSettings fills unset fields of base from the toolchain's vcs.*
// build settings.
func fromSettings(base buildStamp, settings []debug.BuildSetting) buildStamp {
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			base.commit = setting.Value
			if len(base.commit) > 12 {
				base.commit = base.commit[:12]
			}
		case "vcs.modified":
			base.dirty = setting.Value == "true"
		case "vcs.time":
			if base.time == "unknown" {
				base.time = setting.Value
			}
		}
	}
	return base
}

// Info returns a formatted version string suitable for --version output.
func Info() string {
	current := stamp()
	dirty := ""
	if current.dirty {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, current.commit, dirty, current.time)
}

// Full returns detailed version information including Go version and
// the slug format this binary writes.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s\n  Slug format: v%d",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH, slug.CurrentVersion)
}
