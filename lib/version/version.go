// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// These variables are set via -ldflags at build time, for example:
//
//	go build -ldflags "-X github.com/bureau-foundation/brokerview/lib/version.GitCommit=$(git rev-parse --short HEAD)"
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

const kafkaModule = "github.com/twmb/franz-go"

// build is what the toolchain stamped into the binary.
type build struct {
	commit    string
	dirty     bool
	time      string
	kafkaPath string
}

var readBuild = sync.OnceValue(func() build {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return build{}
	}
	return fromBuildInfo(info)
})

func fromBuildInfo(info *debug.BuildInfo) build {
	var stamped build
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			stamped.commit = setting.Value
			if len(stamped.commit) > 7 {
				stamped.commit = stamped.commit[:7]
			}
		case "vcs.modified":
			stamped.dirty = setting.Value == "true"
		case "vcs.time":
			stamped.time = setting.Value
		}
	}
	for _, dependency := range info.Deps {
		if dependency.Path == kafkaModule {
			stamped.kafkaPath = dependency.Version
		}
	}
	return stamped
}

// commitAndTime prefers ldflags values and falls back to the VCS stamp.
func commitAndTime(stamped build) (commit string, dirty bool, buildTime string) {
	commit, dirty, buildTime = GitCommit, GitDirty == "true", BuildTime
	if commit == "unknown" && stamped.commit != "" {
		commit, dirty = stamped.commit, stamped.dirty
	}
	if buildTime == "unknown" && stamped.time != "" {
		buildTime = stamped.time
	}
	return commit, dirty, buildTime
}

// Info returns a formatted version string suitable for --version output.
func Info() string {
	return info(readBuild())
}

func info(stamped build) string {
	commit, dirty, buildTime := commitAndTime(stamped)
	suffix := ""
	if dirty {
		suffix = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, commit, suffix, buildTime)
}

// Full returns detailed version information including the Go version
// and the Kafka client library version.
func Full() string {
	stamped := readBuild()
	kafka := stamped.kafkaPath
	if kafka == "" {
		kafka = "unknown"
	}
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s\n  franz-go: %s",
		info(stamped), runtime.Version(), runtime.GOOS, runtime.GOARCH, kafka)
}

// Short returns just the version number.
func Short() string {
	return Version
}
