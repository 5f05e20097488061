// Package version reports build information set through ldflags:
//
//	go build -ldflags "-X github.com/YuminosukeSato/scorecast/internal/version.Version=v0.3.0"
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

const (
	unknownValue     = "unknown"
	commitHashLength = 7
)

// Build-time variables set by ldflags
var (
	Version   = "dev"
	BuildDate = unknownValue
	GitCommit = unknownValue
	GoVersion = runtime.Version()
)

// BuildInfo contains build information for the version subcommand and the
// health endpoint.
type BuildInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
	Dirty     bool   `json:"dirty"`
	Module    string `json:"module"`
}

// Info returns the build information. When ldflags did not set the commit,
// the VCS settings embedded by the go command are used instead.
func Info() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: GoVersion,
		Dirty:     strings.Contains(GitCommit, "-dirty"),
	}

	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		info.Module = buildInfo.Main.Path
		for _, setting := range buildInfo.Settings {
			switch setting.Key {
			case "vcs.revision":
				if info.GitCommit == unknownValue {
					info.GitCommit = setting.Value
				}
			case "vcs.modified":
				if setting.Value == "true" {
					info.Dirty = true
				}
			}
		}
	}
	return info
}

// String returns a formatted version string
func (b BuildInfo) String() string {
	var sb strings.Builder
	sb.WriteString("scorecast\n")
	sb.WriteString(fmt.Sprintf("Version: %s", b.Version))
	if b.Dirty {
		sb.WriteString(" (dirty)")
	}
	sb.WriteString("\n")

	if b.BuildDate != unknownValue && b.BuildDate != "" {
		sb.WriteString(fmt.Sprintf("Build Date: %s\n", b.BuildDate))
	}
	if b.GitCommit != unknownValue && b.GitCommit != "" {
		commit := b.GitCommit
		if len(commit) > commitHashLength {
			commit = commit[:commitHashLength]
		}
		sb.WriteString(fmt.Sprintf("Git Commit: %s\n", commit))
	}
	sb.WriteString(fmt.Sprintf("Go Version: %s\n", b.GoVersion))
	return sb.String()
}

// IsRelease returns true if this is a release version (not dev)
func IsRelease() bool {
	return Version != "dev" && !strings.Contains(Version, "-")
}
