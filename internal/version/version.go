// Package version reports build information stamped with -ldflags or read
// from the Go module build info.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// Set at build time:
//
//	go build -ldflags "-X github.com/conneroisu/techviz/internal/version.Version=v1.2.0"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// BuildInfo is the build metadata shown by `techviz version`.
type BuildInfo struct {
	Version   string    `json:"version" yaml:"version"`
	GitCommit string    `json:"git_commit" yaml:"git_commit"`
	BuildTime time.Time `json:"build_time" yaml:"build_time"`
	GoVersion string    `json:"go_version" yaml:"go_version"`
	Platform  string    `json:"platform" yaml:"platform"`
	Dirty     bool      `json:"dirty" yaml:"dirty"`
}

// GetBuildInfo collects everything known about the running binary.
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   GetVersion(),
		GitCommit: GetGitCommit(),
		BuildTime: parseBuildTime(BuildTime),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Dirty:     vcsSetting("vcs.modified") == "true",
	}
}

// GetVersion returns the stamped version, the module version, or "dev".
func GetVersion() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

// GetGitCommit returns the stamped commit or the VCS revision Go recorded.
func GetGitCommit() string {
	if GitCommit != "" && GitCommit != "unknown" {
		return GitCommit
	}
	if rev := vcsSetting("vcs.revision"); rev != "" {
		return rev
	}
	return "unknown"
}

// GetShortVersion returns "v1.2.0 (abc1234)", "dev-abc1234" or "dev".
func GetShortVersion() string {
	v := GetVersion()
	commit := GetGitCommit()
	if commit == "unknown" || len(commit) < 7 {
		return v
	}
	if v == "dev" {
		return "dev-" + commit[:7]
	}
	return fmt.Sprintf("%s (%s)", v, commit[:7])
}

// GetDetailedVersion returns one "Key: value" line per known field.
func GetDetailedVersion() string {
	info := GetBuildInfo()
	lines := []string{"Version: " + info.Version}
	if info.GitCommit != "unknown" {
		commit := info.GitCommit
		if info.Dirty {
			commit += " (dirty)"
		}
		lines = append(lines, "Commit: "+commit)
	}
	if !info.BuildTime.IsZero() {
		lines = append(lines, "Built: "+info.BuildTime.Format(time.RFC3339))
	}
	lines = append(lines, "Go: "+info.GoVersion, "Platform: "+info.Platform)
	return strings.Join(lines, "\n")
}

// IsRelease reports whether a real version was stamped or recorded.
func IsRelease() bool {
	return !strings.HasPrefix(GetVersion(), "dev")
}

func vcsSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}

// parseBuildTime accepts RFC 3339 and a few looser ISO 8601 layouts. It
// returns the zero time when nothing matches.
func parseBuildTime(s string) time.Time {
	if s == "" || s == "unknown" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
