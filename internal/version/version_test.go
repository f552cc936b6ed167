package version

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func stamp(t *testing.T, v, commit, built string) {
	t.Helper()
	oldV, oldC, oldB := Version, GitCommit, BuildTime
	Version, GitCommit, BuildTime = v, commit, built
	t.Cleanup(func() { Version, GitCommit, BuildTime = oldV, oldC, oldB })
}

func TestGetShortVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		commit  string
		want    string
	}{
		{"release with commit", "v1.2.0", "abcdef1234567", "v1.2.0 (abcdef1)"},
		{"dev with commit", "dev", "abcdef1234567", "dev-abcdef1"},
		{"short commit ignored", "v1.2.0", "abc", "v1.2.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stamp(t, tt.version, tt.commit, "unknown")
			assert.Equal(t, tt.want, GetShortVersion())
		})
	}
}

func TestGetBuildInfo(t *testing.T) {
	stamp(t, "v0.3.0", "0123456789abcdef", "2026-01-02T03:04:05Z")
	info := GetBuildInfo()
	assert.Equal(t, "v0.3.0", info.Version)
	assert.Equal(t, "0123456789abcdef", info.GitCommit)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), info.BuildTime.UTC())
	assert.Contains(t, info.Platform, "/")
	assert.True(t, IsRelease())
}

func TestGetDetailedVersion(t *testing.T) {
	stamp(t, "v0.3.0", "0123456789abcdef", "unknown")
	out := GetDetailedVersion()
	assert.True(t, strings.HasPrefix(out, "Version: v0.3.0\nCommit: 0123456789abcdef"))
	assert.NotContains(t, out, "Built:")
	assert.Contains(t, out, "Go: go")
}

func TestParseBuildTime(t *testing.T) {
	assert.True(t, parseBuildTime("unknown").IsZero())
	assert.True(t, parseBuildTime("yesterday").IsZero())
	assert.Equal(t, 2026, parseBuildTime("2026-03-04 05:06:07").Year())
	assert.Equal(t, 7, parseBuildTime("2026-03-04T05:06:07").Second())
}
