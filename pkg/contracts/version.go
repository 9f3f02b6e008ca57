package contracts

import (
	"fmt"
	"runtime"
)

const (
	// Version is the current version of the agent
	Version = "1.4.0"

	// APIVersion is the version of the local agent API
	APIVersion = "v1"
)

var (
	// BuildTime is set during build using ldflags
	BuildTime = "unknown"

	// GitCommit is set during build using ldflags
	GitCommit = "unknown"
)

// VersionInfo contains detailed version information
type VersionInfo struct {
	Version      string `json:"version"`
	BuildTime    string `json:"build_time"`
	GitCommit    string `json:"git_commit"`
	GoVersion    string `json:"go_version"`
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
	APIVersion   string `json:"api_version"`
}

// GetVersionInfo returns detailed version information
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:      Version,
		BuildTime:    BuildTime,
		GitCommit:    GitCommit,
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		APIVersion:   APIVersion,
	}
}

// GetFullVersionString returns a one-line version description
func GetFullVersionString() string {
	info := GetVersionInfo()
	return fmt.Sprintf("lingobar %s (built: %s, commit: %s, go: %s, os: %s/%s)",
		info.Version, info.BuildTime, info.GitCommit, info.GoVersion, info.OS, info.Architecture)
}
