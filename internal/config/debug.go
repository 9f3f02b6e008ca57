//go:build debug

package config

const DebugBuild = true

// pinBuildSettings keeps file and environment overrides in debug builds.
func (c *Config) pinBuildSettings() {}
