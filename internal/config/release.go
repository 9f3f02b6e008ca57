//go:build !debug

package config

// DebugBuild reports whether the binary honours trial and storage overrides.
const DebugBuild = false

// pinBuildSettings restores the values compiled into release binaries. The
// trial length and keystore bundle cannot be changed from a file or the
// environment.
func (c *Config) pinBuildSettings() {
	c.Trial.LengthDays = DefaultTrialLengthDays
	c.Store.Bundle = DefaultBundleID
}
