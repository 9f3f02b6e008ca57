package config

import "time"

// Application constants
const (
	AppName    = "Lingobar"
	AppVersion = "1.4.0"

	// DefaultBundleID prefixes every keystore namespace.
	DefaultBundleID = "com.lingobar.app"

	DefaultTrialLengthDays = 7

	DefaultActivationURL     = "https://api.lemonsqueezy.com/v1/licenses/activate"
	DefaultActivationTimeout = 15 * time.Second
	MaxActivationTimeout     = 2 * time.Minute

	DefaultServerAddr = "127.0.0.1:47615"
)

// Store backends
const (
	StoreBackendKeyring = "keyring"
	StoreBackendFile    = "file"
	StoreBackendMemory  = "memory"
)
