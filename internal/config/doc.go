// Package config provides centralized configuration management for the
// Lingobar licensing agent.
//
// # Configuration Sources
//
// Configuration is assembled in order of increasing precedence:
//
//  1. Default values (Default)
//  2. YAML file: $LINGOBAR_CONFIG, ./lingobar.yaml, or <data dir>/config.yaml
//  3. Environment variables
//
// # Environment Variables
//
// Variables follow the pattern LINGOBAR_<SECTION>_<FIELD>:
//
//	LINGOBAR_LICENSE_ACTIVATION_URL=https://api.lemonsqueezy.com/v1/licenses/activate
//	LINGOBAR_LICENSE_TIMEOUT=15s
//	LINGOBAR_STORE_BACKEND=keyring
//	LINGOBAR_SERVER_ADDR=127.0.0.1:47615
//	LINGOBAR_LOGGING_LEVEL=debug
//
// # Release Builds
//
// The trial length and the keystore bundle are compiled in. Load resets them
// after reading the file and environment, and rejects the memory backend.
// Binaries built with -tags debug honour all three overrides
// (LINGOBAR_TRIAL_LENGTH_DAYS, LINGOBAR_STORE_BUNDLE, LINGOBAR_STORE_BACKEND=memory).
//
// # Validation
//
// Load rejects a non-positive trial length, a malformed activation URL, an
// activation timeout outside (0, 2m], an unknown store backend, and any server
// address that is not loopback.
package config
