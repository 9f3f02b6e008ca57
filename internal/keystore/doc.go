// Package keystore persists small secrets under a (namespace, key) pair.
//
// Three backends implement Store:
//
//	KeyringStore  OS credential store via go-keyring (macOS Keychain, Secret Service, Windows Credential Manager)
//	FileStore     single AES-256-GCM sealed file for headless machines
//	MemoryStore   process-local map for tests
//
// Set is an upsert, Delete is idempotent, and Get reports a missing entry
// with ErrNotFound. Backend failures wrap ErrUnavailable.
package keystore
