// Package shared holds helpers used by more than one package. The testutil
// subpackage provides a capturing slog handler and a settable clock for
// tests; it depends on the standard library only so any package may import
// it from its tests.
package shared
