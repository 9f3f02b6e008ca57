// Package app wires the lingobar agent together: configuration, logging,
// telemetry, the secure keystore, the trial manager and the loopback HTTP
// API.
//
// # Initialization Flow
//
//  1. Load configuration from defaults, YAML file and environment
//  2. Initialize logging and OpenTelemetry
//  3. Open the keystore backend and build the license validator
//  4. Create the trial manager and record the trial start if absent
//  5. Build services, handlers and the chi router
//
// CLI commands use New and call the trial manager directly. `lingobar serve`
// additionally calls Run, which serves until SIGINT or SIGTERM and then shuts
// down gracefully.
//
// All initialization errors are returned to the caller. The package never
// calls os.Exit.
package app
