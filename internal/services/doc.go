// Package services sits between the HTTP handlers and the trial manager.
//
// Handlers depend on the LicenseService and SecretsService interfaces so
// they can be tested against mocks. The implementations translate manager
// results into the wire types of pkg/contracts/domain and add request-scoped
// logging.
package services
