// Package http implements the loopback HTTP API of the lingobar agent.
//
// Handlers are thin: they decode and validate requests, call a service, and
// render either JSON or an RFC 7807 problem through apperrors.ErrorHandler.
//
//	GET    /api/license/status      trial or license state
//	POST   /api/license/usage       record app usage
//	POST   /api/license/activate    activate a license key
//	DELETE /api/license             remove the stored license
//	GET    /api/license/instance    per-install instance identifier
//	GET    /api/secrets             which API keys are configured
//	PUT    /api/secrets/{provider}  store an API key
//	DELETE /api/secrets/{provider}  remove an API key
//
// Request bodies are validated with go-playground/validator using the
// struct tags on the types in pkg/contracts/domain.
package http
