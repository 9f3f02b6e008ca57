// Package domain holds the request and response types shared by the agent
// API and its clients.
package domain

// LicenseStatusResponse is the body of GET /api/license/status
type LicenseStatusResponse struct {
	State         string `json:"state"`
	DaysRemaining int    `json:"days_remaining"`
	CanUseApp     bool   `json:"can_use_app"`
	Reason        string `json:"reason"`
	TrialLength   int    `json:"trial_length_days"`
}

// LicenseActivationRequest is the body of POST /api/license/activate
type LicenseActivationRequest struct {
	LicenseKey string `json:"license_key" validate:"required,max=256"`
}

// LicenseActivationResponse is returned on successful activation
type LicenseActivationResponse struct {
	Success bool   `json:"success"`
	State   string `json:"state"`
	TraceID string `json:"trace_id,omitempty"`
}

// InstanceResponse is the body of GET /api/license/instance
type InstanceResponse struct {
	InstanceID string `json:"instance_id"`
}

// APIKeyRequest is the body of PUT /api/secrets/{provider}
type APIKeyRequest struct {
	Value string `json:"value" validate:"required,max=512"`
}

// APIKeysResponse lists which providers have a key configured
type APIKeysResponse struct {
	Configured map[string]bool `json:"configured"`
}
