package common

// Error codes carried in the "code" field of JSON error bodies. Clients
// match them back to the sentinels in errors.go.
const (
	CodeValidation          = "validation_error"
	CodeConflict            = "conflict"
	CodeInvalidCode         = "invalid_code"
	CodeCodeExpired         = "code_expired"
	CodeCredentialInvalid   = "credential_invalid"
	CodeCredentialExpired   = "credential_expired"
	CodeInvalidCredentials  = "invalid_credentials"
	CodeForbidden           = "forbidden"
	CodeNotFound            = "not_found"
	CodeEngine              = "engine_error"
	CodeUpstreamUnavailable = "upstream_unavailable"
	CodeInternal            = "internal_error"
)
