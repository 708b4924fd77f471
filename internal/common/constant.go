package common

const (
	// ServerCredentialHeader carries the broker-to-KDC shared secret.
	ServerCredentialHeader = "X-KDC-API-Key"

	// AuthorizationHeader carries "Bearer <session token>" on client requests.
	AuthorizationHeader = "Authorization"

	// BearerPrefix precedes the raw session token in AuthorizationHeader.
	BearerPrefix = "Bearer "

	// RequestIDHeader is echoed back by both services for log correlation.
	RequestIDHeader = "X-Request-ID"
)
