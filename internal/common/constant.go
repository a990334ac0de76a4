package common

const (
	// AuthorizationHeaderName carries the bearer session token.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the token inside the Authorization header.
	BearerPrefix = "Bearer "

	// AdminTokenHeaderName carries the operator token for admin endpoints.
	AdminTokenHeaderName = "X-Admin-Token"

	// APIKeyPrefix marks API keys issued to accounts.
	APIKeyPrefix = "a2j_"

	// Version is reported by the health endpoints.
	Version = "0.1.0"
)
