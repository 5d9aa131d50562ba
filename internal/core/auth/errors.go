package auth

import "errors"

// Authentication errors.
// Unauthenticated for missing/invalid keys (does not confirm key existence);
// PermissionDenied for revoked keys (confirms the key exists but is blocked).
var (
	ErrMissingKey       = errors.New("API key required in x-api-key metadata")
	ErrInvalidKeyFormat = errors.New("invalid API key format")
	ErrUnknownKey       = errors.New("unknown secret ID")
	ErrInvalidKey       = errors.New("invalid API key")
	ErrKeyRevoked       = errors.New("API key has been revoked")
	ErrKeyNotFound      = errors.New("API key not found or already revoked")
	ErrNoSigningSecret  = errors.New("no signing secret selected among several HMAC secrets")
)
