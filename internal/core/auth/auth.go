// Package auth provides HMAC-based API key authentication for the gRPC service.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/solatis/smartlist/internal/types"
)

// contextKey is a typed key for context values to avoid collisions.
type contextKey string

// labelKey is the context key for the authenticated key's label.
const labelKey = contextKey("api_key_label")

// errDatabase marks storage failures so the interceptor can report Unavailable.
var errDatabase = errors.New("database error")

// Queries interface defines database operations needed for authentication.
// Implemented by *db.Queries.
type Queries interface {
	Get(name string, dest interface{}, args ...interface{}) error
	Select(name string, dest interface{}, args ...interface{}) error
	Exec(name string, args ...interface{}) (sql.Result, error)
}

// Authenticator validates API keys using HMAC-SHA256 signatures.
// Only the signature of a key is stored, so a leaked database does not leak keys.
type Authenticator struct {
	secrets map[string][]byte
	signing string
	queries Queries
	now     func() time.Time
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithSigningSecret selects the secret CreateKey signs new keys with.
func WithSigningSecret(secretID string) Option {
	return func(a *Authenticator) { a.signing = secretID }
}

// NewAuthenticator creates an authenticator with HMAC secrets and query interface.
func NewAuthenticator(secrets map[string][]byte, queries Queries, opts ...Option) *Authenticator {
	a := &Authenticator{
		secrets: secrets,
		queries: queries,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authenticate validates an API key and returns its label on success.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey string) (string, error) {
	secretID, _, err := ParseAPIKey(apiKey)
	if err != nil {
		return "", err
	}

	secret, ok := a.secrets[secretID]
	if !ok {
		return "", ErrUnknownKey
	}

	computedHash := ComputeHMAC(secret, apiKey)

	var result struct {
		APIKeyID   string       `db:"api_key_id"`
		Label      string       `db:"label"`
		LastUsedAt sql.NullTime `db:"last_used_at"`
		RevokedAt  sql.NullTime `db:"revoked_at"`
	}

	err = a.queries.Get("get-api-key-by-hash", &result, computedHash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidKey
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", errDatabase, err)
	}

	if result.RevokedAt.Valid {
		return "", ErrKeyRevoked
	}

	// At most one last_used_at write per key per minute
	if a.shouldUpdateLastUsed(result.LastUsedAt) {
		_, _ = a.queries.Exec("update-last-used", a.now().UTC(), result.APIKeyID)
	}

	return result.Label, nil
}

func (a *Authenticator) shouldUpdateLastUsed(lastUsed sql.NullTime) bool {
	if !lastUsed.Valid {
		return true
	}
	return a.now().Sub(lastUsed.Time) > time.Minute
}

// UnaryInterceptor returns gRPC interceptor that authenticates requests.
func (a *Authenticator) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		apiKeys := md.Get("x-api-key")
		if len(apiKeys) == 0 {
			return nil, status.Error(codes.Unauthenticated, ErrMissingKey.Error())
		}

		label, err := a.Authenticate(ctx, apiKeys[0])
		if err != nil {
			switch {
			case errors.Is(err, ErrKeyRevoked):
				return nil, status.Error(codes.PermissionDenied, err.Error())
			case errors.Is(err, errDatabase):
				return nil, status.Error(codes.Unavailable, err.Error())
			default:
				return nil, status.Error(codes.Unauthenticated, err.Error())
			}
		}

		ctx = context.WithValue(ctx, labelKey, label)
		return handler(ctx, req)
	}
}

// LabelFromContext extracts the authenticated key label from context.
// Returns empty string if not found.
func LabelFromContext(ctx context.Context) string {
	if label, ok := ctx.Value(labelKey).(string); ok {
		return label
	}
	return ""
}

// KeyInfo describes a stored API key. The key itself is never stored.
type KeyInfo struct {
	ID         string       `db:"api_key_id"`
	Label      string       `db:"label"`
	CreatedAt  time.Time    `db:"created_at"`
	LastUsedAt sql.NullTime `db:"last_used_at"`
	RevokedAt  sql.NullTime `db:"revoked_at"`
}

// CreateKey issues a new key signed with the signing secret and returns the
// key id and the plaintext key. The plaintext is shown once. Without
// WithSigningSecret the only configured secret is used.
func (a *Authenticator) CreateKey(label string) (id, key string, err error) {
	secretID, err := a.signingSecret()
	if err != nil {
		return "", "", err
	}

	key, err = GenerateAPIKey(secretID)
	if err != nil {
		return "", "", err
	}
	id = string(types.NewUID())
	hash := ComputeHMAC(a.secrets[secretID], key)
	if _, err := a.queries.Exec("insert-api-key", id, label, hash, a.now().UTC()); err != nil {
		return "", "", fmt.Errorf("%w: %v", errDatabase, err)
	}
	return id, key, nil
}

func (a *Authenticator) signingSecret() (string, error) {
	if a.signing != "" {
		if _, ok := a.secrets[a.signing]; !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownKey, a.signing)
		}
		return a.signing, nil
	}
	switch len(a.secrets) {
	case 0:
		return "", ErrUnknownKey
	case 1:
		for sid := range a.secrets {
			return sid, nil
		}
	}
	return "", ErrNoSigningSecret
}

// ListKeys returns all keys, oldest first.
func (a *Authenticator) ListKeys() ([]KeyInfo, error) {
	var keys []KeyInfo
	if err := a.queries.Select("list-api-keys", &keys); err != nil {
		return nil, fmt.Errorf("%w: %v", errDatabase, err)
	}
	return keys, nil
}

// RevokeKey blocks a key. Revoking an unknown or revoked key returns ErrKeyNotFound.
func (a *Authenticator) RevokeKey(id string) error {
	res, err := a.queries.Exec("revoke-api-key", a.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("%w: %v", errDatabase, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrKeyNotFound
	}
	return nil
}
