package auth

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/solatis/smartlist/internal/core/db"
)

const testSecretID = "0123456789abcdef0123456789abcdef"

var testSecret = []byte("0123456789abcdef0123456789abcdef-secret")

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	return NewAuthenticator(map[string][]byte{testSecretID: testSecret}, testQueries(t))
}

func testQueries(t *testing.T) *db.Queries {
	t.Helper()
	conn, err := db.Open("sqlite://" + filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.MigrateUp(conn))
	q, err := db.LoadQueries(conn)
	require.NoError(t, err)
	return q
}

func TestCreateKey_SigningSecret(t *testing.T) {
	const rotatedID = "00000000000000000000000000000001"
	secrets := map[string][]byte{
		testSecretID: testSecret,
		rotatedID:    []byte("rotated-secret-rotated-secret-rotated"),
	}
	q := testQueries(t)

	// The rotated id sorts first; selection must not depend on id order
	a := NewAuthenticator(secrets, q, WithSigningSecret(rotatedID))
	_, key, err := a.CreateKey("rotated")
	require.NoError(t, err)
	secretID, _, err := ParseAPIKey(key)
	require.NoError(t, err)
	assert.Equal(t, rotatedID, secretID)
	label, err := a.Authenticate(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "rotated", label)

	_, _, err = NewAuthenticator(secrets, q).CreateKey("ambiguous")
	assert.ErrorIs(t, err, ErrNoSigningSecret)

	_, _, err = NewAuthenticator(secrets, q, WithSigningSecret("ffffffffffffffffffffffffffffffff")).CreateKey("missing")
	assert.ErrorIs(t, err, ErrUnknownKey)

	_, _, err = NewAuthenticator(nil, q).CreateKey("none")
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestParseAPIKey(t *testing.T) {
	valid := FormatAPIKey(testSecretID, strings.Repeat("ab", 32))
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid", valid, false},
		{"wrong prefix", strings.Replace(valid, "sl-", "tk-", 1), true},
		{"wrong version", strings.Replace(valid, "-v1-", "-v2-", 1), true},
		{"uppercase hex", FormatAPIKey(testSecretID, strings.Repeat("AB", 32)), true},
		{"short random", FormatAPIKey(testSecretID, "abcd"), true},
		{"extra part", valid + "-x", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sid, _, err := ParseAPIKey(tt.key)
			if tt.wantErr {
				if err != ErrInvalidKeyFormat {
					t.Fatalf("ParseAPIKey() error = %v, want ErrInvalidKeyFormat", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAPIKey() error = %v, want nil", err)
			}
			if sid != testSecretID {
				t.Errorf("secret_id = %s, want %s", sid, testSecretID)
			}
		})
	}
}

func TestGenerateAPIKey(t *testing.T) {
	k1, err := GenerateAPIKey(testSecretID)
	require.NoError(t, err)
	k2, err := GenerateAPIKey(testSecretID)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)

	_, _, err = ParseAPIKey(k1)
	assert.NoError(t, err)
}

func TestComputeHMAC(t *testing.T) {
	a := ComputeHMAC(testSecret, "key")
	assert.Len(t, a, 32)
	assert.Equal(t, a, ComputeHMAC(testSecret, "key"))
	assert.NotEqual(t, a, ComputeHMAC([]byte("other"), "key"))
}

func TestAuthenticate(t *testing.T) {
	a := newTestAuthenticator(t)
	ctx := context.Background()

	id, key, err := a.CreateKey("kiosk")
	require.NoError(t, err)

	label, err := a.Authenticate(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "kiosk", label)

	unknownSecret := FormatAPIKey("fedcba9876543210fedcba9876543210", strings.Repeat("0", 64))
	_, err = a.Authenticate(ctx, unknownSecret)
	assert.ErrorIs(t, err, ErrUnknownKey)

	forged := FormatAPIKey(testSecretID, strings.Repeat("0", 64))
	_, err = a.Authenticate(ctx, forged)
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = a.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidKeyFormat)

	require.NoError(t, a.RevokeKey(id))
	_, err = a.Authenticate(ctx, key)
	assert.ErrorIs(t, err, ErrKeyRevoked)

	assert.ErrorIs(t, a.RevokeKey(id), ErrKeyNotFound)
}

func TestListKeys(t *testing.T) {
	a := newTestAuthenticator(t)
	ctx := context.Background()

	_, key, err := a.CreateKey("first")
	require.NoError(t, err)
	_, err = a.Authenticate(ctx, key)
	require.NoError(t, err)

	keys, err := a.ListKeys()
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "first", keys[0].Label)
	assert.True(t, keys[0].LastUsedAt.Valid, "authentication records last use")
	assert.False(t, keys[0].RevokedAt.Valid)
	assert.False(t, keys[0].CreatedAt.IsZero())
}

func TestShouldUpdateLastUsed(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := &Authenticator{now: func() time.Time { return now }}

	tests := []struct {
		name string
		last time.Time
		want bool
	}{
		{"never used", time.Time{}, true},
		{"recent", now.Add(-30 * time.Second), false},
		{"stale", now.Add(-2 * time.Minute), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.shouldUpdateLastUsed(nullTime(tt.last)); got != tt.want {
				t.Errorf("shouldUpdateLastUsed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnaryInterceptor(t *testing.T) {
	a := newTestAuthenticator(t)
	id, key, err := a.CreateKey("player")
	require.NoError(t, err)

	var seenLabel string
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		seenLabel = LabelFromContext(ctx)
		return "ok", nil
	}
	intercept := a.UnaryInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/smartlist.v1.SmartPlaylists/ListPlaylists"}

	call := func(md metadata.MD) error {
		ctx := context.Background()
		if md != nil {
			ctx = metadata.NewIncomingContext(ctx, md)
		}
		_, err := intercept(ctx, nil, info, handler)
		return err
	}

	assert.Equal(t, codes.Unauthenticated, status.Code(call(nil)))
	assert.Equal(t, codes.Unauthenticated, status.Code(call(metadata.Pairs())))
	assert.Equal(t, codes.Unauthenticated, status.Code(call(metadata.Pairs("x-api-key", "nope"))))

	require.NoError(t, call(metadata.Pairs("x-api-key", key)))
	assert.Equal(t, "player", seenLabel)

	require.NoError(t, a.RevokeKey(id))
	assert.Equal(t, codes.PermissionDenied, status.Code(call(metadata.Pairs("x-api-key", key))))
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
