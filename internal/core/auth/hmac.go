package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// KeyPrefix starts every smartlist API key.
const KeyPrefix = "sl-v1"

// ParseAPIKey extracts secret_id and random_data from API key format.
// Format: sl-v1-<secret_id>-<random_data> (32 and 64 lowercase hex chars).
// Returns ErrInvalidKeyFormat if format doesn't match.
func ParseAPIKey(key string) (secretID, randomData string, err error) {
	parts := strings.Split(key, "-")
	if len(parts) != 4 || parts[0]+"-"+parts[1] != KeyPrefix {
		return "", "", ErrInvalidKeyFormat
	}

	secretID = parts[2]
	randomData = parts[3]
	if len(secretID) != 32 || len(randomData) != 64 {
		return "", "", ErrInvalidKeyFormat
	}
	for _, c := range secretID + randomData {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", "", ErrInvalidKeyFormat
		}
	}

	return secretID, randomData, nil
}

// ComputeHMAC computes HMAC-SHA256 signature of API key using secret.
func ComputeHMAC(secret []byte, apiKey string) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(apiKey))
	return h.Sum(nil)
}

// FormatAPIKey constructs API key from components.
func FormatAPIKey(secretID, randomData string) string {
	return fmt.Sprintf("%s-%s-%s", KeyPrefix, secretID, randomData)
}

// GenerateAPIKey creates a new key bound to secretID with 256 random bits.
func GenerateAPIKey(secretID string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return FormatAPIKey(secretID, hex.EncodeToString(buf)), nil
}
