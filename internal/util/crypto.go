package util

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

const apiKeyBytes = 32

// GenerateAPIKey mints a new bearer credential. The raw key is returned to
// the server exactly once; only its hash is ever persisted.
func GenerateAPIKey() (string, error) {
	bytes := make([]byte, apiKeyBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// HashAPIKey derives the stored identity from a raw API key.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}
