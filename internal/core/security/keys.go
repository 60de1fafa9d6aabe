package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// GenerateAPIKey creates a runner API key and the SHA256 hash we store.
// The real key is shown to the runner exactly once; only the hash ever
// touches the database.
func GenerateAPIKey() (string, string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	realKey := fmt.Sprintf("bj_live_%s", hex.EncodeToString(bytes))

	hash := sha256.Sum256([]byte(realKey))
	keyHash := hex.EncodeToString(hash[:])

	return realKey, keyHash, nil
}

// ValidateKey checks a presented key against a stored hash in constant
// time.
func ValidateKey(providedKey, storedHash string) bool {
	hash := sha256.Sum256([]byte(providedKey))
	computed := hex.EncodeToString(hash[:])
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
