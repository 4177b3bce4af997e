package service

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

const (
	tokenPrefix    = "sk_"
	tokenRandBytes = 24
	// lookupPrefixLen is how many leading characters of the plaintext token
	// are stored as the index key. Short enough to be useless for recovery,
	// long enough to make prefix collisions irrelevant.
	lookupPrefixLen = 12
)

// NewSecret generates a probe secret. The plaintext is handed to the caller
// exactly once; only HashToken and TokenLookupPrefix of it are ever stored.
func NewSecret() (string, error) {
	buf := make([]byte, tokenRandBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate probe secret: %w", err)
	}
	return tokenPrefix + hex.EncodeToString(buf), nil
}

// HashToken is the irreversible form a secret is stored in.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// TokenLookupPrefix is the short index key derived from a secret.
func TokenLookupPrefix(token string) string {
	if len(token) < lookupPrefixLen {
		return token
	}
	return token[:lookupPrefixLen]
}

// VerifyToken compares the hash of a presented token against the stored hash
// in constant time.
func VerifyToken(token, storedHash string) bool {
	presented := HashToken(token)
	return subtle.ConstantTimeCompare([]byte(presented), []byte(storedHash)) == 1
}
