package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashAPIToken hashes a locally-issued API token for storage in config, so
// the token itself never sits on disk in cleartext.
func HashAPIToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash api token: %w", err)
	}
	return string(hash), nil
}

// VerifyAPIToken reports whether token matches the stored bcrypt hash.
func VerifyAPIToken(token, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil
}
