package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const DefaultTokenBytes = 32

// GenerateToken returns a URL-safe random string carrying length bytes of entropy.
func GenerateToken(length int) (string, error) {
	if length < 16 {
		length = DefaultTokenBytes
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateSessionToken returns a cookie handle and the hash stored server side.
func GenerateSessionToken() (string, []byte, error) {
	token, err := GenerateToken(DefaultTokenBytes)
	if err != nil {
		return "", nil, err
	}
	return token, HashToken(token), nil
}

func HashToken(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}
