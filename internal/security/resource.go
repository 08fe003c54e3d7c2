package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

func Sign(secret string, parts ...string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join(parts, ":")))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Seal encodes value with an HMAC suffix so it can round-trip through a client.
func Seal(secret string, value string) string {
	encoded := base64.RawURLEncoding.EncodeToString([]byte(value))
	return encoded + "." + Sign(secret, encoded)
}

func Open(secret string, sealed string) (string, bool) {
	encoded, sig, ok := strings.Cut(sealed, ".")
	if !ok {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(Sign(secret, encoded))) {
		return "", false
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", false
	}
	return string(raw), true
}
