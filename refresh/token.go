package refresh

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// TokenBytes is the entropy of a raw refresh token.
const TokenBytes = 64

var tokenEncodedLen = base64.RawURLEncoding.EncodedLen(TokenBytes)

func newRawToken() (string, error) {
	var buf [TokenBytes]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf[:]), nil
}

// HashToken returns the lowercase hex SHA-256 digest used as the storage key.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// wellFormed rejects values that could never have been issued, so junk
// cookies are answered without a Redis round trip.
func wellFormed(raw string) bool {
	if len(raw) != tokenEncodedLen {
		return false
	}
	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	return err == nil && len(decoded) == TokenBytes
}
