package auth

import (
	"crypto/rand"
	"encoding/base64"
)

// NewActivationToken returns an opaque single-use credential. Uniqueness is
// enforced by the UNIQUE constraint on users.activation_token; 32 random
// bytes make a collision practically unreachable within that constraint.
func NewActivationToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
