package jwt

import (
	"crypto/subtle"
	"errors"
)

// MinSecretLength is the shortest accepted HMAC-SHA-256 secret in bytes.
const MinSecretLength = 32

// ErrWeakSecret is returned by NewSigningKey for secrets shorter than MinSecretLength.
var ErrWeakSecret = errors.New("signing secret must be at least 32 bytes")

// SigningKey is the process-wide HMAC secret.
//
// A SigningKey is built once at startup and never mutated afterwards, so it can be shared
// by value across goroutines without synchronization.
type SigningKey struct {
	secret []byte
}

// NewSigningKey copies secret into a new SigningKey.
func NewSigningKey(secret []byte) (SigningKey, error) {
	if len(secret) < MinSecretLength {
		return SigningKey{}, ErrWeakSecret
	}
	buf := make([]byte, len(secret))
	copy(buf, secret)
	return SigningKey{secret: buf}, nil
}

// IsZero reports whether the key was never initialized.
func (k SigningKey) IsZero() bool {
	return len(k.secret) == 0
}

// Equal compares two keys in constant time.
func (k SigningKey) Equal(other SigningKey) bool {
	return subtle.ConstantTimeCompare(k.secret, other.secret) == 1
}

// String redacts the key material.
func (k SigningKey) String() string {
	return "jwt.SigningKey(redacted)"
}

// GoString redacts the key material for %#v.
func (k SigningKey) GoString() string {
	return k.String()
}
