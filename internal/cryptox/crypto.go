// Package cryptox hashes account passwords with Argon2id.
package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	saltSize = 16
	keySize  = 32
)

// DeriveKey stretches password with salt. Equal inputs give equal keys.
func DeriveKey(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, keySize)
}

// PasswordHash is a salted Argon2id digest of a password.
type PasswordHash struct {
	Salt []byte
	Key  []byte
}

// HashPassword derives a hash of password under a fresh random salt.
func HashPassword(password string) (PasswordHash, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return PasswordHash{}, fmt.Errorf("generate salt: %w", err)
	}
	return PasswordHash{Salt: salt, Key: DeriveKey([]byte(password), salt)}, nil
}

// Verify reports whether password produces h. The comparison is constant
// time.
func (h PasswordHash) Verify(password string) bool {
	if len(h.Salt) == 0 || len(h.Key) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(DeriveKey([]byte(password), h.Salt), h.Key) == 1
}
