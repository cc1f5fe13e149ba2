// Package crypto implements server-side hashing and verification of note passwords.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters (tuned for server-side hashing).
const (
	argonTime    uint32 = 3         // iterations
	argonMemory  uint32 = 64 * 1024 // 64 MB
	argonThreads uint8  = 1
	argonKeyLen  uint32 = 32
	saltLen             = 16
)

const scheme = "argon2id"

// ErrMalformedHash is returned when a stored hash cannot be decoded.
var ErrMalformedHash = errors.New("malformed password hash")

var b64 = base64.RawStdEncoding

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// HashPassword returns Argon2id hash of password using the provided salt.
func HashPassword(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// EncodeHash hashes password with a fresh salt and returns "argon2id$<salt>$<hash>".
func EncodeHash(password string) (string, error) {
	salt, err := RandBytes(saltLen)
	if err != nil {
		return "", err
	}
	sum := HashPassword([]byte(password), salt)
	return scheme + "$" + b64.EncodeToString(salt) + "$" + b64.EncodeToString(sum), nil
}

// Verify checks password against an encoded hash produced by EncodeHash.
func Verify(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 3 || parts[0] != scheme {
		return false, ErrMalformedHash
	}
	salt, err := b64.DecodeString(parts[1])
	if err != nil {
		return false, ErrMalformedHash
	}
	want, err := b64.DecodeString(parts[2])
	if err != nil {
		return false, ErrMalformedHash
	}
	got := HashPassword([]byte(password), salt)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
