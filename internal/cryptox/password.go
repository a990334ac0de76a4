// Package cryptox hashes and verifies account passwords with argon2id.
package cryptox

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/dmitrijs2005/any2json/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	scheme = "argon2id"

	saltSize = 16
	keySize  = 32

	argonTime    = 2
	argonMemory  = 19 * 1024
	argonThreads = 1
)

var ErrMalformedHash = errors.New("malformed password hash")

// DeriveKey stretches password with salt using argon2id.
func DeriveKey(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, keySize)
}

// HashPassword returns "argon2id$<salt hex>$<key hex>" for password using a
// fresh random salt.
func HashPassword(password string) string {
	salt := common.GenerateRandByteArray(saltSize)
	return encode(salt, DeriveKey([]byte(password), salt))
}

// VerifyPassword reports whether password matches the encoded hash.
// The key comparison is constant-time.
func VerifyPassword(encoded, password string) (bool, error) {
	salt, key, err := decode(encoded)
	if err != nil {
		return false, err
	}
	candidate := DeriveKey([]byte(password), salt)
	defer common.WipeByteArray(candidate)

	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

func encode(salt, key []byte) string {
	return scheme + "$" + hex.EncodeToString(salt) + "$" + hex.EncodeToString(key)
}

func decode(encoded string) (salt, key []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 3 || parts[0] != scheme {
		return nil, nil, ErrMalformedHash
	}
	if salt, err = hex.DecodeString(parts[1]); err != nil || len(salt) == 0 {
		return nil, nil, ErrMalformedHash
	}
	if key, err = hex.DecodeString(parts[2]); err != nil || len(key) != keySize {
		return nil, nil, ErrMalformedHash
	}
	return salt, key, nil
}
