package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	scryptN      = 16384
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 64
	saltLen      = 16
)

// ErrPasswordMismatch is returned when a password does not match its stored hash.
var ErrPasswordMismatch = errors.New("password mismatch")

// HashPassword derives an scrypt key and returns it as "hexhash.hexsalt".
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(key) + "." + hex.EncodeToString(salt), nil
}

// ComparePassword verifies a password against its stored value in constant time.
func ComparePassword(stored, plain string) error {
	hashHex, saltHex, ok := strings.Cut(stored, ".")
	if !ok {
		return ErrPasswordMismatch
	}
	want, err := hex.DecodeString(hashHex)
	if err != nil {
		return ErrPasswordMismatch
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return ErrPasswordMismatch
	}
	got, err := scrypt.Key([]byte(plain), salt, scryptN, scryptR, scryptP, len(want))
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}
