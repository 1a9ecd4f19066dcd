// Package password hashes account passwords with bcrypt.
// Every hash carries its own random salt, so equal passwords produce different hashes.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrTooLong is returned for passwords longer than the 72 bytes bcrypt accepts.
var ErrTooLong = bcrypt.ErrPasswordTooLong

// Cost is the bcrypt work factor used for new hashes.
var Cost = bcrypt.DefaultCost

func Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Check reports whether plain matches hash. Malformed hashes never match.
func Check(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// Dummy returns a valid hash of a random-looking constant.
// Comparing against it costs the same as a real check, for lookups that found no account.
func Dummy() string {
	return dummyHash
}

var dummyHash = mustHash("unistuhelper-dummy-password")

func mustHash(plain string) string {
	h, err := Hash(plain)
	if err != nil {
		panic(err)
	}
	return h
}
