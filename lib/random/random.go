// Package random generates invite codes from crypto/rand.
package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	Alphabet   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	CodeLength = 16
)

// Code returns a random alphanumeric string of the given length.
func Code(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("code length must be positive, got %d", length)
	}
	size := big.NewInt(int64(len(Alphabet)))
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("generate random code: %w", err)
		}
		code[i] = Alphabet[n.Int64()]
	}
	return string(code), nil
}
