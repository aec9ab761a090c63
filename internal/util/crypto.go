package util

import (
	"crypto/rand"
	"encoding/base32"
)

// Base32 characters, but lowercased.
const lowerBase32Chars = "abcdefghijklmnopqrstuvwxyz234567"

// base32 encoder that uses lowered characters without padding.
var base32Lower = base32.NewEncoding(lowerBase32Chars).WithPadding(base32.NoPadding)

// CryptoRandomBytes generates cryptographically secure random bytes
func CryptoRandomBytes(length int64) ([]byte, error) {
	buf := make([]byte, length)
	_, err := rand.Read(buf)
	return buf, err
}

// CryptoRandomString generates a random lowercase base32 string of the given
// length. Used for authorization codes and generated client secrets.
func CryptoRandomString(length int) (string, error) {
	// 5 bits per base32 character
	bytes, err := CryptoRandomBytes(int64(length))
	if err != nil {
		return "", err
	}
	return base32Lower.EncodeToString(bytes)[:length], nil
}
