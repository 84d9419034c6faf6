package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateRandomKey returns a URL-safe random key of the given byte length.
func GenerateRandomKey(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.URLEncoding.EncodeToString(b), nil
}
