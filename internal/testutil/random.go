package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// randomSuffix returns a short hex string for unique test fixtures.
func randomSuffix() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

// RandomUsername returns a unique username with the given prefix.
func RandomUsername(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, randomSuffix())
}

// RandomEmail returns a unique email address.
func RandomEmail() string {
	return fmt.Sprintf("test-%s@example.com", randomSuffix())
}
