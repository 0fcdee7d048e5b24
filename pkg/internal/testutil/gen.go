package testutil

import (
	crand "crypto/rand"
	"encoding/hex"
)

func RandomBytes(size int) []byte {
	bytes := make([]byte, size)
	_, _ = crand.Read(bytes)
	return bytes
}

// RandomString returns a random lowercase hex string of 2*size characters.
func RandomString(size int) string {
	return hex.EncodeToString(RandomBytes(size))
}
