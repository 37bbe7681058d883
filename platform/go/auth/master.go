package auth

import (
	"crypto/sha256"
	"crypto/subtle"
)

// VerifyMasterSecret reports whether supplied equals configured in constant time.
// An empty configured secret never matches.
func VerifyMasterSecret(configured, supplied string) bool {
	if configured == "" {
		return false
	}
	// Hash first so the comparison does not leak the configured length.
	want := sha256.Sum256([]byte(configured))
	got := sha256.Sum256([]byte(supplied))
	return subtle.ConstantTimeCompare(want[:], got[:]) == 1
}
