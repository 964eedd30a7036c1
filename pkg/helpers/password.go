package helpers

import (
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// DigestPassword returns an unsalted SHA3-256 hex digest of plain.
// It is a placeholder for a real password hash (bcrypt/argon2) and must not be
// used to store production credentials.
func DigestPassword(plain string) string {
	sum := sha3.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// CompareDigest reports whether plain produces digest.
func CompareDigest(digest, plain string) bool {
	return subtle.ConstantTimeCompare([]byte(digest), []byte(DigestPassword(plain))) == 1
}
