package model

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// ObjectIDLen is the length of a hex-encoded identifier.
const ObjectIDLen = 24

// NewObjectID returns a 24-character lowercase hex identifier: four bytes of
// big-endian Unix seconds followed by eight random bytes, so identifiers
// created later sort after earlier ones at second granularity.
func NewObjectID(now time.Time) string {
	var b [12]byte
	binary.BigEndian.PutUint32(b[:4], uint32(now.Unix()))
	if _, err := rand.Read(b[4:]); err != nil {
		panic("model: crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}

// IsObjectID reports whether s is a well-formed identifier.
func IsObjectID(s string) bool {
	if len(s) != ObjectIDLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// CheckID returns ErrInvalidID unless s is a well-formed identifier.
func CheckID(s string) error {
	if !IsObjectID(s) {
		return ErrInvalidID
	}
	return nil
}
