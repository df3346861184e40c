package storage

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashBytes computes SHA256 hash of byte slice
func HashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// PhotoETag returns a quoted strong entity tag for served image bytes.
func PhotoETag(data []byte) string {
	return `"` + HashBytes(data)[:32] + `"`
}
