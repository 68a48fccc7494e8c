package privacy

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// HashContactID derives the opaque contact identifier from
// platform-visible identifying text. The raw value never leaves the
// adapter layer; everything downstream sees only this digest.
func HashContactID(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return "c_" + hex.EncodeToString(sum[:8])
}

// RollingHash is the degraded-mode fallback identifier for
// environments without a cryptographic digest. sha256 is always
// available here, so HashContactID never falls back to it; it is kept
// as the documented fallback algorithm. 32-bit, deterministic, not
// cryptographically secure.
func RollingHash(raw string) string {
	var h int32
	for _, r := range raw {
		h = h<<5 - h + int32(r)
	}
	return "c_" + strconv.FormatUint(uint64(uint32(h)), 16)
}
