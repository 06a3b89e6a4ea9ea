// Package checksum fingerprints note files so unchanged notes can be
// skipped when the index is reconciled with the workspace.
package checksum

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of parts. Each part is length
// prefixed, so moving bytes from one part to the next changes the sum.
func Sum(parts ...[]byte) string {
	h := sha256.New()
	var n [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}
