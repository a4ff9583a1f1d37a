package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
)

// FingerprintLen is the length of a hex-encoded fingerprint.
const FingerprintLen = sha256.Size * 2

// Derive returns the cache key for a transform. Every field is written as a
// tag byte, a length and the raw bytes, so shifting text between fields never
// collides. Empty augmentation and background mode are left out entirely.
func Derive(src []byte, variant, augmentation, backgroundMode string) string {
	h := sha256.New()
	writeField(h, 's', src)
	writeField(h, 'v', []byte(variant))
	if augmentation != "" {
		writeField(h, 'a', []byte(augmentation))
	}
	if backgroundMode != "" {
		writeField(h, 'b', []byte(backgroundMode))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeField(h hash.Hash, tag byte, data []byte) {
	var hdr [9]byte
	hdr[0] = tag
	binary.BigEndian.PutUint64(hdr[1:], uint64(len(data)))
	h.Write(hdr[:])
	h.Write(data)
}
