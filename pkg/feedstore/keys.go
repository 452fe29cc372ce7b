package feedstore

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// discoveryKeyPersonalization namespaces the derivation so a discovery
// key computed here never collides with one computed by an unrelated
// system over the same public key.
const discoveryKeyPersonalization = "feedstore"

// NewDefaultDiscoveryKeyFunc returns the built-in DiscoveryKeyFunc:
// BLAKE2b-256 over the public key, salted with a fixed personalization
// string. Key derivation is explicitly an external-collaborator
// concern; this default exists so the store is usable
// without a caller supplying one, and remains swappable via
// Options.DiscoveryKeyFunc.
func NewDefaultDiscoveryKeyFunc() DiscoveryKeyFunc {
	return func(key []byte) []byte {
		h, err := blake2b.New256([]byte(discoveryKeyPersonalization))
		if err != nil {
			// blake2b.New256 only errors for an over-length key; our
			// personalization string is fixed and well within range.
			panic("feedstore: blake2b.New256: " + err.Error())
		}
		h.Write(key)
		return h.Sum(nil)
	}
}

// hexKey renders a key as lowercase hex, used as the IndexDB record
// key suffix and the per-feed storage root.
func hexKey(key []byte) string {
	return hex.EncodeToString(key)
}
