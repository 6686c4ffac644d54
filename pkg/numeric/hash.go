// Copyright 2025 Certen Protocol
//
// Blake2b-256 hashing for blocks, votes, and work difficulty. The spec's
// invariant (§3) is that a block's hash covers only its type-specific
// hashable fields, never the signature or sideband; this package only
// supplies the primitive, leaving field selection to pkg/block and pkg/vote.

package numeric

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// HashSize is the width of a block or vote hash in bytes.
const HashSize = 32

// Hash is a Blake2b-256 digest.
type Hash [HashSize]byte

// ZeroHash is the hash with all bytes zero, used as the "previous" of the
// first block in an account chain.
var ZeroHash = Hash{}

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// String renders the hash as uppercase hex, matching the wire/debug
// convention used throughout the ledger and RPC surfaces.
func (h Hash) String() string {
	return fmt.Sprintf("%X", h[:])
}

// HashFromHex parses a hex-encoded hash, accepting either case.
func HashFromHex(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("numeric: invalid hash hex %q: %w", s, err)
	}
	if len(b) != HashSize {
		return h, fmt.Errorf("numeric: hash requires %d bytes, got %d", HashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// HashBytes returns the Blake2b-256 digest of the concatenation of parts.
func HashBytes(parts ...[]byte) Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic("numeric: blake2b-256 unavailable: " + err.Error())
	}
	for _, p := range parts {
		h.Write(p)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Blake2bNonce hashes a 64-bit work nonce together with a root hash,
// returning the raw digest bytes interpreted as a little-endian uint64 for
// comparison against a difficulty threshold (spec §4.3).
func Blake2bNonce(nonce uint64, root Hash) uint64 {
	var nonceBytes [8]byte
	binary.LittleEndian.PutUint64(nonceBytes[:], nonce)
	h, err := blake2b.New(8, nil)
	if err != nil {
		panic("numeric: blake2b-8 unavailable: " + err.Error())
	}
	h.Write(nonceBytes[:])
	h.Write(root[:])
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}
