// Copyright 2025 Certen Protocol
//
// Vote model: a representative's signed endorsement of one block or up to
// 12 block hashes (spec §3 "Vote"). The hash is domain-separated so a vote
// digest never collides with a block hash even when the payload is a
// single hash identical to some block's own hash.

package vote

import (
	"github.com/consensuscore/node/pkg/numeric"
)

// MaxHashes is the largest number of hashes a single vote may bundle.
const MaxHashes = 12

// voteDomainPrefix separates vote digests from block digests in Blake2b
// space (spec §3 "hash is Blake2b over a domain-separated prefix, sequence,
// and payload").
var voteDomainPrefix = [8]byte{'v', 'o', 't', 'e', 0, 0, 0, 0}

// Vote is a representative's endorsement of one or more block hashes.
type Vote struct {
	Account   numeric.Account
	Sequence  uint64
	Signature numeric.Signature
	Hashes    []numeric.Hash
}

// Hash computes the vote's domain-separated digest, independent of
// Signature (the signature is computed over this hash, not the other way
// around).
func (v *Vote) Hash() numeric.Hash {
	parts := make([][]byte, 0, 2+len(v.Hashes))
	parts = append(parts, voteDomainPrefix[:])
	parts = append(parts, encodeUint64(v.Sequence))
	for _, h := range v.Hashes {
		hh := h
		parts = append(parts, hh[:])
	}
	return numeric.HashBytes(parts...)
}

// Sign computes the vote's hash and signs it with priv, setting
// v.Signature and v.Account from the signing key.
func Sign(acc numeric.Account, priv numeric.PrivateKey, sequence uint64, hashes []numeric.Hash) *Vote {
	v := &Vote{Account: acc, Sequence: sequence, Hashes: hashes}
	h := v.Hash()
	v.Signature = numeric.Sign(priv, h[:])
	return v
}

// Verify checks v's signature against its own account and hash.
func (v *Vote) Verify() bool {
	h := v.Hash()
	return numeric.Verify(v.Account, h[:], v.Signature)
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}
