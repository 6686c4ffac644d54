// Copyright 2025 Certen Protocol
//
// Ed25519 signing and verification. Grounded on the teacher's own choice of
// stdlib crypto/ed25519 in pkg/attestation/strategy/ed25519_strategy.go
// rather than a third-party curve library — CONSENSUS CORE's votes and
// blocks are single-signer, so there is no aggregation requirement that
// would justify reaching for the BLS stack the teacher uses elsewhere.

package numeric

import (
	"crypto/ed25519"
	"fmt"
)

// SignatureSize is the width of an Ed25519 signature in bytes.
const SignatureSize = ed25519.SignatureSize

// Signature is a raw Ed25519 signature.
type Signature [SignatureSize]byte

// PrivateKey is a raw Ed25519 seed-expanded private key.
type PrivateKey []byte

// GenerateKeypair produces a fresh Ed25519 keypair.
func GenerateKeypair() (Account, PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return Account{}, nil, fmt.Errorf("numeric: generate keypair: %w", err)
	}
	acc, err := AccountFromBytes(pub)
	if err != nil {
		return Account{}, nil, err
	}
	return acc, PrivateKey(priv), nil
}

// Sign signs message with priv, returning the raw signature.
func Sign(priv PrivateKey, message []byte) Signature {
	sig := ed25519.Sign(ed25519.PrivateKey(priv), message)
	var out Signature
	copy(out[:], sig)
	return out
}

// Verify checks sig against message under the given account's public key.
func Verify(account Account, message []byte, sig Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(account[:]), message, sig[:])
}
