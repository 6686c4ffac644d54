// Copyright 2025 Certen Protocol
//
// Account addresses: a 256-bit Ed25519 public key with a human-checksummed
// string encoding. The encoding is a base-32 variant over a dedicated
// alphabet (omitting 0, 2, l, and v) with a 5-byte Blake2b checksum
// appended, matching the "account-based, open-representative-voting ledger"
// address scheme named in the specification's data model.

package numeric

import (
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// AccountSize is the width of an account's public key in bytes.
const AccountSize = 32

// accountPrefix is prepended to the encoded form of every address.
const accountPrefix = "orv_"

// addressAlphabet excludes the characters 0, 2, l, and v to reduce
// address-entry mistakes, matching the encoding strategy of ORV
// ledgers in this family.
const addressAlphabet = "13456789abcdefghijkmnopqrstuwxyz"

var addressDecodeTable [256]int8

func init() {
	for i := range addressDecodeTable {
		addressDecodeTable[i] = -1
	}
	for i, c := range addressAlphabet {
		addressDecodeTable[byte(c)] = int8(i)
	}
}

// Account is a 256-bit Ed25519 public key identifying a ledger account.
type Account [AccountSize]byte

// ZeroAccount is the burn/null account; sends to it are permanently
// unreceivable (spec §4.2 "opened_burn_account").
var ZeroAccount = Account{}

// AccountFromBytes copies a 32-byte public key into an Account.
func AccountFromBytes(b []byte) (Account, error) {
	var a Account
	if len(b) != AccountSize {
		return a, fmt.Errorf("numeric: account requires %d bytes, got %d", AccountSize, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// IsZero reports whether this is the burn account.
func (a Account) IsZero() bool {
	return a == ZeroAccount
}

// String renders the checksummed human-readable address form.
func (a Account) String() string {
	checksum := accountChecksum(a)
	// 256 account bits + 40 checksum bits = 296 bits, encoded 5 bits/char.
	payload := append(append([]byte{}, a[:]...), checksum[:]...)
	return accountPrefix + encodeBase32(payload, 256+40)
}

// ParseAccount decodes the human-readable form produced by String, verifying
// its checksum.
func ParseAccount(s string) (Account, error) {
	var a Account
	if !strings.HasPrefix(s, accountPrefix) {
		return a, fmt.Errorf("numeric: address missing %q prefix", accountPrefix)
	}
	body := s[len(accountPrefix):]
	if len(body) != 60 {
		return a, fmt.Errorf("numeric: address has wrong length %d", len(body))
	}
	decoded, err := decodeBase32(body, 256+40)
	if err != nil {
		return a, fmt.Errorf("numeric: decode address: %w", err)
	}
	copy(a[:], decoded[:32])
	var checksum [5]byte
	copy(checksum[:], decoded[32:37])
	want := accountChecksum(a)
	if checksum != want {
		return a, fmt.Errorf("numeric: address checksum mismatch")
	}
	return a, nil
}

// accountChecksum is a reversed 5-byte Blake2b digest of the public key,
// matching the "account address is human-checksummed" invariant in §3.
func accountChecksum(a Account) [5]byte {
	h, err := blake2b.New(5, nil)
	if err != nil {
		panic("numeric: blake2b-5 unavailable: " + err.Error())
	}
	h.Write(a[:])
	sum := h.Sum(nil)
	var out [5]byte
	for i := range out {
		out[i] = sum[len(sum)-1-i]
	}
	return out
}

// encodeBase32 treats data as a big-endian unsigned integer of bitLen bits
// and renders it in the address alphabet, left-padded with the zero symbol
// to a fixed width so every address has the same length.
func encodeBase32(data []byte, bitLen int) string {
	n := new(big.Int).SetBytes(data)
	width := (bitLen + 4) / 5
	digits := make([]byte, width)
	base := big.NewInt(32)
	rem := new(big.Int)
	for i := width - 1; i >= 0; i-- {
		n.DivMod(n, base, rem)
		digits[i] = addressAlphabet[rem.Int64()]
	}
	return string(digits)
}

// decodeBase32 is the inverse of encodeBase32: it parses a fixed-width
// base-32 string back into a big-endian byte slice of bitLen bits.
func decodeBase32(s string, bitLen int) ([]byte, error) {
	n := new(big.Int)
	base := big.NewInt(32)
	for _, c := range s {
		v := addressDecodeTable[byte(c)]
		if v < 0 {
			return nil, fmt.Errorf("numeric: invalid address character %q", c)
		}
		n.Mul(n, base)
		n.Add(n, big.NewInt(int64(v)))
	}
	nBytes := (bitLen + 7) / 8
	out := make([]byte, nBytes)
	n.FillBytes(out)
	return out, nil
}
