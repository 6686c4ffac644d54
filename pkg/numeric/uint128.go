// Copyright 2025 Certen Protocol
//
// Fixed-width unsigned integers used for balances and raw amounts.
// Uint128 backs account balances and send/receive deltas; it is stored and
// transmitted big-endian and formatted either as hex or as a base-10 decimal
// string (the wire and RPC-adjacent representations respectively).

package numeric

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
)

// Uint128Size is the wire width of a balance in bytes.
const Uint128Size = 16

// Uint128 is a 128-bit unsigned integer stored as two big-endian halves.
type Uint128 struct {
	hi uint64
	lo uint64
}

// Uint128FromBig converts a big.Int into a Uint128, returning an error if it
// does not fit in 128 bits or is negative.
func Uint128FromBig(v *big.Int) (Uint128, error) {
	if v.Sign() < 0 {
		return Uint128{}, fmt.Errorf("numeric: negative value %s", v.String())
	}
	if v.BitLen() > 128 {
		return Uint128{}, fmt.Errorf("numeric: value %s overflows uint128", v.String())
	}
	var buf [Uint128Size]byte
	v.FillBytes(buf[:])
	return Uint128FromBytes(buf[:])
}

// Uint128FromBytes decodes a big-endian 16-byte buffer.
func Uint128FromBytes(b []byte) (Uint128, error) {
	if len(b) != Uint128Size {
		return Uint128{}, fmt.Errorf("numeric: uint128 requires %d bytes, got %d", Uint128Size, len(b))
	}
	return Uint128{
		hi: binary.BigEndian.Uint64(b[0:8]),
		lo: binary.BigEndian.Uint64(b[8:16]),
	}, nil
}

// Uint128FromHex decodes a hex string (with or without a leading "0x").
func Uint128FromHex(s string) (Uint128, error) {
	if len(s) >= 2 && (s[0:2] == "0x" || s[0:2] == "0X") {
		s = s[2:]
	}
	b, err := hex.DecodeString(fmt.Sprintf("%032s", s))
	if err != nil {
		return Uint128{}, fmt.Errorf("numeric: invalid hex uint128 %q: %w", s, err)
	}
	return Uint128FromBytes(b)
}

// Bytes returns the big-endian 16-byte encoding.
func (u Uint128) Bytes() [Uint128Size]byte {
	var out [Uint128Size]byte
	binary.BigEndian.PutUint64(out[0:8], u.hi)
	binary.BigEndian.PutUint64(out[8:16], u.lo)
	return out
}

// Big returns the value as a big.Int.
func (u Uint128) Big() *big.Int {
	b := u.Bytes()
	return new(big.Int).SetBytes(b[:])
}

// Decimal formats the value as a base-10 string, the form used by the RPC
// surface for display.
func (u Uint128) Decimal() string {
	return u.Big().String()
}

// Hex formats the value as a zero-padded 32-character hex string.
func (u Uint128) Hex() string {
	b := u.Bytes()
	return hex.EncodeToString(b[:])
}

// IsZero reports whether the value is zero.
func (u Uint128) IsZero() bool {
	return u.hi == 0 && u.lo == 0
}

// Cmp compares two Uint128 values, returning -1, 0, or 1.
func (u Uint128) Cmp(o Uint128) int {
	if u.hi != o.hi {
		if u.hi < o.hi {
			return -1
		}
		return 1
	}
	if u.lo != o.lo {
		if u.lo < o.lo {
			return -1
		}
		return 1
	}
	return 0
}

// Add returns u+o and whether the addition overflowed 128 bits.
func (u Uint128) Add(o Uint128) (Uint128, bool) {
	lo := u.lo + o.lo
	carry := uint64(0)
	if lo < u.lo {
		carry = 1
	}
	hi := u.hi + o.hi + carry
	overflow := hi < u.hi || (carry == 1 && hi == u.hi)
	return Uint128{hi: hi, lo: lo}, overflow
}

// Sub returns u-o and whether the subtraction underflowed (o > u).
func (u Uint128) Sub(o Uint128) (Uint128, bool) {
	if u.Cmp(o) < 0 {
		return Uint128{}, true
	}
	lo := u.lo - o.lo
	borrow := uint64(0)
	if u.lo < o.lo {
		borrow = 1
	}
	hi := u.hi - o.hi - borrow
	return Uint128{hi: hi, lo: lo}, false
}

// ZeroUint128 is the additive identity.
var ZeroUint128 = Uint128{}
