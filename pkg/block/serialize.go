// Copyright 2025 Certen Protocol
//
// Fixed-size binary serialization per spec §6: send 152B, receive 136B,
// open 168B, change 136B, state 216B. Every variant serializes as its
// hashable fields followed by signature(64) then work(8), big-endian
// throughout — matching the wire layout the network façade (out of scope
// here beyond what §6 specifies) expects to find after the message header.

package block

import (
	"encoding/binary"
	"fmt"

	"github.com/consensuscore/node/pkg/numeric"
)

const (
	SendSize    = 32 + 32 + 16 + numeric.SignatureSize + 8
	ReceiveSize = 32 + 32 + numeric.SignatureSize + 8
	OpenSize    = 32 + 32 + 32 + numeric.SignatureSize + 8
	ChangeSize  = 32 + 32 + numeric.SignatureSize + 8
	StateSize   = 32 + 32 + 32 + 16 + 32 + numeric.SignatureSize + 8
)

func putWork(dst []byte, w uint64) { binary.BigEndian.PutUint64(dst, w) }
func getWork(src []byte) uint64    { return binary.BigEndian.Uint64(src) }

// Serialize encodes b in its fixed-width wire form.
func Serialize(b Block) ([]byte, error) {
	switch v := b.(type) {
	case *SendBlock:
		out := make([]byte, SendSize)
		off := 0
		off += copy(out[off:], v.PreviousHash[:])
		off += copy(out[off:], v.Destination[:])
		bal := v.Balance.Bytes()
		off += copy(out[off:], bal[:])
		sig := v.Signature()
		off += copy(out[off:], sig[:])
		putWork(out[off:], v.Work())
		return out, nil
	case *ReceiveBlock:
		out := make([]byte, ReceiveSize)
		off := 0
		off += copy(out[off:], v.PreviousHash[:])
		off += copy(out[off:], v.SourceHash[:])
		sig := v.Signature()
		off += copy(out[off:], sig[:])
		putWork(out[off:], v.Work())
		return out, nil
	case *OpenBlock:
		out := make([]byte, OpenSize)
		off := 0
		off += copy(out[off:], v.SourceHash[:])
		off += copy(out[off:], v.Representative[:])
		off += copy(out[off:], v.Account[:])
		sig := v.Signature()
		off += copy(out[off:], sig[:])
		putWork(out[off:], v.Work())
		return out, nil
	case *ChangeBlock:
		out := make([]byte, ChangeSize)
		off := 0
		off += copy(out[off:], v.PreviousHash[:])
		off += copy(out[off:], v.Representative[:])
		sig := v.Signature()
		off += copy(out[off:], sig[:])
		putWork(out[off:], v.Work())
		return out, nil
	case *StateBlock:
		out := make([]byte, StateSize)
		off := 0
		off += copy(out[off:], v.Account[:])
		off += copy(out[off:], v.PreviousHash[:])
		off += copy(out[off:], v.Representative[:])
		bal := v.Balance.Bytes()
		off += copy(out[off:], bal[:])
		off += copy(out[off:], v.Link[:])
		sig := v.Signature()
		off += copy(out[off:], sig[:])
		putWork(out[off:], v.Work())
		return out, nil
	default:
		return nil, fmt.Errorf("block: unknown type %T", b)
	}
}

// Deserialize decodes a fixed-width wire buffer of the given type. Malformed
// input returns a non-nil error and a nil block; callers must check the
// error rather than use a partially populated value (spec §9).
func Deserialize(t Type, buf []byte) (Block, error) {
	switch t {
	case TypeSend:
		if len(buf) != SendSize {
			return nil, fmt.Errorf("block: send requires %d bytes, got %d", SendSize, len(buf))
		}
		b := &SendBlock{}
		off := 0
		copy(b.PreviousHash[:], buf[off:off+32])
		off += 32
		copy(b.Destination[:], buf[off:off+32])
		off += 32
		bal, err := numeric.Uint128FromBytes(buf[off : off+16])
		if err != nil {
			return nil, err
		}
		b.Balance = bal
		off += 16
		var sig numeric.Signature
		copy(sig[:], buf[off:off+numeric.SignatureSize])
		b.SetSignature(sig)
		off += numeric.SignatureSize
		b.SetWork(getWork(buf[off:]))
		b.recomputeHash()
		return b, nil
	case TypeReceive:
		if len(buf) != ReceiveSize {
			return nil, fmt.Errorf("block: receive requires %d bytes, got %d", ReceiveSize, len(buf))
		}
		b := &ReceiveBlock{}
		off := 0
		copy(b.PreviousHash[:], buf[off:off+32])
		off += 32
		copy(b.SourceHash[:], buf[off:off+32])
		off += 32
		var sig numeric.Signature
		copy(sig[:], buf[off:off+numeric.SignatureSize])
		b.SetSignature(sig)
		off += numeric.SignatureSize
		b.SetWork(getWork(buf[off:]))
		b.recomputeHash()
		return b, nil
	case TypeOpen:
		if len(buf) != OpenSize {
			return nil, fmt.Errorf("block: open requires %d bytes, got %d", OpenSize, len(buf))
		}
		b := &OpenBlock{}
		off := 0
		copy(b.SourceHash[:], buf[off:off+32])
		off += 32
		copy(b.Representative[:], buf[off:off+32])
		off += 32
		copy(b.Account[:], buf[off:off+32])
		off += 32
		var sig numeric.Signature
		copy(sig[:], buf[off:off+numeric.SignatureSize])
		b.SetSignature(sig)
		off += numeric.SignatureSize
		b.SetWork(getWork(buf[off:]))
		b.recomputeHash()
		return b, nil
	case TypeChange:
		if len(buf) != ChangeSize {
			return nil, fmt.Errorf("block: change requires %d bytes, got %d", ChangeSize, len(buf))
		}
		b := &ChangeBlock{}
		off := 0
		copy(b.PreviousHash[:], buf[off:off+32])
		off += 32
		copy(b.Representative[:], buf[off:off+32])
		off += 32
		var sig numeric.Signature
		copy(sig[:], buf[off:off+numeric.SignatureSize])
		b.SetSignature(sig)
		off += numeric.SignatureSize
		b.SetWork(getWork(buf[off:]))
		b.recomputeHash()
		return b, nil
	case TypeState:
		if len(buf) != StateSize {
			return nil, fmt.Errorf("block: state requires %d bytes, got %d", StateSize, len(buf))
		}
		b := &StateBlock{}
		off := 0
		copy(b.Account[:], buf[off:off+32])
		off += 32
		copy(b.PreviousHash[:], buf[off:off+32])
		off += 32
		copy(b.Representative[:], buf[off:off+32])
		off += 32
		bal, err := numeric.Uint128FromBytes(buf[off : off+16])
		if err != nil {
			return nil, err
		}
		b.Balance = bal
		off += 16
		copy(b.Link[:], buf[off:off+32])
		off += 32
		var sig numeric.Signature
		copy(sig[:], buf[off:off+numeric.SignatureSize])
		b.SetSignature(sig)
		off += numeric.SignatureSize
		b.SetWork(getWork(buf[off:]))
		b.recomputeHash()
		return b, nil
	default:
		return nil, fmt.Errorf("block: unknown type %d", t)
	}
}
