// Copyright 2025 Certen Protocol
//
// Block model: five variants (send, receive, open, change, state) sharing a
// common behavioral contract. The exceptions-as-control-flow and visitor
// patterns of the original C++ source become, respectively, error returns
// and an exhaustive type switch over a small sealed interface — grounded on
// the teacher's ValidatorBlock contract in pkg/protocol/validator_block.go,
// which likewise wraps a polymorphic payload behind one set of accessors.

package block

import (
	"fmt"

	"github.com/consensuscore/node/pkg/numeric"
)

// Type discriminates the five block variants.
type Type uint8

const (
	// TypeInvalid is the zero value; never a valid on-chain block.
	TypeInvalid Type = iota
	TypeSend
	TypeReceive
	TypeOpen
	TypeChange
	TypeState
)

func (t Type) String() string {
	switch t {
	case TypeSend:
		return "send"
	case TypeReceive:
		return "receive"
	case TypeOpen:
		return "open"
	case TypeChange:
		return "change"
	case TypeState:
		return "state"
	default:
		return "invalid"
	}
}

// Epoch identifies a network epoch. Epoch blocks (state blocks whose link
// equals the epoch marker for epoch N) upgrade an account's stored epoch
// without moving funds (spec §4.2).
type Epoch uint32

const (
	Epoch0 Epoch = iota
	Epoch1
	Epoch2
)

// Details records the per-block classification computed by the ledger at
// acceptance time and carried in the sideband (spec §3 "sideband").
type Details struct {
	Epoch     Epoch
	IsSend    bool
	IsReceive bool
	IsEpoch   bool
}

// Block is the shared contract every variant implements. Field access beyond
// what every variant carries (account, balance, link) is variant-specific
// and obtained via a type switch on the concrete type (*SendBlock,
// *ReceiveBlock, *OpenBlock, *ChangeBlock, *StateBlock).
type Block interface {
	// Type reports which of the five variants this is.
	Type() Type
	// Hash returns the cached Blake2b digest over the hashable fields only
	// (never the signature, work, or sideband — spec §3 invariant).
	Hash() numeric.Hash
	// Root is the key an election indexes by: for the first block in a
	// chain this is the account's public key, otherwise it is Previous().
	Root() numeric.Hash
	// Previous is the hash of the preceding block in this account's chain,
	// or the zero hash for the first block.
	Previous() numeric.Hash
	// Signature is the Ed25519 signature over Hash().
	Signature() numeric.Signature
	// Work is the proof-of-admission nonce.
	Work() uint64
	// SetSignature and SetWork exist so a builder can assemble a block
	// before its hash-dependent fields are known to be final.
	SetSignature(numeric.Signature)
	SetWork(uint64)
}

// recomputeHash is implemented by each concrete block type to (re)derive its
// cached hash from hashable fields; called by builders and by Deserialize.
type hashable interface {
	recomputeHash()
}

// baseFields holds the parts every variant stores identically.
type baseFields struct {
	hash      numeric.Hash
	signature numeric.Signature
	work      uint64
}

func (b *baseFields) Hash() numeric.Hash             { return b.hash }
func (b *baseFields) Signature() numeric.Signature   { return b.signature }
func (b *baseFields) Work() uint64                   { return b.work }
func (b *baseFields) SetSignature(s numeric.Signature) { b.signature = s }
func (b *baseFields) SetWork(w uint64)                 { b.work = w }

// SendBlock moves funds from the sender's own balance to a pending entry
// keyed by destination. Legacy form: carries only what it needs.
type SendBlock struct {
	baseFields
	PreviousHash numeric.Hash
	Destination  numeric.Account
	Balance      numeric.Uint128 // balance AFTER the send
}

func (b *SendBlock) Type() Type               { return TypeSend }
func (b *SendBlock) Previous() numeric.Hash   { return b.PreviousHash }
func (b *SendBlock) Root() numeric.Hash       { return b.PreviousHash }
func (b *SendBlock) recomputeHash() {
	bal := b.Balance.Bytes()
	b.hash = numeric.HashBytes([]byte{byte(TypeSend)}, b.PreviousHash[:], b.Destination[:], bal[:])
}

// ReceiveBlock claims a pending send identified by SourceHash.
type ReceiveBlock struct {
	baseFields
	PreviousHash numeric.Hash
	SourceHash   numeric.Hash
}

func (b *ReceiveBlock) Type() Type             { return TypeReceive }
func (b *ReceiveBlock) Previous() numeric.Hash { return b.PreviousHash }
func (b *ReceiveBlock) Root() numeric.Hash     { return b.PreviousHash }
func (b *ReceiveBlock) recomputeHash() {
	b.hash = numeric.HashBytes([]byte{byte(TypeReceive)}, b.PreviousHash[:], b.SourceHash[:])
}

// OpenBlock is the first block of a new account chain; it both opens the
// account and receives its first pending entry.
type OpenBlock struct {
	baseFields
	SourceHash     numeric.Hash
	Representative numeric.Account
	Account        numeric.Account
}

func (b *OpenBlock) Type() Type             { return TypeOpen }
func (b *OpenBlock) Previous() numeric.Hash { return numeric.ZeroHash }
func (b *OpenBlock) Root() numeric.Hash     { return numeric.Hash(b.Account) }
func (b *OpenBlock) recomputeHash() {
	b.hash = numeric.HashBytes([]byte{byte(TypeOpen)}, b.SourceHash[:], b.Representative[:], b.Account[:])
}

// ChangeBlock updates an account's chosen representative without moving
// funds.
type ChangeBlock struct {
	baseFields
	PreviousHash   numeric.Hash
	Representative numeric.Account
}

func (b *ChangeBlock) Type() Type             { return TypeChange }
func (b *ChangeBlock) Previous() numeric.Hash { return b.PreviousHash }
func (b *ChangeBlock) Root() numeric.Hash     { return b.PreviousHash }
func (b *ChangeBlock) recomputeHash() {
	b.hash = numeric.HashBytes([]byte{byte(TypeChange)}, b.PreviousHash[:], b.Representative[:])
}

// StateBlock is the modern universal block form. Link is overloaded:
//   - send:   Link holds the destination account
//   - receive: Link holds the source block hash
//   - epoch upgrade: Link holds the network's epoch marker constant
//
// Which case applies is determined by the ledger at processing time (spec
// §4.2 rule 6), not by a field on the block itself.
type StateBlock struct {
	baseFields
	Account        numeric.Account
	PreviousHash   numeric.Hash
	Representative numeric.Account
	Balance        numeric.Uint128
	Link           numeric.Hash
}

func (b *StateBlock) Type() Type { return TypeState }
func (b *StateBlock) Previous() numeric.Hash {
	return b.PreviousHash
}

// Root returns the account's public key for the first state block in a
// chain (PreviousHash is zero), else the previous hash — matching the
// "qualified root" definition in the GLOSSARY.
func (b *StateBlock) Root() numeric.Hash {
	if b.PreviousHash.IsZero() {
		return numeric.Hash(b.Account)
	}
	return b.PreviousHash
}

// stateBlockPreamble is a fixed 32-byte domain separator prepended to every
// state block's hash preimage, distinguishing state blocks from legacy
// types that might otherwise collide on the same field layout.
var stateBlockPreamble = numeric.HashBytes([]byte("state block"))

func (b *StateBlock) recomputeHash() {
	bal := b.Balance.Bytes()
	b.hash = numeric.HashBytes(
		stateBlockPreamble[:],
		b.Account[:],
		b.PreviousHash[:],
		b.Representative[:],
		bal[:],
		b.Link[:],
	)
}

// LinkAsAccount reinterprets Link as a destination account (send case).
func (b *StateBlock) LinkAsAccount() numeric.Account {
	return numeric.Account(b.Link)
}

// EpochLink returns the well-known link constant marking an epoch-upgrade
// state block for epoch e. Epoch markers are derived deterministically so
// every node agrees on them without a registry.
func EpochLink(e Epoch) numeric.Hash {
	return numeric.HashBytes([]byte("epoch"), []byte{byte(e)})
}

// Finalize recomputes the hash of any block variant; builders call this once
// all hashable fields are set, before signing.
func Finalize(b Block) error {
	h, ok := b.(hashable)
	if !ok {
		return fmt.Errorf("block: %T does not implement recomputeHash", b)
	}
	h.recomputeHash()
	return nil
}
