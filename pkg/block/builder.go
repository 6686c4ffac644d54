// Copyright 2025 Certen Protocol
//
// Builders: one per variant, each validating that every required field has
// been set before a block is emitted. Grounded on the same "accumulate
// fields, validate once at the end" shape as the teacher's
// ValidatorBlockBuilder (pkg/protocol, pkg/consensus/validator_block_builder.go),
// adapted to Go's functional-option-free builder-returns-error idiom.

package block

import (
	"errors"

	"github.com/consensuscore/node/pkg/numeric"
)

// ErrBuilderIncomplete is returned when Build is called before all required
// fields were set.
var ErrBuilderIncomplete = errors.New("block: builder missing required field")

// StateBuilder assembles a StateBlock.
type StateBuilder struct {
	b        StateBlock
	hasAcc   bool
	hasPrev  bool
	hasRep   bool
	hasBal   bool
	hasLink  bool
}

// NewStateBuilder starts a new state-block builder.
func NewStateBuilder() *StateBuilder { return &StateBuilder{} }

func (sb *StateBuilder) Account(a numeric.Account) *StateBuilder {
	sb.b.Account = a
	sb.hasAcc = true
	return sb
}

// Previous sets the previous-block hash. Omit (or pass the zero hash) for
// the first block in a chain.
func (sb *StateBuilder) Previous(h numeric.Hash) *StateBuilder {
	sb.b.PreviousHash = h
	sb.hasPrev = true
	return sb
}

func (sb *StateBuilder) Representative(a numeric.Account) *StateBuilder {
	sb.b.Representative = a
	sb.hasRep = true
	return sb
}

func (sb *StateBuilder) Balance(v numeric.Uint128) *StateBuilder {
	sb.b.Balance = v
	sb.hasBal = true
	return sb
}

// Link sets the overloaded link field: destination account for a send,
// source hash for a receive, epoch marker for an epoch upgrade.
func (sb *StateBuilder) Link(h numeric.Hash) *StateBuilder {
	sb.b.Link = h
	sb.hasLink = true
	return sb
}

func (sb *StateBuilder) LinkAccount(a numeric.Account) *StateBuilder {
	return sb.Link(numeric.Hash(a))
}

func (sb *StateBuilder) Work(w uint64) *StateBuilder {
	sb.b.work = w
	return sb
}

// Build validates required fields, computes the hash, and returns the block.
// PreviousHash, Link, and Work are permitted to stay at their zero value
// (open block / no-link change-equivalent / not-yet-worked respectively);
// Account, Representative, and Balance are always required.
func (sb *StateBuilder) Build() (*StateBlock, error) {
	if !sb.hasAcc || !sb.hasRep || !sb.hasBal {
		return nil, ErrBuilderIncomplete
	}
	_ = sb.hasPrev
	_ = sb.hasLink
	out := sb.b
	out.recomputeHash()
	return &out, nil
}

// SendBuilder assembles a legacy SendBlock.
type SendBuilder struct {
	b       SendBlock
	hasPrev bool
	hasDest bool
	hasBal  bool
}

func NewSendBuilder() *SendBuilder { return &SendBuilder{} }

func (b *SendBuilder) Previous(h numeric.Hash) *SendBuilder {
	b.b.PreviousHash = h
	b.hasPrev = true
	return b
}

func (b *SendBuilder) Destination(a numeric.Account) *SendBuilder {
	b.b.Destination = a
	b.hasDest = true
	return b
}

func (b *SendBuilder) Balance(v numeric.Uint128) *SendBuilder {
	b.b.Balance = v
	b.hasBal = true
	return b
}

func (b *SendBuilder) Work(w uint64) *SendBuilder {
	b.b.work = w
	return b
}

func (b *SendBuilder) Build() (*SendBlock, error) {
	if !b.hasPrev || !b.hasDest || !b.hasBal {
		return nil, ErrBuilderIncomplete
	}
	out := b.b
	out.recomputeHash()
	return &out, nil
}

// ReceiveBuilder assembles a legacy ReceiveBlock.
type ReceiveBuilder struct {
	b          ReceiveBlock
	hasPrev    bool
	hasSource  bool
}

func NewReceiveBuilder() *ReceiveBuilder { return &ReceiveBuilder{} }

func (b *ReceiveBuilder) Previous(h numeric.Hash) *ReceiveBuilder {
	b.b.PreviousHash = h
	b.hasPrev = true
	return b
}

func (b *ReceiveBuilder) Source(h numeric.Hash) *ReceiveBuilder {
	b.b.SourceHash = h
	b.hasSource = true
	return b
}

func (b *ReceiveBuilder) Work(w uint64) *ReceiveBuilder {
	b.b.work = w
	return b
}

func (b *ReceiveBuilder) Build() (*ReceiveBlock, error) {
	if !b.hasPrev || !b.hasSource {
		return nil, ErrBuilderIncomplete
	}
	out := b.b
	out.recomputeHash()
	return &out, nil
}

// OpenBuilder assembles the first block of a new chain.
type OpenBuilder struct {
	b         OpenBlock
	hasSource bool
	hasRep    bool
	hasAcc    bool
}

func NewOpenBuilder() *OpenBuilder { return &OpenBuilder{} }

func (b *OpenBuilder) Source(h numeric.Hash) *OpenBuilder {
	b.b.SourceHash = h
	b.hasSource = true
	return b
}

func (b *OpenBuilder) Representative(a numeric.Account) *OpenBuilder {
	b.b.Representative = a
	b.hasRep = true
	return b
}

func (b *OpenBuilder) Account(a numeric.Account) *OpenBuilder {
	b.b.Account = a
	b.hasAcc = true
	return b
}

func (b *OpenBuilder) Work(w uint64) *OpenBuilder {
	b.b.work = w
	return b
}

func (b *OpenBuilder) Build() (*OpenBlock, error) {
	if !b.hasSource || !b.hasRep || !b.hasAcc {
		return nil, ErrBuilderIncomplete
	}
	out := b.b
	out.recomputeHash()
	return &out, nil
}

// ChangeBuilder assembles a representative-change block.
type ChangeBuilder struct {
	b       ChangeBlock
	hasPrev bool
	hasRep  bool
}

func NewChangeBuilder() *ChangeBuilder { return &ChangeBuilder{} }

func (b *ChangeBuilder) Previous(h numeric.Hash) *ChangeBuilder {
	b.b.PreviousHash = h
	b.hasPrev = true
	return b
}

func (b *ChangeBuilder) Representative(a numeric.Account) *ChangeBuilder {
	b.b.Representative = a
	b.hasRep = true
	return b
}

func (b *ChangeBuilder) Work(w uint64) *ChangeBuilder {
	b.b.work = w
	return b
}

func (b *ChangeBuilder) Build() (*ChangeBlock, error) {
	if !b.hasPrev || !b.hasRep {
		return nil, ErrBuilderIncomplete
	}
	out := b.b
	out.recomputeHash()
	return &out, nil
}
