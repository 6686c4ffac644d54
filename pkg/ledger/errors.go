// Copyright 2025 Certen Protocol
//
// Sentinel errors for failures that are not themselves a ProcessResultCode:
// programmer-error invariant violations and malformed-store conditions.
// Genuine per-block rejections are never returned as an error — they are
// encoded in ProcessReturn.Code per spec §4.2, so callers can distinguish
// "this block is invalid" from "something failed while deciding".

package ledger

import "errors"

var (
	// ErrUnknownBlockType is returned if Process is handed a block whose
	// concrete type is not one of the five variants pkg/block defines.
	ErrUnknownBlockType = errors.New("ledger: unknown block type")

	// ErrRollbackNotFound is returned by Rollback when the target hash does
	// not exist in the store.
	ErrRollbackNotFound = errors.New("ledger: rollback target not found")

	// ErrRollbackNotFrontierChain is returned when Rollback is asked to
	// unwind a hash whose account cannot be resolved (sideband missing);
	// this can only happen on a corrupted store, since Process always
	// attaches a sideband to every accepted block.
	ErrRollbackNotFrontierChain = errors.New("ledger: rollback target has no sideband")
)
