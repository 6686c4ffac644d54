// Copyright 2025 Certen Protocol

package confheight

import (
	"github.com/consensuscore/node/pkg/numeric"
)

// writeDetail is one contiguous run of newly-cemented blocks on a single
// account's chain, emitted by either processor and committed atomically by
// cementBlocks (spec §4.7 "write_details").
type writeDetail struct {
	account      numeric.Account
	bottomHeight uint64
	bottomHash   numeric.Hash
	topHeight    uint64
	topHash      numeric.Hash
	// cemented lists every block hash in the run, bottom to top, so
	// observers fire once per block in topological order.
	cemented []numeric.Hash
}

// confirmedInfo is the per-account cache entry bounded processing keeps to
// avoid rescanning a chain it already walked while chasing a receive's
// source (spec §4.7 "accounts_confirmed_info").
type confirmedInfo struct {
	confirmedHeight  uint64
	iteratedFrontier numeric.Hash
}

// CementedCallback is invoked once per newly-cemented block, in topological
// order (sources before their receives, ancestors before descendants).
type CementedCallback func(account numeric.Account, hash numeric.Hash, height uint64)
