// Copyright 2025 Certen Protocol
//
// Unbounded cementation: recursive by hash in spec terms, implemented here
// as an explicit-stack walk so a long chain never grows the Go call stack
// proportionally (spec §4.7 "Unbounded").

package confheight

import (
	"github.com/consensuscore/node/pkg/block"
	"github.com/consensuscore/node/pkg/numeric"
	"github.com/consensuscore/node/pkg/store"
)

type chainEntry struct {
	hash numeric.Hash
	rec  store.BlockRecord
}

// processUnbounded cements every uncemented ancestor of hash, recursing
// into the source chain of any receive/open first so the invariant "a
// cemented receive implies its source is cemented" always holds.
func (p *Processor) processUnbounded(hash numeric.Hash) error {
	return p.cementChainUnbounded(hash, make(map[numeric.Hash]bool))
}

func (p *Processor) cementChainUnbounded(target numeric.Hash, visiting map[numeric.Hash]bool) error {
	r := p.store.BeginRead()
	rec, status, err := p.store.GetBlock(r, target)
	if err != nil || status != store.StatusSuccess {
		r.Discard()
		return ErrBlockNotFound
	}
	account := rec.Sideband.Account
	info, infoStatus, _ := p.store.GetConfirmationHeight(r, account)
	var currentHeight uint64
	if infoStatus == store.StatusSuccess {
		currentHeight = info.Height
	}
	if rec.Sideband.Height <= currentHeight {
		r.Discard()
		return nil
	}

	chain := []chainEntry{{target, rec}}
	cur, curRec := target, rec
	for curRec.Sideband.Height > currentHeight+1 {
		prev := curRec.Block.Previous()
		if prev.IsZero() {
			break
		}
		pr, status, err := p.store.GetBlock(r, prev)
		if err != nil || status != store.StatusSuccess {
			break
		}
		cur, curRec = prev, pr
		chain = append(chain, chainEntry{cur, curRec})
	}
	r.Discard()

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	for _, ce := range chain {
		if !ce.rec.Sideband.Details.IsReceive {
			continue
		}
		src := sourceHashOf(ce.rec.Block)
		if src.IsZero() || visiting[src] {
			continue
		}
		visiting[src] = true
		if err := p.cementChainUnbounded(src, visiting); err != nil {
			return err
		}
	}

	hashes := make([]numeric.Hash, len(chain))
	for i, ce := range chain {
		hashes[i] = ce.hash
	}
	detail := writeDetail{
		account:      account,
		bottomHeight: chain[0].rec.Sideband.Height,
		bottomHash:   chain[0].hash,
		topHeight:    chain[len(chain)-1].rec.Sideband.Height,
		topHash:      chain[len(chain)-1].hash,
		cemented:     hashes,
	}
	return p.cementBlocks([]writeDetail{detail})
}

func sourceHashOf(blk block.Block) numeric.Hash {
	switch b := blk.(type) {
	case *block.ReceiveBlock:
		return b.SourceHash
	case *block.OpenBlock:
		return b.SourceHash
	case *block.StateBlock:
		return b.Link
	default:
		return numeric.Hash{}
	}
}
