// Copyright 2025 Certen Protocol
//
// Bounded cementation: an iterative walker that never recurses and never
// holds more than batchReadSize ancestors in memory at once, trading the
// unbounded algorithm's simplicity for a hard memory ceiling on very deep
// chains (spec §4.7 "Bounded").

package confheight

import (
	"github.com/consensuscore/node/pkg/numeric"
	"github.com/consensuscore/node/pkg/store"
)

// processBounded cements hash's ancestor chain in chunks of at most
// batchReadSize blocks, using accountsConfirmedInfo as a per-account
// checkpoint so a chain reached twice (once directly, once as another
// account's receive source) is not re-walked from scratch.
func (p *Processor) processBounded(hash numeric.Hash) error {
	pending := []numeric.Hash{hash}

	for len(pending) > 0 {
		target := pending[len(pending)-1]

		chain, sources, done, err := p.readChunk(target)
		if err != nil {
			return err
		}
		if len(chain) == 0 {
			// Already fully cemented (or checkpoint caught up); drop it.
			pending = pending[:len(pending)-1]
			continue
		}

		unresolved := sources[:0]
		for _, src := range sources {
			if !p.isCementedLocked(src) {
				unresolved = append(unresolved, src)
			}
		}
		if len(unresolved) > 0 {
			pending = append(pending, unresolved...)
			continue
		}

		detail := writeDetail{
			account:      chain[0].rec.Sideband.Account,
			bottomHeight: chain[0].rec.Sideband.Height,
			bottomHash:   chain[0].hash,
			topHeight:    chain[len(chain)-1].rec.Sideband.Height,
			topHash:      chain[len(chain)-1].hash,
		}
		for _, ce := range chain {
			detail.cemented = append(detail.cemented, ce.hash)
		}
		if err := p.cementBlocks([]writeDetail{detail}); err != nil {
			return err
		}

		p.mu.Lock()
		p.accountsConfirmedInfo[detail.account] = confirmedInfo{
			confirmedHeight:  detail.topHeight,
			iteratedFrontier: detail.topHash,
		}
		p.mu.Unlock()

		if done {
			pending = pending[:len(pending)-1]
		}
	}
	return nil
}

// readChunk reads at most batchReadSize uncemented ancestors of target,
// from the account's checkpoint (or stored confirmation height) upward,
// returning them bottom-to-top along with any receive/open source hashes
// encountered, and whether the whole gap to target was covered in this
// chunk.
func (p *Processor) readChunk(target numeric.Hash) ([]chainEntry, []numeric.Hash, bool, error) {
	r := p.store.BeginRead()
	defer r.Discard()

	rec, status, err := p.store.GetBlock(r, target)
	if err != nil || status != store.StatusSuccess {
		return nil, nil, false, ErrBlockNotFound
	}
	account := rec.Sideband.Account

	floor := p.checkpointHeight(r, account)
	if rec.Sideband.Height <= floor {
		return nil, nil, true, nil
	}

	chain := []chainEntry{{target, rec}}
	cur, curRec := target, rec
	for curRec.Sideband.Height > floor+1 {
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
		if len(chain) > batchReadSize {
			chain = chain[1:]
		}
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	var sources []numeric.Hash
	for _, ce := range chain {
		if ce.rec.Sideband.Details.IsReceive {
			if src := sourceHashOf(ce.rec.Block); !src.IsZero() {
				sources = append(sources, src)
			}
		}
	}

	done := chain[len(chain)-1].hash == target
	return chain, sources, done, nil
}

func (p *Processor) checkpointHeight(r *store.ReadTxn, account numeric.Account) uint64 {
	p.mu.Lock()
	cached, ok := p.accountsConfirmedInfo[account]
	p.mu.Unlock()
	if ok {
		return cached.confirmedHeight
	}
	info, status, _ := p.store.GetConfirmationHeight(r, account)
	if status == store.StatusSuccess {
		return info.Height
	}
	return 0
}

func (p *Processor) isCementedLocked(hash numeric.Hash) bool {
	r := p.store.BeginRead()
	defer r.Discard()
	rec, status, err := p.store.GetBlock(r, hash)
	if err != nil || status != store.StatusSuccess {
		return true // unknown block: nothing more this processor can do
	}
	floor := p.checkpointHeight(r, rec.Sideband.Account)
	return rec.Sideband.Height <= floor
}
