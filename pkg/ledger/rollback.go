// Copyright 2025 Certen Protocol
//
// Rollback: reverses an account's chain tail back to and including a given
// hash, restoring pending entries, weights, and the new tail's successor
// pointer (spec §4.2 rule 9). Used when a competing fork's block is
// confirmed instead of one already applied locally.

package ledger

import (
	"github.com/consensuscore/node/pkg/block"
	"github.com/consensuscore/node/pkg/numeric"
	"github.com/consensuscore/node/pkg/store"
)

// Rollback undoes every block from the account's current frontier back
// through (and including) hash, staging the inverse writes into txn.
func (l *Ledger) Rollback(txn *store.WriteTxn, hash numeric.Hash) error {
	target, status, err := l.store.GetBlock(txn, hash)
	if err != nil {
		return err
	}
	if status == store.StatusNotFound {
		return ErrRollbackNotFound
	}
	account := target.Sideband.Account
	if account == (numeric.Account{}) {
		return ErrRollbackNotFrontierChain
	}

	acctInfo, status, err := l.store.GetAccount(txn, account)
	if err != nil {
		return err
	}
	if status == store.StatusNotFound {
		return ErrRollbackNotFrontierChain
	}

	cur := acctInfo.Head
	for {
		rec, status, err := l.store.GetBlock(txn, cur)
		if err != nil {
			return err
		}
		if status == store.StatusNotFound {
			return ErrRollbackNotFound
		}
		done := cur == hash
		prevHash := rec.Block.Previous()
		if err := l.undoOne(txn, account, cur, rec, prevHash); err != nil {
			return err
		}
		if l.rolledBackCounter != nil {
			l.rolledBackCounter.Inc()
		}
		if done {
			return nil
		}
		cur = prevHash
		if cur.IsZero() {
			return nil
		}
	}
}

// undoOne reverses the single block at h, given its stored record and the
// hash of the block that preceded it (the zero hash if h was an open/first
// state block).
func (l *Ledger) undoOne(txn *store.WriteTxn, account numeric.Account, h numeric.Hash, rec store.BlockRecord, prevHash numeric.Hash) error {
	// Weight: subtract what h contributed (its own post-state), add back
	// what was in effect before it — the exact inverse of apply's "subtract
	// old, add new" (spec §4.2 rule 8).
	l.weights.Adjust(rec.Sideband.Representative, numeric.ZeroUint128, rec.Sideband.Balance)

	if rec.Sideband.Details.IsSend {
		pk, err := pendingKeyOf(rec.Block, account)
		if err != nil {
			return err
		}
		if err := l.store.DelPending(txn, pk); err != nil {
			return err
		}
	} else if rec.Sideband.Details.IsReceive {
		var sourceHash numeric.Hash
		switch b := rec.Block.(type) {
		case *block.ReceiveBlock:
			sourceHash = b.SourceHash
		case *block.OpenBlock:
			sourceHash = b.SourceHash
		case *block.StateBlock:
			sourceHash = b.Link
		}
		srcRec, status, err := l.store.GetBlock(txn, sourceHash)
		if err != nil {
			return err
		}
		if status == store.StatusSuccess {
			pk := store.PendingKey{Destination: account, SendHash: sourceHash}
			amount, _ := rec.Sideband.Balance.Sub(priorBalance(rec, prevHash, l.store, txn))
			if err := l.store.PutPending(txn, pk, store.PendingEntry{
				Source: srcRec.Sideband.Account,
				Amount: amount,
				Epoch:  srcRec.Sideband.Details.Epoch,
			}); err != nil {
				return err
			}
		}
	}

	if !prevHash.IsZero() {
		prevRec, status, err := l.store.GetBlock(txn, prevHash)
		if err != nil {
			return err
		}
		if status == store.StatusSuccess {
			l.weights.Adjust(prevRec.Sideband.Representative, prevRec.Sideband.Balance, numeric.ZeroUint128)
			prevRec.Sideband.Successor = numeric.ZeroHash
			if err := l.store.PutBlock(txn, prevHash, prevRec); err != nil {
				return err
			}
		}
		newInfo := store.AccountInfo{
			Head:           prevHash,
			Representative: prevRec.Sideband.Representative,
			OpenBlock:      prevRec.Sideband.Account, // placeholder, corrected below
			Balance:        prevRec.Sideband.Balance,
			Modified:       prevRec.Sideband.Timestamp,
			BlockCount:     prevRec.Sideband.Height,
			Epoch:          prevRec.Sideband.Details.Epoch,
		}
		cur, _, _ := l.store.GetAccount(txn, account)
		newInfo.OpenBlock = cur.OpenBlock
		if err := l.store.PutAccount(txn, account, newInfo); err != nil {
			return err
		}
	} else {
		if err := l.store.DelAccount(txn, account); err != nil {
			return err
		}
	}

	return l.store.DelBlock(txn, h)
}

func pendingKeyOf(b block.Block, account numeric.Account) (store.PendingKey, error) {
	switch v := b.(type) {
	case *block.SendBlock:
		return store.PendingKey{Destination: v.Destination, SendHash: v.Hash()}, nil
	case *block.StateBlock:
		return store.PendingKey{Destination: v.LinkAsAccount(), SendHash: v.Hash()}, nil
	default:
		return store.PendingKey{}, ErrUnknownBlockType
	}
}

// priorBalance returns the account balance in effect immediately before h
// was applied: the previous block's post-balance, or zero if h opened the
// chain.
func priorBalance(h store.BlockRecord, prevHash numeric.Hash, s *store.Store, txn store.Txn) numeric.Uint128 {
	if prevHash.IsZero() {
		return numeric.ZeroUint128
	}
	prevRec, status, err := s.GetBlock(txn, prevHash)
	if err != nil || status != store.StatusSuccess {
		return numeric.ZeroUint128
	}
	return prevRec.Sideband.Balance
}
