// Copyright 2025 Certen Protocol
//
// Ledger: the rule engine validating and applying blocks (spec §4.2). This
// is the single place account balances, pending entries, confirmation
// eligibility, and representative weights are mutated together — every
// other component (election, confirmation-height processor, bootstrap)
// calls through here rather than touching the store directly, matching the
// teacher's own separation between pkg/store's raw KV methods and a rule
// layer above it (pkg/ledger/store.go in the teacher combined both; here
// they are split per SPEC_FULL.md's module map).

package ledger

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/consensuscore/node/pkg/block"
	"github.com/consensuscore/node/pkg/numeric"
	"github.com/consensuscore/node/pkg/store"
)

// Ledger applies and rolls back blocks against a Store, maintaining
// representative weights as a side effect of every state change.
type Ledger struct {
	store   *store.Store
	params  *Params
	weights *Weights
	logger  *log.Logger
	now     func() time.Time

	rolledBackCounter Counter
}

// Counter is the subset of prometheus.Counter the ledger needs, defined
// locally so this package carries no import-time dependency on
// prometheus; *stats.Registry fields satisfy it directly.
type Counter interface {
	Inc()
}

// Option configures a Ledger at construction time.
type Option func(*Ledger)

// WithLogger overrides the default role-labeled logger (spec §5 thread role
// labels; this component is not itself a thread, but every writer that
// calls into it runs under one).
func WithLogger(l *log.Logger) Option {
	return func(lg *Ledger) { lg.logger = l }
}

// WithClock overrides the wall-clock source used to stamp sidebands; tests
// supply a fixed clock for determinism.
func WithClock(now func() time.Time) Option {
	return func(lg *Ledger) { lg.now = now }
}

// WithRolledBackCounter wires a shared stats counter ticked once per block
// undone by Rollback.
func WithRolledBackCounter(c Counter) Option {
	return func(lg *Ledger) { lg.rolledBackCounter = c }
}

// New constructs a Ledger over s, enforcing params.
func New(s *store.Store, params *Params, opts ...Option) *Ledger {
	lg := &Ledger{
		store:   s,
		params:  params,
		weights: NewWeights(),
		logger:  log.New(os.Stderr, "[ledger] ", log.LstdFlags),
		now:     time.Now,
	}
	for _, o := range opts {
		o(lg)
	}
	return lg
}

// Weights exposes the live representative weight table (read-mostly; spec
// §5 "rep-map is lock-free").
func (l *Ledger) Weights() *Weights { return l.weights }

// Process validates blk against txn's current view of the store and, if
// valid, stages every resulting write (account info, block+sideband,
// pending entry) into txn. The caller commits txn under the
// write-database-queue's RoleProcessBatch priority (spec §5).
//
// Check ordering deliberately differs from the ordinal list in spec §4.2:
// the source computes a block's subtype (send/receive/change/epoch) as part
// of deriving the work-difficulty tier, which itself requires the previous
// block's balance — so "is this a gap" and "what subtype is this" must be
// resolved before the work-threshold check can run, even though spec lists
// work first (spec §9 notes this ordering is an implementation choice to
// make explicit).
func (l *Ledger) Process(txn *store.WriteTxn, blk block.Block) (ProcessReturn, error) {
	hash := blk.Hash()

	exists, err := txn.Exists(store.TableBlocks, hash[:])
	if err != nil {
		return ProcessReturn{}, err
	}
	if exists {
		return ProcessReturn{Code: Old}, nil
	}

	prevHash := blk.Previous()
	var prevRec store.BlockRecord
	havePrev := false
	if !prevHash.IsZero() {
		rec, status, err := l.store.GetBlock(txn, prevHash)
		if err != nil {
			return ProcessReturn{}, err
		}
		if status == store.StatusNotFound {
			return ProcessReturn{Code: GapPrevious}, nil
		}
		prevRec = rec
		havePrev = true
	}

	account, err := l.resolveAccount(blk, prevRec, havePrev)
	if err != nil {
		return ProcessReturn{}, err
	}

	var acctInfo store.AccountInfo
	acctStatus := store.StatusNotFound
	if havePrev {
		info, status, err := l.store.GetAccount(txn, account)
		if err != nil {
			return ProcessReturn{}, err
		}
		if status == store.StatusNotFound {
			// previous named a hash but the account has no record: the
			// chain is inconsistent with the store.
			return ProcessReturn{Code: GapPrevious}, nil
		}
		acctInfo = info
		acctStatus = status
		if acctInfo.Head != prevHash {
			if acctInfo.BlockCount >= prevRec.Sideband.Height {
				return ProcessReturn{Code: Fork}, nil
			}
			return ProcessReturn{Code: BlockPosition}, nil
		}
	} else if isBurnAccount(account) {
		return ProcessReturn{Code: OpenedBurnAccount}, nil
	} else {
		// First block of a chain (open, or a first-state with no previous):
		// reject if the account already has a head, since submitting a
		// second "first block" is itself a fork.
		_, status, err := l.store.GetAccount(txn, account)
		if err != nil {
			return ProcessReturn{}, err
		}
		if status == store.StatusSuccess {
			return ProcessReturn{Code: Fork}, nil
		}
	}

	prevBalance := numeric.ZeroUint128
	if havePrev {
		prevBalance = prevRec.Sideband.Balance
	}

	outcome, err := l.classify(txn, blk, account, prevBalance, havePrev, acctInfo)
	if err != nil {
		return ProcessReturn{}, err
	}
	if outcome.Code != Progress {
		return outcome, nil
	}

	thresholdType := blk.Type()
	if thresholdType == block.TypeState {
		switch {
		case outcome.IsSend:
			thresholdType = block.TypeSend
		case !outcome.details.IsReceive && !outcome.details.IsEpoch:
			thresholdType = block.TypeChange
		}
	}
	threshold := l.params.ThresholdFor(outcome.details.Epoch, thresholdType)
	if numeric.Blake2bNonce(blk.Work(), blk.Root()) < threshold {
		return ProcessReturn{Code: InsufficientWork}, nil
	}

	signer := account
	if outcome.details.IsEpoch {
		s, ok := l.params.epochSigner(outcome.details.Epoch)
		if !ok {
			return ProcessReturn{Code: BadSignature}, nil
		}
		signer = s
	}
	if !numeric.Verify(signer, hash[:], blk.Signature()) {
		return ProcessReturn{Code: BadSignature}, nil
	}

	if err := l.apply(txn, blk, hash, account, acctInfo, acctStatus, havePrev, outcome); err != nil {
		return ProcessReturn{}, err
	}

	outcome.Verified = true
	return outcome, nil
}

// resolveAccount derives the owning account of blk. State and open blocks
// carry their account directly; legacy send/receive/change blocks derive it
// from the previous block's sideband, matching spec §4.1's
// `block_account_computed`.
func (l *Ledger) resolveAccount(blk block.Block, prevRec store.BlockRecord, havePrev bool) (numeric.Account, error) {
	switch b := blk.(type) {
	case *block.StateBlock:
		return b.Account, nil
	case *block.OpenBlock:
		return b.Account, nil
	default:
		if !havePrev {
			return numeric.Account{}, fmt.Errorf("ledger: legacy block type %T requires previous", blk)
		}
		return prevRec.Sideband.Account, nil
	}
}

// classifyResult is the internal outcome of determining a block's subtype
// and ledger effect, before the work/signature checks run.
type classifyResult struct {
	ProcessReturn
	details      block.Details
	newBalance   numeric.Uint128
	newRep       numeric.Account
	hasPending   bool
	pendingKey   store.PendingKey
	pendingEntry store.PendingEntry
}

func (l *Ledger) classify(txn *store.WriteTxn, blk block.Block, account numeric.Account, prevBalance numeric.Uint128, havePrev bool, acctInfo store.AccountInfo) (classifyResult, error) {
	switch b := blk.(type) {
	case *block.StateBlock:
		return l.classifyState(txn, b, account, prevBalance, havePrev, acctInfo)
	case *block.SendBlock:
		if b.Balance.Cmp(prevBalance) >= 0 {
			return classifyResult{ProcessReturn: ProcessReturn{Code: NegativeSpend}}, nil
		}
		amount, _ := prevBalance.Sub(b.Balance)
		return classifyResult{
			ProcessReturn: ProcessReturn{Code: Progress, Account: account, Amount: amount, IsSend: true, PreviousBalance: prevBalance},
			details:       block.Details{Epoch: acctInfo.Epoch, IsSend: true},
			newBalance:    b.Balance,
			newRep:        acctInfo.Representative,
			hasPending:    true,
			pendingKey:    store.PendingKey{Destination: b.Destination, SendHash: b.Hash()},
			pendingEntry:  store.PendingEntry{Source: account, Amount: amount, Epoch: acctInfo.Epoch},
		}, nil
	case *block.ReceiveBlock:
		return l.classifyReceive(txn, account, b.SourceHash, prevBalance, acctInfo.Representative, acctInfo.Epoch)
	case *block.OpenBlock:
		return l.classifyOpen(txn, b.Account, b.SourceHash, b.Representative)
	case *block.ChangeBlock:
		return classifyResult{
			ProcessReturn: ProcessReturn{Code: Progress, Account: account, PreviousBalance: prevBalance},
			details:       block.Details{Epoch: acctInfo.Epoch},
			newBalance:    prevBalance,
			newRep:        b.Representative,
		}, nil
	default:
		return classifyResult{}, ErrUnknownBlockType
	}
}

func (l *Ledger) classifyState(txn *store.WriteTxn, b *block.StateBlock, account numeric.Account, prevBalance numeric.Uint128, havePrev bool, acctInfo store.AccountInfo) (classifyResult, error) {
	for e := acctInfo.Epoch + 1; e <= l.params.maxEpoch(); e++ {
		if b.Link == block.EpochLink(e) && b.Balance.Cmp(prevBalance) == 0 {
			return classifyResult{
				ProcessReturn: ProcessReturn{Code: Progress, Account: account, PreviousBalance: prevBalance},
				details:       block.Details{Epoch: e, IsEpoch: true},
				newBalance:    prevBalance,
				newRep:        acctInfo.Representative,
			}, nil
		}
	}

	switch cmp := b.Balance.Cmp(prevBalance); {
	case cmp < 0: // send
		amount, _ := prevBalance.Sub(b.Balance)
		return classifyResult{
			ProcessReturn: ProcessReturn{Code: Progress, Account: account, Amount: amount, IsSend: true, PreviousBalance: prevBalance},
			details:       block.Details{Epoch: acctInfo.Epoch, IsSend: true},
			newBalance:    b.Balance,
			newRep:        b.Representative,
			hasPending:    true,
			pendingKey:    store.PendingKey{Destination: b.LinkAsAccount(), SendHash: b.Hash()},
			pendingEntry:  store.PendingEntry{Source: account, Amount: amount, Epoch: acctInfo.Epoch},
		}, nil
	case cmp > 0: // receive, or open if this is the account's first block
		if !havePrev {
			return l.classifyOpen(txn, b.Account, b.Link, b.Representative)
		}
		return l.classifyReceive(txn, account, b.Link, prevBalance, b.Representative, acctInfo.Epoch)
	default: // representative change only
		return classifyResult{
			ProcessReturn: ProcessReturn{Code: Progress, Account: account, PreviousBalance: prevBalance},
			details:       block.Details{Epoch: acctInfo.Epoch},
			newBalance:    prevBalance,
			newRep:        b.Representative,
		}, nil
	}
}

// classifyReceive resolves a receive/state-receive against its pending
// entry, enforcing epoch monotonicity: the receiving account's epoch may
// only move forward, to max(source_epoch, account_epoch) (spec §4.2 rule 5).
func (l *Ledger) classifyReceive(txn *store.WriteTxn, account numeric.Account, sourceHash numeric.Hash, prevBalance numeric.Uint128, newRep numeric.Account, acctEpoch block.Epoch) (classifyResult, error) {
	srcRec, status, err := l.store.GetBlock(txn, sourceHash)
	if err != nil {
		return classifyResult{}, err
	}
	if status == store.StatusNotFound {
		return classifyResult{ProcessReturn: ProcessReturn{Code: GapSource}}, nil
	}
	pk := store.PendingKey{Destination: account, SendHash: sourceHash}
	pending, status, err := l.store.GetPending(txn, pk)
	if err != nil {
		return classifyResult{}, err
	}
	if status == store.StatusNotFound {
		return classifyResult{ProcessReturn: ProcessReturn{Code: Unreceivable}}, nil
	}
	_ = srcRec
	newBalance, overflow := prevBalance.Add(pending.Amount)
	if overflow {
		return classifyResult{ProcessReturn: ProcessReturn{Code: BalanceMismatch}}, nil
	}
	epoch := acctEpoch
	if pending.Epoch > epoch {
		epoch = pending.Epoch
	}
	return classifyResult{
		ProcessReturn: ProcessReturn{Code: Progress, Account: account, Amount: pending.Amount, PendingAccount: pending.Source, PreviousBalance: prevBalance},
		details:       block.Details{Epoch: epoch, IsReceive: true},
		newBalance:    newBalance,
		newRep:        newRep,
		pendingKey:    pk,
	}, nil
}

// classifyOpen is the first block of a new chain, simultaneously opening
// the account and claiming its first pending entry.
func (l *Ledger) classifyOpen(txn *store.WriteTxn, account numeric.Account, sourceHash numeric.Hash, rep numeric.Account) (classifyResult, error) {
	if isBurnAccount(account) {
		return classifyResult{ProcessReturn: ProcessReturn{Code: OpenedBurnAccount}}, nil
	}
	_, status, err := l.store.GetAccount(txn, account)
	if err != nil {
		return classifyResult{}, err
	}
	if status == store.StatusSuccess {
		return classifyResult{ProcessReturn: ProcessReturn{Code: Fork}}, nil
	}
	pk := store.PendingKey{Destination: account, SendHash: sourceHash}
	pending, status, err := l.store.GetPending(txn, pk)
	if err != nil {
		return classifyResult{}, err
	}
	if status == store.StatusNotFound {
		return classifyResult{ProcessReturn: ProcessReturn{Code: Unreceivable}}, nil
	}
	return classifyResult{
		ProcessReturn: ProcessReturn{Code: Progress, Account: account, Amount: pending.Amount, PendingAccount: pending.Source, PreviousBalance: numeric.ZeroUint128},
		details:       block.Details{Epoch: pending.Epoch, IsReceive: true},
		newBalance:    pending.Amount,
		newRep:        rep,
		pendingKey:    pk,
	}, nil
}

// apply stages every write resulting from a Progress outcome: the block and
// its sideband, the account record, the predecessor's successor pointer,
// pending-entry mutation, and the representative weight movement.
func (l *Ledger) apply(txn *store.WriteTxn, blk block.Block, hash numeric.Hash, account numeric.Account, prevInfo store.AccountInfo, prevStatus store.Status, havePrev bool, outcome classifyResult) error {
	height := uint64(1)
	if havePrev {
		height = prevInfo.BlockCount + 1
	}

	sb := block.Sideband{
		Account:        account,
		Balance:        outcome.newBalance,
		Representative: outcome.newRep,
		Height:         height,
		Timestamp:      l.now().Unix(),
		Details:        outcome.details,
	}
	if err := l.store.PutBlock(txn, hash, store.BlockRecord{Type: blk.Type(), Block: blk, Sideband: sb}); err != nil {
		return err
	}

	if havePrev {
		prevRec, status, err := l.store.GetBlock(txn, blk.Previous())
		if err != nil {
			return err
		}
		if status == store.StatusSuccess {
			prevRec.Sideband.Successor = hash
			if err := l.store.PutBlock(txn, blk.Previous(), prevRec); err != nil {
				return err
			}
		}
	}

	newInfo := store.AccountInfo{
		Head:           hash,
		Representative: outcome.newRep,
		OpenBlock:      prevInfo.OpenBlock,
		Balance:        outcome.newBalance,
		Modified:       sb.Timestamp,
		BlockCount:     height,
		Epoch:          outcome.details.Epoch,
	}
	if !havePrev {
		newInfo.OpenBlock = hash
	}
	if err := l.store.PutAccount(txn, account, newInfo); err != nil {
		return err
	}

	// Representative weights move as a pure function of (old rep, old
	// balance) -> (new rep, new balance), regardless of which subtype this
	// is: "subtract old-rep weight on predecessor balance, add new-rep on
	// new balance" (spec §4.2 rule 8). This also correctly handles a state
	// block that changes its representative and balance in the same block.
	if havePrev {
		l.weights.Adjust(prevInfo.Representative, numeric.ZeroUint128, prevInfo.Balance)
	}
	l.weights.Adjust(outcome.newRep, outcome.newBalance, numeric.ZeroUint128)

	if outcome.IsSend {
		if err := l.store.PutPending(txn, outcome.pendingKey, outcome.pendingEntry); err != nil {
			return err
		}
	} else if outcome.details.IsReceive {
		if err := l.store.DelPending(txn, outcome.pendingKey); err != nil {
			return err
		}
	}

	return nil
}
