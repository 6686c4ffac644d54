// Copyright 2025 Certen Protocol

package ledger

import (
	"github.com/consensuscore/node/pkg/block"
	"github.com/consensuscore/node/pkg/numeric"
)

// ProcessReturn is the full outcome of Process, matching spec §4.2's
// `ProcessReturn{ code, account, amount, pending_account, is_send?,
// verified, previous_balance }`.
type ProcessReturn struct {
	Code            ProcessResultCode
	Account         numeric.Account
	Amount          numeric.Uint128
	PendingAccount  numeric.Account
	IsSend          bool
	Verified        bool
	PreviousBalance numeric.Uint128
}

// burnAccount is the all-zero account; opening it is always rejected (spec
// §4.2 result code `opened_burn_account`), matching the convention that the
// zero public key can never be a live chain.
var burnAccount = numeric.Account{}

func isBurnAccount(a numeric.Account) bool {
	return a == burnAccount
}

// blockDetailsOf derives the sideband Details for a block given the ledger
// state surrounding it. Only the ledger computes this; it is never supplied
// by the submitter.
func blockDetailsOf(t block.Type, epoch block.Epoch, isSend, isReceive, isEpoch bool) block.Details {
	return block.Details{Epoch: epoch, IsSend: isSend, IsReceive: isReceive, IsEpoch: isEpoch}
}
