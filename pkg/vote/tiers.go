// Copyright 2025 Certen Protocol
//
// Weight tiers: admission policy classifying representatives by weight
// relative to total online stake (spec §4.5).

package vote

import (
	"math/big"

	"github.com/consensuscore/node/pkg/numeric"
)

// Tier is a representative's weight classification relative to online
// stake, used to gate vote admission under queue pressure.
type Tier int

const (
	// TierNone: below the 0.1% threshold; admitted only when the queue has
	// plenty of headroom.
	TierNone Tier = iota
	Tier1          // > 0.1% of online stake
	Tier2          // > 1%
	Tier3          // > 5%
)

// tierFactor expresses "weight > pct% of stake" as the integer comparison
// weight*factor > stake, avoiding floating point on balances that can
// exceed 64 bits. factor = 100/pct.
const (
	tier1Factor = 1000 // 100/0.1
	tier2Factor = 100  // 100/1
	tier3Factor = 20   // 100/5
)

// TierOf classifies weight against total online stake.
func TierOf(weight, onlineStake numeric.Uint128) Tier {
	if onlineStake.IsZero() {
		return TierNone
	}
	w := weight.Big()
	stake := onlineStake.Big()

	switch {
	case exceedsFactor(w, stake, tier3Factor):
		return Tier3
	case exceedsFactor(w, stake, tier2Factor):
		return Tier2
	case exceedsFactor(w, stake, tier1Factor):
		return Tier1
	default:
		return TierNone
	}
}

func exceedsFactor(weight, stake *big.Int, factor int64) bool {
	scaled := new(big.Int).Mul(weight, big.NewInt(factor))
	return scaled.Cmp(stake) > 0
}
