package quoting

import (
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/you/swap-router/internal/agg/core"
)

// ErrNoQuotes is returned by SelectBest when every adapter failed or quoted
// zero output. Per-adapter failures never surface through any other path.
var ErrNoQuotes = errors.New("no quotes available")

// Prices maps a token address to its USD price. The native asset is keyed by
// the token.NativeAddress sentinel. The table is supplied fresh per call by
// an external price-feed layer; a missing or non-positive entry degrades
// ranking to the raw-amount fallback.
type Prices map[common.Address]decimal.Decimal

func (p Prices) USD(addr common.Address) (decimal.Decimal, bool) {
	v, ok := p[addr]
	if !ok || !v.IsPositive() {
		return decimal.Zero, false
	}
	return v, true
}

// Quote is one adapter's scored answer. Aggregator identifies the producer
// by reference; it is the de-duplication key in live mode.
type Quote struct {
	Timestamp  time.Time
	AmountIn   *big.Int
	AmountOut  *big.Int
	Fee        *big.Int
	GasLimit   uint64
	Aggregator core.Aggregator
	Tx         *core.Transaction

	GasUSD          decimal.Decimal
	NetAmountOutUSD decimal.Decimal
	// Fallback marks a quote ranked by raw output because a USD price was
	// unavailable; such quotes carry zero GasUSD and NetAmountOutUSD.
	Fallback bool

	Elapsed time.Duration
}

// Snapshot is what both modes expose: the running (or final) best plus every
// retained per-adapter quote.
type Snapshot struct {
	Best *Quote  `json:"bestQuote"`
	All  []Quote `json:"allQuotes"`
}

// better reports whether a should replace b as the best quote. A USD-ranked
// quote always beats a fallback; ties break on aggregator name so the result
// does not depend on settlement order.
func better(a, b *Quote) bool {
	if b == nil {
		return true
	}
	if a.Fallback != b.Fallback {
		return b.Fallback
	}
	if a.Fallback {
		if c := a.AmountOut.Cmp(b.AmountOut); c != 0 {
			return c > 0
		}
	} else {
		if c := a.NetAmountOutUSD.Cmp(b.NetAmountOutUSD); c != 0 {
			return c > 0
		}
	}
	return a.Aggregator.Name() < b.Aggregator.Name()
}
