package quoting

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/you/swap-router/internal/agg/core"
	"github.com/you/swap-router/internal/token"
)

// DefaultGasCeiling bounds provider-reported gas estimates before they enter
// USD scoring. Provider numbers are not independently verified.
const DefaultGasCeiling = 5_000_000

// Score converts a raw adapter result into a comparable Quote. Pure function:
// identical inputs yield identical GasUSD and NetAmountOutUSD.
func Score(raw *core.RawQuote, req *core.QuoteRequest, agg core.Aggregator, prices Prices, gasCeiling uint64) Quote {
	if gasCeiling == 0 {
		gasCeiling = DefaultGasCeiling
	}
	gasLimit := raw.GasLimit
	if gasLimit > gasCeiling {
		gasLimit = gasCeiling
	}

	fee := raw.Fee
	if fee == nil {
		fee = new(big.Int)
	}

	q := Quote{
		Timestamp:  time.Now(),
		AmountIn:   req.AmountIn,
		AmountOut:  raw.AmountOut,
		Fee:        fee,
		GasLimit:   raw.GasLimit,
		Aggregator: agg,
		Tx:         raw.Tx,
		Elapsed:    raw.Elapsed,
	}

	nativeUSD, haveNative := prices.USD(token.NativeAddress)
	outUSD, haveOut := prices.USD(req.Out.Address)
	if !haveNative || !haveOut {
		q.Fallback = true
		q.GasUSD = decimal.Zero
		q.NetAmountOutUSD = decimal.Zero
		return q
	}

	gasPrice := req.GasPrice
	if gasPrice == nil {
		gasPrice = new(big.Int)
	}
	gasWei := new(big.Int).Mul(new(big.Int).SetUint64(gasLimit), gasPrice)
	q.GasUSD = token.WeiToUSD(gasWei, nativeUSD)

	netOut := new(big.Int).Sub(raw.AmountOut, fee)
	amountOutUSD := token.ToDecimal(netOut, req.Out.Decimals).Mul(outUSD)
	q.NetAmountOutUSD = amountOutUSD.Sub(q.GasUSD)
	return q
}
