package core

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/you/swap-router/internal/token"
)

// Transaction is a prepared execution payload. It is never submitted by this
// service; the caller signs and sends it through its own wallet layer.
type Transaction struct {
	To       common.Address `json:"to"`
	Data     []byte         `json:"data"`
	Value    *big.Int       `json:"value"`
	Gas      uint64         `json:"gas"`
	GasPrice *big.Int       `json:"gasPrice"`
}

// QuoteRequest carries one quoting operation's inputs. GasPrice only
// populates the returned transaction; quoted amounts come from the provider.
type QuoteRequest struct {
	In          token.Currency
	Out         token.Currency
	AmountIn    *big.Int
	SlippagePct float64
	GasPrice    *big.Int
	// UserAddress == nil means price-only mode: no transaction is required.
	UserAddress *common.Address
	Timeout     time.Duration
	EstimateGas bool
}

// WithDeadline derives the per-adapter call context. Zero timeout means the
// parent context bounds the call.
func (r *QuoteRequest) WithDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.Timeout)
}

// RawQuote is an adapter's un-scored answer.
type RawQuote struct {
	AmountOut *big.Int
	Fee       *big.Int // protocol fee deducted from output; nil means zero
	GasLimit  uint64
	Tx        *Transaction // nil in price-only mode
	Elapsed   time.Duration
}

// Aggregator is one routing provider behind a uniform quoting contract.
type Aggregator interface {
	Name() string
	// SlippageBounds are the provider's supported limits in percent;
	// requested slippage outside them is clamped before use.
	SlippageBounds() (min, max float64)
	// SupportsPriceCalculation reports whether the provider may be queried
	// without a user address for reference-price discovery.
	SupportsPriceCalculation() bool
	Quote(ctx context.Context, req *QuoteRequest) (*RawQuote, error)
}

// ClampSlippage fits the requested slippage into the adapter's bounds.
func ClampSlippage(a Aggregator, pct float64) float64 {
	min, max := a.SlippageBounds()
	if pct < min {
		return min
	}
	if pct > max {
		return max
	}
	return pct
}
