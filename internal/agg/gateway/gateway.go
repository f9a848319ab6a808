package gateway

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/you/swap-router/internal/agg/core"
	"github.com/you/swap-router/internal/token"
)

const gatewayABI = `[
  {"inputs":[
     {"internalType":"address","name":"inToken","type":"address"},
     {"internalType":"address","name":"outToken","type":"address"},
     {"internalType":"uint256","name":"amountIn","type":"uint256"},
     {"internalType":"address","name":"router","type":"address"},
     {"internalType":"bytes","name":"data","type":"bytes"}],
   "name":"swap","outputs":[],"stateMutability":"payable","type":"function"}
]`

// GasMargin covers the gateway contract's own overhead on top of the inner
// route's gas limit.
const GasMargin = 300_000

// Adapter wraps one inner routing adapter and rewrites its transaction to go
// through a fixed gateway contract, so the caller approves and calls a single
// contract no matter which provider fills the trade. Quoted amounts and the
// adapter identity are the inner adapter's.
type Adapter struct {
	inner   core.Aggregator
	gateway common.Address
	gabi    abi.ABI
}

func Wrap(inner core.Aggregator, gatewayAddr common.Address) (*Adapter, error) {
	if gatewayAddr == (common.Address{}) {
		return nil, fmt.Errorf("gateway address is not configured")
	}
	gabi, err := abi.JSON(strings.NewReader(gatewayABI))
	if err != nil {
		return nil, fmt.Errorf("parse gateway abi: %w", err)
	}
	return &Adapter{inner: inner, gateway: gatewayAddr, gabi: gabi}, nil
}

func (a *Adapter) Name() string                       { return a.inner.Name() }
func (a *Adapter) SlippageBounds() (min, max float64) { return a.inner.SlippageBounds() }
func (a *Adapter) SupportsPriceCalculation() bool     { return a.inner.SupportsPriceCalculation() }

func (a *Adapter) Quote(ctx context.Context, req *core.QuoteRequest) (*core.RawQuote, error) {
	raw, err := a.inner.Quote(ctx, req)
	if err != nil {
		return nil, err
	}
	if raw.Tx == nil {
		return raw, nil
	}

	// router is the inner adapter's own contract; its calldata rides along
	data, err := a.gabi.Pack("swap", req.In.Address, req.Out.Address, req.AmountIn, raw.Tx.To, raw.Tx.Data)
	if err != nil {
		return nil, fmt.Errorf("gateway: pack swap: %w", err)
	}

	value := new(big.Int)
	if req.In.Address == token.NativeAddress {
		value = new(big.Int).Set(req.AmountIn)
	}

	gas := raw.Tx.Gas + GasMargin
	raw.GasLimit = gas
	raw.Tx = &core.Transaction{
		To:       a.gateway,
		Data:     data,
		Value:    value,
		Gas:      gas,
		GasPrice: raw.Tx.GasPrice,
	}
	return raw, nil
}
