package wrapper

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/you/swap-router/internal/agg/core"
	"github.com/you/swap-router/internal/token"
)

const wethABI = `[
  {"inputs":[],"name":"deposit","outputs":[],"stateMutability":"payable","type":"function"},
  {"inputs":[{"internalType":"uint256","name":"wad","type":"uint256"}],"name":"withdraw","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// wrap/unwrap is 1:1 and cheap; no external provider is involved
const wrapGasLimit = 60_000

// Adapter is the identity adapter for native <-> wrapped conversion. It only
// answers for exactly that pair, with amountOut == amountIn and a transaction
// calling the wrapped token's deposit/withdraw entry point directly.
type Adapter struct {
	wrapped common.Address
	wabi    abi.ABI
}

func New(wrapped common.Address) *Adapter {
	wabi, _ := abi.JSON(strings.NewReader(wethABI))
	return &Adapter{wrapped: wrapped, wabi: wabi}
}

func (a *Adapter) Name() string                       { return "wrapped_native" }
func (a *Adapter) SlippageBounds() (min, max float64) { return 0, 100 }
func (a *Adapter) SupportsPriceCalculation() bool     { return false }

func (a *Adapter) Quote(ctx context.Context, req *core.QuoteRequest) (*core.RawQuote, error) {
	start := time.Now()

	wrap := req.In.Address == token.NativeAddress && req.Out.Address == a.wrapped
	unwrap := req.In.Address == a.wrapped && req.Out.Address == token.NativeAddress
	if !wrap && !unwrap {
		return nil, fmt.Errorf("wrapper: %s -> %s is not the native/wrapped pair", req.In.Address.Hex(), req.Out.Address.Hex())
	}

	raw := &core.RawQuote{
		AmountOut: new(big.Int).Set(req.AmountIn),
		GasLimit:  wrapGasLimit,
	}
	if req.UserAddress != nil {
		var (
			data  []byte
			value = new(big.Int)
			err   error
		)
		if wrap {
			data, err = a.wabi.Pack("deposit")
			value = new(big.Int).Set(req.AmountIn)
		} else {
			data, err = a.wabi.Pack("withdraw", req.AmountIn)
		}
		if err != nil {
			return nil, fmt.Errorf("wrapper: pack: %w", err)
		}
		raw.Tx = &core.Transaction{
			To:       a.wrapped,
			Data:     data,
			Value:    value,
			Gas:      wrapGasLimit,
			GasPrice: req.GasPrice,
		}
	}
	raw.Elapsed = time.Since(start)
	return raw, nil
}
