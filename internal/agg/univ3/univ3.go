package univ3

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/you/swap-router/internal/agg/core"
	"github.com/you/swap-router/internal/config"
	"github.com/you/swap-router/internal/multicall"
	"github.com/you/swap-router/internal/token"
)

// Minimal QuoterV2 ABI: quoteExactInputSingle with its gas estimate output.
const quoterV2ABI = `[
  {"inputs":[{"components":[
     {"internalType":"address","name":"tokenIn","type":"address"},
     {"internalType":"address","name":"tokenOut","type":"address"},
     {"internalType":"uint256","name":"amountIn","type":"uint256"},
     {"internalType":"uint24","name":"fee","type":"uint24"},
     {"internalType":"uint160","name":"sqrtPriceLimitX96","type":"uint160"}],
    "internalType":"struct IQuoterV2.QuoteExactInputSingleParams","name":"params","type":"tuple"}],
   "name":"quoteExactInputSingle",
   "outputs":[
     {"internalType":"uint256","name":"amountOut","type":"uint256"},
     {"internalType":"uint160","name":"sqrtPriceX96After","type":"uint160"},
     {"internalType":"uint32","name":"initializedTicksCrossed","type":"uint32"},
     {"internalType":"uint256","name":"gasEstimate","type":"uint256"}],
   "stateMutability":"nonpayable","type":"function"}
]`

// Minimal SwapRouter ABI for building the execution payload.
const routerABI = `[
    {"inputs":[{"components":[{"internalType":"address","name":"tokenIn","type":"address"},{"internalType":"address","name":"tokenOut","type":"address"},{"internalType":"uint24","name":"fee","type":"uint24"},{"internalType":"address","name":"recipient","type":"address"},{"internalType":"uint256","name":"deadline","type":"uint256"},{"internalType":"uint256","name":"amountIn","type":"uint256"},{"internalType":"uint256","name":"amountOutMinimum","type":"uint256"},{"internalType":"uint160","name":"sqrtPriceLimitX96","type":"uint160"}],"internalType":"struct ISwapRouter.ExactInputSingleParams","name":"params","type":"tuple"}],"name":"exactInputSingle","outputs":[{"internalType":"uint256","name":"amountOut","type":"uint256"}],"stateMutability":"payable","type":"function"}
]`

const (
	defaultGasEstimate = 250_000
	txDeadline         = 2 * time.Minute
)

// Adapter quotes directly against Uniswap V3's QuoterV2 contract, batching
// all configured fee tiers through multicall and keeping the best tier.
type Adapter struct {
	log      *zap.Logger
	mc       multicall.IClient
	q2abi    abi.ABI
	rabi     abi.ABI
	quoter   common.Address
	router   common.Address
	wrapped  common.Address
	feeTiers []uint32
}

func New(ccfg config.ChainConfig, mc multicall.IClient, log *zap.Logger) (*Adapter, error) {
	quoter := common.HexToAddress(ccfg.QuoterV2)
	if quoter == (common.Address{}) {
		return nil, fmt.Errorf("quoter v2 address is not configured")
	}
	router := common.HexToAddress(ccfg.SwapRouter)
	if router == (common.Address{}) {
		return nil, fmt.Errorf("swap router address is not configured")
	}

	q2abi, err := abi.JSON(strings.NewReader(quoterV2ABI))
	if err != nil {
		return nil, fmt.Errorf("parse quoter v2 abi: %w", err)
	}
	rabi, err := abi.JSON(strings.NewReader(routerABI))
	if err != nil {
		return nil, fmt.Errorf("parse router abi: %w", err)
	}

	return &Adapter{
		log:      log,
		mc:       mc,
		q2abi:    q2abi,
		rabi:     rabi,
		quoter:   quoter,
		router:   router,
		wrapped:  common.HexToAddress(ccfg.Wrapped),
		feeTiers: ccfg.FeeTiers,
	}, nil
}

func (a *Adapter) Name() string                       { return "uniswap_v3" }
func (a *Adapter) SlippageBounds() (min, max float64) { return 0.01, 50 }
func (a *Adapter) SupportsPriceCalculation() bool     { return true }

func (a *Adapter) Quote(ctx context.Context, req *core.QuoteRequest) (*core.RawQuote, error) {
	start := time.Now()
	slippage := core.ClampSlippage(a, req.SlippagePct)

	// the pool trades the wrapped representation of the native asset
	tokenIn, tokenOut := req.In.Address, req.Out.Address
	if req.In.IsNative() {
		tokenIn = a.wrapped
	}
	if req.Out.IsNative() {
		tokenOut = a.wrapped
	}

	calls := make([]multicall.Call, 0, len(a.feeTiers))
	tierOf := make([]uint32, 0, len(a.feeTiers))
	for _, fee := range a.feeTiers {
		callData, err := a.q2abi.Pack("quoteExactInputSingle", struct {
			TokenIn           common.Address
			TokenOut          common.Address
			AmountIn          *big.Int
			Fee               *big.Int
			SqrtPriceLimitX96 *big.Int
		}{tokenIn, tokenOut, req.AmountIn, big.NewInt(int64(fee)), big.NewInt(0)})
		if err != nil {
			a.log.Warn("failed to pack quote data", zap.Uint32("fee", fee), zap.Error(err))
			continue
		}
		calls = append(calls, multicall.Call{Target: a.quoter, CallData: callData})
		tierOf = append(tierOf, fee)
	}
	if len(calls) == 0 {
		return nil, fmt.Errorf("no valid quoter calls could be constructed")
	}

	results, err := a.mc.Aggregate(ctx, calls)
	if err != nil {
		return nil, fmt.Errorf("multicall aggregate: %w", err)
	}

	var (
		bestOut *big.Int
		bestGas uint64
		bestFee uint32
	)
	for i, res := range results {
		if !res.Success {
			continue
		}
		unpacked, err := a.q2abi.Methods["quoteExactInputSingle"].Outputs.Unpack(res.Data)
		if err != nil || len(unpacked) < 4 {
			continue
		}
		amountOut, ok := unpacked[0].(*big.Int)
		if !ok {
			continue
		}
		gasEstimate, _ := unpacked[3].(*big.Int)
		if bestOut == nil || amountOut.Cmp(bestOut) > 0 {
			bestOut = amountOut
			bestFee = tierOf[i]
			bestGas = defaultGasEstimate
			if gasEstimate != nil && gasEstimate.IsUint64() && gasEstimate.Uint64() > 0 {
				bestGas = gasEstimate.Uint64()
			}
		}
	}
	if bestOut == nil {
		return nil, fmt.Errorf("no pool quoted %s -> %s on any fee tier", tokenIn.Hex(), tokenOut.Hex())
	}

	raw := &core.RawQuote{
		AmountOut: bestOut,
		GasLimit:  bestGas,
	}
	if req.UserAddress != nil {
		tx, err := a.buildSwapTx(req, tokenIn, tokenOut, bestOut, bestFee, bestGas, slippage)
		if err != nil {
			return nil, err
		}
		raw.Tx = tx
	}
	raw.Elapsed = time.Since(start)
	return raw, nil
}

func (a *Adapter) buildSwapTx(req *core.QuoteRequest, tokenIn, tokenOut common.Address, amountOut *big.Int, fee uint32, gas uint64, slippage float64) (*core.Transaction, error) {
	bps := int64(slippage * 100)
	minOut := new(big.Int).Mul(amountOut, big.NewInt(10000-bps))
	minOut.Div(minOut, big.NewInt(10000))

	deadline := time.Now().Add(txDeadline).Unix()
	data, err := a.rabi.Pack("exactInputSingle", struct {
		TokenIn           common.Address
		TokenOut          common.Address
		Fee               *big.Int
		Recipient         common.Address
		Deadline          *big.Int
		AmountIn          *big.Int
		AmountOutMinimum  *big.Int
		SqrtPriceLimitX96 *big.Int
	}{tokenIn, tokenOut, big.NewInt(int64(fee)), *req.UserAddress, big.NewInt(deadline), req.AmountIn, minOut, big.NewInt(0)})
	if err != nil {
		return nil, fmt.Errorf("pack exactInputSingle: %w", err)
	}

	value := new(big.Int)
	if req.In.Address == token.NativeAddress {
		value = new(big.Int).Set(req.AmountIn)
	}
	return &core.Transaction{
		To:       a.router,
		Data:     data,
		Value:    value,
		Gas:      gas,
		GasPrice: req.GasPrice,
	}, nil
}
