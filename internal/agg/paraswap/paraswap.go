package paraswap

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/you/swap-router/internal/agg/core"
	"github.com/you/swap-router/internal/config"
	"github.com/you/swap-router/internal/httpx"
)

// Adapter quotes through a ParaSwap-style API: GET /prices returns a price
// route, POST /transactions builds the execution payload from it. The second
// step is skipped in price-only mode.
type Adapter struct {
	cfg  config.ProviderConfig
	http *httpx.Client
	log  *zap.Logger
}

func New(cfg config.ProviderConfig, log *zap.Logger) *Adapter {
	h := httpx.New(30 * time.Second)
	if cfg.APIKey != "" {
		h.Headers = map[string]string{"X-API-Key": cfg.APIKey}
	}
	return &Adapter{cfg: cfg, http: h, log: log}
}

func (a *Adapter) Name() string                       { return "paraswap" }
func (a *Adapter) SlippageBounds() (min, max float64) { return a.cfg.MinSlippage, a.cfg.MaxSlippage }
func (a *Adapter) SupportsPriceCalculation() bool     { return a.cfg.PriceQueries }

// pricesResponse keeps the raw priceRoute alongside the two fields we read:
// the route must be echoed back verbatim when building the transaction.
type pricesResponse struct {
	DestAmount string
	GasCost    string
	rawRoute   json.RawMessage
}

func (r *pricesResponse) UnmarshalJSON(b []byte) error {
	var outer struct {
		PriceRoute json.RawMessage `json:"priceRoute"`
	}
	if err := json.Unmarshal(b, &outer); err != nil {
		return err
	}
	r.rawRoute = outer.PriceRoute
	var inner struct {
		DestAmount string `json:"destAmount"`
		GasCost    string `json:"gasCost"`
	}
	if err := json.Unmarshal(outer.PriceRoute, &inner); err != nil {
		return err
	}
	r.DestAmount = inner.DestAmount
	r.GasCost = inner.GasCost
	return nil
}

type txResponse struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Value    string `json:"value"`
	Data     string `json:"data"`
	Gas      uint64 `json:"gas"`
	GasPrice string `json:"gasPrice"`
}

func (a *Adapter) Quote(ctx context.Context, req *core.QuoteRequest) (*core.RawQuote, error) {
	start := time.Now()
	slippage := core.ClampSlippage(a, req.SlippagePct)

	var prices pricesResponse
	if err := a.http.GetJSON(ctx, a.pricesURL(req), &prices); err != nil {
		return nil, fmt.Errorf("paraswap prices: %w", err)
	}
	destAmount, err := core.ParseAmount(prices.DestAmount)
	if err != nil {
		return nil, fmt.Errorf("paraswap prices: destAmount: %w", err)
	}
	gasCost, err := core.ParseAmount(prices.GasCost)
	if err != nil {
		return nil, fmt.Errorf("paraswap prices: gasCost: %w", err)
	}

	raw := &core.RawQuote{
		AmountOut: destAmount,
		GasLimit:  gasCost.Uint64(),
	}
	if req.UserAddress == nil {
		raw.Elapsed = time.Since(start)
		return raw, nil
	}

	// amountOutMinimum from the clamped slippage, in basis points
	bps := int64(slippage * 100)
	minDest := new(big.Int).Mul(destAmount, big.NewInt(10000-bps))
	minDest.Div(minDest, big.NewInt(10000))

	body := map[string]any{
		"srcToken":    req.In.Address.Hex(),
		"destToken":   req.Out.Address.Hex(),
		"srcAmount":   req.AmountIn.String(),
		"destAmount":  minDest.String(),
		"priceRoute":  prices.rawRoute,
		"userAddress": req.UserAddress.Hex(),
	}
	a.log.Debug("paraswap build transaction",
		zap.String("dest_amount", destAmount.String()),
		zap.String("min_dest", minDest.String()),
	)

	var tx txResponse
	if err := a.http.PostJSON(ctx, a.transactionsURL(), body, &tx); err != nil {
		return nil, fmt.Errorf("paraswap transactions: %w", err)
	}
	value, err := core.ParseAmount(tx.Value)
	if err != nil {
		return nil, fmt.Errorf("paraswap transactions: value: %w", err)
	}
	data, err := core.ParseHexData(tx.Data)
	if err != nil {
		return nil, fmt.Errorf("paraswap transactions: data: %w", err)
	}
	gas := tx.Gas
	if gas == 0 {
		gas = raw.GasLimit
	}

	raw.GasLimit = gas
	raw.Tx = &core.Transaction{
		To:       common.HexToAddress(tx.To),
		Data:     data,
		Value:    value,
		Gas:      gas,
		GasPrice: req.GasPrice,
	}
	raw.Elapsed = time.Since(start)
	return raw, nil
}

func (a *Adapter) pricesURL(req *core.QuoteRequest) string {
	params := url.Values{}
	params.Set("srcToken", req.In.Address.Hex())
	params.Set("destToken", req.Out.Address.Hex())
	params.Set("srcDecimals", fmt.Sprint(req.In.Decimals))
	params.Set("destDecimals", fmt.Sprint(req.Out.Decimals))
	params.Set("amount", req.AmountIn.String())
	params.Set("side", "SELL")
	params.Set("network", fmt.Sprint(a.cfg.ChainID))
	return a.cfg.BaseURL + "/prices?" + params.Encode()
}

func (a *Adapter) transactionsURL() string {
	return fmt.Sprintf("%s/transactions/%d?ignoreChecks=true", a.cfg.BaseURL, a.cfg.ChainID)
}
