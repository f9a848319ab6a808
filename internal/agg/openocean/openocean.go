package openocean

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/you/swap-router/internal/agg/core"
	"github.com/you/swap-router/internal/config"
	"github.com/you/swap-router/internal/httpx"
	"github.com/you/swap-router/internal/token"
)

// tokenListTTL bounds how long the supported-token list is reused before a
// refetch. The list changes rarely; staleness only delays new listings.
const tokenListTTL = 10 * time.Minute

// Adapter quotes through an OpenOcean-style API. The provider has a single
// swap_quote endpoint that always builds a transaction; in price-only mode
// the transaction is simply discarded. Unsupported tokens are rejected
// locally against a cached token list.
type Adapter struct {
	cfg  config.ProviderConfig
	http *httpx.Client
	log  *zap.Logger

	mu         sync.Mutex
	tokens     map[common.Address]struct{}
	tokensTill time.Time
}

func New(cfg config.ProviderConfig, log *zap.Logger) *Adapter {
	return &Adapter{cfg: cfg, http: httpx.New(30 * time.Second), log: log}
}

func (a *Adapter) Name() string                       { return "openocean" }
func (a *Adapter) SlippageBounds() (min, max float64) { return a.cfg.MinSlippage, a.cfg.MaxSlippage }
func (a *Adapter) SupportsPriceCalculation() bool     { return a.cfg.PriceQueries }

type swapQuoteResponse struct {
	Data struct {
		OutAmount    string `json:"outAmount"`
		EstimatedGas uint64 `json:"estimatedGas"`
		To           string `json:"to"`
		Value        string `json:"value"`
		Data         string `json:"data"`
	} `json:"data"`
}

type tokenListResponse struct {
	Data []struct {
		Address string `json:"address"`
	} `json:"data"`
}

func (a *Adapter) Quote(ctx context.Context, req *core.QuoteRequest) (*core.RawQuote, error) {
	start := time.Now()
	slippage := core.ClampSlippage(a, req.SlippagePct)

	for _, cur := range []token.Currency{req.In, req.Out} {
		ok, err := a.supported(ctx, cur.Address)
		if err != nil {
			return nil, fmt.Errorf("openocean token list: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("openocean: token %s not supported", cur.Address.Hex())
		}
	}

	var resp swapQuoteResponse
	if err := a.http.GetJSON(ctx, a.swapQuoteURL(req, slippage), &resp); err != nil {
		return nil, fmt.Errorf("openocean swap_quote: %w", err)
	}
	amountOut, err := core.ParseAmount(resp.Data.OutAmount)
	if err != nil {
		return nil, fmt.Errorf("openocean swap_quote: outAmount: %w", err)
	}

	raw := &core.RawQuote{
		AmountOut: amountOut,
		GasLimit:  resp.Data.EstimatedGas,
		Elapsed:   time.Since(start),
	}
	if req.UserAddress == nil {
		// the provider built a transaction anyway; discard it
		return raw, nil
	}

	value, err := core.ParseAmount(resp.Data.Value)
	if err != nil {
		return nil, fmt.Errorf("openocean swap_quote: value: %w", err)
	}
	data, err := core.ParseHexData(resp.Data.Data)
	if err != nil {
		return nil, fmt.Errorf("openocean swap_quote: data: %w", err)
	}
	raw.Tx = &core.Transaction{
		To:       common.HexToAddress(resp.Data.To),
		Data:     data,
		Value:    value,
		Gas:      resp.Data.EstimatedGas,
		GasPrice: req.GasPrice,
	}
	return raw, nil
}

// supported consults the cached token list, refetching after tokenListTTL.
// The native sentinel is always supported.
func (a *Adapter) supported(ctx context.Context, addr common.Address) (bool, error) {
	if addr == token.NativeAddress {
		return true, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.tokens == nil || time.Now().After(a.tokensTill) {
		var resp tokenListResponse
		u := fmt.Sprintf("%s/v3/%d/tokenList", a.cfg.BaseURL, a.cfg.ChainID)
		if err := a.http.GetJSON(ctx, u, &resp); err != nil {
			return false, err
		}
		tokens := make(map[common.Address]struct{}, len(resp.Data))
		for _, t := range resp.Data {
			tokens[common.HexToAddress(strings.TrimSpace(t.Address))] = struct{}{}
		}
		a.tokens = tokens
		a.tokensTill = time.Now().Add(tokenListTTL)
		a.log.Debug("openocean token list refreshed", zap.Int("count", len(tokens)))
	}
	_, ok := a.tokens[addr]
	return ok, nil
}

func (a *Adapter) swapQuoteURL(req *core.QuoteRequest, slippage float64) string {
	params := url.Values{}
	params.Set("inTokenAddress", req.In.Address.Hex())
	params.Set("outTokenAddress", req.Out.Address.Hex())
	params.Set("amount", req.AmountIn.String())
	params.Set("slippage", decimal.NewFromFloat(slippage).String())
	if req.GasPrice != nil {
		params.Set("gasPrice", req.GasPrice.String())
	}
	if req.UserAddress != nil {
		params.Set("account", req.UserAddress.Hex())
	}
	return fmt.Sprintf("%s/v3/%d/swap_quote?%s", a.cfg.BaseURL, a.cfg.ChainID, params.Encode())
}
