package oneinch

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/you/swap-router/internal/agg/core"
	"github.com/you/swap-router/internal/config"
	"github.com/you/swap-router/internal/httpx"
)

// Adapter quotes through a 1inch-style aggregation API: GET /quote for
// price-only discovery and GET /swap for a fully built transaction.
type Adapter struct {
	cfg  config.ProviderConfig
	http *httpx.Client
	log  *zap.Logger
}

func New(cfg config.ProviderConfig, log *zap.Logger) *Adapter {
	h := httpx.New(30 * time.Second)
	if cfg.APIKey != "" {
		h.Headers = map[string]string{"Authorization": "Bearer " + cfg.APIKey}
	}
	return &Adapter{cfg: cfg, http: h, log: log}
}

func (a *Adapter) Name() string                       { return "oneinch" }
func (a *Adapter) SlippageBounds() (min, max float64) { return a.cfg.MinSlippage, a.cfg.MaxSlippage }
func (a *Adapter) SupportsPriceCalculation() bool     { return a.cfg.PriceQueries }

type quoteResponse struct {
	ToTokenAmount string `json:"toTokenAmount"`
	EstimatedGas  uint64 `json:"estimatedGas"`
}

type swapResponse struct {
	ToTokenAmount string `json:"toTokenAmount"`
	Tx            struct {
		From     string `json:"from"`
		To       string `json:"to"`
		Data     string `json:"data"`
		Value    string `json:"value"`
		Gas      uint64 `json:"gas"`
		GasPrice string `json:"gasPrice"`
	} `json:"tx"`
}

func (a *Adapter) Quote(ctx context.Context, req *core.QuoteRequest) (*core.RawQuote, error) {
	start := time.Now()
	slippage := core.ClampSlippage(a, req.SlippagePct)

	if req.UserAddress == nil {
		var resp quoteResponse
		if err := a.http.GetJSON(ctx, a.quoteURL(req), &resp); err != nil {
			return nil, fmt.Errorf("oneinch quote: %w", err)
		}
		amountOut, err := core.ParseAmount(resp.ToTokenAmount)
		if err != nil {
			return nil, fmt.Errorf("oneinch quote: toTokenAmount: %w", err)
		}
		return &core.RawQuote{
			AmountOut: amountOut,
			GasLimit:  resp.EstimatedGas,
			Elapsed:   time.Since(start),
		}, nil
	}

	swapURL := a.swapURL(req, slippage)
	a.log.Debug("oneinch swap request", zap.String("url", swapURL))

	var resp swapResponse
	if err := a.http.GetJSON(ctx, swapURL, &resp); err != nil {
		return nil, fmt.Errorf("oneinch swap: %w", err)
	}
	amountOut, err := core.ParseAmount(resp.ToTokenAmount)
	if err != nil {
		return nil, fmt.Errorf("oneinch swap: toTokenAmount: %w", err)
	}
	value, err := core.ParseAmount(resp.Tx.Value)
	if err != nil {
		return nil, fmt.Errorf("oneinch swap: tx value: %w", err)
	}
	data, err := core.ParseHexData(resp.Tx.Data)
	if err != nil {
		return nil, fmt.Errorf("oneinch swap: tx data: %w", err)
	}

	return &core.RawQuote{
		AmountOut: amountOut,
		GasLimit:  resp.Tx.Gas,
		Tx: &core.Transaction{
			To:       common.HexToAddress(resp.Tx.To),
			Data:     data,
			Value:    value,
			Gas:      resp.Tx.Gas,
			GasPrice: req.GasPrice,
		},
		Elapsed: time.Since(start),
	}, nil
}

func (a *Adapter) quoteURL(req *core.QuoteRequest) string {
	params := url.Values{}
	params.Set("fromTokenAddress", req.In.Address.Hex())
	params.Set("toTokenAddress", req.Out.Address.Hex())
	params.Set("amount", req.AmountIn.String())
	return fmt.Sprintf("%s/%d/quote?%s", a.cfg.BaseURL, a.cfg.ChainID, params.Encode())
}

func (a *Adapter) swapURL(req *core.QuoteRequest, slippage float64) string {
	params := url.Values{}
	params.Set("fromTokenAddress", req.In.Address.Hex())
	params.Set("toTokenAddress", req.Out.Address.Hex())
	params.Set("amount", req.AmountIn.String())
	params.Set("fromAddress", req.UserAddress.Hex())
	params.Set("slippage", decimal.NewFromFloat(slippage).String())
	if !req.EstimateGas {
		params.Set("disableEstimate", "true")
	}
	return fmt.Sprintf("%s/%d/swap?%s", a.cfg.BaseURL, a.cfg.ChainID, params.Encode())
}
