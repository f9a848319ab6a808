package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/you/swap-router/internal/agg/core"
	"github.com/you/swap-router/internal/chain"
	"github.com/you/swap-router/internal/config"
	"github.com/you/swap-router/internal/prices"
	"github.com/you/swap-router/internal/token"
)

type fakeCaller struct{}

// every token the tests resolve has 6 decimals
func (fakeCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	erc20, _ := abi.JSON(strings.NewReader(`[{"inputs":[],"name":"decimals","outputs":[{"type":"uint8"}],"stateMutability":"view","type":"function"}]`))
	return erc20.Methods["decimals"].Outputs.Pack(uint8(6))
}

func (fakeCaller) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1e9), nil
}

type fakePrices struct {
	table prices.Table
	err   error
}

func (f *fakePrices) Fetch(ctx context.Context, addrs []common.Address) (prices.Table, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.table, nil
}

type fakeAgg struct {
	name string
	raw  *core.RawQuote
	err  error
	req  *core.QuoteRequest
}

func (f *fakeAgg) Name() string                       { return f.name }
func (f *fakeAgg) SlippageBounds() (min, max float64) { return 0.01, 50 }
func (f *fakeAgg) SupportsPriceCalculation() bool     { return true }

func (f *fakeAgg) Quote(ctx context.Context, req *core.QuoteRequest) (*core.RawQuote, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.raw
	return &cp, nil
}

var usdtAddr = common.HexToAddress("0xfd086bc7cd5c481dcc9c85ebe478a1c0b69fcbb9")

func newTestServer(adapters []core.Aggregator, src PriceSource) *Server {
	cfg := &config.Config{}
	cfg.Chain.NativeSymbol = "ETH"
	cfg.Chain.NativeName = "Ether"
	cfg.Chain.GasCeiling = 5_000_000
	cfg.Timings.QuoteTimeoutMs = 5000
	return New(cfg, adapters, chain.NewClient(fakeCaller{}), src, zap.NewNop())
}

func postQuote(t *testing.T, s *Server, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quote", bytes.NewReader(b))
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)
	return rec
}

func validBody() map[string]any {
	return map[string]any{
		"inputTokenAddress":    token.NativeAddress.Hex(),
		"outputTokenAddress":   usdtAddr.Hex(),
		"amountIn":             "1000000000000000000",
		"slippageLimitPercent": 0.5,
	}
}

func TestHandleQuote_OK(t *testing.T) {
	agg := &fakeAgg{name: "alpha", raw: &core.RawQuote{AmountOut: big.NewInt(2000e6), GasLimit: 200_000}}
	src := &fakePrices{table: prices.Table{
		token.NativeAddress: decimal.NewFromInt(2000),
		usdtAddr:            decimal.NewFromInt(1),
	}}
	s := newTestServer([]core.Aggregator{agg}, src)

	rec := postQuote(t, s, validBody())
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Best *struct {
			Aggregator      string `json:"aggregator"`
			AmountOut       string `json:"amountOut"`
			NetAmountOutUSD string `json:"netAmountOutUsd"`
			Fallback        bool   `json:"fallback"`
		} `json:"bestQuote"`
		All []json.RawMessage `json:"allQuotes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Best)
	assert.Equal(t, "alpha", resp.Best.Aggregator)
	assert.Equal(t, "2000000000", resp.Best.AmountOut)
	assert.False(t, resp.Best.Fallback)
	assert.Len(t, resp.All, 1)

	// request plumbing: gas price, resolved decimals, price-only default off
	require.NotNil(t, agg.req)
	assert.Equal(t, big.NewInt(1e9), agg.req.GasPrice)
	assert.Equal(t, 6, agg.req.Out.Decimals)
	assert.Equal(t, 18, agg.req.In.Decimals)
	assert.Nil(t, agg.req.UserAddress)
}

func TestHandleQuote_UserAddressForwarded(t *testing.T) {
	agg := &fakeAgg{name: "alpha", raw: &core.RawQuote{AmountOut: big.NewInt(1), GasLimit: 1}}
	s := newTestServer([]core.Aggregator{agg}, &fakePrices{table: prices.Table{}})

	body := validBody()
	body["userAddress"] = "0x3333333333333333333333333333333333333333"
	rec := postQuote(t, s, body)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, agg.req.UserAddress)
	assert.Equal(t, common.HexToAddress("0x3333333333333333333333333333333333333333"), *agg.req.UserAddress)
}

func TestHandleQuote_Validation(t *testing.T) {
	s := newTestServer(nil, &fakePrices{})

	cases := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"bad input address", func(b map[string]any) { b["inputTokenAddress"] = "nope" }},
		{"bad output address", func(b map[string]any) { b["outputTokenAddress"] = "0x12" }},
		{"zero amount", func(b map[string]any) { b["amountIn"] = "0" }},
		{"negative amount", func(b map[string]any) { b["amountIn"] = "-5" }},
		{"non-numeric amount", func(b map[string]any) { b["amountIn"] = "1.5e18" }},
		{"slippage too high", func(b map[string]any) { b["slippageLimitPercent"] = 101.0 }},
		{"negative slippage", func(b map[string]any) { b["slippageLimitPercent"] = -1.0 }},
		{"bad user address", func(b map[string]any) { b["userAddress"] = "xyz" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := validBody()
			tc.mutate(body)
			rec := postQuote(t, s, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var e errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
			assert.Equal(t, "bad_request", e.Code)
		})
	}
}

func TestHandleQuote_InvalidJSON(t *testing.T) {
	s := newTestServer(nil, &fakePrices{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quote", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQuote_NoQuotes(t *testing.T) {
	agg := &fakeAgg{name: "alpha", err: errors.New("upstream down")}
	s := newTestServer([]core.Aggregator{agg}, &fakePrices{table: prices.Table{}})

	rec := postQuote(t, s, validBody())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var e errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "no_quotes", e.Code)
}

func TestHandleQuote_PriceFeedDownDegradesToFallback(t *testing.T) {
	agg := &fakeAgg{name: "alpha", raw: &core.RawQuote{AmountOut: big.NewInt(100), GasLimit: 1}}
	s := newTestServer([]core.Aggregator{agg}, &fakePrices{err: errors.New("feed down")})

	rec := postQuote(t, s, validBody())
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Best *struct {
			Fallback bool `json:"fallback"`
		} `json:"bestQuote"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Best)
	assert.True(t, resp.Best.Fallback)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(nil, &fakePrices{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
