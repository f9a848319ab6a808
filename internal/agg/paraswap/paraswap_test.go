package paraswap

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/you/swap-router/internal/agg/core"
	"github.com/you/swap-router/internal/config"
	"github.com/you/swap-router/internal/token"
)

type rtFunc func(*http.Request) (*http.Response, error)

func (f rtFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResp(status int, v any) *http.Response {
	b, _ := json.Marshal(v)
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader(b)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

var (
	usdtAddr = common.HexToAddress("0xfd086bc7cd5c481dcc9c85ebe478a1c0b69fcbb9")
	userAddr = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

// priceRoute as the API would return it: fields we read plus provider
// internals that must survive the round trip untouched.
var priceRouteBody = map[string]any{
	"destAmount":  "2000000000",
	"gasCost":     "250000",
	"bestRoute":   []any{map[string]any{"exchange": "UniswapV3", "percent": 100}},
	"contractFee": "0",
}

func newTestAdapter(rt rtFunc) *Adapter {
	a := New(config.ProviderConfig{
		BaseURL:     "https://api.example.com",
		APIKey:      "ps-key",
		ChainID:     42161,
		MinSlippage: 0.1,
		MaxSlippage: 15,
	}, zap.NewNop())
	a.http.HTTP.Transport = rt
	return a
}

func swapRequest() *core.QuoteRequest {
	return &core.QuoteRequest{
		In:          token.Native("ETH", "Ether"),
		Out:         token.Currency{Address: usdtAddr, Decimals: 6},
		AmountIn:    big.NewInt(1e18),
		SlippagePct: 1,
		GasPrice:    big.NewInt(1e9),
		UserAddress: &userAddr,
	}
}

func TestQuote_PriceOnlySkipsTransactionStep(t *testing.T) {
	var posts int
	a := newTestAdapter(func(req *http.Request) (*http.Response, error) {
		if req.Method == http.MethodPost {
			posts++
			return jsonResp(200, map[string]any{}), nil
		}
		assert.Equal(t, "/prices", req.URL.Path)
		assert.Equal(t, "ps-key", req.Header.Get("X-API-Key"))
		q := req.URL.Query()
		assert.Equal(t, "SELL", q.Get("side"))
		assert.Equal(t, "42161", q.Get("network"))
		assert.Equal(t, "6", q.Get("destDecimals"))
		return jsonResp(200, map[string]any{"priceRoute": priceRouteBody}), nil
	})

	req := swapRequest()
	req.UserAddress = nil
	raw, err := a.Quote(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(2000e6), raw.AmountOut)
	assert.Equal(t, uint64(250000), raw.GasLimit)
	assert.Nil(t, raw.Tx)
	assert.Equal(t, 0, posts)
}

func TestQuote_BuildsTransactionFromRoute(t *testing.T) {
	a := newTestAdapter(func(req *http.Request) (*http.Response, error) {
		if req.Method == http.MethodGet {
			return jsonResp(200, map[string]any{"priceRoute": priceRouteBody}), nil
		}

		assert.Equal(t, "/transactions/42161", req.URL.Path)
		assert.Equal(t, "true", req.URL.Query().Get("ignoreChecks"))

		var body map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		// the route goes back verbatim, provider internals included
		assert.Contains(t, string(body["priceRoute"]), "bestRoute")
		// 1% slippage off 2000000000
		assert.Equal(t, `"1980000000"`, string(body["destAmount"]))
		assert.Equal(t, `"`+userAddr.Hex()+`"`, string(body["userAddress"]))

		return jsonResp(200, map[string]any{
			"to":       "0xdef171fe48cf0115b1d80b88dc8eab59176fee57",
			"data":     "0x0102",
			"value":    "1000000000000000000",
			"gas":      300000,
			"gasPrice": "1000000000",
		}), nil
	})

	raw, err := a.Quote(context.Background(), swapRequest())
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(2000e6), raw.AmountOut)
	assert.Equal(t, uint64(300000), raw.GasLimit)
	require.NotNil(t, raw.Tx)
	assert.Equal(t, common.HexToAddress("0xdef171fe48cf0115b1d80b88dc8eab59176fee57"), raw.Tx.To)
	assert.Equal(t, []byte{0x01, 0x02}, raw.Tx.Data)
	assert.Equal(t, big.NewInt(1e18), raw.Tx.Value)
}

func TestQuote_GasFallsBackToRouteEstimate(t *testing.T) {
	a := newTestAdapter(func(req *http.Request) (*http.Response, error) {
		if req.Method == http.MethodGet {
			return jsonResp(200, map[string]any{"priceRoute": priceRouteBody}), nil
		}
		// transaction builder omitted gas
		return jsonResp(200, map[string]any{"to": "0x0", "data": "0x", "value": "0"}), nil
	})

	raw, err := a.Quote(context.Background(), swapRequest())
	require.NoError(t, err)
	assert.Equal(t, uint64(250000), raw.GasLimit)
}

func TestQuote_PricesError(t *testing.T) {
	a := newTestAdapter(func(req *http.Request) (*http.Response, error) {
		return jsonResp(400, map[string]string{"error": "No routes found"}), nil
	})

	_, err := a.Quote(context.Background(), swapRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No routes found")
}
