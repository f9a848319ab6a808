package oneinch

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

func newTestAdapter(rt rtFunc) *Adapter {
	a := New(config.ProviderConfig{
		BaseURL:     "https://api.example.com/v5.2",
		APIKey:      "test-key",
		ChainID:     42161,
		MinSlippage: 0.1,
		MaxSlippage: 3,
	}, zap.NewNop())
	a.http.HTTP.Transport = rt
	return a
}

func swapRequest() *core.QuoteRequest {
	return &core.QuoteRequest{
		In:          token.Native("ETH", "Ether"),
		Out:         token.Currency{Address: usdtAddr, Decimals: 6},
		AmountIn:    big.NewInt(1e18),
		SlippagePct: 0.5,
		GasPrice:    big.NewInt(1e9),
		UserAddress: &userAddr,
		EstimateGas: true,
	}
}

func TestQuote_PriceOnly(t *testing.T) {
	a := newTestAdapter(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/v5.2/42161/quote", req.URL.Path)
		assert.Equal(t, "Bearer test-key", req.Header.Get("Authorization"))
		q := req.URL.Query()
		assert.Equal(t, token.NativeAddress.Hex(), q.Get("fromTokenAddress"))
		assert.Equal(t, usdtAddr.Hex(), q.Get("toTokenAddress"))
		assert.Equal(t, "1000000000000000000", q.Get("amount"))
		assert.Empty(t, q.Get("fromAddress"))

		return jsonResp(200, map[string]any{
			"toTokenAmount": "2000000000",
			"estimatedGas":  180000,
		}), nil
	})

	req := swapRequest()
	req.UserAddress = nil
	raw, err := a.Quote(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(2000e6), raw.AmountOut)
	assert.Equal(t, uint64(180000), raw.GasLimit)
	assert.Nil(t, raw.Tx)
}

func TestQuote_Swap(t *testing.T) {
	a := newTestAdapter(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/v5.2/42161/swap", req.URL.Path)
		q := req.URL.Query()
		assert.Equal(t, userAddr.Hex(), q.Get("fromAddress"))
		assert.Equal(t, "0.5", q.Get("slippage"))
		assert.Empty(t, q.Get("disableEstimate"))

		return jsonResp(200, map[string]any{
			"toTokenAmount": "1995000000",
			"tx": map[string]any{
				"to":       "0x1111111254eeb25477b68fb85ed929f73a960582",
				"data":     "0xcafebabe",
				"value":    "1000000000000000000",
				"gas":      210000,
				"gasPrice": "1000000000",
			},
		}), nil
	})

	raw, err := a.Quote(context.Background(), swapRequest())
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(1995e6), raw.AmountOut)
	assert.Equal(t, uint64(210000), raw.GasLimit)
	require.NotNil(t, raw.Tx)
	assert.Equal(t, common.HexToAddress("0x1111111254eeb25477b68fb85ed929f73a960582"), raw.Tx.To)
	assert.Equal(t, []byte{0xca, 0xfe, 0xba, 0xbe}, raw.Tx.Data)
	assert.Equal(t, big.NewInt(1e18), raw.Tx.Value)
	assert.Equal(t, big.NewInt(1e9), raw.Tx.GasPrice)
}

func TestQuote_ClampsSlippageAndDisablesEstimate(t *testing.T) {
	a := newTestAdapter(func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		assert.Equal(t, "3", q.Get("slippage"))
		assert.Equal(t, "true", q.Get("disableEstimate"))
		return jsonResp(200, map[string]any{"toTokenAmount": "1", "tx": map[string]any{}}), nil
	})

	req := swapRequest()
	req.SlippagePct = 25
	req.EstimateGas = false
	_, err := a.Quote(context.Background(), req)
	require.NoError(t, err)
}

func TestQuote_UpstreamError(t *testing.T) {
	a := newTestAdapter(func(req *http.Request) (*http.Response, error) {
		return jsonResp(500, map[string]string{"error": "insufficient liquidity"}), nil
	})

	req := swapRequest()
	req.UserAddress = nil
	_, err := a.Quote(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient liquidity")
}
