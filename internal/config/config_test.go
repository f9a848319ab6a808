package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
chain:
  rpc_http: "http://localhost:8545"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8545", cfg.Chain.RPCHTTP)
	assert.Equal(t, []uint32{100, 500, 3000, 10000}, cfg.Chain.FeeTiers)
	assert.Equal(t, uint64(5_000_000), cfg.Chain.GasCeiling)
	assert.Equal(t, "ETH", cfg.Chain.NativeSymbol)
	assert.Equal(t, 5*time.Second, cfg.QuoteTimeout())
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, ":9091", cfg.Metrics.ListenAddr)
	assert.Equal(t, "ethereum", cfg.Prices.NativeID)

	// every adapter enabled unless the file narrows the list
	assert.Equal(t, []string{"oneinch", "paraswap", "openocean", "uniswap_v3", "wrapped_native"}, cfg.Aggregators.Enabled)

	for _, p := range []ProviderConfig{cfg.Aggregators.OneInch, cfg.Aggregators.ParaSwap, cfg.Aggregators.OpenOcean} {
		assert.Equal(t, 0.01, p.MinSlippage)
		assert.Equal(t, 50.0, p.MaxSlippage)
	}
}

func TestLoad_ExplicitValuesKept(t *testing.T) {
	path := writeConfig(t, `
chain:
  rpc_http: "http://localhost:8545"
  gas_ceiling: 2000000
  fee_tiers: [500, 3000]
aggregators:
  enabled: [oneinch]
  oneinch:
    base_url: "https://api.1inch.dev/swap/v5.2"
    chain_id: 42161
    min_slippage: 0.1
    max_slippage: 3
timings:
  quote_timeout_ms: 1500
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(2_000_000), cfg.Chain.GasCeiling)
	assert.Equal(t, []uint32{500, 3000}, cfg.Chain.FeeTiers)
	assert.Equal(t, []string{"oneinch"}, cfg.Aggregators.Enabled)
	assert.Equal(t, uint64(42161), cfg.Aggregators.OneInch.ChainID)
	assert.Equal(t, 0.1, cfg.Aggregators.OneInch.MinSlippage)
	assert.Equal(t, 3.0, cfg.Aggregators.OneInch.MaxSlippage)
	assert.Equal(t, 1500*time.Millisecond, cfg.QuoteTimeout())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
