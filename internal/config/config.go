package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type ChainConfig struct {
	RPCHTTP       string   `yaml:"rpc_http"`
	NativeSymbol  string   `yaml:"native_symbol"`
	NativeName    string   `yaml:"native_name"`
	Wrapped       string   `yaml:"wrapped"`
	WrappedSymbol string   `yaml:"wrapped_symbol"`
	Multicall     string   `yaml:"multicall"`
	QuoterV2      string   `yaml:"quoter_v2"`
	SwapRouter    string   `yaml:"swap_router"`
	FeeTiers      []uint32 `yaml:"fee_tiers"`
	GasCeiling    uint64   `yaml:"gas_ceiling"`
}

type ProviderConfig struct {
	BaseURL      string  `yaml:"base_url"`
	APIKey       string  `yaml:"api_key"`
	ChainID      uint64  `yaml:"chain_id"`
	MinSlippage  float64 `yaml:"min_slippage"`
	MaxSlippage  float64 `yaml:"max_slippage"`
	PriceQueries bool    `yaml:"price_queries"`
}

type AggregatorsConfig struct {
	Enabled   []string       `yaml:"enabled"`
	OneInch   ProviderConfig `yaml:"oneinch"`
	ParaSwap  ProviderConfig `yaml:"paraswap"`
	OpenOcean ProviderConfig `yaml:"openocean"`
}

type GatewayConfig struct {
	Address string `yaml:"address"`
}

type PricesConfig struct {
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
	Platform string `yaml:"platform"`
	NativeID string `yaml:"native_id"`
	TTLMs    int    `yaml:"ttl_ms"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	DB       int    `yaml:"db"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Stream   string `yaml:"stream"`
	SnapKey  string `yaml:"snap_key"`
}

type Config struct {
	Chain       ChainConfig       `yaml:"chain"`
	Gateway     GatewayConfig     `yaml:"gateway"`
	Aggregators AggregatorsConfig `yaml:"aggregators"`
	Prices      PricesConfig      `yaml:"prices"`
	Redis       RedisConfig       `yaml:"redis"`

	Server struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"server"`
	Metrics struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"metrics"`
	Timings struct {
		QuoteTimeoutMs int `yaml:"quote_timeout_ms"`
	} `yaml:"timings"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.Timings.QuoteTimeoutMs == 0 {
		c.Timings.QuoteTimeoutMs = 5000
	}
	if len(c.Chain.FeeTiers) == 0 {
		c.Chain.FeeTiers = []uint32{100, 500, 3000, 10000}
	}
	if c.Chain.GasCeiling == 0 {
		c.Chain.GasCeiling = 5_000_000
	}
	if c.Chain.NativeSymbol == "" {
		c.Chain.NativeSymbol = "ETH"
	}
	if c.Prices.TTLMs == 0 {
		c.Prices.TTLMs = 10_000
	}
	if c.Prices.NativeID == "" {
		c.Prices.NativeID = "ethereum"
	}
	for _, p := range []*ProviderConfig{&c.Aggregators.OneInch, &c.Aggregators.ParaSwap, &c.Aggregators.OpenOcean} {
		if p.MaxSlippage == 0 {
			p.MinSlippage, p.MaxSlippage = 0.01, 50
		}
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9091"
	}
	if len(c.Aggregators.Enabled) == 0 {
		c.Aggregators.Enabled = []string{"oneinch", "paraswap", "openocean", "uniswap_v3", "wrapped_native"}
	}
	return &c, nil
}

func (c *Config) QuoteTimeout() time.Duration {
	return time.Duration(c.Timings.QuoteTimeoutMs) * time.Millisecond
}
