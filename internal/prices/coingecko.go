package prices

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/you/swap-router/internal/config"
	"github.com/you/swap-router/internal/httpx"
	"github.com/you/swap-router/internal/token"
)

// Table maps token address -> USD price; the native asset is keyed by the
// token.NativeAddress sentinel.
type Table map[common.Address]decimal.Decimal

// Source produces USD price tables from a CoinGecko-style API, caching each
// distinct address set for a short TTL. The quoting core never calls this;
// the server/CLI layer fetches a table and passes it in.
type Source struct {
	cfg  config.PricesConfig
	http *httpx.Client
	log  *zap.Logger
	ttl  time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	table Table
	till  time.Time
}

func NewSource(cfg config.PricesConfig, log *zap.Logger) *Source {
	h := httpx.New(15 * time.Second)
	if cfg.APIKey != "" {
		h.Headers = map[string]string{"x-cg-pro-api-key": cfg.APIKey}
	}
	return &Source{
		cfg:   cfg,
		http:  h,
		log:   log,
		ttl:   time.Duration(cfg.TTLMs) * time.Millisecond,
		cache: make(map[string]cacheEntry),
	}
}

// Fetch returns the USD table for the given addresses plus the native asset.
// A token the feed does not know is simply absent from the table; the caller's
// ranking degrades to the raw-amount fallback.
func (s *Source) Fetch(ctx context.Context, addrs []common.Address) (Table, error) {
	key := cacheKey(addrs)

	s.mu.Lock()
	if e, ok := s.cache[key]; ok && time.Now().Before(e.till) {
		s.mu.Unlock()
		return e.table, nil
	}
	s.mu.Unlock()

	table := make(Table, len(addrs)+1)

	nativeUSD, err := s.nativePrice(ctx)
	if err != nil {
		return nil, err
	}
	if nativeUSD.IsPositive() {
		table[token.NativeAddress] = nativeUSD
	}

	if withoutNative := dropNative(addrs); len(withoutNative) > 0 {
		if err := s.tokenPrices(ctx, withoutNative, table); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	s.cache[key] = cacheEntry{table: table, till: time.Now().Add(s.ttl)}
	s.mu.Unlock()

	s.log.Debug("price table refreshed", zap.Int("entries", len(table)))
	return table, nil
}

func (s *Source) nativePrice(ctx context.Context) (decimal.Decimal, error) {
	u := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", s.cfg.BaseURL, url.QueryEscape(s.cfg.NativeID))
	var resp map[string]struct {
		USD decimal.Decimal `json:"usd"`
	}
	if err := s.http.GetJSON(ctx, u, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("native price: %w", err)
	}
	return resp[s.cfg.NativeID].USD, nil
}

func (s *Source) tokenPrices(ctx context.Context, addrs []common.Address, out Table) error {
	hexes := make([]string, len(addrs))
	for i, a := range addrs {
		hexes[i] = strings.ToLower(a.Hex())
	}
	u := fmt.Sprintf("%s/simple/token_price/%s?contract_addresses=%s&vs_currencies=usd",
		s.cfg.BaseURL, url.PathEscape(s.cfg.Platform), strings.Join(hexes, ","))

	var resp map[string]struct {
		USD decimal.Decimal `json:"usd"`
	}
	if err := s.http.GetJSON(ctx, u, &resp); err != nil {
		return fmt.Errorf("token prices: %w", err)
	}
	for addr, entry := range resp {
		if entry.USD.IsPositive() {
			out[common.HexToAddress(addr)] = entry.USD
		}
	}
	return nil
}

func cacheKey(addrs []common.Address) string {
	hexes := make([]string, len(addrs))
	for i, a := range addrs {
		hexes[i] = strings.ToLower(a.Hex())
	}
	sort.Strings(hexes)
	return strings.Join(hexes, ",")
}

func dropNative(addrs []common.Address) []common.Address {
	out := addrs[:0:0]
	for _, a := range addrs {
		if a != token.NativeAddress {
			out = append(out, a)
		}
	}
	return out
}
