package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/you/swap-router/internal/agg"
	"github.com/you/swap-router/internal/agg/core"
	"github.com/you/swap-router/internal/chain"
	"github.com/you/swap-router/internal/config"
	"github.com/you/swap-router/internal/multicall"
	"github.com/you/swap-router/internal/prices"
	"github.com/you/swap-router/internal/quoting"
	"github.com/you/swap-router/internal/token"
)

// quote runs one batch quoting round from the command line and prints the
// resulting snapshot as JSON. Pass -user to get an executable transaction.
func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config file")
	inAddr := flag.String("in", token.NativeAddress.Hex(), "input token address")
	outAddr := flag.String("out", "", "output token address")
	amount := flag.String("amount", "1000000000000000000", "input amount in wei")
	slippage := flag.Float64("slippage", 0.5, "slippage limit, percent")
	user := flag.String("user", "", "user address (omit for price-only)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}
	if !common.IsHexAddress(*outAddr) {
		panic("-out must be a token address")
	}
	amountIn, ok := new(big.Int).SetString(*amount, 10)
	if !ok || amountIn.Sign() <= 0 {
		panic("-amount must be a positive integer")
	}

	ctx := context.Background()

	ec, err := chain.Dial(cfg.Chain.RPCHTTP)
	if err != nil {
		panic(err)
	}
	var mc multicall.IClient
	if cfg.Chain.Multicall != "" {
		if mc, err = multicall.New(ec, common.HexToAddress(cfg.Chain.Multicall)); err != nil {
			panic(err)
		}
	}
	adapters, err := agg.Build(cfg, mc, zap.NewNop())
	if err != nil {
		panic(err)
	}

	resolve := func(s string) token.Currency {
		addr := common.HexToAddress(s)
		if addr == token.NativeAddress {
			return token.Native(cfg.Chain.NativeSymbol, cfg.Chain.NativeName)
		}
		dec, err := ec.Decimals(ctx, addr)
		if err != nil {
			panic(fmt.Sprintf("resolving %s: %v", s, err))
		}
		return token.Currency{Address: addr, Decimals: dec}
	}

	req := &core.QuoteRequest{
		In:          resolve(*inAddr),
		Out:         resolve(*outAddr),
		AmountIn:    amountIn,
		SlippagePct: *slippage,
		Timeout:     cfg.QuoteTimeout(),
		EstimateGas: true,
	}
	if *user != "" {
		if !common.IsHexAddress(*user) {
			panic("-user must be an address")
		}
		addr := common.HexToAddress(*user)
		req.UserAddress = &addr
	}
	if gp, err := ec.SuggestGasPrice(ctx); err == nil {
		req.GasPrice = gp
	}

	table, err := prices.NewSource(cfg.Prices, zap.NewNop()).Fetch(ctx, []common.Address{req.In.Address, req.Out.Address})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: no USD prices, ranking by raw output: %v\n", err)
		table = prices.Table{}
	}

	snap, err := quoting.SelectBest(ctx, adapters, req, quoting.Prices(table), quoting.Options{
		GasCeiling: cfg.Chain.GasCeiling,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(snap)
}
