package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/you/swap-router/internal/agg"
	"github.com/you/swap-router/internal/agg/core"
	"github.com/you/swap-router/internal/chain"
	"github.com/you/swap-router/internal/config"
	"github.com/you/swap-router/internal/feed"
	"github.com/you/swap-router/internal/multicall"
	"github.com/you/swap-router/internal/prices"
	"github.com/you/swap-router/internal/quoting"
	"github.com/you/swap-router/internal/token"
)

// quote-feed watches a single pair: every interval it re-quotes all enabled
// aggregators in live mode and publishes each intermediate snapshot to Redis,
// so a dashboard can render quotes as they settle instead of waiting for the
// slowest provider.
func main() {
	var (
		cfgPath  = flag.String("config", "./config.yaml", "path to config file")
		inAddr   = flag.String("in", token.NativeAddress.Hex(), "input token address")
		outAddr  = flag.String("out", "", "output token address")
		amount   = flag.String("amount", "1000000000000000000", "input amount in wei")
		slippage = flag.Float64("slippage", 0.5, "slippage limit, percent")
		interval = flag.Duration("interval", 10*time.Second, "re-quote interval")
	)
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if !common.IsHexAddress(*outAddr) {
		logger.Fatal("-out must be a token address")
	}
	amountIn, ok := new(big.Int).SetString(*amount, 10)
	if !ok || amountIn.Sign() <= 0 {
		logger.Fatal("-amount must be a positive integer")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("loading config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		<-ch
		logger.Warn("signal received, shutting down")
		cancel()
	}()

	ec, err := chain.Dial(cfg.Chain.RPCHTTP)
	if err != nil {
		logger.Fatal("dialing RPC node", zap.Error(err))
	}
	var mc multicall.IClient
	if cfg.Chain.Multicall != "" {
		if mc, err = multicall.New(ec, common.HexToAddress(cfg.Chain.Multicall)); err != nil {
			logger.Fatal("multicall client", zap.Error(err))
		}
	}
	adapters, err := agg.Build(cfg, mc, logger)
	if err != nil {
		logger.Fatal("building aggregators", zap.Error(err))
	}

	in, out, err := resolvePair(ctx, cfg, ec, *inAddr, *outAddr)
	if err != nil {
		logger.Fatal("resolving pair", zap.Error(err))
	}
	src := prices.NewSource(cfg.Prices, logger)
	pub := feed.NewPublisher(cfg.Redis)
	defer pub.Close()

	reqKey := fmt.Sprintf("%s-%s-%s",
		strings.ToLower(in.Address.Hex()), strings.ToLower(out.Address.Hex()), amountIn)
	logger.Info("watching pair",
		zap.String("req", reqKey),
		zap.Duration("interval", *interval),
	)

	tick := time.NewTicker(*interval)
	defer tick.Stop()
	for {
		runOnce(ctx, cfg, adapters, ec, src, pub, in, out, amountIn, *slippage, reqKey, logger)
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}

func runOnce(
	ctx context.Context,
	cfg *config.Config,
	adapters []core.Aggregator,
	ec *chain.Client,
	src *prices.Source,
	pub *feed.Publisher,
	in, out token.Currency,
	amountIn *big.Int,
	slippage float64,
	reqKey string,
	logger *zap.Logger,
) {
	req := &core.QuoteRequest{
		In:          in,
		Out:         out,
		AmountIn:    amountIn,
		SlippagePct: slippage,
		Timeout:     cfg.QuoteTimeout(),
	}
	if gp, err := ec.SuggestGasPrice(ctx); err == nil {
		req.GasPrice = gp
	}

	table, err := src.Fetch(ctx, []common.Address{in.Address, out.Address})
	if err != nil {
		logger.Warn("price table unavailable", zap.Error(err))
		table = prices.Table{}
	}

	err = quoting.Stream(ctx, adapters, req, quoting.Prices(table), quoting.Options{
		GasCeiling: cfg.Chain.GasCeiling,
		Log:        logger,
	}, func(snap quoting.Snapshot) {
		if err := pub.PublishSnapshot(ctx, reqKey, snap); err != nil {
			logger.Warn("publishing snapshot", zap.Error(err))
		}
	})
	if err != nil {
		logger.Warn("quoting round interrupted", zap.Error(err))
	}
}

func resolvePair(ctx context.Context, cfg *config.Config, ec *chain.Client, inAddr, outAddr string) (in, out token.Currency, err error) {
	resolve := func(s string) (token.Currency, error) {
		addr := common.HexToAddress(s)
		if addr == token.NativeAddress {
			return token.Native(cfg.Chain.NativeSymbol, cfg.Chain.NativeName), nil
		}
		dec, err := ec.Decimals(ctx, addr)
		if err != nil {
			return token.Currency{}, err
		}
		return token.Currency{Address: addr, Decimals: dec}, nil
	}
	if in, err = resolve(inAddr); err != nil {
		return
	}
	out, err = resolve(outAddr)
	return
}
