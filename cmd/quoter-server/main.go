package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/you/swap-router/internal/agg"
	"github.com/you/swap-router/internal/chain"
	"github.com/you/swap-router/internal/config"
	"github.com/you/swap-router/internal/metrics"
	"github.com/you/swap-router/internal/multicall"
	"github.com/you/swap-router/internal/prices"
	"github.com/you/swap-router/internal/server"
)

func newLogger() (*zap.Logger, error) {
	cfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(zap.DebugLevel),
		Development: false,
		Encoding:    "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stack",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.RFC3339TimeEncoder,
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return cfg.Build()
}

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config file")
	flag.Parse()

	logger, err := newLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("loading config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Warn("signal received, shutting down")
		cancel()
	}()
	metrics.Serve(ctx, cfg.Metrics.ListenAddr, logger)

	ec, err := chain.Dial(cfg.Chain.RPCHTTP)
	if err != nil {
		logger.Fatal("dialing RPC node", zap.Error(err))
	}

	var mc multicall.IClient
	if cfg.Chain.Multicall != "" {
		mc, err = multicall.New(ec, common.HexToAddress(cfg.Chain.Multicall))
		if err != nil {
			logger.Fatal("multicall client", zap.Error(err))
		}
	} else {
		logger.Warn("no multicall contract configured, on-chain quoting disabled")
	}

	adapters, err := agg.Build(cfg, mc, logger)
	if err != nil {
		logger.Fatal("building aggregators", zap.Error(err))
	}
	names := make([]string, 0, len(adapters))
	for _, a := range adapters {
		names = append(names, a.Name())
	}
	logger.Info("aggregators enabled", zap.Strings("names", names))

	src := prices.NewSource(cfg.Prices, logger)
	srv := server.New(cfg, adapters, ec, src, logger)

	go func() {
		logger.Info("HTTP API listening", zap.String("addr", cfg.Server.ListenAddr))
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown", zap.Error(err))
	}
}
