package agg

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/you/swap-router/internal/agg/core"
	"github.com/you/swap-router/internal/agg/gateway"
	"github.com/you/swap-router/internal/agg/oneinch"
	"github.com/you/swap-router/internal/agg/openocean"
	"github.com/you/swap-router/internal/agg/paraswap"
	"github.com/you/swap-router/internal/agg/univ3"
	"github.com/you/swap-router/internal/agg/wrapper"
	"github.com/you/swap-router/internal/config"
	"github.com/you/swap-router/internal/multicall"
)

// Build constructs every configured adapter, wraps the routing ones in the
// gateway decorator when a gateway contract is configured, registers them and
// returns the enabled set in config order. The wrap/unwrap identity adapter
// calls the wrapped token directly and is never gatewayed.
func Build(cfg *config.Config, mc multicall.IClient, log *zap.Logger) ([]core.Aggregator, error) {
	routing := []core.Aggregator{
		oneinch.New(cfg.Aggregators.OneInch, log),
		paraswap.New(cfg.Aggregators.ParaSwap, log),
		openocean.New(cfg.Aggregators.OpenOcean, log),
	}
	if mc != nil {
		u3, err := univ3.New(cfg.Chain, mc, log)
		if err != nil {
			return nil, fmt.Errorf("uniswap v3 adapter: %w", err)
		}
		routing = append(routing, u3)
	}

	gatewayAddr := common.HexToAddress(cfg.Gateway.Address)
	for _, a := range routing {
		if gatewayAddr != (common.Address{}) {
			wrapped, err := gateway.Wrap(a, gatewayAddr)
			if err != nil {
				return nil, fmt.Errorf("gateway wrap %s: %w", a.Name(), err)
			}
			core.Register(wrapped)
		} else {
			core.Register(a)
		}
	}
	core.Register(wrapper.New(common.HexToAddress(cfg.Chain.Wrapped)))

	enabled := core.Enabled(cfg.Aggregators.Enabled)
	if len(enabled) == 0 {
		return nil, fmt.Errorf("no aggregators enabled")
	}
	return enabled, nil
}
