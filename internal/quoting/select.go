package quoting

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/you/swap-router/internal/agg/core"
	imetrics "github.com/you/swap-router/internal/metrics"
)

// Options tune scoring and logging for one quoting operation.
type Options struct {
	GasCeiling uint64
	Log        *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Log == nil {
		return zap.NewNop()
	}
	return o.Log
}

// SelectBest fires every adapter concurrently, waits for all of them to
// settle and reduces to the single best quote. Adapter failures are logged
// and swallowed; only the all-failed/all-zero case is an error.
func SelectBest(ctx context.Context, adapters []core.Aggregator, req *core.QuoteRequest, prices Prices, opts Options) (*Snapshot, error) {
	log := opts.logger()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		all []Quote
	)
	for _, agg := range adapters {
		if req.UserAddress == nil && !agg.SupportsPriceCalculation() {
			continue
		}
		agg := agg
		wg.Add(1)
		go func() {
			defer wg.Done()
			q, ok := callAndScore(ctx, agg, req, prices, opts.GasCeiling, log)
			if !ok {
				return
			}
			mu.Lock()
			all = append(all, q)
			mu.Unlock()
		}()
	}
	wg.Wait()

	var best *Quote
	for i := range all {
		if all[i].AmountOut == nil || all[i].AmountOut.Sign() <= 0 {
			continue
		}
		if better(&all[i], best) {
			best = &all[i]
		}
	}
	if best == nil {
		return nil, ErrNoQuotes
	}

	imetrics.BestNetUSD.Set(best.NetAmountOutUSD.InexactFloat64())
	log.Debug("best quote selected",
		zap.String("aggregator", best.Aggregator.Name()),
		zap.String("amount_out", best.AmountOut.String()),
		zap.String("net_usd", best.NetAmountOutUSD.String()),
		zap.Bool("fallback", best.Fallback),
	)
	return &Snapshot{Best: best, All: all}, nil
}

func callAndScore(ctx context.Context, agg core.Aggregator, req *core.QuoteRequest, prices Prices, gasCeiling uint64, log *zap.Logger) (Quote, bool) {
	cctx, cancel := req.WithDeadline(ctx)
	defer cancel()

	start := time.Now()
	raw, err := agg.Quote(cctx, req)
	imetrics.QuoteLatency.WithLabelValues(agg.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		imetrics.AdapterErrors.WithLabelValues(agg.Name()).Inc()
		log.Warn("adapter produced no quote",
			zap.String("aggregator", agg.Name()),
			zap.Error(err),
		)
		return Quote{}, false
	}
	if raw.Elapsed == 0 {
		raw.Elapsed = time.Since(start)
	}
	return Score(raw, req, agg, prices, gasCeiling), true
}
