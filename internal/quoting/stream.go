package quoting

import (
	"context"
	"sync"

	"github.com/you/swap-router/internal/agg/core"
)

// Stream fires every adapter concurrently and publishes an updated Snapshot
// through onUpdate as each one settles, starting with an empty snapshot so a
// listener can render a loading state. Snapshots retain at most one quote per
// aggregator name; a newer quote replaces an older one only when its
// timestamp is strictly greater. It returns once all adapters have settled.
//
// There is no cancellation primitive beyond ctx and per-adapter timeouts; a
// caller that stops caring must discard onUpdate's effects itself.
func Stream(ctx context.Context, adapters []core.Aggregator, req *core.QuoteRequest, prices Prices, opts Options, onUpdate func(Snapshot)) error {
	log := opts.logger()

	settled := make(chan Quote)
	var wg sync.WaitGroup
	for _, agg := range adapters {
		if req.UserAddress == nil && !agg.SupportsPriceCalculation() {
			continue
		}
		agg := agg
		wg.Add(1)
		go func() {
			defer wg.Done()
			if q, ok := callAndScore(ctx, agg, req, prices, opts.GasCeiling, log); ok {
				settled <- q
			}
		}()
	}
	go func() {
		wg.Wait()
		close(settled)
	}()

	onUpdate(Snapshot{})

	var (
		best  *Quote
		all   []Quote
		index = map[string]int{}
	)
	for q := range settled {
		name := q.Aggregator.Name()
		if i, ok := index[name]; ok {
			if !q.Timestamp.After(all[i].Timestamp) {
				continue // stale response for a name we already hold
			}
			all[i] = q
		} else {
			index[name] = len(all)
			all = append(all, q)
		}

		if q.AmountOut != nil && q.AmountOut.Sign() > 0 && better(&q, best) {
			cp := q
			best = &cp
		}

		snap := Snapshot{Best: best, All: make([]Quote, len(all))}
		copy(snap.All, all)
		onUpdate(snap)
	}
	return ctx.Err()
}
