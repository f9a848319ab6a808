package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	BestNetUSD = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "quoter_best_net_usd",
		Help: "Net USD value of the most recently selected best quote",
	})

	AdapterErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quoter_adapter_errors_total",
		Help: "Number of adapter calls that produced no quote",
	}, []string{"aggregator"})

	QuoteLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quoter_adapter_latency_seconds",
		Help:    "Time for one adapter to settle",
		Buckets: prometheus.DefBuckets,
	}, []string{"aggregator"})

	QuotesServed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quoter_requests_total",
		Help: "Quote API requests by outcome",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(
		BestNetUSD,
		AdapterErrors,
		QuoteLatency,
		QuotesServed,
	)
}
