package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "deelrate"

type ExchangeMetrics struct {
	OrdersInitiatedTotal  *prometheus.CounterVec
	OrderTransitionsTotal *prometheus.CounterVec
	OrderErrorsTotal      *prometheus.CounterVec
	CompletedVolumeTotal  *prometheus.CounterVec
	CompletionsRecorded   *prometheus.CounterVec
	RateCacheLookupsTotal *prometheus.CounterVec
	RateProviderRequests  *prometheus.CounterVec
	RateProviderDuration  *prometheus.HistogramVec
	RateBatchPartialTotal prometheus.Counter
}

// NewExchangeMetrics registers every collector on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func NewExchangeMetrics(reg prometheus.Registerer) *ExchangeMetrics {
	factory := promauto.With(reg)

	return &ExchangeMetrics{
		OrdersInitiatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_initiated_total",
				Help:      "Number of exchange orders initiated",
			},
			[]string{"order_type", "crypto_type", "fiat_type"},
		),
		OrderTransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "order_transitions_total",
				Help:      "Number of successful exchange order transitions",
			},
			[]string{"operation", "status"},
		),
		OrderErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "order_errors_total",
				Help:      "Number of rejected exchange order operations",
			},
			[]string{"operation", "kind"},
		),
		CompletedVolumeTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "completed_fiat_volume_total",
				Help:      "Fiat volume of completed exchanges",
			},
			[]string{"order_type", "fiat_type"},
		),
		CompletionsRecorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_completions_total",
				Help:      "Completion events handled by the ledger worker",
			},
			[]string{"result"},
		),
		RateCacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_cache_lookups_total",
				Help:      "Rate cache lookups by result",
			},
			[]string{"result"},
		),
		RateProviderRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_provider_requests_total",
				Help:      "Requests sent to the rate provider by outcome",
			},
			[]string{"provider", "outcome"},
		),
		RateProviderDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rate_provider_request_duration_seconds",
				Help:      "Latency of rate provider requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		RateBatchPartialTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_batch_partial_total",
				Help:      "Batch rate lookups that returned a subset of the requested pairs",
			},
		),
	}
}
