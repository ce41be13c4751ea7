// Package metrics exposes Prometheus instrumentation for the ingestion
// engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	PollCycles      prometheus.Counter
	FetchFailures   prometheus.Counter
	TradesIngested  prometheus.Counter
	TradesDuplicate prometheus.Counter
	TradesMalformed prometheus.Counter
	AlertsSent      prometheus.Counter
	WatermarkMs     prometheus.Gauge
}

// New registers the engine collectors on reg and returns them. Pass
// prometheus.DefaultRegisterer outside of tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PollCycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "whalewatch_poll_cycles_total",
			Help: "Completed poll cycles, successful or not.",
		}),
		FetchFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "whalewatch_fetch_failures_total",
			Help: "Poll cycles that failed to fetch trades upstream.",
		}),
		TradesIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "whalewatch_trades_ingested_total",
			Help: "Trades stored after normalization and dedup.",
		}),
		TradesDuplicate: factory.NewCounter(prometheus.CounterOpts{
			Name: "whalewatch_trades_duplicate_total",
			Help: "Trades dropped because the trade id was already stored.",
		}),
		TradesMalformed: factory.NewCounter(prometheus.CounterOpts{
			Name: "whalewatch_trades_malformed_total",
			Help: "Raw trade records skipped during normalization.",
		}),
		AlertsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "whalewatch_alerts_sent_total",
			Help: "Alert messages delivered to subscribers.",
		}),
		WatermarkMs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "whalewatch_watermark_timestamp_ms",
			Help: "Current ingestion watermark in epoch milliseconds.",
		}),
	}
}
