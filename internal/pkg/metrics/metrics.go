package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlgate_orders_total",
		Help: "The total number of trading verbs processed",
	}, []string{"verb", "status"})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hlgate_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	ExchangeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hlgate_exchange_latency_seconds",
		Help:    "Exchange round-trip latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "outcome"})

	RiskRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlgate_risk_rejects_total",
		Help: "Total risk engine rejections",
	}, []string{"reason"})

	SignaturesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlgate_signatures_total",
		Help: "Signing operations by kind",
	}, []string{"kind", "status"})

	ShutdownSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlgate_shutdown_steps_total",
		Help: "Emergency shutdown step outcomes",
	}, []string{"step", "outcome"})

	StreamConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hlgate_mid_stream_connected",
		Help: "1 while the allMids websocket is connected",
	})
)
