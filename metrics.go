package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the application
type Metrics struct {
	// Authentication metrics
	AuthAttemptsTotal   prometheus.Counter
	AuthAttemptsSuccess prometheus.Counter
	AuthAttemptsFail    *prometheus.CounterVec

	// Transfer pipeline metrics
	TransferAttemptsTotal   *prometheus.CounterVec
	TransferAttemptsSuccess *prometheus.CounterVec
	TransferAttemptsFail    *prometheus.CounterVec
	IdempotentReplays       *prometheus.CounterVec

	// Idempotency store metrics
	StoredRecords prometheus.Gauge
}

// NewMetrics initializes and registers Prometheus metrics
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(nil)
}

// NewMetricsWithRegistry initializes and registers Prometheus metrics with a custom registry
func NewMetricsWithRegistry(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		AuthAttemptsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "signet_auth_attempts_total",
			Help: "The total number of authentication attempts",
		}),
		AuthAttemptsSuccess: factory.NewCounter(prometheus.CounterOpts{
			Name: "signet_auth_attempts_success_total",
			Help: "The total number of successful authentications",
		}),
		AuthAttemptsFail: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signet_auth_attempts_fail_total",
			Help: "The total number of failed authentications by reason",
		}, []string{"reason"}),
		TransferAttemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signet_transfer_attempts_total",
			Help: "The total number of transfer signing attempts by operation kind",
		}, []string{"kind"}),
		TransferAttemptsSuccess: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signet_transfer_attempts_success_total",
			Help: "The total number of successfully broadcast transfers by operation kind",
		}, []string{"kind"}),
		TransferAttemptsFail: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signet_transfer_attempts_fail_total",
			Help: "The total number of failed transfer attempts by operation kind and error kind",
		}, []string{"kind", "error_kind"}),
		IdempotentReplays: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signet_idempotent_replays_total",
			Help: "The total number of duplicate submissions served from the idempotency ledger",
		}, []string{"kind"}),
		StoredRecords: factory.NewGauge(prometheus.GaugeOpts{
			Name: "signet_idempotency_records",
			Help: "The current number of committed idempotency records",
		}),
	}
}

// RecordMetricsPeriodically refreshes store-level gauges on an interval.
func (m *Metrics) RecordMetricsPeriodically(ctx context.Context, store *DBIdempotencyStore, logger Logger) {
	logger = logger.NewSystem("metrics")
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := store.Count(ctx)
			if err != nil {
				logger.Error("failed to count idempotency records", "error", err)
				continue
			}
			m.StoredRecords.Set(float64(count))
		}
	}
}
