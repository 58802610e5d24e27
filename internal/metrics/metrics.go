package metrics

import (
	"context"
	"net/http"
	"time"

	"HammerScanner/internal/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the scanner.
type Metrics struct {
	Registry *prometheus.Registry

	ScansTotal       prometheus.Counter
	ScanDuration     prometheus.Histogram
	InstrumentsTotal *prometheus.CounterVec // labels: category, outcome
	SkipsTotal       *prometheus.CounterVec // labels: reason
	SignalsTotal     *prometheus.CounterVec // labels: category
	NotifyFailures   prometheus.Counter
	LastScanUnix     prometheus.Gauge
}

// NewMetrics creates and registers all metrics on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ScansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_scans_total",
			Help: "Total completed scan invocations",
		}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scanner_scan_duration_seconds",
			Help:    "Wall time of one scan over the whole universe",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		InstrumentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_instruments_total",
			Help: "Instruments processed, by category and outcome",
		}, []string{"category", "outcome"}),
		SkipsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_skips_total",
			Help: "Instruments skipped, by reason",
		}, []string{"reason"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_signals_total",
			Help: "Signals emitted, by category",
		}, []string{"category"}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_notify_failures_total",
			Help: "Notifications that could not be delivered",
		}),
		LastScanUnix: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scanner_last_scan_timestamp_seconds",
			Help: "Unix time the last scan finished",
		}),
	}
	m.Registry.MustRegister(
		m.ScansTotal, m.ScanDuration, m.InstrumentsTotal, m.SkipsTotal,
		m.SignalsTotal, m.NotifyFailures, m.LastScanUnix,
		collectors.NewGoCollector(),
	)
	return m
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Infof("metrics listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Errorf("metrics server: %v", err)
	}
}
