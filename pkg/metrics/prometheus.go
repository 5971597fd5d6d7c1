package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	predictions   *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
	requestStatus *prometheus.CounterVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder on reg. Registering twice on the
// same registry reuses the existing collectors.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	return &Recorder{
		predictions: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_predictions_total",
				Help: "Total number of predictions served",
			},
			[]string{"symbol", "signal"},
		)),
		errorsTotal: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		)),
		lastPrice: register(reg, prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stockcast_last_predicted_price",
				Help: "Final projected price of the most recent prediction for a symbol",
			},
			[]string{"symbol"},
		)),
		latency: register(reg, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockcast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		)),
		requestStatus: register(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockcast_request_status_total",
				Help: "Asynchronous request status transitions",
			},
			[]string{"status"},
		)),
	}
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// RecordPrediction counts a served prediction by its signal.
func (r *Recorder) RecordPrediction(symbol string, shouldBuy bool) {
	signal := "sell"
	if shouldBuy {
		signal = "buy"
	}
	r.predictions.WithLabelValues(symbol, signal).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last projected price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordRequestStatus counts an async request entering status.
func (r *Recorder) RecordRequestStatus(status string) {
	r.requestStatus.WithLabelValues(status).Inc()
}
