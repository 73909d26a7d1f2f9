package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OldStager01/genomerx/internal/logger"
)

const namespace = "genomerx"

// Score sources.
const (
	SourceModel    = "model"
	SourceFallback = "fallback"
)

// Metrics holds the pipeline collectors. A nil *Metrics is valid and
// records nothing, so library code never needs to check.
type Metrics struct {
	gatherer prometheus.Gatherer

	PredictionsTotal    *prometheus.CounterVec
	PredictionDuration  prometheus.Histogram
	SequenceLength      prometheus.Histogram
	ScoresTotal         *prometheus.CounterVec
	ModelLoadsTotal     *prometheus.CounterVec
	MDRReportsTotal     prometheus.Counter
	CircuitBreakerState *prometheus.GaugeVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in
// tests to keep them isolated.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		PredictionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Prediction requests by outcome",
		}, []string{"outcome"}),
		PredictionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "End-to-end pipeline duration",
			Buckets:   prometheus.DefBuckets,
		}),
		SequenceLength: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sequence_length_bases",
			Help:      "Decoded nucleotide sequence length",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 10),
		}),
		ScoresTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scores_total",
			Help:      "Antibiotic scores by source (model or fallback)",
		}, []string{"antibiotic", "source"}),
		ModelLoadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_loads_total",
			Help:      "Model artifact load attempts by result",
		}, []string{"result"}),
		MDRReportsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mdr_reports_total",
			Help:      "Reports flagged multi-drug resistant",
		}),
		CircuitBreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "0=closed, 1=open, 2=half-open",
		}, []string{"name"}),
	}
}

func (m *Metrics) ObservePrediction(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.PredictionsTotal.WithLabelValues(outcome).Inc()
	m.PredictionDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveSequenceLength(n int) {
	if m == nil {
		return
	}
	m.SequenceLength.Observe(float64(n))
}

func (m *Metrics) IncScore(antibiotic, source string) {
	if m == nil {
		return
	}
	m.ScoresTotal.WithLabelValues(antibiotic, source).Inc()
}

func (m *Metrics) IncModelLoad(result string) {
	if m == nil {
		return
	}
	m.ModelLoadsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) IncMDR() {
	if m == nil {
		return
	}
	m.MDRReportsTotal.Inc()
}

func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// StartServer exposes /metrics on a dedicated port.
func (m *Metrics) StartServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Infof("Prometheus metrics server listening on %s", srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("Prometheus server error: %v", err)
		}
	}()
	return srv
}
