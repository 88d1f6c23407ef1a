package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Domain metrics
	simulationsTotal   *prometheus.CounterVec
	simulationDuration prometheus.Histogram
	trialsTotal        prometheus.Counter
	smlAnalysesTotal   *prometheus.CounterVec
	indicatorRuns      *prometheus.CounterVec
	pricesUpserted     *prometheus.CounterVec
	fetchErrors        *prometheus.CounterVec
	jobsActive         *prometheus.GaugeVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.simulationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frontier_simulations_total",
			Help: "Total number of frontier simulations",
		},
		[]string{"status"},
	)
	r.simulationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "frontier_simulation_duration_seconds",
			Help:    "Frontier simulation duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)
	r.trialsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "frontier_trials_total",
			Help: "Total number of sampled portfolios",
		},
	)
	r.smlAnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frontier_sml_analyses_total",
			Help: "Total number of Security Market Line analyses",
		},
		[]string{"status"},
	)
	r.indicatorRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frontier_indicator_runs_total",
			Help: "Total number of technical indicator runs",
		},
		[]string{"status"},
	)
	r.pricesUpserted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frontier_prices_upserted_total",
			Help: "Total number of warehouse rows written",
		},
		[]string{"table"},
	)
	r.fetchErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "frontier_fetch_errors_total",
			Help: "Total number of failed symbol fetches",
		},
		[]string{"collector"},
	)
	r.jobsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "frontier_jobs_active",
			Help: "Number of active jobs",
		},
		[]string{"type"},
	)

	reg.MustRegister(r.simulationsTotal)
	reg.MustRegister(r.simulationDuration)
	reg.MustRegister(r.trialsTotal)
	reg.MustRegister(r.smlAnalysesTotal)
	reg.MustRegister(r.indicatorRuns)
	reg.MustRegister(r.pricesUpserted)
	reg.MustRegister(r.fetchErrors)
	reg.MustRegister(r.jobsActive)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordSimulation records a finished simulation. trials is 0 on failure.
func (r *Registry) RecordSimulation(status string, trials int, duration float64) {
	r.simulationsTotal.WithLabelValues(status).Inc()
	r.simulationDuration.Observe(duration)
	r.trialsTotal.Add(float64(trials))
}

// RecordSMLAnalysis records a finished SML analysis.
func (r *Registry) RecordSMLAnalysis(status string) {
	r.smlAnalysesTotal.WithLabelValues(status).Inc()
}

// RecordIndicatorRun records a finished technical indicator run.
func (r *Registry) RecordIndicatorRun(status string) {
	r.indicatorRuns.WithLabelValues(status).Inc()
}

// RecordUpsert records rows written to a warehouse table.
func (r *Registry) RecordUpsert(table string, rows int) {
	r.pricesUpserted.WithLabelValues(table).Add(float64(rows))
}

// RecordFetchError records a failed fetch.
func (r *Registry) RecordFetchError(collector string) {
	r.fetchErrors.WithLabelValues(collector).Inc()
}

// SetJobsActive sets the number of active jobs of a type.
func (r *Registry) SetJobsActive(jobType string, count int) {
	r.jobsActive.WithLabelValues(jobType).Set(float64(count))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
