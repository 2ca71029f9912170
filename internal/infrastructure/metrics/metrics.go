package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Conversions
	ConversionsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "diagram2code_conversions_started_total",
			Help: "Total number of conversions started",
		},
	)
	ConversionsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagram2code_conversions_finished_total",
			Help: "Conversions by final state",
		},
		[]string{"state"}, // state: ready|failed
	)
	ConversionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "diagram2code_conversion_duration_seconds",
			Help:    "Histogram of conversion durations in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8), // 1s..128s
		},
	)

	// Inference
	InferenceRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagram2code_inference_requests_total",
			Help: "Number of model invocations by model and stage",
		},
		[]string{"model", "stage"},
	)
	InferenceDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "diagram2code_inference_duration_seconds",
			Help:    "Duration of model invocations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// Validation
	ValidationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagram2code_validation_runs_total",
			Help: "Number of template validation runs by result",
		},
		[]string{"result"}, // result: pass|fail|error
	)

	// Deploy flow
	DeployRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "diagram2code_deploy_requests_total",
			Help: "Total number of deploy requests",
		},
	)
	StackSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagram2code_stack_submissions_total",
			Help: "Stack submissions by result",
		},
		[]string{"result"}, // result: succeeded|failed|refused
	)

	// DB / file storage ops
	StoreOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagram2code_store_ops_total",
			Help: "Storage operations performed",
		},
		[]string{"store", "op"}, // op: get|put|delete|list
	)

	// Websockets
	EventSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "diagram2code_event_subscribers",
			Help: "Current number of open event stream connections",
		},
	)

	// HTTP
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "diagram2code_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagram2code_http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "path"},
	)

	HTTPErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagram2code_http_errors_total",
			Help: "Total number of HTTP request errors.",
		},
		[]string{"method", "path", "status"},
	)

	// Errors
	Errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagram2code_errors_total",
			Help: "Errors encountered in components",
		},
		[]string{"component", "type"},
	)
)

func init() {
	prometheus.MustRegister(
		// Conversions
		ConversionsStarted,
		ConversionsFinished,
		ConversionDurationSeconds,
		// Inference
		InferenceRequests,
		InferenceDurationSeconds,
		// Validation
		ValidationRuns,
		// Deploy
		DeployRequests,
		StackSubmissions,
		// Store
		StoreOps,
		// WS
		EventSubscribers,
		// HTTP
		HTTPRequestDuration,
		HTTPRequests,
		HTTPErrors,
		// Errors
		Errors,
	)
}

// StartMetricsServer blocks serving /metrics on addr.
func StartMetricsServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}

// Conversions
func IncConversionStarted() {
	ConversionsStarted.Inc()
}

func IncConversionFinished(state string) {
	ConversionsFinished.WithLabelValues(state).Inc()
}

func ObserveConversionDuration(d time.Duration) {
	ConversionDurationSeconds.Observe(d.Seconds())
}

// Inference
func IncInferenceRequest(model, stage string) {
	InferenceRequests.WithLabelValues(model, stage).Inc()
}

func ObserveInferenceDuration(stage string, d time.Duration) {
	InferenceDurationSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

// Validation
func IncValidationRun(result string) {
	ValidationRuns.WithLabelValues(result).Inc()
}

// Deployer
func IncDeployRequest() {
	DeployRequests.Inc()
}

func IncStackSubmission(result string) {
	StackSubmissions.WithLabelValues(result).Inc()
}

// Store
func IncStoreOp(store, op string) {
	StoreOps.WithLabelValues(store, op).Inc()
}

// Websocket
func IncEventSubscribers() {
	EventSubscribers.Inc()
}

func DecEventSubscribers() {
	EventSubscribers.Dec()
}

// HTTP
func ObserveHTTPRequest(method, path string, status int, d time.Duration) {
	code := strconv.Itoa(status)
	HTTPRequests.WithLabelValues(method, path).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, code).Observe(d.Seconds())
	if status >= 400 {
		HTTPErrors.WithLabelValues(method, path, code).Inc()
	}
}

// Errors
func IncError(component, typ string) {
	Errors.WithLabelValues(component, typ).Inc()
}
