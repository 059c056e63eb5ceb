package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	casesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cases_generated_total",
			Help: "Total number of clinical cases generated",
		},
		[]string{"difficulty"},
	)

	dialogueTurns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dialogue_turns_total",
			Help: "Total number of dialogue turns appended",
		},
	)

	evaluations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "evaluations_total",
			Help: "Total number of case evaluations completed",
		},
	)

	evaluationScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "evaluation_score",
			Help:    "Distribution of extracted evaluation scores",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	imageLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_lookups_total",
			Help: "Total number of diagnostic image lookups",
		},
		[]string{"result"},
	)

	llmRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Total number of LLM completion requests",
		},
		[]string{"operation", "status"},
	)

	llmRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "LLM completion request duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and durations per route.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		path := normalizePath(r.URL.Path)
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath keeps metric cardinality bounded by truncating long
// paths; session IDs stay as-is since the route set is small.
func normalizePath(path string) string {
	if len(path) > 100 {
		return "/api/..."
	}
	return path
}

// RecordCaseGenerated records a generated case.
func RecordCaseGenerated(difficulty string) {
	casesGenerated.WithLabelValues(difficulty).Inc()
}

// RecordDialogueTurn records an appended dialogue turn.
func RecordDialogueTurn() {
	dialogueTurns.Inc()
}

// RecordEvaluation records a completed evaluation and its score.
func RecordEvaluation(score int) {
	evaluations.Inc()
	evaluationScores.Observe(float64(score))
}

// RecordImageLookup records an image lookup outcome (hit, miss, error).
func RecordImageLookup(result string) {
	imageLookups.WithLabelValues(result).Inc()
}

// RecordLLMRequest records an LLM completion request.
func RecordLLMRequest(operation string, duration time.Duration, ok bool) {
	status := "error"
	if ok {
		status = "ok"
	}
	llmRequests.WithLabelValues(operation, status).Inc()
	llmRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
