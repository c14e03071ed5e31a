package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 30},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI requests by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"provider"},
	)
	AITokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Tokens consumed by remote AI calls",
		},
		[]string{"provider", "kind"},
	)

	AnalysisRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cv_analysis_runs_total",
			Help: "CV analysis runs by evaluation strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)
	AnalysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cv_analysis_duration_seconds",
			Help:    "End to end CV analysis duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 40},
		},
	)
	CandidateScoreHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "candidate_score",
			Help:    "Distribution of candidate scores ([0,100]) by scoring source",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
		[]string{"source"},
	)
	CandidateStatusTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "candidate_status_total",
			Help: "Resulting candidate statuses by scoring source",
		},
		[]string{"source", "status"},
	)
	ExtractionEmptyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cv_extraction_empty_total",
			Help: "Extractions that produced no text, by format",
		},
		[]string{"format"},
	)

	registerOnce sync.Once
)

// InitMetrics registers all collectors with the default registry. Safe to call repeatedly.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(HTTPRequestsTotal)
		prometheus.MustRegister(HTTPRequestDuration)
		prometheus.MustRegister(AIRequestsTotal)
		prometheus.MustRegister(AIRequestDuration)
		prometheus.MustRegister(AITokensTotal)
		prometheus.MustRegister(AnalysisRunsTotal)
		prometheus.MustRegister(AnalysisDuration)
		prometheus.MustRegister(CandidateScoreHistogram)
		prometheus.MustRegister(CandidateStatusTotal)
		prometheus.MustRegister(ExtractionEmptyTotal)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// ObserveAIRequest records one remote AI call.
func ObserveAIRequest(provider, outcome string, d time.Duration) {
	AIRequestsTotal.WithLabelValues(provider, outcome).Inc()
	AIRequestDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveAITokens records token counters reported for a remote AI call.
func ObserveAITokens(provider string, prompt, completion int) {
	if prompt > 0 {
		AITokensTotal.WithLabelValues(provider, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		AITokensTotal.WithLabelValues(provider, "completion").Add(float64(completion))
	}
}

// ObserveAnalysis records a finished analysis run.
func ObserveAnalysis(strategy, outcome string, d time.Duration) {
	if strategy == "" {
		strategy = "none"
	}
	AnalysisRunsTotal.WithLabelValues(strategy, outcome).Inc()
	AnalysisDuration.Observe(d.Seconds())
}

// ObserveScore records a persisted candidate score and status.
func ObserveScore(source string, score float64, status string) {
	if score >= 0 && score <= 100 {
		CandidateScoreHistogram.WithLabelValues(source).Observe(score)
	}
	CandidateStatusTotal.WithLabelValues(source, status).Inc()
}

// ObserveEmptyExtraction counts an extraction that yielded no text.
func ObserveEmptyExtraction(format string) {
	ExtractionEmptyTotal.WithLabelValues(format).Inc()
}

// Recorder forwards use case measurements to the package collectors.
type Recorder struct{}

// ObserveAnalysis implements usecase.Metrics.
func (Recorder) ObserveAnalysis(strategy, outcome string, d time.Duration) {
	ObserveAnalysis(strategy, outcome, d)
}

// ObserveScore implements usecase.Metrics.
func (Recorder) ObserveScore(source string, score float64, status string) {
	ObserveScore(source, score, status)
}
