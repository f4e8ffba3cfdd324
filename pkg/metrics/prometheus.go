// Package metrics provides Prometheus metrics for the FlickPick service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the FlickPick service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Session lifecycle
	sessionsCreated     prometheus.Counter
	sessionsExpired     prometheus.Counter
	sessionsActive      prometheus.Gauge
	sessionJoins        *prometheus.CounterVec
	preferencesSubmited prometheus.Counter
	votesCast           *prometheus.CounterVec
	navigations         *prometheus.CounterVec

	// Matching
	matchesComputed      *prometheus.CounterVec
	matchDuration        prometheus.Histogram
	candidatesPerMatch   prometheus.Histogram
	candidatesFiltered   prometheus.Histogram
	catalogFetches       *prometheus.CounterVec
	catalogFetchDuration prometheus.Histogram

	// Enrichment providers
	enrichmentRequests *prometheus.CounterVec
	enrichmentLatency  *prometheus.HistogramVec

	// Rating cache
	ratingCacheLookups   *prometheus.CounterVec
	ratingCacheBackfills prometheus.Counter
	ratingCacheRetries   *prometheus.CounterVec
	ratingCacheFlushes   *prometheus.CounterVec
	ratingCacheSize      prometheus.Gauge

	// Circuit breakers
	circuitBreakerState       *prometheus.GaugeVec
	circuitBreakerTransitions *prometheus.CounterVec
	circuitBreakerRequests    *prometheus.CounterVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Enhanced Error Metrics - Detailed error tracking
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "flickpick",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// name applies the optional metric prefix.
func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.customLabels)
	latencyBuckets := []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

	// Session lifecycle
	m.sessionsCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("sessions_created_total"),
		Help:        "Total number of sessions created",
		ConstLabels: constLabels,
	})

	m.sessionsExpired = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("sessions_expired_total"),
		Help:        "Total number of sessions removed by the expiry sweep",
		ConstLabels: constLabels,
	})

	m.sessionsActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("sessions_active"),
		Help:        "Number of sessions currently held in memory",
		ConstLabels: constLabels,
	})

	m.sessionJoins = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("session_joins_total"),
		Help:        "Join attempts by outcome (joined, rejoined, full, not_found)",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	m.preferencesSubmited = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("preferences_submitted_total"),
		Help:        "Total number of accepted preference submissions",
		ConstLabels: constLabels,
	})

	m.votesCast = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("votes_total"),
		Help:        "Votes recorded by value",
		ConstLabels: constLabels,
	}, []string{"value"})

	m.navigations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("navigations_total"),
		Help:        "Cursor moves by direction",
		ConstLabels: constLabels,
	}, []string{"direction"})

	// Matching
	m.matchesComputed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("matches_computed_total"),
		Help:        "Match computations by mode (solo, duo) and outcome",
		ConstLabels: constLabels,
	}, []string{"mode", "outcome"})

	m.matchDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("match_duration_milliseconds"),
		Help:        "Time to compute a match including catalog fetch and enrichment",
		Buckets:     latencyBuckets,
		ConstLabels: constLabels,
	})

	m.candidatesPerMatch = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("match_candidates"),
		Help:        "Number of candidates surviving selection",
		Buckets:     []float64{0, 1, 5, 10, 20, 50, 100},
		ConstLabels: constLabels,
	})

	m.candidatesFiltered = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("match_filtered_catalog"),
		Help:        "Number of catalog items passing the preference filter",
		Buckets:     []float64{0, 1, 10, 50, 100, 500, 1000, 5000},
		ConstLabels: constLabels,
	})

	m.catalogFetches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("catalog_fetches_total"),
		Help:        "Catalog fetches by source (fresh, cached, stale) and outcome",
		ConstLabels: constLabels,
	}, []string{"source", "outcome"})

	m.catalogFetchDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("catalog_fetch_duration_milliseconds"),
		Help:        "Upstream catalog fetch latency",
		Buckets:     latencyBuckets,
		ConstLabels: constLabels,
	})

	// Enrichment providers
	m.enrichmentRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("enrichment_requests_total"),
		Help:        "Upstream enrichment calls by provider and outcome",
		ConstLabels: constLabels,
	}, []string{"provider", "outcome"})

	m.enrichmentLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("enrichment_latency_milliseconds"),
		Help:        "Upstream enrichment call latency by provider",
		Buckets:     latencyBuckets,
		ConstLabels: constLabels,
	}, []string{"provider"})

	// Rating cache
	m.ratingCacheLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("rating_cache_lookups_total"),
		Help:        "Rating cache lookups by result (hit, miss)",
		ConstLabels: constLabels,
	}, []string{"result"})

	m.ratingCacheBackfills = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("rating_cache_backfills_total"),
		Help:        "Legacy cache entries upgraded to the current schema",
		ConstLabels: constLabels,
	})

	m.ratingCacheRetries = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("rating_cache_retries_total"),
		Help:        "Primary lookups retried for entries missing IMDb data, by outcome",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	m.ratingCacheFlushes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("rating_cache_flushes_total"),
		Help:        "Rating cache flushes to durable storage by outcome",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	m.ratingCacheSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("rating_cache_entries"),
		Help:        "Number of entries in the in-memory rating cache",
		ConstLabels: constLabels,
	})

	// Circuit breakers
	m.circuitBreakerState = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("circuit_breaker_state"),
		Help:        "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		ConstLabels: constLabels,
	}, []string{"name"})

	m.circuitBreakerTransitions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("circuit_breaker_transitions_total"),
		Help:        "Circuit breaker state transitions",
		ConstLabels: constLabels,
	}, []string{"name", "from", "to"})

	m.circuitBreakerRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("circuit_breaker_requests_total"),
		Help:        "Requests through circuit breakers by result (success, failure, rejected)",
		ConstLabels: constLabels,
	}, []string{"name", "result"})

	// HTTP Performance Metrics - User experience indicators
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_requests_total"),
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_request_duration_milliseconds"),
			Help:        "HTTP request duration in milliseconds (user experience)",
			Buckets:     m.histogramBuckets,
			ConstLabels: constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// Enhanced Error Metrics
	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_component_total"),
			Help:        "Total errors by component and error type",
			ConstLabels: constLabels,
		},
		[]string{"component", "error_type"},
	)

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_type_total"),
			Help:        "Total errors by type and severity",
			ConstLabels: constLabels,
		},
		[]string{"error_type", "severity"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_endpoint_total"),
			Help:        "Total errors by endpoint, method and error type",
			ConstLabels: constLabels,
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.errorLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("error_latency_milliseconds"),
			Help:        "Latency of operations that resulted in errors",
			Buckets:     m.histogramBuckets,
			ConstLabels: constLabels,
		},
		[]string{"component", "error_type"},
	)

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_memory_usage_bytes"),
		Help:        "System memory usage in bytes",
		ConstLabels: constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_goroutine_count"),
		Help:        "Number of goroutines",
		ConstLabels: constLabels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_gc_pause_time_milliseconds"),
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: constLabels,
	})
}

// Session lifecycle functions.

// RecordSessionCreated increments the sessions created counter.
func RecordSessionCreated() {
	globalManager.sessionsCreated.Inc()
}

// RecordSessionsExpired adds n to the expired sessions counter.
func RecordSessionsExpired(n int) {
	globalManager.sessionsExpired.Add(float64(n))
}

// UpdateActiveSessions sets the number of live sessions.
func UpdateActiveSessions(count int) {
	globalManager.sessionsActive.Set(float64(count))
}

// RecordSessionJoin records a join attempt outcome.
func RecordSessionJoin(outcome string) {
	globalManager.sessionJoins.WithLabelValues(outcome).Inc()
}

// RecordPreferencesSubmitted increments the preference submissions counter.
func RecordPreferencesSubmitted() {
	globalManager.preferencesSubmited.Inc()
}

// RecordVote records a single vote.
func RecordVote(value bool) {
	label := "no"
	if value {
		label = "yes"
	}
	globalManager.votesCast.WithLabelValues(label).Inc()
}

// RecordNavigation records a reroll or previous move.
func RecordNavigation(direction string) {
	globalManager.navigations.WithLabelValues(direction).Inc()
}

// Matching functions.

// RecordMatchComputed records a finished match computation.
func RecordMatchComputed(mode, outcome string, durationMs float64) {
	globalManager.matchesComputed.WithLabelValues(mode, outcome).Inc()
	globalManager.matchDuration.Observe(durationMs)
}

// RecordMatchCandidates records the size of the filtered catalog and the final list.
func RecordMatchCandidates(filtered, selected int) {
	globalManager.candidatesFiltered.Observe(float64(filtered))
	globalManager.candidatesPerMatch.Observe(float64(selected))
}

// RecordCatalogFetch records a catalog read by source and outcome.
func RecordCatalogFetch(source, outcome string) {
	globalManager.catalogFetches.WithLabelValues(source, outcome).Inc()
}

// RecordCatalogFetchDuration records upstream catalog latency.
func RecordCatalogFetchDuration(latencyMs float64) {
	globalManager.catalogFetchDuration.Observe(latencyMs)
}

// Enrichment functions.

// RecordEnrichmentRequest records an upstream enrichment call.
func RecordEnrichmentRequest(provider, outcome string, latencyMs float64) {
	globalManager.enrichmentRequests.WithLabelValues(provider, outcome).Inc()
	globalManager.enrichmentLatency.WithLabelValues(provider).Observe(latencyMs)
}

// Rating cache functions.

// RecordRatingCacheLookup records a cache hit or miss.
func RecordRatingCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	globalManager.ratingCacheLookups.WithLabelValues(result).Inc()
}

// RecordRatingCacheBackfill increments the backfill counter.
func RecordRatingCacheBackfill() {
	globalManager.ratingCacheBackfills.Inc()
}

// RecordRatingCacheRetry records a self-healing primary retry.
func RecordRatingCacheRetry(outcome string) {
	globalManager.ratingCacheRetries.WithLabelValues(outcome).Inc()
}

// RecordRatingCacheFlush records a flush to storage.
func RecordRatingCacheFlush(outcome string) {
	globalManager.ratingCacheFlushes.WithLabelValues(outcome).Inc()
}

// UpdateRatingCacheSize sets the number of cached entries.
func UpdateRatingCacheSize(count int) {
	globalManager.ratingCacheSize.Set(float64(count))
}

// Circuit breaker functions.

// UpdateCircuitBreakerState sets the numeric breaker state.
func UpdateCircuitBreakerState(name string, state float64) {
	globalManager.circuitBreakerState.WithLabelValues(name).Set(state)
}

// RecordCircuitBreakerTransition records a breaker state change.
func RecordCircuitBreakerTransition(name, from, to string) {
	globalManager.circuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}

// RecordCircuitBreakerRequest records a request result through a breaker.
func RecordCircuitBreakerRequest(name, result string) {
	globalManager.circuitBreakerRequests.WithLabelValues(name, result).Inc()
}

// HTTP functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Enhanced Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RefreshInterval reports how often gauge updaters should run.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}
