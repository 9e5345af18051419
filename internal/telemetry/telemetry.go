package telemetry

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline counters. A nil *Metrics is a no-op so
// callers never need to guard instrumentation sites.
type Metrics struct {
	decisionCalls  prometheus.Counter
	searchQueries  prometheus.Counter
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	rerankFailures prometheus.Counter
	forcedFinals   prometheus.Counter
}

// New registers the pipeline counters on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisionCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plexy_decision_calls_total",
			Help: "Structured decision calls issued to the language model.",
		}),
		searchQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plexy_search_queries_total",
			Help: "Web search queries dispatched.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plexy_page_cache_hits_total",
			Help: "Page cache hits during document enrichment.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plexy_page_cache_misses_total",
			Help: "Page cache misses during document enrichment.",
		}),
		rerankFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plexy_rerank_failures_total",
			Help: "Re-rank provider calls that failed and degraded to empty results.",
		}),
		forcedFinals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plexy_forced_finals_total",
			Help: "Turns that exhausted the round budget and forced a final answer.",
		}),
	}
	reg.MustRegister(m.decisionCalls, m.searchQueries, m.cacheHits, m.cacheMisses, m.rerankFailures, m.forcedFinals)
	return m
}

func (m *Metrics) IncDecisionCalls() {
	if m != nil {
		m.decisionCalls.Inc()
	}
}

func (m *Metrics) AddSearchQueries(n int) {
	if m != nil {
		m.searchQueries.Add(float64(n))
	}
}

func (m *Metrics) IncCacheHits() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *Metrics) IncCacheMisses() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

func (m *Metrics) IncRerankFailures() {
	if m != nil {
		m.rerankFailures.Inc()
	}
}

func (m *Metrics) IncForcedFinals() {
	if m != nil {
		m.forcedFinals.Inc()
	}
}

// Serve exposes /metrics for the given registry. It runs until the
// listener fails and is expected to be launched in its own goroutine.
func Serve(port int, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}
