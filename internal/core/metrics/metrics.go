// Package metrics registers and exposes Prometheus instrumentation.
package metrics

import (
	"context"
	"time"

	"github.com/freellm/freellm-backend-go/internal/ai"
	"github.com/freellm/freellm-backend-go/internal/core/entities"
	"github.com/freellm/freellm-backend-go/internal/core/respcache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts API requests by method, path and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freellm_http_requests_total",
		Help: "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	// HTTPDuration observes API request latency.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "freellm_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// LLMDuration observes upstream completion latency by outcome.
	LLMDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "freellm_llm_request_duration_seconds",
		Help:    "Chat completion latency",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"provider", "outcome"})

	// Conversations counts handled utterances by pipeline kind and
	// cache outcome.
	Conversations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freellm_conversations_total",
		Help: "Handled utterances by kind",
	}, []string{"kind", "cached"})
)

// RegisterCacheMetrics exposes response cache counters as gauges.
func RegisterCacheMetrics(cache *respcache.Cache) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "freellm_response_cache_hits_total",
		Help: "Response cache hits",
	}, func() float64 { return float64(cache.Stats().Hits) })

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "freellm_response_cache_misses_total",
		Help: "Response cache misses",
	}, func() float64 { return float64(cache.Stats().Misses) })

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "freellm_response_cache_entries",
		Help: "Current response cache entries",
	}, func() float64 { return float64(cache.Stats().TotalEntries) })

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "freellm_response_cache_evictions_total",
		Help: "Response cache evictions",
	}, func() float64 { return float64(cache.Stats().Evictions) })
}

// RegisterSnapshotMetrics exposes entity snapshot cache refreshes.
func RegisterSnapshotMetrics(snapshots *entities.SnapshotCache) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "freellm_entity_snapshot_refreshes_total",
		Help: "Entity snapshot recomputations",
	}, func() float64 { return float64(snapshots.Refreshes()) })
}

// instrumentedProvider decorates an LLMProvider with latency metrics.
type instrumentedProvider struct {
	ai.LLMProvider
}

// InstrumentProvider wraps a provider so every completion is observed.
func InstrumentProvider(p ai.LLMProvider) ai.LLMProvider {
	return &instrumentedProvider{LLMProvider: p}
}

func (p *instrumentedProvider) Chat(ctx context.Context, messages []ai.ChatMessage, opts ai.ChatOptions) (*ai.ChatResponse, error) {
	start := time.Now()
	resp, err := p.LLMProvider.Chat(ctx, messages, opts)

	outcome := "success"
	if err != nil {
		outcome = "error"
		if ai.IsTimeout(err) {
			outcome = "timeout"
		}
	}
	LLMDuration.WithLabelValues(p.GetName(), outcome).Observe(time.Since(start).Seconds())
	return resp, err
}
