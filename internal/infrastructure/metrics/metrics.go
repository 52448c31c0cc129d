// Package metrics Prometheus 指標
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry 服務專用的 registry，避免與預設 registry 重複註冊
var Registry = prometheus.NewRegistry()

var (
	// HTTPRequests HTTP 請求數
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "freshloop",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	// HTTPDuration HTTP 請求耗時
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "freshloop",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	// FallbackTotal 主要解析器失敗改用本地備援的次數
	FallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "freshloop",
		Name:      "strategy_fallback_total",
		Help:      "Times a component fell back from the remote tier to the local tier.",
	}, []string{"component"})

	// AIRequests AI 請求數
	AIRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "freshloop",
		Name:      "ai_requests_total",
		Help:      "AI provider calls by provider and outcome.",
	}, []string{"provider", "outcome"})

	// CacheLookups AI 回應快取查詢
	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "freshloop",
		Name:      "ai_cache_lookups_total",
		Help:      "AI response cache lookups by result.",
	}, []string{"result"})

	// CommunityMatches 產生的配對數
	CommunityMatches = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "freshloop",
		Name:      "community_matches_total",
		Help:      "Matches produced by the community matcher.",
	})

	// DetectionsRecorded 記錄的偵測結果數
	DetectionsRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "freshloop",
		Name:      "detections_recorded_total",
		Help:      "Detection results stored.",
	})

	// QueueDepth AI 請求隊列長度
	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "freshloop",
		Name:      "ai_queue_depth",
		Help:      "Jobs waiting in the AI request queue.",
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequests,
		HTTPDuration,
		FallbackTotal,
		AIRequests,
		CacheLookups,
		CommunityMatches,
		DetectionsRecorded,
		QueueDepth,
	)
}

// Handler /metrics 處理器
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
