// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// feed.MetricsRecorderとtranslate.MetricsRecorderを実装する。
type Collector struct {
	fetchSuccess     *prometheus.CounterVec
	fetchFail        *prometheus.CounterVec
	fetchLatency     prometheus.Histogram
	itemsAggregated  prometheus.Counter
	translationCalls prometheus.Counter
	translationTexts prometheus.Counter
	translationFail  prometheus.Counter
	cacheHit         prometheus.Counter
	cacheMiss        prometheus.Counter
	httpStatus       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		fetchSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "musicnews_fetch_success_total",
			Help: "フィードフェッチ成功のソース別合計数",
		}, []string{"source"}),
		fetchFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "musicnews_fetch_fail_total",
			Help: "フィードフェッチ失敗のソース別合計数",
		}, []string{"source"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "musicnews_fetch_latency_seconds",
			Help:    "フィードフェッチのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		itemsAggregated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "musicnews_items_aggregated_total",
			Help: "重複排除後に集約された記事の合計数",
		}),
		translationCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "musicnews_translation_calls_total",
			Help: "翻訳APIのバッチ呼び出し合計数",
		}),
		translationTexts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "musicnews_translation_texts_total",
			Help: "翻訳APIに送信したテキストの合計数",
		}),
		translationFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "musicnews_translation_fail_total",
			Help: "翻訳API呼び出し失敗の合計数",
		}),
		cacheHit: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "musicnews_translation_cache_hit_total",
			Help: "翻訳キャッシュヒットの合計数",
		}),
		cacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "musicnews_translation_cache_miss_total",
			Help: "翻訳キャッシュミスの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "musicnews_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.fetchSuccess,
		c.fetchFail,
		c.fetchLatency,
		c.itemsAggregated,
		c.translationCalls,
		c.translationTexts,
		c.translationFail,
		c.cacheHit,
		c.cacheMiss,
		c.httpStatus,
	)

	return c
}

// RecordFetchSuccess はフィードフェッチ成功を記録する。
func (c *Collector) RecordFetchSuccess(source string) {
	c.fetchSuccess.WithLabelValues(source).Inc()
}

// RecordFetchFailure はフィードフェッチ失敗を記録する。
func (c *Collector) RecordFetchFailure(source string) {
	c.fetchFail.WithLabelValues(source).Inc()
}

// RecordFetchLatency はフィードフェッチのレイテンシを記録する。
func (c *Collector) RecordFetchLatency(duration time.Duration) {
	c.fetchLatency.Observe(duration.Seconds())
}

// RecordItemsAggregated は集約された記事数を記録する。
func (c *Collector) RecordItemsAggregated(count int) {
	c.itemsAggregated.Add(float64(count))
}

// RecordTranslationCall は翻訳APIのバッチ呼び出しを記録する。
func (c *Collector) RecordTranslationCall(textCount int) {
	c.translationCalls.Inc()
	c.translationTexts.Add(float64(textCount))
}

// RecordTranslationFailure は翻訳API呼び出し失敗を記録する。
func (c *Collector) RecordTranslationFailure() {
	c.translationFail.Inc()
}

// RecordTranslationCacheHit は翻訳キャッシュヒットを記録する。
func (c *Collector) RecordTranslationCacheHit() {
	c.cacheHit.Inc()
}

// RecordTranslationCacheMiss は翻訳キャッシュミスを記録する。
func (c *Collector) RecordTranslationCacheMiss() {
	c.cacheMiss.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
