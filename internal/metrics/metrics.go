// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ファンアウトエンジンとTMDBクライアントから利用する。
type MetricsCollector interface {
	RecordFanoutDelivered(count int)
	RecordFanoutBatchCommit()
	RecordFanoutFailure()
	RecordBackfillDelivered(count int)
	RecordTMDBStatus(statusCode int)
	RecordTMDBLatency(duration time.Duration)
	RecordTMDBFailure(reason string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	fanoutDelivered   prometheus.Counter
	fanoutBatches     prometheus.Counter
	fanoutFailures    prometheus.Counter
	backfillDelivered prometheus.Counter
	tmdbStatus        *prometheus.CounterVec
	tmdbLatency       prometheus.Histogram
	tmdbFailures      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		fanoutDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "teli_fanout_items_delivered_total",
			Help: "ファンアウトで配信されたフィードアイテムの合計数",
		}),
		fanoutBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "teli_fanout_batch_commits_total",
			Help: "ファンアウトのバッチコミット回数",
		}),
		fanoutFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "teli_fanout_failures_total",
			Help: "ログに記録して握りつぶしたファンアウト失敗の合計数",
		}),
		backfillDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "teli_backfill_items_delivered_total",
			Help: "フォロー時バックフィルで配信されたフィードアイテムの合計数",
		}),
		tmdbStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teli_tmdb_status_total",
			Help: "TMDB APIのHTTPステータスコード別レスポンス数",
		}, []string{"status_code"}),
		tmdbLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "teli_tmdb_latency_seconds",
			Help:    "TMDB API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		tmdbFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teli_tmdb_failures_total",
			Help: "TMDB API呼び出し失敗の分類別合計数",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		c.fanoutDelivered,
		c.fanoutBatches,
		c.fanoutFailures,
		c.backfillDelivered,
		c.tmdbStatus,
		c.tmdbLatency,
		c.tmdbFailures,
	)

	return c
}

// RecordFanoutDelivered はファンアウトで配信したアイテム数を記録する。
func (c *Collector) RecordFanoutDelivered(count int) {
	c.fanoutDelivered.Add(float64(count))
}

// RecordFanoutBatchCommit はバッチコミット1回を記録する。
func (c *Collector) RecordFanoutBatchCommit() {
	c.fanoutBatches.Inc()
}

// RecordFanoutFailure はファンアウト失敗1回を記録する。
func (c *Collector) RecordFanoutFailure() {
	c.fanoutFailures.Inc()
}

// RecordBackfillDelivered はバックフィルで配信したアイテム数を記録する。
func (c *Collector) RecordBackfillDelivered(count int) {
	c.backfillDelivered.Add(float64(count))
}

// RecordTMDBStatus はTMDBのHTTPステータスコードを記録する。
func (c *Collector) RecordTMDBStatus(statusCode int) {
	c.tmdbStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordTMDBLatency はTMDB呼び出しのレイテンシを記録する。
func (c *Collector) RecordTMDBLatency(duration time.Duration) {
	c.tmdbLatency.Observe(duration.Seconds())
}

// RecordTMDBFailure はTMDB呼び出し失敗を分類付きで記録する。
// reasonは timeout / connection / bad_gateway / breaker_open のいずれか。
func (c *Collector) RecordTMDBFailure(reason string) {
	c.tmdbFailures.WithLabelValues(reason).Inc()
}

// Handler はメトリクス公開用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NopCollector は何も記録しないMetricsCollector実装。テストで使用する。
type NopCollector struct{}

func (NopCollector) RecordFanoutDelivered(int)       {}
func (NopCollector) RecordFanoutBatchCommit()        {}
func (NopCollector) RecordFanoutFailure()            {}
func (NopCollector) RecordBackfillDelivered(int)     {}
func (NopCollector) RecordTMDBStatus(int)            {}
func (NopCollector) RecordTMDBLatency(time.Duration) {}
func (NopCollector) RecordTMDBFailure(string)        {}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
var _ MetricsCollector = NopCollector{}
