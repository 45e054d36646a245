package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	for _, mf := range metrics {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("%s metric not found", name)
	return 0
}

// TestRecordFanoutDelivered_AddsToCounter はファンアウト配信カウンタが加算されることを検証する。
func TestRecordFanoutDelivered_AddsToCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFanoutDelivered(500)
	c.RecordFanoutDelivered(203)

	if val := counterValue(t, reg, "teli_fanout_items_delivered_total"); val != 703 {
		t.Errorf("fanout_items_delivered_total = %v, want 703", val)
	}
}

// TestRecordFanoutBatchCommit_IncrementsCounter はバッチコミットカウンタが増加することを検証する。
func TestRecordFanoutBatchCommit_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFanoutBatchCommit()
	c.RecordFanoutBatchCommit()
	c.RecordFanoutBatchCommit()

	if val := counterValue(t, reg, "teli_fanout_batch_commits_total"); val != 3 {
		t.Errorf("fanout_batch_commits_total = %v, want 3", val)
	}
}

// TestRecordFanoutFailure_IncrementsCounter はファンアウト失敗カウンタが増加することを検証する。
func TestRecordFanoutFailure_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFanoutFailure()

	if val := counterValue(t, reg, "teli_fanout_failures_total"); val != 1 {
		t.Errorf("fanout_failures_total = %v, want 1", val)
	}
}

// TestRecordBackfillDelivered_AddsToCounter はバックフィル配信カウンタが加算されることを検証する。
func TestRecordBackfillDelivered_AddsToCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordBackfillDelivered(20)

	if val := counterValue(t, reg, "teli_backfill_items_delivered_total"); val != 20 {
		t.Errorf("backfill_items_delivered_total = %v, want 20", val)
	}
}

// TestRecordTMDBStatus_IncrementsCounterWithLabel はステータスコードカウンタがラベル付きで増加することを検証する。
func TestRecordTMDBStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTMDBStatus(200)
	c.RecordTMDBStatus(200)
	c.RecordTMDBStatus(404)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "teli_tmdb_status_total" {
			found = true
			if len(mf.GetMetric()) != 2 {
				t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
			}
			for _, m := range mf.GetMetric() {
				label := m.GetLabel()[0].GetValue()
				val := m.GetCounter().GetValue()
				switch label {
				case "200":
					if val != 2 {
						t.Errorf("tmdb_status_total{status_code=200} = %v, want 2", val)
					}
				case "404":
					if val != 1 {
						t.Errorf("tmdb_status_total{status_code=404} = %v, want 1", val)
					}
				default:
					t.Errorf("unexpected label value: %s", label)
				}
			}
		}
	}
	if !found {
		t.Error("teli_tmdb_status_total metric not found")
	}
}

// TestRecordTMDBLatency_ObservesHistogram はレイテンシのヒストグラムに値が記録されることを検証する。
func TestRecordTMDBLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTMDBLatency(100 * time.Millisecond)
	c.RecordTMDBLatency(2 * time.Second)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "teli_tmdb_latency_seconds" {
			found = true
			h := mf.GetMetric()[0].GetHistogram()
			if h.GetSampleCount() != 2 {
				t.Errorf("sample_count = %d, want 2", h.GetSampleCount())
			}
			// 合計は0.1 + 2.0 = 2.1秒
			if h.GetSampleSum() < 2.0 || h.GetSampleSum() > 2.2 {
				t.Errorf("sample_sum = %v, want ~2.1", h.GetSampleSum())
			}
		}
	}
	if !found {
		t.Error("teli_tmdb_latency_seconds metric not found")
	}
}

// TestRecordTMDBFailure_IncrementsCounterWithReason は失敗カウンタが分類ラベル付きで増加することを検証する。
func TestRecordTMDBFailure_IncrementsCounterWithReason(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTMDBFailure("timeout")
	c.RecordTMDBFailure("timeout")
	c.RecordTMDBFailure("breaker_open")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "teli_tmdb_failures_total" {
			found = true
			if len(mf.GetMetric()) != 2 {
				t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
			}
		}
	}
	if !found {
		t.Error("teli_tmdb_failures_total metric not found")
	}
}

// TestMetricsHandler_ReturnsPrometheusFormat は/metricsエンドポイントがPrometheus形式で返すことを検証する。
func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	// いくつかのメトリクスを記録
	c.RecordFanoutDelivered(500)
	c.RecordFanoutBatchCommit()
	c.RecordBackfillDelivered(20)
	c.RecordTMDBStatus(200)
	c.RecordTMDBLatency(500 * time.Millisecond)

	handler := Handler(reg)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	// Prometheus形式のメトリクスが含まれていることを確認
	expectedMetrics := []string{
		"teli_fanout_items_delivered_total",
		"teli_fanout_batch_commits_total",
		"teli_backfill_items_delivered_total",
		"teli_tmdb_status_total",
		"teli_tmdb_latency_seconds",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(bodyStr, metric) {
			t.Errorf("response body does not contain %q", metric)
		}
	}
}

// TestCollector_ImplementsMetricsCollectorInterface はCollectorがMetricsCollectorインターフェースを実装することを検証する。
func TestCollector_ImplementsMetricsCollectorInterface(t *testing.T) {
	reg := prometheus.NewRegistry()
	var _ MetricsCollector = NewCollector(reg)
}

// TestMultipleCollectors_IndependentRegistries は異なるレジストリで独立に動作することを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	c2 := NewCollector(reg2)

	c1.RecordFanoutBatchCommit()
	c2.RecordFanoutBatchCommit()
	c2.RecordFanoutBatchCommit()

	val1 := counterValue(t, reg1, "teli_fanout_batch_commits_total")
	val2 := counterValue(t, reg2, "teli_fanout_batch_commits_total")

	if val1 != 1 {
		t.Errorf("reg1 batch_commits = %v, want 1", val1)
	}
	if val2 != 2 {
		t.Errorf("reg2 batch_commits = %v, want 2", val2)
	}
}
