package monitor

import (
	"fmt"
	"testing"
	"time"
)

func newTestMonitor(cfg Config) *Monitor {
	/* reg 传 nil：测试不导出 Prometheus 指标，避免重复注册 */
	return New(cfg, nil)
}

/* record 以指定耗时写入一条样本，结束时间为 now */
func record(m *Monitor, orgID, endpoint string, d time.Duration) {
	end := time.Now()
	m.Record(endpoint, orgID, "user-1", end.Add(-d), end)
}

func TestStatsBasicInvariants(t *testing.T) {
	m := newTestMonitor(Config{})

	durations := []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		30 * time.Millisecond,
		40 * time.Millisecond,
		200 * time.Millisecond,
	}
	for _, d := range durations {
		record(m, "org-1", "/api/items", d)
	}

	stats := m.Stats("org-1", "/api/items")
	if stats.Count != len(durations) {
		t.Fatalf("期望样本数 %d，实际 %d", len(durations), stats.Count)
	}
	if stats.Min > stats.Avg || stats.Avg > stats.Max {
		t.Fatalf("应满足 min <= avg <= max，实际 min=%v avg=%v max=%v",
			stats.Min, stats.Avg, stats.Max)
	}
	if stats.P95 > stats.P99 || stats.P99 > stats.Max {
		t.Fatalf("应满足 p95 <= p99 <= max，实际 p95=%v p99=%v max=%v",
			stats.P95, stats.P99, stats.Max)
	}
}

func TestStatsEmptyReturnsZero(t *testing.T) {
	m := newTestMonitor(Config{})

	stats := m.Stats("org-none", "/nothing")
	if stats.Count != 0 || stats.Avg != 0 || stats.P99 != 0 {
		t.Fatalf("无样本时应返回全零结果，实际 %+v", stats)
	}
}

func TestStatsAggregatesAcrossEndpoints(t *testing.T) {
	m := newTestMonitor(Config{})

	record(m, "org-1", "/a", 10*time.Millisecond)
	record(m, "org-1", "/b", 20*time.Millisecond)
	record(m, "org-2", "/a", 30*time.Millisecond)

	stats := m.Stats("org-1", "")
	if stats.Count != 2 {
		t.Fatalf("空 endpoint 应聚合该 org 全部样本，期望 2，实际 %d", stats.Count)
	}
}

func TestOrganizationIsolation(t *testing.T) {
	m := newTestMonitor(Config{})

	record(m, "org-1", "/a", 10*time.Millisecond)
	record(m, "org-2", "/a", 500*time.Millisecond)

	s1 := m.Stats("org-1", "/a")
	s2 := m.Stats("org-2", "/a")
	if s1.Count != 1 || s2.Count != 1 {
		t.Fatalf("不同 org 的样本应隔离，实际 org1=%d org2=%d", s1.Count, s2.Count)
	}
	if s1.Max >= s2.Max {
		t.Fatal("org-1 的样本不应混入 org-2")
	}
}

func TestMaxPerEndpointCap(t *testing.T) {
	m := newTestMonitor(Config{MaxPerEndpoint: 10})

	for i := 0; i < 50; i++ {
		record(m, "org-1", "/hot", time.Duration(i)*time.Millisecond)
	}

	stats := m.Stats("org-1", "/hot")
	if stats.Count != 10 {
		t.Fatalf("样本数应被上限裁剪到 10，实际 %d", stats.Count)
	}
	/* 保留的是最新的 10 条（40-49ms） */
	if stats.Min < 40 {
		t.Fatalf("裁剪应保留最新样本，最小值应 >= 40ms，实际 %v", stats.Min)
	}
}

func TestRetentionCleanup(t *testing.T) {
	m := newTestMonitor(Config{Retention: 10 * time.Minute})

	/* 手工构造：一条过期样本 + 一条新样本 */
	old := time.Now().Add(-time.Hour)
	m.Record("/a", "org-1", "", old.Add(-10*time.Millisecond), old)
	record(m, "org-1", "/a", 10*time.Millisecond)

	m.Cleanup()

	stats := m.Stats("org-1", "/a")
	if stats.Count != 1 {
		t.Fatalf("Cleanup 后应只剩窗口内样本，期望 1，实际 %d", stats.Count)
	}
}

func TestSlowEndpoints(t *testing.T) {
	m := newTestMonitor(Config{SlowThreshold: time.Second})

	/* /slow 平均 1500ms 超过阈值，/fast 平均 50ms 不超 */
	for i := 0; i < 3; i++ {
		record(m, "org-1", "/slow", 1500*time.Millisecond)
		record(m, "org-1", "/fast", 50*time.Millisecond)
	}

	slow := m.SlowEndpoints("org-1", 0)
	if len(slow) != 1 || slow[0] != "/slow" {
		t.Fatalf("期望只有 /slow 入选，实际 %v", slow)
	}
}

func TestSlowEndpointsIgnoresOldSamples(t *testing.T) {
	m := newTestMonitor(Config{SlowThreshold: time.Second})

	/* 慢样本在 10 分钟前，超出 5 分钟检测窗口 */
	old := time.Now().Add(-10 * time.Minute)
	m.Record("/slow", "org-1", "", old.Add(-2*time.Second), old)

	slow := m.SlowEndpoints("org-1", 0)
	if len(slow) != 0 {
		t.Fatalf("窗口外的样本不应触发慢端点判定，实际 %v", slow)
	}
}

func TestUpdateCacheMetricsHitRate(t *testing.T) {
	m := newTestMonitor(Config{})

	m.UpdateCacheMetrics("tenant-policy", true, false, 5)
	m.UpdateCacheMetrics("tenant-policy", true, false, 5)
	m.UpdateCacheMetrics("tenant-policy", false, false, 5)
	/* 淘汰事件不应影响命中率 */
	m.UpdateCacheMetrics("tenant-policy", false, true, 4)

	report := m.GenerateReport("")
	cm, ok := report.Caches["tenant-policy"]
	if !ok {
		t.Fatal("报告应包含 tenant-policy 缓存")
	}
	if cm.Hits != 2 || cm.Misses != 1 || cm.Evictions != 1 {
		t.Fatalf("期望 hits=2 misses=1 evictions=1，实际 %+v", cm)
	}
	want := float64(cm.Hits) / float64(cm.Hits+cm.Misses)
	if cm.HitRate != want {
		t.Fatalf("命中率应为 hits/(hits+misses)=%v，实际 %v", want, cm.HitRate)
	}
}

func TestGenerateReport(t *testing.T) {
	m := newTestMonitor(Config{})

	for i := 0; i < 5; i++ {
		record(m, "org-1", "/a", 10*time.Millisecond)
	}
	record(m, "org-1", "/b", 1500*time.Millisecond)
	record(m, "org-2", "/c", 10*time.Millisecond)
	m.UpdateCacheMetrics("sessions:org-1", true, false, 3)
	m.UpdateCacheMetrics("sessions:org-2", true, false, 3)

	report := m.GenerateReport("org-1")

	if report.OrganizationID != "org-1" {
		t.Fatalf("报告 org 错误: %s", report.OrganizationID)
	}
	if report.TotalRequests != 6 {
		t.Fatalf("期望请求总数 6，实际 %d", report.TotalRequests)
	}
	if len(report.Endpoints) != 2 {
		t.Fatalf("期望 2 个端点条目，实际 %d", len(report.Endpoints))
	}
	if ep, ok := report.Endpoints["/a"]; !ok || ep.Count != 5 || ep.RecentRequests != 5 {
		t.Fatalf("端点 /a 条目错误: %+v", report.Endpoints["/a"])
	}
	if len(report.SlowEndpoints) != 1 || report.SlowEndpoints[0] != "/b" {
		t.Fatalf("期望慢端点 [/b]，实际 %v", report.SlowEndpoints)
	}
	/* 缓存过滤：键名包含 org-1 的入选 */
	if _, ok := report.Caches["sessions:org-1"]; !ok {
		t.Fatal("报告应包含 sessions:org-1 缓存")
	}
	if _, ok := report.Caches["sessions:org-2"]; ok {
		t.Fatal("报告不应包含其他 org 的缓存")
	}

	summary := report.Summary()
	if summary == "" {
		t.Fatal("摘要不应为空")
	}
	wantPrefix := fmt.Sprintf("org=%s", report.OrganizationID)
	if summary[:len(wantPrefix)] != wantPrefix {
		t.Fatalf("摘要应以 %q 开头，实际 %q", wantPrefix, summary)
	}
}
