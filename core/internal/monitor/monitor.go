/*
Package monitor 租户级性能监控

按 organizationID:endpoint 维度记录请求耗时/内存样本，提供聚合统计
（均值/极值/p95/p99）、慢端点检测和文本报告。缓存命中率指标由
cache 包通过 MetricsSink 接口上报，在这里汇总。

样本序列双重有界：保留窗口（默认 60 分钟）+ 单键条数上限（默认 1000），
每次追加后立即收敛，读取方不会观察到越界状态。

实例通过依赖注入传递（构造后挂到 App 上），不使用包级全局变量，
保证测试之间互不污染。Prometheus 指标注册在调用方提供的 Registerer 上。
*/
package monitor

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

/*
Config 监控器配置
*/
type Config struct {
	Retention      time.Duration /* 样本保留窗口，默认 60 分钟 */
	MaxPerEndpoint int           /* 单个 org:endpoint 键最大样本数，默认 1000 */
	SlowThreshold  time.Duration /* 慢端点判定阈值，默认 1 秒 */
}

/* slowWindow 慢端点检测只看最近 5 分钟的样本 */
const slowWindow = 5 * time.Minute

/*
Sample 单次请求的性能样本
*/
type Sample struct {
	Duration       float64   `json:"duration_ms"`  /* 请求耗时（毫秒） */
	MemoryBytes    uint64    `json:"memory_bytes"` /* 采样时刻堆上已分配字节数 */
	Timestamp      time.Time `json:"timestamp"`
	Endpoint       string    `json:"endpoint"`
	OrganizationID string    `json:"organization_id"`
	UserID         string    `json:"user_id,omitempty"`
}

/*
Stats 聚合统计结果
百分位采用 nearest-rank：升序排序后取 floor(n*0.95) / floor(n*0.99) 下标。
*/
type Stats struct {
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
}

/*
CacheMetrics 单个命名缓存的计数汇总
*/
type CacheMetrics struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
	Size      int     `json:"size"`
}

/*
Monitor 性能监控器
功能：进程内唯一实例（由应用引导层构造并注入），聚合所有租户的
请求样本与缓存指标。所有读写由互斥锁串行化。
*/
type Monitor struct {
	mu           sync.Mutex
	samples      map[string][]Sample
	cacheMetrics map[string]*CacheMetrics

	retention      time.Duration
	maxPerEndpoint int
	slowThreshold  time.Duration
	logger         *zap.Logger

	/* Prometheus 导出指标 */
	reqDuration *prometheus.HistogramVec
	cacheOps    *prometheus.CounterVec
}

/*
New 创建性能监控器
功能：初始化样本存储并在 reg 上注册 Prometheus 指标。
reg 为 nil 时不导出 Prometheus 指标（纯内存模式，测试常用）。
*/
func New(cfg Config, reg prometheus.Registerer) *Monitor {
	if cfg.Retention <= 0 {
		cfg.Retention = time.Hour
	}
	if cfg.MaxPerEndpoint <= 0 {
		cfg.MaxPerEndpoint = 1000
	}
	if cfg.SlowThreshold <= 0 {
		cfg.SlowThreshold = time.Second
	}

	m := &Monitor{
		samples:        make(map[string][]Sample),
		cacheMetrics:   make(map[string]*CacheMetrics),
		retention:      cfg.Retention,
		maxPerEndpoint: cfg.MaxPerEndpoint,
		slowThreshold:  cfg.SlowThreshold,
		logger:         zap.L().Named("monitor"),
	}

	m.reqDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tenantbase_request_duration_seconds",
		Help:    "请求处理耗时（按租户和端点）",
		Buckets: prometheus.DefBuckets,
	}, []string{"organization", "endpoint"})

	m.cacheOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tenantbase_cache_operations_total",
		Help: "缓存访问计数（按缓存名和结果）",
	}, []string{"cache", "result"})

	if reg != nil {
		reg.MustRegister(m.reqDuration, m.cacheOps)
	}

	return m
}

/* metricKey 组合键：organizationID:endpoint */
func metricKey(orgID, endpoint string) string {
	return orgID + ":" + endpoint
}

/*
Record 记录一次请求样本
功能：按 org:endpoint 键追加样本，随后立即按保留窗口和条数上限双重裁剪，
两个约束同时生效（取更严格者）。
*/
func (m *Monitor) Record(endpoint, orgID, userID string, start, end time.Time) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	s := Sample{
		Duration:       float64(end.Sub(start).Microseconds()) / 1000.0,
		MemoryBytes:    ms.Alloc,
		Timestamp:      end,
		Endpoint:       endpoint,
		OrganizationID: orgID,
		UserID:         userID,
	}

	m.reqDuration.WithLabelValues(orgID, endpoint).Observe(end.Sub(start).Seconds())

	key := metricKey(orgID, endpoint)
	cutoff := time.Now().Add(-m.retention)

	m.mu.Lock()
	defer m.mu.Unlock()

	series := append(m.samples[key], s)

	/* 先按时间窗口过滤 */
	kept := series[:0]
	for _, v := range series {
		if v.Timestamp.After(cutoff) {
			kept = append(kept, v)
		}
	}
	/* 再按条数上限截断，保留最新的 maxPerEndpoint 条 */
	if len(kept) > m.maxPerEndpoint {
		kept = kept[len(kept)-m.maxPerEndpoint:]
	}
	m.samples[key] = kept
}

/*
Stats 查询聚合统计
功能：endpoint 为空时聚合该 org 下所有端点的样本，否则只看指定端点。
无样本时返回全零结果，从不报错。
*/
func (m *Monitor) Stats(orgID, endpoint string) Stats {
	m.mu.Lock()
	durations := m.collectDurationsLocked(orgID, endpoint)
	m.mu.Unlock()

	return computeStats(durations)
}

/* collectDurationsLocked 收集匹配键的耗时序列，调用方必须持有锁 */
func (m *Monitor) collectDurationsLocked(orgID, endpoint string) []float64 {
	var durations []float64
	if endpoint != "" {
		for _, s := range m.samples[metricKey(orgID, endpoint)] {
			durations = append(durations, s.Duration)
		}
		return durations
	}

	prefix := orgID + ":"
	for key, series := range m.samples {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		for _, s := range series {
			durations = append(durations, s.Duration)
		}
	}
	return durations
}

/* computeStats 对耗时序列计算均值/极值/百分位 */
func computeStats(durations []float64) Stats {
	if len(durations) == 0 {
		return Stats{}
	}

	sort.Float64s(durations)

	sum := 0.0
	for _, d := range durations {
		sum += d
	}

	n := len(durations)
	p95 := durations[clampIndex(n*95/100, n)]
	p99 := durations[clampIndex(n*99/100, n)]

	return Stats{
		Avg:   sum / float64(n),
		Min:   durations[0],
		Max:   durations[n-1],
		Count: n,
		P95:   p95,
		P99:   p99,
	}
}

/* clampIndex 防止 nearest-rank 下标越界（n*0.99 在 n 较小时可能等于 n） */
func clampIndex(i, n int) int {
	if i >= n {
		return n - 1
	}
	return i
}

/*
UpdateCacheMetrics 记录一次缓存访问或淘汰事件
功能：eviction 为 true 时只累加淘汰计数（淘汰发生在写入路径，
不应影响命中率）；否则按 hit 累加命中或未命中并重算命中率。
*/
func (m *Monitor) UpdateCacheMetrics(cacheKey string, hit, eviction bool, size int) {
	result := "miss"
	if eviction {
		result = "eviction"
	} else if hit {
		result = "hit"
	}
	m.cacheOps.WithLabelValues(cacheKey, result).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()

	cm, ok := m.cacheMetrics[cacheKey]
	if !ok {
		cm = &CacheMetrics{}
		m.cacheMetrics[cacheKey] = cm
	}

	if eviction {
		cm.Evictions++
	} else if hit {
		cm.Hits++
	} else {
		cm.Misses++
	}

	total := cm.Hits + cm.Misses
	if total > 0 {
		cm.HitRate = float64(cm.Hits) / float64(total)
	} else {
		cm.HitRate = 0
	}
	cm.Size = size
}

/*
SlowEndpoints 检测指定租户的慢端点
功能：对该 org 下每个端点计算最近 5 分钟样本的平均耗时，
超过阈值的端点入选。5 分钟内无样本的端点直接跳过（不标记）。
threshold <= 0 时使用配置的默认阈值。
*/
func (m *Monitor) SlowEndpoints(orgID string, threshold time.Duration) []string {
	if threshold <= 0 {
		threshold = m.slowThreshold
	}
	thresholdMs := float64(threshold.Milliseconds())
	cutoff := time.Now().Add(-slowWindow)
	prefix := orgID + ":"

	m.mu.Lock()
	defer m.mu.Unlock()

	var slow []string
	for key, series := range m.samples {
		if !strings.HasPrefix(key, prefix) {
			continue
		}

		sum, count := 0.0, 0
		for _, s := range series {
			if s.Timestamp.After(cutoff) {
				sum += s.Duration
				count++
			}
		}
		if count == 0 {
			continue
		}
		if sum/float64(count) > thresholdMs {
			slow = append(slow, strings.TrimPrefix(key, prefix))
		}
	}

	sort.Strings(slow)
	return slow
}

/*
Cleanup 清除保留窗口之外的样本
功能：遍历所有键，删除过期样本，清空后无样本的键整个移除。
由外部调度器（cleanup 服务）周期性调用，监控器自身不持有定时器。
*/
func (m *Monitor) Cleanup() {
	cutoff := time.Now().Add(-m.retention)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, series := range m.samples {
		kept := series[:0]
		for _, s := range series {
			if s.Timestamp.After(cutoff) {
				kept = append(kept, s)
			}
		}
		removed += len(series) - len(kept)
		if len(kept) == 0 {
			delete(m.samples, key)
		} else {
			m.samples[key] = kept
		}
	}

	if removed > 0 {
		m.logger.Debug("清理过期性能样本", zap.Int("removed", removed))
	}
}

/*
EndpointReport 单端点报告条目
RecentRequests 统计最近 1 小时的样本数（不是错误数，监控器不做错误分类）。
*/
type EndpointReport struct {
	Count          int     `json:"count"`
	Avg            float64 `json:"avg"`
	Min            float64 `json:"min"`
	Max            float64 `json:"max"`
	RecentRequests int     `json:"recent_requests"`
}

/*
Report 租户性能报告
*/
type Report struct {
	OrganizationID string                    `json:"organization_id"`
	GeneratedAt    time.Time                 `json:"generated_at"`
	TotalRequests  int                       `json:"total_requests"`
	AvgDuration    float64                   `json:"avg_duration"`
	SlowEndpoints  []string                  `json:"slow_endpoints"`
	Endpoints      map[string]EndpointReport `json:"endpoints"`
	Caches         map[string]CacheMetrics   `json:"caches"`
}

/*
GenerateReport 生成租户性能报告
功能：总览（请求总数、整体均值、慢端点）+ 按端点分解
（数量/均值/极值/最近 1 小时请求数）+ 键名包含该 org 的缓存指标快照。
*/
func (m *Monitor) GenerateReport(orgID string) Report {
	slow := m.SlowEndpoints(orgID, 0)
	hourAgo := time.Now().Add(-time.Hour)
	prefix := orgID + ":"

	m.mu.Lock()
	defer m.mu.Unlock()

	report := Report{
		OrganizationID: orgID,
		GeneratedAt:    time.Now(),
		SlowEndpoints:  slow,
		Endpoints:      make(map[string]EndpointReport),
		Caches:         make(map[string]CacheMetrics),
	}

	totalSum := 0.0
	for key, series := range m.samples {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		endpoint := strings.TrimPrefix(key, prefix)

		var durations []float64
		recent := 0
		for _, s := range series {
			durations = append(durations, s.Duration)
			totalSum += s.Duration
			if s.Timestamp.After(hourAgo) {
				recent++
			}
		}
		stats := computeStats(durations)
		report.Endpoints[endpoint] = EndpointReport{
			Count:          stats.Count,
			Avg:            stats.Avg,
			Min:            stats.Min,
			Max:            stats.Max,
			RecentRequests: recent,
		}
		report.TotalRequests += stats.Count
	}

	if report.TotalRequests > 0 {
		report.AvgDuration = totalSum / float64(report.TotalRequests)
	}

	for cacheKey, cm := range m.cacheMetrics {
		if strings.Contains(cacheKey, orgID) {
			report.Caches[cacheKey] = *cm
		}
	}

	return report
}

/*
Summary 返回报告的单行文本摘要，日志和告警通道用
*/
func (r Report) Summary() string {
	return fmt.Sprintf("org=%s requests=%d avg=%.1fms slow=%d",
		r.OrganizationID, r.TotalRequests, r.AvgDuration, len(r.SlowEndpoints))
}
