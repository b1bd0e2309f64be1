/*
Package cache 进程内 TTL + LRU 缓存

为高频读取的租户配置、会话元数据等提供带过期时间和容量上限的内存缓存。
每个缓存实例有独立的名字，命中/未命中/淘汰计数通过 MetricsSink 上报给性能监控器。

淘汰策略：
  - TTL 过期：读取时惰性检测，过期条目立即删除且视为未命中
  - LRU 淘汰：容量满时写入新键会淘汰最久未访问的条目

并发安全：所有操作由 sync.Mutex 串行化，单实例可被多个请求 goroutine 共享。
*/
package cache

import (
	"container/list"
	"sync"
	"time"
)

/*
MetricsSink 缓存指标接收器
功能：缓存在每次访问/淘汰后上报计数，由性能监控器实现。
sink 为 nil 时缓存静默运行，不产生任何指标。
*/
type MetricsSink interface {
	UpdateCacheMetrics(cacheKey string, hit, eviction bool, size int)
}

/* entry 缓存条目，element 指向 LRU 链表节点实现 O(1) 移动和删除 */
type entry[V any] struct {
	key       string
	value     V
	timestamp time.Time /* 写入时间，Get 命中不刷新（TTL 固定窗口而非滑动窗口） */
	element   *list.Element
}

/*
Cache 带 TTL 和 LRU 淘汰的泛型缓存
功能：string 键 → 任意值的定容缓存。链表头部为最近使用（MRU），
尾部为最久未使用（LRU），容量满时从尾部淘汰。
*/
type Cache[V any] struct {
	mu      sync.Mutex
	name    string
	entries map[string]*entry[V]
	lru     *list.List
	maxSize int
	ttl     time.Duration
	sink    MetricsSink

	/* 本地计数，Metrics() 快照用 */
	hits      int64
	misses    int64
	evictions int64
}

/*
Metrics 缓存计数快照
*/
type Metrics struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
	Size      int     `json:"size"`
}

/*
New 创建缓存实例
参数：name 缓存名（指标标识），maxSize 容量上限，ttl 条目有效期，
sink 指标接收器（可为 nil）
*/
func New[V any](name string, maxSize int, ttl time.Duration, sink MetricsSink) *Cache[V] {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache[V]{
		name:    name,
		entries: make(map[string]*entry[V], maxSize),
		lru:     list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		sink:    sink,
	}
}

/*
Get 读取缓存值
功能：键不存在或已过期返回零值 + false 并记一次未命中（过期条目顺手删除）；
命中时将条目移到 MRU 位置并返回值。
*/
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		c.report(false, false)
		var zero V
		return zero, false
	}

	if time.Since(e.timestamp) > c.ttl {
		c.removeLocked(e)
		c.misses++
		c.report(false, false)
		var zero V
		return zero, false
	}

	c.lru.MoveToFront(e.element)
	c.hits++
	c.report(true, false)
	return e.value, true
}

/*
Set 写入缓存值
功能：已存在的键原地覆盖并刷新时间戳和 MRU 位置；
新键在容量满时先淘汰 LRU 尾部条目（记一次淘汰）再插入。
*/
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.timestamp = time.Now()
		c.lru.MoveToFront(e.element)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}

	e := &entry[V]{key: key, value: value, timestamp: time.Now()}
	e.element = c.lru.PushFront(e)
	c.entries[key] = e
}

/*
Has 探测键是否存在且未过期
功能：纯存在性检查，不改变 LRU 顺序、不计命中/未命中；
过期条目作为副作用被删除。
*/
func (c *Cache[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	if time.Since(e.timestamp) > c.ttl {
		c.removeLocked(e)
		return false
	}
	return true
}

/*
Delete 删除指定键
返回：键存在且被删除时为 true
*/
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeLocked(e)
	return true
}

/* Clear 清空所有条目（不计入淘汰） */
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[V], c.maxSize)
	c.lru.Init()
}

/*
Len 返回存活条目数
功能：先清除所有已过期条目再计数，保证返回值不含僵尸条目
*/
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.entries {
		if time.Since(e.timestamp) > c.ttl {
			c.removeLocked(e)
		}
	}
	return len(c.entries)
}

/* Name 返回缓存名 */
func (c *Cache[V]) Name() string {
	return c.name
}

/*
Metrics 返回当前计数快照
*/
func (c *Cache[V]) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return Metrics{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		HitRate:   rate,
		Size:      len(c.entries),
	}
}

/* evictOldestLocked 淘汰 LRU 尾部条目，调用方必须持有锁 */
func (c *Cache[V]) evictOldestLocked() {
	back := c.lru.Back()
	if back == nil {
		return
	}
	e := back.Value.(*entry[V])
	c.removeLocked(e)
	c.evictions++
	c.report(false, true)
}

/* removeLocked 从 map 和链表中移除条目，调用方必须持有锁 */
func (c *Cache[V]) removeLocked(e *entry[V]) {
	c.lru.Remove(e.element)
	delete(c.entries, e.key)
}

/* report 上报一次访问/淘汰事件，sink 为 nil 时跳过 */
func (c *Cache[V]) report(hit, eviction bool) {
	if c.sink == nil {
		return
	}
	c.sink.UpdateCacheMetrics(c.name, hit, eviction, len(c.entries))
}
