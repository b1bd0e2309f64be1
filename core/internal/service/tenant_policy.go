package service

import (
	"fmt"
	"time"

	"tenantbase/core/internal/cache"
	"tenantbase/core/internal/db/dao"

	"go.uber.org/zap"
)

/*
TenantPolicy 租户安全策略
功能：中间件执行层使用的解析结果，由 Tenant 模型归一化而来。
IPWhitelist 为空表示不做 IP 限制；AllowedOrigins 为空表示不做来源限制。
*/
type TenantPolicy struct {
	TenantID       string
	Slug           string
	AllowedOrigins []string
	IPWhitelist    []string
	MaxPayloadSize int64
	CSPOverride    string
	Enabled        bool
}

/*
TenantPolicyResolver 租户策略解析器
功能：按租户标识（slug）解析安全策略，TTL+LRU 缓存热租户；
未知租户降级为全局默认策略（宽松放行），避免配置缺失打断请求。
*/
type TenantPolicyResolver struct {
	dao            *dao.DAO
	policies       *cache.Cache[*TenantPolicy]
	defaultMaxSize int64
	logger         *zap.Logger
}

/*
NewTenantPolicyResolver 创建租户策略解析器
参数：cacheSize/cacheTTL 控制策略缓存容量与新鲜度，
defaultMaxSize 为租户未配置时的请求体上限，sink 可为 nil
*/
func NewTenantPolicyResolver(d *dao.DAO, cacheSize int, cacheTTL time.Duration, defaultMaxSize int64, sink cache.MetricsSink) *TenantPolicyResolver {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &TenantPolicyResolver{
		dao:            d,
		policies:       cache.New[*TenantPolicy]("tenant-policy", cacheSize, cacheTTL, sink),
		defaultMaxSize: defaultMaxSize,
		logger:         zap.L().Named("tenant-policy"),
	}
}

/*
Resolve 解析租户策略
功能：缓存命中直接返回；未命中回源数据库。租户不存在时
返回默认策略并告警（不报错，避免未注册租户阻断请求链）。
*/
func (r *TenantPolicyResolver) Resolve(slug string) (*TenantPolicy, error) {
	if slug == "" {
		return r.defaultPolicy(""), nil
	}

	if policy, ok := r.policies.Get(slug); ok {
		return policy, nil
	}

	tenant, err := r.dao.GetTenantBySlug(slug)
	if err != nil {
		return nil, fmt.Errorf("查询租户失败: %w", err)
	}
	if tenant == nil {
		r.logger.Warn("未知租户，使用默认策略", zap.String("slug", slug))
		policy := r.defaultPolicy(slug)
		r.policies.Set(slug, policy)
		return policy, nil
	}

	maxSize := tenant.MaxPayloadSize
	if maxSize <= 0 {
		maxSize = r.defaultMaxSize
	}

	policy := &TenantPolicy{
		TenantID:       tenant.ID,
		Slug:           tenant.Slug,
		AllowedOrigins: tenant.AllowedDomainList(),
		IPWhitelist:    tenant.IPWhitelistEntries(),
		MaxPayloadSize: maxSize,
		CSPOverride:    tenant.CSPOverride,
		Enabled:        tenant.Enabled,
	}
	r.policies.Set(slug, policy)
	return policy, nil
}

/*
Invalidate 失效单个租户的缓存策略（租户配置变更后调用）
*/
func (r *TenantPolicyResolver) Invalidate(slug string) {
	r.policies.Delete(slug)
}

/*
CacheMetrics 策略缓存指标快照
*/
func (r *TenantPolicyResolver) CacheMetrics() cache.Metrics {
	return r.policies.Metrics()
}

/* defaultPolicy 未注册租户的宽松默认策略 */
func (r *TenantPolicyResolver) defaultPolicy(slug string) *TenantPolicy {
	return &TenantPolicy{
		Slug:           slug,
		MaxPayloadSize: r.defaultMaxSize,
		Enabled:        true,
	}
}
