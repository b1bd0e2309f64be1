package middleware

import (
	"net/http"
	"strings"

	"tenantbase/core/internal/api/response"
	"tenantbase/core/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

/* TenantHeader 请求携带的租户标识头（slug） */
const TenantHeader = "X-Tenant-ID"

/*
clientIP 提取客户端真实 IP
优先级：X-Forwarded-For 首段 → X-Real-IP → 连接对端地址。
反向代理部署下 XFF 首段是原始客户端。
*/
func clientIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if ip := c.GetHeader("X-Real-IP"); ip != "" {
		return ip
	}
	return c.ClientIP()
}

/* containsString 白名单精确匹配 */
func containsString(list []string, target string) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}

/*
rewriteConnectSrc 将 CSP 的 connect-src 指令扩展租户允许的来源
功能：在 'self' 基础上追加租户白名单域名，其余指令原样保留
*/
func rewriteConnectSrc(csp string, origins []string) string {
	if csp == "" || len(origins) == 0 {
		return csp
	}

	directives := strings.Split(csp, ";")
	for i, d := range directives {
		trimmed := strings.TrimSpace(d)
		if strings.HasPrefix(trimmed, "connect-src") {
			directives[i] = " " + trimmed + " " + strings.Join(origins, " ")
			return strings.TrimSpace(strings.Join(directives, ";"))
		}
	}
	/* 无 connect-src 指令时追加一条 */
	return csp + "; connect-src 'self' " + strings.Join(origins, " ")
}

/*
TenantSecurity 租户级安全策略中间件
功能：按请求头中的租户标识解析安全策略并执行：
  - 租户被禁用 → 403
  - IP 白名单非空且客户端 IP 不在其中 → 403
  - 来源白名单非空且 Origin 不在其中 → 403（无 Origin 头的同源请求放行）
  - Content-Length 超过租户上限 → 413
  - 响应阶段将 CSP connect-src 扩展租户允许的来源

策略解析失败（数据库故障）返回 500，不降级放行。
*/
func TenantSecurity(resolver *service.TenantPolicyResolver) gin.HandlerFunc {
	log := zap.L().Named("tenant-security")

	return func(c *gin.Context) {
		slug := c.GetHeader(TenantHeader)

		policy, err := resolver.Resolve(slug)
		if err != nil {
			log.Error("解析租户策略失败", zap.String("tenant", slug), zap.Error(err))
			response.GinInternalError(c, "租户策略解析失败")
			c.Abort()
			return
		}

		if !policy.Enabled {
			response.GinForbidden(c, "租户已被禁用")
			c.Abort()
			return
		}

		/* IP 白名单 */
		if len(policy.IPWhitelist) > 0 {
			ip := clientIP(c)
			if !containsString(policy.IPWhitelist, ip) {
				log.Warn("拒绝白名单外的客户端 IP",
					zap.String("tenant", slug),
					zap.String("ip", ip))
				response.GinForbidden(c, "客户端 IP 不在租户白名单内")
				c.Abort()
				return
			}
		}

		/* Origin 白名单，仅检查跨域请求 */
		if len(policy.AllowedOrigins) > 0 {
			if origin := c.GetHeader("Origin"); origin != "" {
				if !containsString(policy.AllowedOrigins, origin) {
					log.Warn("拒绝白名单外的来源",
						zap.String("tenant", slug),
						zap.String("origin", origin))
					response.GinForbidden(c, "请求来源不在租户白名单内")
					c.Abort()
					return
				}
			}
		}

		/* 请求体上限（租户级覆盖全局默认） */
		if policy.MaxPayloadSize > 0 && c.Request.ContentLength > policy.MaxPayloadSize {
			response.GinError(c, http.StatusRequestEntityTooLarge, "请求体超过租户限制")
			c.Abort()
			return
		}

		if policy.TenantID != "" {
			c.Set("tenant_id", policy.TenantID)
		}
		c.Set("tenant_slug", policy.Slug)

		/* 按租户改写 CSP。必须在 handler 写入响应前完成，
		   首次 Write 之后响应头即冻结 */
		h := c.Writer.Header()
		csp := policy.CSPOverride
		if csp == "" {
			csp = h.Get("Content-Security-Policy")
		}
		if len(policy.AllowedOrigins) > 0 {
			csp = rewriteConnectSrc(csp, policy.AllowedOrigins)
		}
		if csp != "" {
			h.Set("Content-Security-Policy", csp)
		}

		c.Next()
	}
}
