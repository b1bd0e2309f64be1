package middleware

import (
	"fmt"
	"strings"

	"tenantbase/core/internal/config"

	"github.com/gin-gonic/gin"
)

/*
defaultCSP 内置默认内容安全策略
connect-src 在租户安全中间件中按租户白名单动态改写
*/
const defaultCSP = "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; " +
	"img-src 'self' data:; font-src 'self'; connect-src 'self'; " +
	"frame-ancestors 'none'; base-uri 'self'; form-action 'self'"

/*
SecurityHeaders 安全响应头中间件
功能：为所有 HTTP 响应添加安全防护头，防止常见 Web 攻击：
  - Content-Security-Policy: 限制资源加载来源（XSS 纵深防御）
  - X-Content-Type-Options: 阻止浏览器 MIME 嗅探
  - X-Frame-Options: 阻止页面被嵌入 iframe（防点击劫持）
  - Referrer-Policy: 限制 Referer 头泄漏完整 URL
  - Permissions-Policy: 禁用不必要的浏览器功能（摄像头/麦克风/地理位置）
  - Cross-Origin-*-Policy: 跨源隔离
  - Strict-Transport-Security: 仅在配置启用时下发（HTTPS 部署）

已被上游中间件或 handler 设置的头不覆盖，允许按路由定制。
*/
func SecurityHeaders(cfg *config.SecurityConfig) gin.HandlerFunc {
	csp := cfg.ContentSecurityPolicy
	if csp == "" {
		csp = defaultCSP
	}

	/* 配置驱动的头集合，启动时预计算 */
	headers := map[string]string{
		"Content-Security-Policy":      csp,
		"X-Frame-Options":              cfg.FrameOptions,
		"Referrer-Policy":              cfg.ReferrerPolicy,
		"Permissions-Policy":           cfg.PermissionsPolicy,
		"Cross-Origin-Embedder-Policy": cfg.CrossOriginEmbedder,
		"Cross-Origin-Opener-Policy":   cfg.CrossOriginOpener,
		"Cross-Origin-Resource-Policy": cfg.CrossOriginResource,

		/* 固定头，不做配置 */
		"X-Content-Type-Options":            "nosniff",
		"X-XSS-Protection":                  "1; mode=block",
		"X-DNS-Prefetch-Control":            "off",
		"X-Download-Options":                "noopen",
		"X-Permitted-Cross-Domain-Policies": "none",
	}

	var hsts string
	if cfg.EnableHSTS {
		maxAge := cfg.HSTSMaxAge
		if maxAge <= 0 {
			maxAge = 63072000
		}
		hsts = fmt.Sprintf("max-age=%d; includeSubDomains", maxAge)
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		for name, value := range headers {
			if value == "" {
				continue
			}
			/* 已设置的头不覆盖 */
			if h.Get(name) == "" {
				h.Set(name, value)
			}
		}

		if hsts != "" && h.Get("Strict-Transport-Security") == "" {
			h.Set("Strict-Transport-Security", hsts)
		}

		/* API 路由禁止缓存敏感数据 */
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			h.Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
			h.Set("Pragma", "no-cache")
		}

		c.Next()
	}
}
