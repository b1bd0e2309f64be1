package middleware

import (
	"strings"

	"tenantbase/core/internal/api/response"
	"tenantbase/core/internal/service"

	"github.com/gin-gonic/gin"
)

/*
Auth 认证中间件
功能：从 Authorization 头提取 Bearer 令牌完成两段认证：
 1. JWT 签名与有效期验证，取出 claims 中绑定的会话 ID
 2. 回查会话可用性（活跃、未撤销、未过期），撤销即时生效

认证通过后刷新会话活跃时间并注入用户上下文。
会话回查失败（数据库故障）按未认证处理，不降级放行。
*/
func Auth(auth *service.AuthService, sessions *service.SessionService, users *service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.GinUnauthorized(c, "缺少认证令牌")
			c.Abort()
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			response.GinUnauthorized(c, "认证头格式无效，需 Bearer <token>")
			c.Abort()
			return
		}

		claims, err := auth.ParseToken(tokenStr)
		if err != nil {
			response.GinUnauthorized(c, "无效或已过期的令牌")
			c.Abort()
			return
		}

		/* JWT 有效不代表会话有效：撤销/过期的会话在这里被拦下 */
		session, err := sessions.GetSessionByID(claims.SessionID)
		if err != nil || session == nil {
			response.GinUnauthorized(c, "会话已失效，请重新登录")
			c.Abort()
			return
		}

		/* 刷新活跃时间，失败不阻断请求 */
		_ = sessions.UpdateSessionActivity(session.ID, clientIP(c))

		user, err := users.GetUser(claims.UserID)
		if err != nil {
			response.GinUnauthorized(c, "用户不存在或已被删除")
			c.Abort()
			return
		}
		if !user.Enabled {
			response.GinForbidden(c, "账户已被禁用")
			c.Abort()
			return
		}

		c.Set("user_id", user.ID)
		c.Set("email", user.Email)
		c.Set("role", string(user.Role))
		c.Set("session_id", session.ID)
		if user.TenantID != "" {
			c.Set("organization_id", user.TenantID)
		}
		c.Next()
	}
}

/*
SessionTokenAuth 会话令牌认证中间件
功能：API 客户端使用原始会话令牌（X-Session-Token 头）而非 JWT 认证。
令牌查询经 Redis 加速，未命中回源数据库。
*/
func SessionTokenAuth(sessions *service.SessionService, users *service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("X-Session-Token")
		if token == "" {
			response.GinUnauthorized(c, "缺少会话令牌")
			c.Abort()
			return
		}

		session, err := sessions.GetSessionByToken(token)
		if err != nil {
			response.GinInternalError(c, "会话查询失败")
			c.Abort()
			return
		}
		if session == nil {
			response.GinUnauthorized(c, "无效或已过期的会话令牌")
			c.Abort()
			return
		}

		_ = sessions.UpdateSessionActivity(session.ID, clientIP(c))

		user, err := users.GetUser(session.UserID)
		if err != nil {
			response.GinUnauthorized(c, "用户不存在或已被删除")
			c.Abort()
			return
		}
		if !user.Enabled {
			response.GinForbidden(c, "账户已被禁用")
			c.Abort()
			return
		}

		c.Set("user_id", user.ID)
		c.Set("email", user.Email)
		c.Set("role", string(user.Role))
		c.Set("session_id", session.ID)
		if user.TenantID != "" {
			c.Set("organization_id", user.TenantID)
		}
		c.Next()
	}
}

/*
RequireAdmin 管理员权限中间件
功能：必须在 Auth 之后使用，非 admin 角色返回 403
*/
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			response.GinForbidden(c, "需要管理员权限")
			c.Abort()
			return
		}
		c.Next()
	}
}
