package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

/*
以下辅助函数从 Gin Context 中安全提取认证中间件注入的用户信息。
使用安全类型断言，不存在或类型不匹配时返回零值，避免 panic。
所有 handler 应使用这些函数替代直接的 c.Get() + .(string) 模式。
*/

/* GetUserID 从上下文安全提取用户 ID */
func GetUserID(c *gin.Context) string {
	v, _ := c.Get("user_id")
	s, _ := v.(string)
	return s
}

/* GetEmail 从上下文安全提取用户邮箱 */
func GetEmail(c *gin.Context) string {
	v, _ := c.Get("email")
	s, _ := v.(string)
	return s
}

/* GetSessionID 从上下文安全提取当前会话 ID */
func GetSessionID(c *gin.Context) string {
	v, _ := c.Get("session_id")
	s, _ := v.(string)
	return s
}

/* GetOrganizationID 从上下文安全提取组织（租户）ID */
func GetOrganizationID(c *gin.Context) string {
	v, _ := c.Get("organization_id")
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	/* 认证前的请求只有租户中间件注入的 tenant_id */
	v, _ = c.Get("tenant_id")
	s, _ := v.(string)
	return s
}

/*
GetRole 从上下文安全提取用户角色
兼容 string 和自定义 string 类型（如 models.UserRole）
*/
func GetRole(c *gin.Context) string {
	v, _ := c.Get("role")
	if s, ok := v.(string); ok {
		return s
	}
	if v != nil {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

/* IsAdmin 检查当前用户是否为管理员 */
func IsAdmin(c *gin.Context) bool {
	return GetRole(c) == "admin"
}
