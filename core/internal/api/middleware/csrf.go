package middleware

import (
	"crypto/subtle"
	"net/http"

	"tenantbase/core/internal/api/response"

	"github.com/gin-gonic/gin"
)

/*
CSRF 双提交 Cookie 校验中间件
功能：状态变更请求（POST/PUT/PATCH/DELETE）必须同时携带
CSRF cookie 和同值请求头，跨站请求无法读取 cookie 因此无法伪造头。
GET/HEAD/OPTIONS 等安全方法直接放行。
cookieName/headerName 为空时取默认 csrf-token / X-CSRF-Token。
*/
func CSRF(cookieName, headerName string) gin.HandlerFunc {
	if cookieName == "" {
		cookieName = "csrf-token"
	}
	if headerName == "" {
		headerName = "X-CSRF-Token"
	}

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		cookie, err := c.Cookie(cookieName)
		header := c.GetHeader(headerName)

		if err != nil || cookie == "" || header == "" ||
			subtle.ConstantTimeCompare([]byte(cookie), []byte(header)) != 1 {
			response.GinForbidden(c, "CSRF 校验失败")
			c.Abort()
			return
		}

		c.Next()
	}
}
