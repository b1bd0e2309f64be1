package middleware

import (
	"runtime/debug"

	"tenantbase/core/internal/api/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

/*
Recovery 错误恢复中间件
功能：捕获 handler 中的 panic，记录结构化日志含堆栈追踪，
返回统一 500 响应（不向客户端泄漏堆栈），防止单个请求崩溃导致进程退出。
位于中间件链最外层，性能采样等内层中间件的 defer 仍会执行。
*/
func Recovery() gin.HandlerFunc {
	log := zap.L().Named("recovery")

	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error("请求处理 panic",
					zap.Any("error", err),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.String("tenant", c.GetString("tenant_slug")),
					zap.String("client_ip", clientIP(c)),
					zap.ByteString("stack", debug.Stack()),
				)
				response.GinInternalError(c, "服务器内部错误")
				c.Abort()
			}
		}()

		c.Next()
	}
}
