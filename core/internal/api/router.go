package api

import (
	"regexp"
	"time"

	"tenantbase/core/internal/api/handler/security"
	"tenantbase/core/internal/api/handler/system"
	"tenantbase/core/internal/api/handler/user"
	"tenantbase/core/internal/api/middleware"
	"tenantbase/core/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter 设置路由
func SetupRouter(app *types.App) *gin.Engine {
	// 设置Gin模式
	if app.Config.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	/*
		全局中间件链，顺序有语义：
		Recovery 最外层兜底 → 安全响应头 → 全局请求体上限 →
		访问日志 → CORS → 性能采样（defer 记录，panic 请求也计入）
	*/
	router.Use(middleware.Recovery())
	router.Use(middleware.SecurityHeaders(&app.Config.Security))
	router.Use(middleware.BodyLimit(app.Config.Security.DefaultMaxPayloadSize))
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(app.Config.Server.CORSAllowedOrigins))
	router.Use(middleware.Performance(app.Monitor))

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
			"cache":  app.DB.HasCache(),
		})
	})

	/*
		Prometheus /metrics 包含敏感运行指标，仅允许本地访问，
		生产环境应通过反向代理进一步限制。
	*/
	router.GET("/metrics", localOnlyGuard(), gin.WrapH(promhttp.Handler()))

	// API v1：租户级安全策略覆盖整个 API 面
	v1 := router.Group("/api/v1")
	v1.Use(middleware.TenantSecurity(app.Tenants))
	{
		/* 登录限流器：每个 IP 每 15 分钟最多 10 次登录尝试 */
		loginLimiter := middleware.NewLoginRateLimiter(10, 15*time.Minute)

		authHandler := security.NewAuthHandler(app)

		// 认证路由（无需登录态）
		auth := v1.Group("/auth")
		{
			/* 注册入参净化：邮箱格式 + 展示名剥离危险内容 */
			registerRules := []middleware.ValidationRule{
				{Field: "email", Required: true, MaxLength: 128,
					Pattern: regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)},
				{Field: "password", Required: true, MinLength: 8, MaxLength: 72},
				{Field: "name", MaxLength: 64, Sanitize: true},
			}

			auth.POST("/register", middleware.InputValidation(registerRules), authHandler.Register)
			auth.POST("/login", loginLimiter.Middleware(), authHandler.Login)
		}

		// 需要登录态的路由：JWT+会话双重校验，状态变更受 CSRF 保护
		authorized := v1.Group("")
		authorized.Use(middleware.Auth(app.Auth, app.Sessions, app.Users))
		authorized.Use(middleware.CSRF(
			app.Config.Security.CSRFCookieName,
			app.Config.Security.CSRFHeaderName,
		))
		{
			authorized.POST("/auth/logout", authHandler.Logout)
			authorized.POST("/auth/refresh", authHandler.Refresh)

			// 会话管理（已登录设备）
			sessionHandler := user.NewSessionHandler(app)
			sessions := authorized.Group("/sessions")
			{
				sessions.GET("", sessionHandler.List)
				sessions.DELETE("/:id", sessionHandler.Revoke)
				sessions.POST("/revoke-others", sessionHandler.RevokeOthers)
			}

			// 当前用户
			userHandler := user.NewUserHandler(app)
			activityHandler := user.NewActivityHandler(app)
			me := authorized.Group("/user")
			{
				me.GET("/me", userHandler.Me)
				me.PUT("/password", userHandler.UpdatePassword)
				me.GET("/activity", activityHandler.List)
			}

			// 性能监控
			monitoringHandler := system.NewMonitoringHandler(app)
			monitoring := authorized.Group("/monitoring")
			{
				monitoring.GET("/stats", monitoringHandler.Stats)
				monitoring.GET("/slow", monitoringHandler.SlowEndpoints)
				monitoring.GET("/report", monitoringHandler.Report)
			}

			// 管理员专用：租户安全配置
			tenantHandler := system.NewTenantHandler(app)
			admin := authorized.Group("/admin")
			admin.Use(middleware.RequireAdmin())
			{
				admin.POST("/tenants", tenantHandler.Create)
				admin.GET("/tenants/:slug", tenantHandler.Get)
				admin.PUT("/tenants/:slug/security", tenantHandler.UpdateSecurity)
			}
		}
	}

	return router
}

/*
localOnlyGuard 本地访问限制中间件
功能：仅允许 127.0.0.1 / ::1 访问，保护 /metrics 等敏感运维端点。
生产环境应额外通过反向代理限制访问。
*/
func localOnlyGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip != "127.0.0.1" && ip != "::1" {
			c.JSON(403, gin.H{
				"success": false,
				"message": "此端点仅允许本地访问",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
