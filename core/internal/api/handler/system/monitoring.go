package system

import (
	"time"

	"tenantbase/core/internal/api/middleware"
	"tenantbase/core/internal/api/response"
	"tenantbase/core/internal/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

/*
MonitoringHandler 性能监控处理器
功能：暴露租户维度的性能统计、慢端点检测和完整报告。
非管理员只能查询自己所属组织的数据。
*/
type MonitoringHandler struct {
	app    *types.App
	logger *zap.Logger
}

/*
NewMonitoringHandler 创建性能监控处理器
*/
func NewMonitoringHandler(app *types.App) *MonitoringHandler {
	return &MonitoringHandler{
		app:    app,
		logger: zap.L().Named("monitoring-handler"),
	}
}

/* resolveOrgID 确定查询的组织：管理员可用 query 参数指定任意组织 */
func (h *MonitoringHandler) resolveOrgID(c *gin.Context) string {
	if middleware.IsAdmin(c) {
		if org := c.Query("organization_id"); org != "" {
			return org
		}
	}
	return middleware.GetOrganizationID(c)
}

/*
Stats 查询聚合统计
功能：endpoint 参数为空时聚合组织下所有端点
路由：GET /api/v1/monitoring/stats?endpoint=
*/
func (h *MonitoringHandler) Stats(c *gin.Context) {
	orgID := h.resolveOrgID(c)
	stats := h.app.Monitor.Stats(orgID, c.Query("endpoint"))

	response.GinSuccess(c, gin.H{
		"organization_id": orgID,
		"endpoint":        c.Query("endpoint"),
		"stats":           stats,
	})
}

/*
SlowEndpoints 慢端点检测
功能：threshold_ms 参数覆盖默认阈值，只看最近 5 分钟的样本
路由：GET /api/v1/monitoring/slow?threshold_ms=
*/
func (h *MonitoringHandler) SlowEndpoints(c *gin.Context) {
	orgID := h.resolveOrgID(c)

	var threshold time.Duration
	if ms := c.Query("threshold_ms"); ms != "" {
		if d, err := time.ParseDuration(ms + "ms"); err == nil && d > 0 {
			threshold = d
		}
	}

	slow := h.app.Monitor.SlowEndpoints(orgID, threshold)
	response.GinSuccess(c, gin.H{
		"organization_id": orgID,
		"slow_endpoints":  slow,
	})
}

/*
Report 生成租户性能报告
功能：总览 + 按端点分解 + 关联缓存指标
路由：GET /api/v1/monitoring/report
*/
func (h *MonitoringHandler) Report(c *gin.Context) {
	orgID := h.resolveOrgID(c)
	report := h.app.Monitor.GenerateReport(orgID)

	h.logger.Debug("生成性能报告", zap.String("summary", report.Summary()))
	response.GinSuccess(c, report)
}
