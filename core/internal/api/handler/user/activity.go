package user

import (
	"strconv"

	"tenantbase/core/internal/api/middleware"
	"tenantbase/core/internal/api/response"
	"tenantbase/core/internal/types"

	"github.com/gin-gonic/gin"
)

/*
ActivityHandler 审计日志处理器
功能：用户查看自己的操作记录（登录、会话变更等）
*/
type ActivityHandler struct {
	app *types.App
}

/*
NewActivityHandler 创建审计日志处理器
*/
func NewActivityHandler(app *types.App) *ActivityHandler {
	return &ActivityHandler{app: app}
}

/*
List 分页查询当前用户的审计日志
路由：GET /api/v1/user/activity?limit=&offset=
*/
func (h *ActivityHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	logs, err := h.app.DAO.ListActivityLogs(middleware.GetUserID(c), limit, offset)
	if err != nil {
		response.GinInternalError(c, "查询审计日志失败")
		return
	}

	response.GinSuccess(c, gin.H{
		"logs":  logs,
		"total": len(logs),
	})
}
