package user

import (
	"tenantbase/core/internal/api/middleware"
	"tenantbase/core/internal/api/response"
	"tenantbase/core/internal/db/models"
	"tenantbase/core/internal/service"
	"tenantbase/core/internal/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

/*
SessionHandler 会话管理处理器
功能：用户查看和管理自己的登录会话（"已登录设备"页面）
*/
type SessionHandler struct {
	app    *types.App
	logger *zap.Logger
}

/*
NewSessionHandler 创建会话管理处理器
*/
func NewSessionHandler(app *types.App) *SessionHandler {
	return &SessionHandler{
		app:    app,
		logger: zap.L().Named("session-handler"),
	}
}

/*
List 列出当前用户的活跃会话
功能：按最近活动倒序，当前会话带 is_current 标记
路由：GET /api/v1/sessions
*/
func (h *SessionHandler) List(c *gin.Context) {
	sessions, err := h.app.Sessions.GetUserSessions(
		middleware.GetUserID(c),
		middleware.GetSessionID(c),
	)
	if err != nil {
		h.logger.Error("查询会话列表失败", zap.Error(err))
		response.GinInternalError(c, "查询会话列表失败")
		return
	}

	response.GinSuccess(c, gin.H{
		"sessions": sessions,
		"total":    len(sessions),
	})
}

/*
Revoke 撤销指定会话
功能：仅能撤销属于自己的会话；撤销不存在或他人的会话返回 404
路由：DELETE /api/v1/sessions/:id
*/
func (h *SessionHandler) Revoke(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		response.GinBadRequest(c, "缺少会话 ID")
		return
	}

	err := h.app.Sessions.RevokeSession(sessionID, middleware.GetUserID(c), models.RevokeReasonUser)
	if err != nil {
		if err == service.ErrSessionNotFound {
			/* 他人的会话同样返回 404，不暴露会话是否存在 */
			response.GinNotFound(c, "会话不存在或已失效")
			return
		}
		h.logger.Error("撤销会话失败", zap.String("sessionID", sessionID), zap.Error(err))
		response.GinInternalError(c, "撤销会话失败")
		return
	}

	response.GinSuccessWithMessage(c, "会话已撤销", nil)
}

/*
RevokeOthers 撤销除当前外的所有会话
功能："登出其他设备"，返回撤销数量
路由：POST /api/v1/sessions/revoke-others
*/
func (h *SessionHandler) RevokeOthers(c *gin.Context) {
	count, err := h.app.Sessions.RevokeAllOtherSessions(
		middleware.GetUserID(c),
		middleware.GetSessionID(c),
	)
	if err != nil {
		h.logger.Error("批量撤销会话失败", zap.Error(err))
		response.GinInternalError(c, "批量撤销会话失败")
		return
	}

	response.GinSuccessWithMessage(c, "其他会话已撤销", gin.H{"revoked": count})
}
