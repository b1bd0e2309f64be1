package user

import (
	"tenantbase/core/internal/api/middleware"
	"tenantbase/core/internal/api/response"
	"tenantbase/core/internal/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

/*
UserHandler 用户处理器
功能：当前用户信息查询与密码修改
*/
type UserHandler struct {
	app    *types.App
	logger *zap.Logger
}

/*
NewUserHandler 创建用户处理器
*/
func NewUserHandler(app *types.App) *UserHandler {
	return &UserHandler{
		app:    app,
		logger: zap.L().Named("user-handler"),
	}
}

/*
Me 获取当前用户信息
路由：GET /api/v1/user/me
*/
func (h *UserHandler) Me(c *gin.Context) {
	userID := middleware.GetUserID(c)
	user, err := h.app.Users.GetUser(userID)
	if err != nil {
		response.GinNotFound(c, "用户不存在")
		return
	}

	/* 活跃会话数随用户信息返回，会话管理入口直接展示 */
	activeSessions, err := h.app.DAO.CountActiveSessions(userID)
	if err != nil {
		h.logger.Warn("统计活跃会话失败", zap.String("userID", userID), zap.Error(err))
	}

	response.GinSuccess(c, gin.H{
		"user":            user,
		"active_sessions": activeSessions,
	})
}

/*
UpdatePasswordRequest 修改密码请求
*/
type UpdatePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required,max=128"`
	NewPassword string `json:"new_password" binding:"required,max=128"`
}

/*
UpdatePassword 修改密码
功能：验证旧密码后更新，随后撤销其他设备的会话（防止凭据泄漏后残留登录）
路由：PUT /api/v1/user/password
*/
func (h *UserHandler) UpdatePassword(c *gin.Context) {
	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.GinBadRequest(c, "请求参数无效: "+err.Error())
		return
	}

	userID := middleware.GetUserID(c)
	if err := h.app.Users.UpdatePassword(userID, req.OldPassword, req.NewPassword); err != nil {
		response.GinBadRequest(c, err.Error())
		return
	}

	/* 改密后强制登出其他设备 */
	if _, err := h.app.Sessions.RevokeAllOtherSessions(userID, middleware.GetSessionID(c)); err != nil {
		h.logger.Warn("改密后撤销其他会话失败", zap.String("userID", userID), zap.Error(err))
	}

	response.GinSuccessWithMessage(c, "密码已更新，其他设备已登出", nil)
}
