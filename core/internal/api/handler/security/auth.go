package security

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"tenantbase/core/internal/api/middleware"
	"tenantbase/core/internal/api/response"
	"tenantbase/core/internal/db/models"
	"tenantbase/core/internal/service"
	"tenantbase/core/internal/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

/*
AuthHandler 认证处理器
功能：处理用户注册、登录、登出和令牌刷新。
登录同时建立会话记录，JWT claims 绑定会话 ID，
撤销会话即可让尚未过期的令牌失效。
*/
type AuthHandler struct {
	app    *types.App
	logger *zap.Logger
}

/*
NewAuthHandler 创建认证处理器
*/
func NewAuthHandler(app *types.App) *AuthHandler {
	return &AuthHandler{
		app:    app,
		logger: zap.L().Named("auth-handler"),
	}
}

/*
LoginRequest 登录请求
*/
type LoginRequest struct {
	Email    string `json:"email" binding:"required,max=128"`
	Password string `json:"password" binding:"required,max=128"`
}

/*
LoginResponse 登录响应
*/
type LoginResponse struct {
	Token     string `json:"token"`
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
	ExpiresAt int64  `json:"expires_at"`
}

/*
Login 用户登录
功能：凭据认证 → 创建会话（含设备指纹） → 签发绑定会话的 JWT
路由：POST /api/v1/auth/login
*/
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.GinBadRequest(c, "请求参数无效: "+err.Error())
		return
	}

	user, err := h.app.Users.Authenticate(req.Email, req.Password)
	if err != nil {
		h.logger.Debug("登录认证失败",
			zap.String("email", req.Email),
			zap.String("client_ip", c.ClientIP()),
			zap.Error(err))
		/* 统一返回模糊错误信息，防止账户枚举攻击 */
		response.GinUnauthorized(c, "邮箱或密码错误")
		return
	}

	session, err := h.app.Sessions.CreateSession(service.CreateSessionInput{
		UserID:    user.ID,
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		h.logger.Error("创建会话失败", zap.String("userID", user.ID), zap.Error(err))
		response.GinInternalError(c, "创建会话失败")
		return
	}

	token, err := h.app.Auth.GenerateToken(service.SessionClaims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      string(user.Role),
		SessionID: session.ID,
	})
	if err != nil {
		h.logger.Error("生成令牌失败", zap.Error(err))
		response.GinInternalError(c, "生成令牌失败")
		return
	}

	/* 下发 CSRF 双提交 cookie，前端将其回传到请求头 */
	issueCSRFCookie(c, h.app.Config.Security.CSRFCookieName)

	expiresAt := time.Now().Add(time.Duration(h.app.Config.Auth.JWTExpiration) * time.Hour)

	response.GinSuccess(c, LoginResponse{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		Role:      string(user.Role),
		SessionID: session.ID,
		ExpiresAt: expiresAt.Unix(),
	})
}

/*
Register 用户注册
路由：POST /api/v1/auth/register
*/
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.GinBadRequest(c, "请求参数无效: "+err.Error())
		return
	}

	user, err := h.app.Users.Register(&req)
	if err != nil {
		response.GinBadRequest(c, err.Error())
		return
	}

	response.GinSuccessWithMessage(c, "注册成功", gin.H{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
	})
}

/*
Logout 用户登出
功能：撤销当前会话（原因 user_logged_out），已签发的 JWT 随之失效
路由：POST /api/v1/auth/logout
*/
func (h *AuthHandler) Logout(c *gin.Context) {
	userID := middleware.GetUserID(c)
	sessionID := middleware.GetSessionID(c)

	if err := h.app.Sessions.RevokeSession(sessionID, userID, models.RevokeReasonLogout); err != nil {
		if err == service.ErrSessionNotFound {
			response.GinNotFound(c, "会话不存在或已失效")
			return
		}
		h.logger.Error("登出撤销会话失败", zap.String("sessionID", sessionID), zap.Error(err))
		response.GinInternalError(c, "登出失败")
		return
	}

	response.GinSuccessWithMessage(c, "已登出", nil)
}

/*
Refresh 刷新令牌
功能：基于仍然有效的会话签发新 JWT，会话本身的有效期不变
路由：POST /api/v1/auth/refresh
*/
func (h *AuthHandler) Refresh(c *gin.Context) {
	token, err := h.app.Auth.GenerateToken(service.SessionClaims{
		UserID:    middleware.GetUserID(c),
		Email:     middleware.GetEmail(c),
		Role:      middleware.GetRole(c),
		SessionID: middleware.GetSessionID(c),
	})
	if err != nil {
		h.logger.Error("刷新令牌失败", zap.Error(err))
		response.GinInternalError(c, "刷新令牌失败")
		return
	}

	expiresAt := time.Now().Add(time.Duration(h.app.Config.Auth.JWTExpiration) * time.Hour)
	response.GinSuccess(c, gin.H{
		"token":      token,
		"expires_at": expiresAt.Unix(),
	})
}

/*
issueCSRFCookie 生成随机 CSRF 令牌并写入 cookie
HttpOnly 必须为 false，双提交模式要求前端能读取 cookie 回传请求头
*/
func issueCSRFCookie(c *gin.Context, cookieName string) {
	if cookieName == "" {
		cookieName = "csrf-token"
	}
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(cookieName, hex.EncodeToString(buf), 86400, "/", "", false, false)
}
