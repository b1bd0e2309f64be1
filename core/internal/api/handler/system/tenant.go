package system

import (
	"strings"

	"tenantbase/core/internal/api/response"
	"tenantbase/core/internal/db/models"
	"tenantbase/core/internal/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

/*
TenantHandler 租户安全配置处理器（管理员）
功能：租户的创建与安全策略维护，变更后失效策略缓存立即生效
*/
type TenantHandler struct {
	app    *types.App
	logger *zap.Logger
}

/*
NewTenantHandler 创建租户处理器
*/
func NewTenantHandler(app *types.App) *TenantHandler {
	return &TenantHandler{
		app:    app,
		logger: zap.L().Named("tenant-handler"),
	}
}

/*
CreateTenantRequest 创建租户请求
*/
type CreateTenantRequest struct {
	Name           string   `json:"name" binding:"required,max=128"`
	Slug           string   `json:"slug" binding:"required,max=64"`
	AllowedDomains []string `json:"allowed_domains"`
	IPWhitelist    []string `json:"ip_whitelist"`
	MaxPayloadSize int64    `json:"max_payload_size"`
	CSPOverride    string   `json:"csp_override"`
}

/*
Create 创建租户
路由：POST /api/v1/admin/tenants
*/
func (h *TenantHandler) Create(c *gin.Context) {
	var req CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.GinBadRequest(c, "请求参数无效: "+err.Error())
		return
	}

	existing, err := h.app.DAO.GetTenantBySlug(req.Slug)
	if err != nil {
		response.GinInternalError(c, "查询租户失败")
		return
	}
	if existing != nil {
		response.GinBadRequest(c, "租户标识已存在")
		return
	}

	tenant := &models.Tenant{
		Name:           req.Name,
		Slug:           req.Slug,
		AllowedDomains: strings.Join(req.AllowedDomains, ","),
		IPWhitelist:    strings.Join(req.IPWhitelist, ","),
		MaxPayloadSize: req.MaxPayloadSize,
		CSPOverride:    req.CSPOverride,
		Enabled:        true,
	}
	if err := h.app.DAO.CreateTenant(tenant); err != nil {
		h.logger.Error("创建租户失败", zap.String("slug", req.Slug), zap.Error(err))
		response.GinInternalError(c, "创建租户失败")
		return
	}

	response.GinSuccessWithMessage(c, "租户已创建", tenant)
}

/*
UpdateSecurityRequest 更新租户安全策略请求
*/
type UpdateSecurityRequest struct {
	AllowedDomains []string `json:"allowed_domains"`
	IPWhitelist    []string `json:"ip_whitelist"`
	MaxPayloadSize int64    `json:"max_payload_size"`
	CSPOverride    string   `json:"csp_override"`
	Enabled        *bool    `json:"enabled"`
}

/*
UpdateSecurity 更新租户安全策略
功能：更新后立即失效该租户的策略缓存，下个请求生效
路由：PUT /api/v1/admin/tenants/:slug/security
*/
func (h *TenantHandler) UpdateSecurity(c *gin.Context) {
	slug := c.Param("slug")

	tenant, err := h.app.DAO.GetTenantBySlug(slug)
	if err != nil {
		response.GinInternalError(c, "查询租户失败")
		return
	}
	if tenant == nil {
		response.GinNotFound(c, "租户不存在")
		return
	}

	var req UpdateSecurityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.GinBadRequest(c, "请求参数无效: "+err.Error())
		return
	}

	updates := map[string]interface{}{
		"allowed_domains":  strings.Join(req.AllowedDomains, ","),
		"ip_whitelist":     strings.Join(req.IPWhitelist, ","),
		"max_payload_size": req.MaxPayloadSize,
		"csp_override":     req.CSPOverride,
	}
	if req.Enabled != nil {
		updates["enabled"] = *req.Enabled
	}

	if err := h.app.DAO.UpdateTenantSecurity(tenant.ID, updates); err != nil {
		h.logger.Error("更新租户安全策略失败", zap.String("slug", slug), zap.Error(err))
		response.GinInternalError(c, "更新租户安全策略失败")
		return
	}

	h.app.Tenants.Invalidate(slug)

	/* 回读更新后的完整配置返回给管理端 */
	updated, err := h.app.DAO.GetTenantByID(tenant.ID)
	if err != nil {
		response.GinInternalError(c, "查询租户失败")
		return
	}
	response.GinSuccessWithMessage(c, "租户安全策略已更新", updated)
}

/*
Get 查询租户配置
路由：GET /api/v1/admin/tenants/:slug
*/
func (h *TenantHandler) Get(c *gin.Context) {
	tenant, err := h.app.DAO.GetTenantBySlug(c.Param("slug"))
	if err != nil {
		response.GinInternalError(c, "查询租户失败")
		return
	}
	if tenant == nil {
		response.GinNotFound(c, "租户不存在")
		return
	}
	response.GinSuccess(c, tenant)
}
