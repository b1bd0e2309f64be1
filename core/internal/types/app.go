package types

import (
	"tenantbase/core/internal/config"
	"tenantbase/core/internal/db/dao"
	"tenantbase/core/internal/db/database"
	"tenantbase/core/internal/monitor"
	"tenantbase/core/internal/service"
)

/*
App 应用实例
功能：全局应用上下文，聚合配置、数据访问层、监控器和各领域服务，
由引导层构造后注入路由和 handler
*/
type App struct {
	Config   *config.Config
	DB       *database.Manager
	DAO      *dao.DAO
	Monitor  *monitor.Monitor
	Auth     *service.AuthService
	Users    *service.UserService
	Sessions *service.SessionService
	Tenants  *service.TenantPolicyResolver
	Activity *service.ActivityRecorder
}
