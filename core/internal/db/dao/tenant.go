package dao

import (
	"errors"

	"tenantbase/core/internal/db/models"

	"gorm.io/gorm"
)

/*
GetTenantByID 按 ID 查询租户
返回：不存在时返回 nil, nil
*/
func (d *DAO) GetTenantByID(id string) (*models.Tenant, error) {
	var t models.Tenant
	err := d.DB.Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

/*
GetTenantBySlug 按 slug 查询租户
*/
func (d *DAO) GetTenantBySlug(slug string) (*models.Tenant, error) {
	var t models.Tenant
	err := d.DB.Where("slug = ?", slug).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

/*
CreateTenant 创建租户
*/
func (d *DAO) CreateTenant(t *models.Tenant) error {
	return d.DB.Create(t).Error
}

/*
UpdateTenantSecurity 更新租户安全策略
功能：只更新调用方给出的安全字段，名称等基本信息不受影响
*/
func (d *DAO) UpdateTenantSecurity(id string, updates map[string]interface{}) error {
	return d.DB.Model(&models.Tenant{}).
		Where("id = ?", id).
		Updates(updates).Error
}
