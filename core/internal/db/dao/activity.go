package dao

import (
	"tenantbase/core/internal/db/models"
)

/*
CreateActivityLog 写入活动日志
*/
func (d *DAO) CreateActivityLog(log *models.ActivityLog) error {
	return d.DB.Create(log).Error
}

/*
ListActivityLogs 查询用户活动日志（分页，新的在前）
*/
func (d *DAO) ListActivityLogs(userID string, limit, offset int) ([]models.ActivityLog, error) {
	limit, offset = SanitizePagination(limit, offset, 200)

	var logs []models.ActivityLog
	err := d.DB.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error
	return logs, err
}
