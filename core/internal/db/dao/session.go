package dao

import (
	"errors"
	"time"

	"tenantbase/core/internal/db/models"

	"gorm.io/gorm"
)

/*
CreateSession 创建会话记录
*/
func (d *DAO) CreateSession(s *models.UserSession) error {
	return d.DB.Create(s).Error
}

/*
GetSessionByID 按 ID 查询会话（不做可用性过滤）
返回：不存在时返回 nil, nil
*/
func (d *DAO) GetSessionByID(id string) (*models.UserSession, error) {
	var s models.UserSession
	err := d.DB.Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

/*
GetUsableSessionByToken 按令牌查询可用会话
功能：认证热路径。只返回 is_active 为真、未撤销、未过期的会话，
三个条件在 SQL 层同时过滤。
返回：无可用会话时返回 nil, nil
*/
func (d *DAO) GetUsableSessionByToken(token string, now time.Time) (*models.UserSession, error) {
	var s models.UserSession
	err := d.DB.
		Where("session_token = ? AND is_active = ? AND revoked_at IS NULL AND expires_at > ?",
			token, true, now).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

/*
ListActiveSessions 列出用户的所有活跃会话
功能：按最近活动时间倒序，最新的会话排在最前
*/
func (d *DAO) ListActiveSessions(userID string) ([]models.UserSession, error) {
	var sessions []models.UserSession
	err := d.DB.
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("last_activity_at DESC").
		Find(&sessions).Error
	return sessions, err
}

/*
TouchSession 更新会话活动时间
功能：每次通过认证的请求调用；ip 非空时同步更新存储的客户端 IP
（会话期间 IP 变化的场景）。
*/
func (d *DAO) TouchSession(id string, now time.Time, ip string) error {
	updates := map[string]interface{}{
		"last_activity_at": now,
	}
	if ip != "" {
		updates["ip_address"] = ip
	}
	return d.DB.Model(&models.UserSession{}).
		Where("id = ?", id).
		Updates(updates).Error
}

/*
RevokeSession 撤销单个会话
功能：同时按会话 ID 和用户 ID 过滤，用户无法撤销他人的会话；
WHERE 条件带 is_active 做条件更新，与并发撤销/刷新竞争时只有一方生效。
返回：受影响行数（0 表示会话不存在、不属于该用户或已撤销）
*/
func (d *DAO) RevokeSession(id, userID, reason string, now time.Time) (int64, error) {
	res := d.DB.Model(&models.UserSession{}).
		Where("id = ? AND user_id = ? AND is_active = ?", id, userID, true).
		Updates(map[string]interface{}{
			"is_active":      false,
			"revoked_at":     now,
			"revoked_reason": reason,
		})
	return res.RowsAffected, res.Error
}

/*
RevokeOtherSessions 批量撤销用户除当前会话外的所有活跃会话
返回：撤销的会话数
*/
func (d *DAO) RevokeOtherSessions(userID, currentSessionID, reason string, now time.Time) (int64, error) {
	res := d.DB.Model(&models.UserSession{}).
		Where("user_id = ? AND id <> ? AND is_active = ?", userID, currentSessionID, true).
		Updates(map[string]interface{}{
			"is_active":      false,
			"revoked_at":     now,
			"revoked_reason": reason,
		})
	return res.RowsAffected, res.Error
}

/*
ExpireSessions 过期清扫
功能：将所有已到期但仍标记活跃的会话批量置为不可用，
撤销原因统一为 expired。由 cleanup 服务周期性调用。
返回：清扫的会话数
*/
func (d *DAO) ExpireSessions(now time.Time) (int64, error) {
	res := d.DB.Model(&models.UserSession{}).
		Where("is_active = ? AND expires_at < ?", true, now).
		Updates(map[string]interface{}{
			"is_active":      false,
			"revoked_at":     now,
			"revoked_reason": models.RevokeReasonExpired,
		})
	return res.RowsAffected, res.Error
}

/*
CountActiveSessions 统计用户当前活跃会话数
*/
func (d *DAO) CountActiveSessions(userID string) (int64, error) {
	var count int64
	err := d.DB.Model(&models.UserSession{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&count).Error
	return count, err
}
