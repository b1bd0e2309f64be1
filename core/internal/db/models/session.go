package models

import (
	"time"
)

/* 会话撤销原因 */
const (
	RevokeReasonUser    = "user_revoked"    /* 用户主动撤销 */
	RevokeReasonBulk    = "bulk_revoked"    /* 批量撤销其他会话 */
	RevokeReasonExpired = "expired"         /* 过期清扫标记 */
	RevokeReasonAdmin   = "admin_revoked"   /* 管理员强制下线 */
	RevokeReasonLogout  = "user_logged_out" /* 正常登出 */
)

/*
UserSession 用户会话
功能：记录一次登录产生的会话及其设备指纹和生命周期状态。
可用性判定：isActive 为真 且 未到 expiresAt 且 revokedAt 为空，
三个条件缺一不可；会话一旦撤销或过期不可复活。
*/
type UserSession struct {
	BaseModel
	UserID       string `gorm:"type:varchar(36);index:idx_session_user_active;not null" json:"user_id"`
	SessionToken string `gorm:"type:varchar(128);uniqueIndex;not null" json:"-"`

	/* 设备与网络指纹 */
	IPAddress      string `gorm:"type:varchar(64)" json:"ip_address"`
	UserAgent      string `gorm:"type:varchar(512)" json:"-"`
	DeviceName     string `gorm:"type:varchar(128)" json:"device_name"`
	DeviceType     string `gorm:"type:varchar(16)" json:"device_type"` /* desktop / mobile / tablet / bot / unknown */
	BrowserName    string `gorm:"type:varchar(64)" json:"browser_name"`
	BrowserVersion string `gorm:"type:varchar(32)" json:"browser_version"`
	OSName         string `gorm:"type:varchar(64)" json:"os_name"`
	OSVersion      string `gorm:"type:varchar(32)" json:"os_version"`
	IsMobile       bool   `gorm:"default:false" json:"is_mobile"`

	/* 生命周期 */
	IsActive       bool       `gorm:"default:true;not null;index:idx_session_user_active" json:"is_active"`
	LastActivityAt time.Time  `gorm:"index;not null" json:"last_activity_at"`
	ExpiresAt      time.Time  `gorm:"index;not null" json:"expires_at"`
	RevokedAt      *time.Time `gorm:"" json:"revoked_at,omitempty"`
	RevokedReason  string     `gorm:"type:varchar(32)" json:"revoked_reason,omitempty"`
}

func (UserSession) TableName() string {
	return "user_sessions"
}

/*
Usable 判断会话当前是否可用于认证
*/
func (s *UserSession) Usable(now time.Time) bool {
	return s.IsActive && s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
