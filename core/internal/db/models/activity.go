package models

/* 活动日志状态 */
const (
	ActivityStatusSuccess = "success"
	ActivityStatusFailed  = "failed"
)

/*
ActivityLog 活动日志
功能：记录会话等资源上的关键操作，用于安全审计。
写入是尽力而为的：记录失败不会影响父操作。
*/
type ActivityLog struct {
	BaseModel
	UserID   string `gorm:"type:varchar(36);index" json:"user_id"`
	Action   string `gorm:"type:varchar(64);index;not null" json:"action"` /* session_created / session_revoked / ... */
	Resource string `gorm:"type:varchar(64);index" json:"resource"`
	Detail   string `gorm:"type:text" json:"detail"`
	Status   string `gorm:"type:varchar(16);default:'success'" json:"status"`
	IP       string `gorm:"type:varchar(64)" json:"ip"`
	UA       string `gorm:"type:varchar(512)" json:"ua"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}
