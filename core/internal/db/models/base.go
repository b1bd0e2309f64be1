package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/*
BaseModel 所有模型共享的基础字段
功能：字符串 UUID 主键 + 创建/更新时间戳 + 软删除标记。
主键用 varchar(36) 而非自增整数，租户/用户/会话 ID 可以安全地出现在
URL、JWT claims 和审计日志里，且 sqlite/mysql/postgres 三种方言下行为一致。
*/
type BaseModel struct {
	ID        string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

/*
BeforeCreate 创建前自动生成 UUID
调用方预先指定 ID 时保留，便于测试构造固定主键。
*/
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}
