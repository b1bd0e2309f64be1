package models

import (
	"time"
)

/*
UserRole 用户角色枚举
*/
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

/*
User 用户模型
功能：存储用户基本信息、认证凭据和所属租户
*/
type User struct {
	BaseModel
	TenantID  string    `gorm:"type:varchar(36);index;not null" json:"tenant_id"`
	Email     string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"type:varchar(256);not null" json:"-"`
	Name      string    `gorm:"type:varchar(128)" json:"name"`
	Role      UserRole  `gorm:"type:varchar(16);default:'user';not null" json:"role"`
	Enabled   bool      `gorm:"default:true;not null" json:"enabled"`
	LastLogin time.Time `gorm:"" json:"last_login"`
}

func (User) TableName() string {
	return "users"
}
