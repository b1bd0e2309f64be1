package dao

import (
	"errors"
	"time"

	"tenantbase/core/internal/db/models"

	"gorm.io/gorm"
)

/*
GetUserByEmail 按邮箱查询用户
返回：不存在时返回 nil, nil
*/
func (d *DAO) GetUserByEmail(email string) (*models.User, error) {
	var u models.User
	err := d.DB.Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

/*
GetUserByID 按 ID 查询用户
*/
func (d *DAO) GetUserByID(id string) (*models.User, error) {
	var u models.User
	err := d.DB.Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

/*
CreateUser 创建用户
*/
func (d *DAO) CreateUser(u *models.User) error {
	return d.DB.Create(u).Error
}

/*
UpdateLastLogin 更新最后登录时间
*/
func (d *DAO) UpdateLastLogin(id string, t time.Time) error {
	return d.DB.Model(&models.User{}).
		Where("id = ?", id).
		Update("last_login", t).Error
}
