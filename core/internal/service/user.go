package service

import (
	"fmt"
	"regexp"
	"time"
	"unicode"

	"tenantbase/core/internal/db/dao"
	"tenantbase/core/internal/db/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

/*
UserService 用户服务
功能：管理用户注册与凭据验证，密码使用 bcrypt 哈希存储。
登录相关的会话创建由 SessionService 负责，本服务只管账户本身。
*/
type UserService struct {
	dao      *dao.DAO
	activity *ActivityRecorder
	logger   *zap.Logger
}

/*
NewUserService 创建用户服务
*/
func NewUserService(d *dao.DAO, activity *ActivityRecorder) *UserService {
	return &UserService{
		dao:      d,
		activity: activity,
		logger:   zap.L().Named("user-service"),
	}
}

/* ==================== 密码安全工具 ==================== */

/*
ValidatePasswordStrength 校验密码强度
规则：至少8位，包含大写字母、小写字母、数字
*/
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("密码长度不能少于8位")
	}
	if len(password) > 72 {
		return fmt.Errorf("密码长度不能超过72位")
	}

	var hasUpper, hasLower, hasDigit bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsDigit(c):
			hasDigit = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("密码必须包含至少一个大写字母")
	}
	if !hasLower {
		return fmt.Errorf("密码必须包含至少一个小写字母")
	}
	if !hasDigit {
		return fmt.Errorf("密码必须包含至少一个数字")
	}
	return nil
}

/*
bcryptCost bcrypt 哈希成本因子
OWASP 推荐生产环境至少 12，兼顾安全性和性能。
DefaultCost=10 对现代硬件偏低，暴力破解成本不够。
*/
const bcryptCost = 12

/*
HashPassword 使用 bcrypt 对密码进行哈希
*/
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("密码加密失败: %w", err)
	}
	return string(hashed), nil
}

/*
CheckPassword 验证密码是否匹配
*/
func CheckPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

/*
ValidateEmail 校验邮箱格式
*/
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("邮箱格式无效")
	}
	return nil
}

/* ==================== 注册 ==================== */

/*
RegisterRequest 注册请求
*/
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
	TenantID string `json:"tenant_id"`
}

/*
Register 用户注册
功能：校验输入 → 检查邮箱重复 → 首用户自动管理员 → 创建用户
*/
func (s *UserService) Register(req *RegisterRequest) (*models.User, error) {
	if err := ValidateEmail(req.Email); err != nil {
		return nil, err
	}
	if err := ValidatePasswordStrength(req.Password); err != nil {
		return nil, err
	}

	hashedPwd, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		TenantID: req.TenantID,
		Email:    req.Email,
		Password: hashedPwd,
		Name:     req.Name,
		Enabled:  true,
	}

	/* 重复检查、首用户判定和写入同一事务，并发注册不会产生两个管理员 */
	err = s.dao.Transaction(func(tx *dao.DAO) error {
		existing, err := tx.GetUserByEmail(req.Email)
		if err != nil {
			return fmt.Errorf("检查邮箱失败: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("邮箱已被注册")
		}

		/* 首个用户自动设为管理员 */
		var totalUsers int64
		if err := tx.DB.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
			return fmt.Errorf("统计用户数失败: %w", err)
		}
		user.Role = models.RoleUser
		if totalUsers == 0 {
			user.Role = models.RoleAdmin
			s.logger.Info("首个用户注册，自动设置为管理员", zap.String("email", req.Email))
		}

		if err := tx.CreateUser(user); err != nil {
			return fmt.Errorf("创建用户失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("用户注册成功",
		zap.String("userID", user.ID),
		zap.String("email", user.Email),
		zap.String("role", string(user.Role)))

	return user, nil
}

/* ==================== 登录验证 ==================== */

/*
Authenticate 验证用户凭据
功能：按邮箱查找用户 → 验证启用状态 → 验证密码 → 更新登录时间。
查不到用户和密码错误返回同一条消息，不暴露账户是否存在。
*/
func (s *UserService) Authenticate(email, password string) (*models.User, error) {
	user, err := s.dao.GetUserByEmail(email)
	if err != nil {
		s.logger.Error("认证查询用户失败", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("邮箱或密码错误")
	}
	if user == nil {
		return nil, fmt.Errorf("邮箱或密码错误")
	}

	if !user.Enabled {
		return nil, fmt.Errorf("账户已被禁用")
	}

	if !CheckPassword(user.Password, password) {
		if s.activity != nil {
			s.activity.Record(models.ActivityLog{
				UserID:   user.ID,
				Action:   "login_failed",
				Resource: "user",
				Status:   models.ActivityStatusFailed,
			})
		}
		return nil, fmt.Errorf("邮箱或密码错误")
	}

	if err := s.dao.UpdateLastLogin(user.ID, time.Now()); err != nil {
		s.logger.Warn("更新最后登录时间失败", zap.String("userID", user.ID), zap.Error(err))
	}

	return user, nil
}

/*
GetUser 根据ID获取用户
*/
func (s *UserService) GetUser(id string) (*models.User, error) {
	user, err := s.dao.GetUserByID(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("用户不存在")
	}
	return user, nil
}

/*
UpdatePassword 修改密码
功能：验证旧密码 → 校验新密码强度 → 更新
*/
func (s *UserService) UpdatePassword(userID, oldPassword, newPassword string) error {
	user, err := s.GetUser(userID)
	if err != nil {
		return err
	}

	if !CheckPassword(user.Password, oldPassword) {
		return fmt.Errorf("旧密码不正确")
	}

	if err := ValidatePasswordStrength(newPassword); err != nil {
		return err
	}

	hashedPwd, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.dao.DB.Model(user).Update("password", hashedPwd).Error; err != nil {
		return fmt.Errorf("更新密码失败: %w", err)
	}

	s.logger.Info("用户密码已更新", zap.String("userID", userID))
	return nil
}
