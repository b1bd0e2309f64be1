package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"tenantbase/core/internal/db/database"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	/* JWT 密钥在 Redis 中的键名（多实例部署共享同一密钥） */
	jwtSecretRedisKey = "system:jwt:secret"
	/* 多实例密钥同步检查间隔 */
	jwtSecretSyncInterval = 24 * time.Hour
	/* 自动生成密钥长度（64字节 = 512位） */
	jwtSecretLength = 64
)

/*
AuthService 认证服务
功能：管理 JWT 签名密钥（配置优先，否则 Redis 共享/随机生成），
签发与验证访问令牌。令牌 claims 中携带 session_id，
JWT 验证通过后仍须回查会话可用性，撤销即时生效。
*/
type AuthService struct {
	db          *database.Manager
	secret      string
	expiryHours int
	logger      *zap.Logger
	stopChan    chan struct{}
}

/*
NewAuthService 创建认证服务
参数：configuredSecret 非空时直接使用；为空时从 Redis 加载或随机生成
*/
func NewAuthService(db *database.Manager, configuredSecret string, expiryHours int) (*AuthService, error) {
	if expiryHours <= 0 {
		expiryHours = 24
	}
	s := &AuthService{
		db:          db,
		expiryHours: expiryHours,
		logger:      zap.L().Named("auth-service"),
		stopChan:    make(chan struct{}),
	}

	if configuredSecret != "" {
		s.secret = configuredSecret
		return s, nil
	}

	secret, err := s.loadOrGenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("初始化 JWT 密钥失败: %w", err)
	}
	s.secret = secret

	/* 配置未指定密钥时，后台定期与 Redis 同步（多实例一致性），不自动轮换 */
	if db != nil && db.HasCache() {
		go s.syncLoop()
	}
	return s, nil
}

// Stop 停止后台密钥同步
func (s *AuthService) Stop() {
	close(s.stopChan)
}

/*
GetJWTSecret 获取当前签名密钥（供中间件验证令牌）
*/
func (s *AuthService) GetJWTSecret() string {
	return s.secret
}

/*
SessionClaims 访问令牌携带的声明
*/
type SessionClaims struct {
	UserID    string
	Email     string
	Role      string
	SessionID string
}

/*
GenerateToken 签发访问令牌
功能：HMAC-SHA256 签名，claims 中绑定会话 ID，
会话撤销后即使令牌未过期也会在认证链路被拒绝
*/
func (s *AuthService) GenerateToken(claims SessionClaims) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":    claims.UserID,
		"email":      claims.Email,
		"role":       claims.Role,
		"session_id": claims.SessionID,
		"iat":        now.Unix(),
		"exp":        now.Add(time.Duration(s.expiryHours) * time.Hour).Unix(),
	})

	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", fmt.Errorf("签名 JWT 令牌失败: %w", err)
	}
	return signed, nil
}

/*
ParseToken 解析并验证访问令牌
*/
func (s *AuthService) ParseToken(tokenStr string) (*SessionClaims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("不支持的签名方法: %v", t.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("无效或已过期的令牌")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("令牌 claims 解析失败")
	}

	claims := &SessionClaims{}
	if v, ok := mapClaims["user_id"].(string); ok {
		claims.UserID = v
	}
	if v, ok := mapClaims["email"].(string); ok {
		claims.Email = v
	}
	if v, ok := mapClaims["role"].(string); ok {
		claims.Role = v
	}
	if v, ok := mapClaims["session_id"].(string); ok {
		claims.SessionID = v
	}
	return claims, nil
}

/* loadOrGenerateSecret 从 Redis 加载密钥，不存在则生成并持久化 */
func (s *AuthService) loadOrGenerateSecret() (string, error) {
	if s.db == nil || !s.db.HasCache() {
		return generateSecret()
	}

	if secret, err := s.db.Redis.Get(jwtSecretRedisKey); err == nil && secret != "" {
		s.logger.Info("✓ 从 Redis 加载 JWT 密钥")
		return secret, nil
	}

	secret, err := generateSecret()
	if err != nil {
		return "", err
	}
	/* 永久保存，多实例共享 */
	if err := s.db.Redis.Set(jwtSecretRedisKey, secret, 0); err != nil {
		s.logger.Warn("保存 JWT 密钥到 Redis 失败（将仅使用内存密钥）", zap.Error(err))
	}
	return secret, nil
}

/* generateSecret 生成随机签名密钥 */
func generateSecret() (string, error) {
	buf := make([]byte, jwtSecretLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("生成随机密钥失败: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

/*
syncLoop 后台密钥同步循环
功能：定期检查 Redis 密钥与内存是否一致（多实例部署场景），
不自动轮换——轮换会导致所有已发放令牌立即失效。
*/
func (s *AuthService) syncLoop() {
	ticker := time.NewTicker(jwtSecretSyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if secret, err := s.db.Redis.Get(jwtSecretRedisKey); err == nil && secret != "" && secret != s.secret {
				s.secret = secret
				s.logger.Info("JWT 密钥已从 Redis 同步（多实例一致性）")
			}
		case <-s.stopChan:
			return
		}
	}
}
