package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"tenantbase/core/internal/db/dao"
	"tenantbase/core/internal/db/database"
	"tenantbase/core/internal/db/models"

	"go.uber.org/zap"
)

/* ErrSessionNotFound 会话不存在、不属于该用户或已撤销 */
var ErrSessionNotFound = errors.New("会话不存在或已失效")

/*
SessionService 会话服务
功能：管理会话的完整生命周期：创建（含设备指纹解析和令牌生成）、
活跃度维护、单个/批量撤销、过期清扫和令牌认证查询。
状态机：created → active → (revoked | expired)，两个终态都不可逆。
所有变更操作通过 ActivityRecorder 异步写审计事件。
*/
type SessionService struct {
	dao      *dao.DAO
	redis    *database.RedisClient /* 可选，令牌查询加速 */
	activity *ActivityRecorder
	logger   *zap.Logger

	expiry        time.Duration /* 会话有效期，默认 30 天 */
	tokenCacheTTL time.Duration /* Redis 令牌缓存有效期 */
}

/*
SessionInfo 会话信息（带当前会话标注）
*/
type SessionInfo struct {
	models.UserSession
	IsCurrent bool `json:"is_current"`
}

/*
CreateSessionInput 创建会话的输入
SessionToken 为空时自动生成 32 字节加密随机令牌（hex 编码）。
*/
type CreateSessionInput struct {
	UserID       string
	IPAddress    string
	UserAgent    string
	SessionToken string
}

/*
NewSessionService 创建会话服务
参数：redis 可为 nil（禁用令牌缓存），expiryDays <= 0 时取 30 天
*/
func NewSessionService(d *dao.DAO, redis *database.RedisClient, activity *ActivityRecorder, expiryDays int, tokenCacheTTL time.Duration) *SessionService {
	if expiryDays <= 0 {
		expiryDays = 30
	}
	if tokenCacheTTL <= 0 {
		tokenCacheTTL = 5 * time.Minute
	}
	return &SessionService{
		dao:           d,
		redis:         redis,
		activity:      activity,
		logger:        zap.L().Named("session-service"),
		expiry:        time.Duration(expiryDays) * 24 * time.Hour,
		tokenCacheTTL: tokenCacheTTL,
	}
}

/*
GenerateSessionToken 生成加密随机会话令牌
功能：crypto/rand 取 32 字节并 hex 编码为 64 字符令牌
*/
func GenerateSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("生成会话令牌失败: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

/*
CreateSession 创建会话
功能：解析设备指纹 → 生成/复用令牌 → 设置 30 天有效期 → 落库 →
记录 session_created 审计事件。持久化失败返回错误，不 panic。
*/
func (s *SessionService) CreateSession(input CreateSessionInput) (*models.UserSession, error) {
	if input.UserID == "" {
		return nil, errors.New("userID 不能为空")
	}

	token := input.SessionToken
	if token == "" {
		var err error
		token, err = GenerateSessionToken()
		if err != nil {
			return nil, err
		}
	}

	device := ParseUserAgent(input.UserAgent)
	now := time.Now()

	session := &models.UserSession{
		UserID:       input.UserID,
		SessionToken: token,
		IPAddress:    input.IPAddress,
		UserAgent:    input.UserAgent,

		DeviceName:     device.DeviceName,
		DeviceType:     device.DeviceType,
		BrowserName:    device.BrowserName,
		BrowserVersion: device.BrowserVersion,
		OSName:         device.OSName,
		OSVersion:      device.OSVersion,
		IsMobile:       device.IsMobile,

		IsActive:       true,
		LastActivityAt: now,
		ExpiresAt:      now.Add(s.expiry),
	}

	if err := s.dao.CreateSession(session); err != nil {
		return nil, fmt.Errorf("创建会话失败: %w", err)
	}

	s.cacheToken(token, session.ID)

	s.recordActivity(input.UserID, "session_created",
		fmt.Sprintf("device=%s ip=%s", device.DeviceName, input.IPAddress),
		input.IPAddress, input.UserAgent)

	s.logger.Debug("会话已创建",
		zap.String("session_id", session.ID),
		zap.String("user_id", input.UserID),
		zap.String("device", device.DeviceName))

	return session, nil
}

/*
GetUserSessions 列出用户的所有活跃会话
功能：按最近活动倒序，currentSessionID 匹配的会话标注 IsCurrent
*/
func (s *SessionService) GetUserSessions(userID, currentSessionID string) ([]SessionInfo, error) {
	sessions, err := s.dao.ListActiveSessions(userID)
	if err != nil {
		return nil, fmt.Errorf("查询用户会话失败: %w", err)
	}

	infos := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, SessionInfo{
			UserSession: sess,
			IsCurrent:   sess.ID == currentSessionID,
		})
	}
	return infos, nil
}

/*
UpdateSessionActivity 更新会话活跃时间
功能：认证成功的请求调用；ipAddress 非空时同步更新记录的客户端 IP
*/
func (s *SessionService) UpdateSessionActivity(sessionID, ipAddress string) error {
	if err := s.dao.TouchSession(sessionID, time.Now(), ipAddress); err != nil {
		return fmt.Errorf("更新会话活跃时间失败: %w", err)
	}
	return nil
}

/*
RevokeSession 撤销单个会话
功能：按会话 ID + 用户 ID 双重过滤执行条件更新，用户无法撤销他人会话；
已撤销的会话重复撤销返回 ErrSessionNotFound。
撤销成功后失效令牌缓存并记录 session_revoked 审计事件。
*/
func (s *SessionService) RevokeSession(sessionID, userID, reason string) error {
	if reason == "" {
		reason = models.RevokeReasonUser
	}

	/* 先取会话拿到令牌，撤销后需要失效缓存 */
	session, err := s.dao.GetSessionByID(sessionID)
	if err != nil {
		return fmt.Errorf("查询会话失败: %w", err)
	}

	affected, err := s.dao.RevokeSession(sessionID, userID, reason, time.Now())
	if err != nil {
		return fmt.Errorf("撤销会话失败: %w", err)
	}
	if affected == 0 {
		return ErrSessionNotFound
	}

	if session != nil {
		s.invalidateToken(session.SessionToken)
	}

	s.recordActivity(userID, "session_revoked",
		fmt.Sprintf("session=%s reason=%s", sessionID, reason), "", "")

	return nil
}

/*
RevokeAllOtherSessions 批量撤销用户除当前外的所有活跃会话
功能："登出其他设备"。逐个失效令牌缓存，整批只记一条审计事件。
返回：撤销的会话数
*/
func (s *SessionService) RevokeAllOtherSessions(userID, currentSessionID string) (int64, error) {
	/* 撤销前先快照活跃会话，用于失效各自的令牌缓存 */
	sessions, err := s.dao.ListActiveSessions(userID)
	if err != nil {
		return 0, fmt.Errorf("查询用户会话失败: %w", err)
	}

	affected, err := s.dao.RevokeOtherSessions(userID, currentSessionID, models.RevokeReasonBulk, time.Now())
	if err != nil {
		return 0, fmt.Errorf("批量撤销会话失败: %w", err)
	}

	for _, sess := range sessions {
		if sess.ID != currentSessionID {
			s.invalidateToken(sess.SessionToken)
		}
	}

	s.recordActivity(userID, "sessions_bulk_revoked",
		fmt.Sprintf("count=%d current=%s", affected, currentSessionID), "", "")

	return affected, nil
}

/*
CleanupExpiredSessions 过期清扫
功能：将所有到期仍活跃的会话批量置为不可用（原因 expired）。
由 cleanup 服务周期性调用，本服务不持有定时器。
返回：清扫的会话数
*/
func (s *SessionService) CleanupExpiredSessions() (int64, error) {
	affected, err := s.dao.ExpireSessions(time.Now())
	if err != nil {
		return 0, fmt.Errorf("清扫过期会话失败: %w", err)
	}

	if affected > 0 {
		s.logger.Info("已清扫过期会话", zap.Int64("count", affected))
	}
	return affected, nil
}

/*
GetSessionByID 按 ID 查询可用会话
功能：JWT 认证链路回查会话状态用；不可用（已撤销/过期/禁用）返回 nil, nil
*/
func (s *SessionService) GetSessionByID(id string) (*models.UserSession, error) {
	if id == "" {
		return nil, nil
	}
	session, err := s.dao.GetSessionByID(id)
	if err != nil {
		return nil, fmt.Errorf("查询会话失败: %w", err)
	}
	if session == nil || !session.Usable(time.Now()) {
		return nil, nil
	}
	return session, nil
}

/*
GetSessionByToken 按令牌查询可用会话（认证主路径）
功能：Redis 命中时按会话 ID 取回并校验可用性（命中后仍须二次校验，
撤销与缓存失效之间存在竞争窗口）；未命中时回源数据库并回填缓存。
返回：无可用会话时返回 nil, nil
*/
func (s *SessionService) GetSessionByToken(token string) (*models.UserSession, error) {
	if token == "" {
		return nil, nil
	}
	now := time.Now()

	/* 缓存路径 */
	if s.redis != nil {
		if id, err := s.redis.GetCachedSessionID(token); err == nil && id != "" {
			session, err := s.dao.GetSessionByID(id)
			if err != nil {
				return nil, fmt.Errorf("查询会话失败: %w", err)
			}
			if session != nil && session.Usable(now) {
				return session, nil
			}
			/* 缓存指向的会话已不可用，清掉避免反复命中 */
			s.invalidateToken(token)
			return nil, nil
		}
	}

	/* 回源数据库 */
	session, err := s.dao.GetUsableSessionByToken(token, now)
	if err != nil {
		return nil, fmt.Errorf("按令牌查询会话失败: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	s.cacheToken(token, session.ID)
	return session, nil
}

/* cacheToken 回填令牌缓存，Redis 不可用或写失败时静默跳过 */
func (s *SessionService) cacheToken(token, sessionID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.CacheSessionToken(token, sessionID, s.tokenCacheTTL); err != nil {
		s.logger.Debug("写入令牌缓存失败", zap.Error(err))
	}
}

/* invalidateToken 失效令牌缓存 */
func (s *SessionService) invalidateToken(token string) {
	if s.redis == nil || token == "" {
		return
	}
	if err := s.redis.InvalidateSessionToken(token); err != nil {
		s.logger.Debug("失效令牌缓存失败", zap.Error(err))
	}
}

/* recordActivity 投递审计事件，recorder 未配置时跳过 */
func (s *SessionService) recordActivity(userID, action, detail, ip, ua string) {
	if s.activity == nil {
		return
	}
	s.activity.Record(models.ActivityLog{
		UserID:   userID,
		Action:   action,
		Resource: "session",
		Detail:   detail,
		IP:       ip,
		UA:       ua,
	})
}
