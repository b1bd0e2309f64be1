package service

import (
	"testing"
	"time"

	"tenantbase/core/internal/db/dao"
	"tenantbase/core/internal/db/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

/*
setupSessionTestDAO 创建会话测试专用的内存数据库
*/
func setupSessionTestDAO(t *testing.T) *dao.DAO {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("创建测试数据库失败: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.UserSession{}, &models.ActivityLog{}, &models.Tenant{}); err != nil {
		t.Fatalf("迁移表结构失败: %v", err)
	}

	return dao.New(db)
}

func newTestSessionService(t *testing.T) (*SessionService, *dao.DAO) {
	t.Helper()
	d := setupSessionTestDAO(t)
	/* redis=nil：令牌查询直接回源数据库 */
	return NewSessionService(d, nil, nil, 30, 5*time.Minute), d
}

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func TestCreateSession(t *testing.T) {
	svc, _ := newTestSessionService(t)

	session, err := svc.CreateSession(CreateSessionInput{
		UserID:    "user-001",
		IPAddress: "203.0.113.7",
		UserAgent: chromeUA,
	})
	if err != nil {
		t.Fatalf("创建会话失败: %v", err)
	}

	if len(session.SessionToken) != 64 {
		t.Fatalf("自动生成的令牌应为 64 字符 hex，实际长度 %d", len(session.SessionToken))
	}
	if !session.IsActive || session.RevokedAt != nil {
		t.Fatal("新会话应为活跃且未撤销")
	}

	wantExpiry := time.Now().Add(30 * 24 * time.Hour)
	if session.ExpiresAt.Before(wantExpiry.Add(-time.Minute)) ||
		session.ExpiresAt.After(wantExpiry.Add(time.Minute)) {
		t.Fatalf("有效期应约为 30 天后，实际 %v", session.ExpiresAt)
	}

	/* 设备指纹 */
	if session.BrowserName != "Chrome" {
		t.Fatalf("浏览器解析错误: %s", session.BrowserName)
	}
	if session.DeviceType != string(DeviceTypeDesktop) {
		t.Fatalf("设备类型解析错误: %s", session.DeviceType)
	}
	if session.IsMobile {
		t.Fatal("桌面 UA 不应标记为移动设备")
	}
}

func TestCreateSessionRequiresUserID(t *testing.T) {
	svc, _ := newTestSessionService(t)

	if _, err := svc.CreateSession(CreateSessionInput{}); err == nil {
		t.Fatal("缺少 userID 应报错")
	}
}

func TestSessionUsability(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name    string
		session models.UserSession
		want    bool
	}{
		{"活跃且未过期", models.UserSession{IsActive: true, ExpiresAt: now.Add(time.Hour)}, true},
		{"已停用", models.UserSession{IsActive: false, ExpiresAt: now.Add(time.Hour)}, false},
		{"已撤销", models.UserSession{IsActive: true, RevokedAt: &now, ExpiresAt: now.Add(time.Hour)}, false},
		{"已过期", models.UserSession{IsActive: true, ExpiresAt: now.Add(-time.Hour)}, false},
	}

	for _, tc := range cases {
		if got := tc.session.Usable(now); got != tc.want {
			t.Errorf("%s: 期望 %v，实际 %v", tc.name, tc.want, got)
		}
	}
}

func TestGetSessionByToken(t *testing.T) {
	svc, _ := newTestSessionService(t)

	created, err := svc.CreateSession(CreateSessionInput{UserID: "user-001", UserAgent: chromeUA})
	if err != nil {
		t.Fatalf("创建会话失败: %v", err)
	}

	found, err := svc.GetSessionByToken(created.SessionToken)
	if err != nil {
		t.Fatalf("按令牌查询失败: %v", err)
	}
	if found == nil || found.ID != created.ID {
		t.Fatal("应查到刚创建的会话")
	}

	if found, _ := svc.GetSessionByToken("nonexistent-token"); found != nil {
		t.Fatal("无效令牌不应查到会话")
	}
	if found, _ := svc.GetSessionByToken(""); found != nil {
		t.Fatal("空令牌不应查到会话")
	}
}

func TestGetSessionByTokenExcludesRevoked(t *testing.T) {
	svc, _ := newTestSessionService(t)

	created, _ := svc.CreateSession(CreateSessionInput{UserID: "user-001"})
	if err := svc.RevokeSession(created.ID, "user-001", models.RevokeReasonUser); err != nil {
		t.Fatalf("撤销失败: %v", err)
	}

	found, err := svc.GetSessionByToken(created.SessionToken)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if found != nil {
		t.Fatal("已撤销的会话不应通过令牌认证")
	}
}

func TestRevokeSessionScopedToOwner(t *testing.T) {
	svc, d := newTestSessionService(t)

	created, _ := svc.CreateSession(CreateSessionInput{UserID: "user-001"})

	/* 他人无法撤销 */
	err := svc.RevokeSession(created.ID, "attacker", models.RevokeReasonUser)
	if err != ErrSessionNotFound {
		t.Fatalf("越权撤销应返回 ErrSessionNotFound，实际 %v", err)
	}

	stored, _ := d.GetSessionByID(created.ID)
	if !stored.IsActive || stored.RevokedAt != nil {
		t.Fatal("越权撤销不应改变会话状态")
	}

	/* 本人撤销成功 */
	if err := svc.RevokeSession(created.ID, "user-001", models.RevokeReasonUser); err != nil {
		t.Fatalf("本人撤销失败: %v", err)
	}
	stored, _ = d.GetSessionByID(created.ID)
	if stored.IsActive || stored.RevokedAt == nil || stored.RevokedReason != models.RevokeReasonUser {
		t.Fatalf("撤销后状态错误: active=%v revoked=%v reason=%s",
			stored.IsActive, stored.RevokedAt, stored.RevokedReason)
	}

	/* 重复撤销幂等地报不存在 */
	if err := svc.RevokeSession(created.ID, "user-001", models.RevokeReasonUser); err != ErrSessionNotFound {
		t.Fatalf("重复撤销应返回 ErrSessionNotFound，实际 %v", err)
	}
}

func TestRevokeAllOtherSessions(t *testing.T) {
	svc, _ := newTestSessionService(t)

	current, _ := svc.CreateSession(CreateSessionInput{UserID: "user-001"})
	for i := 0; i < 3; i++ {
		svc.CreateSession(CreateSessionInput{UserID: "user-001"})
	}
	other, _ := svc.CreateSession(CreateSessionInput{UserID: "user-002"})

	count, err := svc.RevokeAllOtherSessions("user-001", current.ID)
	if err != nil {
		t.Fatalf("批量撤销失败: %v", err)
	}
	if count != 3 {
		t.Fatalf("期望撤销 3 个会话，实际 %d", count)
	}

	/* 当前会话保留 */
	sessions, _ := svc.GetUserSessions("user-001", current.ID)
	if len(sessions) != 1 || !sessions[0].IsCurrent {
		t.Fatalf("应只剩当前会话且带 IsCurrent 标记，实际 %d 个", len(sessions))
	}

	/* 其他用户不受影响 */
	otherSessions, _ := svc.GetUserSessions("user-002", "")
	if len(otherSessions) != 1 || otherSessions[0].ID != other.ID {
		t.Fatal("批量撤销不应波及其他用户")
	}
}

func TestCleanupExpiredSessions(t *testing.T) {
	svc, d := newTestSessionService(t)

	/* 一个已过期、一个未过期的活跃会话 */
	expired := &models.UserSession{
		UserID:         "user-001",
		SessionToken:   "token-expired",
		IsActive:       true,
		LastActivityAt: time.Now().Add(-40 * 24 * time.Hour),
		ExpiresAt:      time.Now().Add(-time.Hour),
	}
	if err := d.CreateSession(expired); err != nil {
		t.Fatalf("写入过期会话失败: %v", err)
	}
	alive, _ := svc.CreateSession(CreateSessionInput{UserID: "user-001"})

	count, err := svc.CleanupExpiredSessions()
	if err != nil {
		t.Fatalf("清扫失败: %v", err)
	}
	if count != 1 {
		t.Fatalf("期望清扫 1 个会话，实际 %d", count)
	}

	stored, _ := d.GetSessionByID(expired.ID)
	if stored.IsActive || stored.RevokedReason != models.RevokeReasonExpired {
		t.Fatalf("过期会话应被标记为 expired，实际 active=%v reason=%s",
			stored.IsActive, stored.RevokedReason)
	}

	aliveStored, _ := d.GetSessionByID(alive.ID)
	if !aliveStored.IsActive {
		t.Fatal("未过期的会话不应被清扫")
	}
}

func TestUpdateSessionActivity(t *testing.T) {
	svc, d := newTestSessionService(t)

	created, _ := svc.CreateSession(CreateSessionInput{UserID: "user-001", IPAddress: "10.0.0.1"})

	/* 回拨活跃时间，模拟旧会话 */
	d.DB.Model(&models.UserSession{}).Where("id = ?", created.ID).
		Update("last_activity_at", time.Now().Add(-time.Hour))

	if err := svc.UpdateSessionActivity(created.ID, "10.0.0.2"); err != nil {
		t.Fatalf("更新活跃时间失败: %v", err)
	}

	stored, _ := d.GetSessionByID(created.ID)
	if time.Since(stored.LastActivityAt) > time.Minute {
		t.Fatalf("活跃时间应被刷新，实际 %v", stored.LastActivityAt)
	}
	if stored.IPAddress != "10.0.0.2" {
		t.Fatalf("IP 应同步更新，实际 %s", stored.IPAddress)
	}
}
