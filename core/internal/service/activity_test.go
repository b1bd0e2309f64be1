package service

import (
	"testing"

	"tenantbase/core/internal/db/dao"
	"tenantbase/core/internal/db/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupActivityDAO(t *testing.T) *dao.DAO {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("创建测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&models.ActivityLog{}); err != nil {
		t.Fatalf("迁移表结构失败: %v", err)
	}
	return dao.New(db)
}

func TestActivityRecorderPersistsEvents(t *testing.T) {
	d := setupActivityDAO(t)
	recorder := NewActivityRecorder(d)

	recorder.Record(models.ActivityLog{
		UserID:   "user-001",
		Action:   "session_created",
		Resource: "session",
	})
	recorder.Record(models.ActivityLog{
		UserID: "user-001",
		Action: "login_failed",
		Status: models.ActivityStatusFailed,
	})
	/* Stop 等待队列刷完，之后断言落库结果 */
	recorder.Stop()

	logs, err := d.ListActivityLogs("user-001", 10, 0)
	if err != nil {
		t.Fatalf("查询活动日志失败: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("期望落库 2 条，实际 %d", len(logs))
	}
	/* 未指定状态时默认 success */
	for _, l := range logs {
		if l.Action == "session_created" && l.Status != models.ActivityStatusSuccess {
			t.Fatalf("默认状态应为 success，实际 %s", l.Status)
		}
	}

	if recorder.DroppedCount() != 0 || recorder.FailedCount() != 0 {
		t.Fatalf("正常路径不应有丢弃/失败计数: dropped=%d failed=%d",
			recorder.DroppedCount(), recorder.FailedCount())
	}
}

func TestActivityRecorderFailuresAreCounted(t *testing.T) {
	/* 不迁移表结构，落库必然失败，失败计数应可观测 */
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("创建测试数据库失败: %v", err)
	}
	recorder := NewActivityRecorder(dao.New(db))

	recorder.Record(models.ActivityLog{UserID: "user-001", Action: "session_created"})
	recorder.Stop()

	if recorder.FailedCount() != 1 {
		t.Fatalf("落库失败应累加 Failed 计数，实际 %d", recorder.FailedCount())
	}
}

func TestActivityRecorderStopIsIdempotent(t *testing.T) {
	recorder := NewActivityRecorder(setupActivityDAO(t))
	recorder.Stop()
	recorder.Stop()
}
