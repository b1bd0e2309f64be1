package models

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestBaseModelGeneratesUUID(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("创建测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&Tenant{}); err != nil {
		t.Fatalf("迁移表结构失败: %v", err)
	}

	/* 未指定 ID 时自动生成 UUID */
	generated := &Tenant{Name: "Acme", Slug: "acme", Enabled: true}
	if err := db.Create(generated).Error; err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	if len(generated.ID) != 36 {
		t.Fatalf("应生成 36 字符 UUID 主键，实际 %q", generated.ID)
	}

	/* 预置 ID 保留不覆盖 */
	preset := &Tenant{BaseModel: BaseModel{ID: "tenant-fixed-001"}, Name: "Fixed", Slug: "fixed", Enabled: true}
	if err := db.Create(preset).Error; err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	if preset.ID != "tenant-fixed-001" {
		t.Fatalf("预置主键不应被覆盖，实际 %q", preset.ID)
	}
}
