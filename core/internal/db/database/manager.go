package database

import (
	"fmt"
	"log"

	"gorm.io/gorm"
)

/*
  Manager 数据库管理器
  功能：统一管理 GORM 数据库连接和可选的 Redis 缓存连接，
  提供初始化、迁移、关闭等生命周期管理
*/
type Manager struct {
	DB    *gorm.DB
	Redis *RedisClient

	dbConfig    *Config
	redisConfig *RedisConfig
}

/*
  ManagerConfig 管理器配置
  功能：聚合数据库和 Redis 的配置信息
*/
type ManagerConfig struct {
	Database *Config      `yaml:"database" json:"database"`
	Redis    *RedisConfig `yaml:"redis" json:"redis"`
}

/*
  NewManager 创建数据库管理器
  功能：初始化数据库连接并执行迁移；Redis 是可选组件，
  连接失败只告警不中断启动。
*/
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	if cfg == nil {
		cfg = &ManagerConfig{Database: DefaultConfig(), Redis: DefaultRedisConfig()}
	}

	manager := &Manager{
		dbConfig:    cfg.Database,
		redisConfig: cfg.Redis,
	}

	/* 初始化数据库连接 */
	db, err := NewDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("初始化数据库失败: %w", err)
	}
	manager.DB = db

	/* 自动迁移 */
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	/* 初始化 Redis（可选组件） */
	if cfg.Redis != nil && cfg.Redis.Addr != "" {
		redisClient, err := NewRedisClient(cfg.Redis)
		if err != nil {
			log.Printf("⚠ Redis 连接失败: %v（继续运行，令牌查询直接回源数据库）", err)
		} else {
			manager.Redis = redisClient
		}
	}

	return manager, nil
}

/*
  HasCache 是否配置了可用的 Redis 缓存
*/
func (m *Manager) HasCache() bool {
	return m.Redis != nil
}

/*
  Close 关闭所有连接
*/
func (m *Manager) Close() error {
	if m.Redis != nil {
		if err := m.Redis.Close(); err != nil {
			log.Printf("关闭 Redis 连接失败: %v", err)
		}
	}
	if m.DB != nil {
		sqlDB, err := m.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
