package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

/*
  RedisConfig Redis 连接配置
  功能：管理 Redis 连接参数
*/
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`

	/* 连接池配置 */
	PoolSize     int           `yaml:"pool_size" json:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" json:"min_idle_conns"`
	MaxRetries   int           `yaml:"max_retries" json:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
}

/*
  DefaultRedisConfig 返回默认 Redis 配置
  功能：提供开箱即用的 Redis 连接参数
*/
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 3,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

/*
  RedisClient Redis 客户端封装
  功能：提供会话令牌缓存等场景的 Redis 操作封装。
  Redis 是可选组件，不可用时上层直接回源数据库。
*/
type RedisClient struct {
	client *redis.Client
	ctx    context.Context
}

/*
  NewRedisClient 创建 Redis 客户端
  功能：根据配置初始化 Redis 连接，地址为空时返回 nil（禁用）
*/
func NewRedisClient(cfg *RedisConfig) (*RedisClient, error) {
	if cfg == nil || cfg.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx := context.Background()

	/* 测试连接 */
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("Redis 连接失败 [%s]: %w", cfg.Addr, err)
	}

	log.Printf("✓ Redis 连接成功 [%s]", cfg.Addr)

	return &RedisClient{
		client: client,
		ctx:    ctx,
	}, nil
}

/*
  Client 获取底层 Redis 客户端
  功能：直接访问 go-redis 原始客户端进行高级操作
*/
func (r *RedisClient) Client() *redis.Client {
	return r.client
}

/*
  Set 设置缓存
  功能：将键值对写入 Redis，支持设置过期时间
*/
func (r *RedisClient) Set(key string, value interface{}, expiration time.Duration) error {
	return r.client.Set(r.ctx, key, value, expiration).Err()
}

/*
  Get 获取缓存
  功能：根据键获取 Redis 中存储的值，键不存在时返回 redis.Nil 错误
*/
func (r *RedisClient) Get(key string) (string, error) {
	return r.client.Get(r.ctx, key).Result()
}

/*
  Del 删除缓存
*/
func (r *RedisClient) Del(keys ...string) error {
	return r.client.Del(r.ctx, keys...).Err()
}

/* sessionTokenKey 会话令牌 → 会话 ID 的缓存键 */
func sessionTokenKey(token string) string {
	return "session:token:" + token
}

/*
  CacheSessionToken 缓存会话令牌到会话 ID 的映射
  功能：加速 GetSessionByToken 的认证热路径，TTL 应远小于会话有效期，
  保证撤销后的残留缓存窗口可控
*/
func (r *RedisClient) CacheSessionToken(token, sessionID string, ttl time.Duration) error {
	return r.client.Set(r.ctx, sessionTokenKey(token), sessionID, ttl).Err()
}

/*
  GetCachedSessionID 查询令牌对应的会话 ID
  返回：缓存未命中时返回空串和 nil 错误
*/
func (r *RedisClient) GetCachedSessionID(token string) (string, error) {
	id, err := r.client.Get(r.ctx, sessionTokenKey(token)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return id, err
}

/*
  InvalidateSessionToken 删除令牌缓存
  功能：会话撤销/登出时调用，立即终止缓存命中
*/
func (r *RedisClient) InvalidateSessionToken(token string) error {
	return r.client.Del(r.ctx, sessionTokenKey(token)).Err()
}

/*
  Close 关闭 Redis 连接
*/
func (r *RedisClient) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

/*
  IsAvailable 检查 Redis 是否可用
*/
func (r *RedisClient) IsAvailable() bool {
	if r == nil || r.client == nil {
		return false
	}
	return r.client.Ping(r.ctx).Err() == nil
}
