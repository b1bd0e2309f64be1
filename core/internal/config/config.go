package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config 全局配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Session  SessionConfig  `yaml:"session"`
	Security SecurityConfig `yaml:"security"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Mode         string `yaml:"mode"` // debug, release
	ReadTimeout  int    `yaml:"read_timeout"`
	WriteTimeout int    `yaml:"write_timeout"`

	/* CORS 跨域配置 */
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"` /* 允许的来源列表，["*"] 表示允许所有（仅开发环境） */
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type     string `yaml:"type"`     // 数据库类型: sqlite, mysql, postgres
	Host     string `yaml:"host"`     // 数据库主机
	Port     int    `yaml:"port"`     // 数据库端口
	User     string `yaml:"user"`     // 数据库用户名
	Password string `yaml:"password"` // 数据库密码
	DBName   string `yaml:"db_name"`  // 数据库名称
	SSLMode  string `yaml:"ssl_mode"` // SSL模式 (postgres)
	Charset  string `yaml:"charset"`  // 字符集 (mysql)

	/* SQLite 专用 */
	SQLitePath string `yaml:"sqlite_path"`

	/* 连接池 */
	MaxOpenConns int `yaml:"max_open_conns"` // 最大打开连接数
	MaxIdleConns int `yaml:"max_idle_conns"` // 最大空闲连接数

	/* 日志 */
	LogLevel string `yaml:"log_level"` // silent, error, warn, info
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr         string `yaml:"addr"`
	Password     string `yaml:"password"`
	DB           int    `yaml:"db"`
	PoolSize     int    `yaml:"pool_size"`
	MinIdleConns int    `yaml:"min_idle_conns"`
	MaxRetries   int    `yaml:"max_retries"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	JWTExpiration int    `yaml:"jwt_expiration"` // 单位：小时
}

/*
SessionConfig 会话配置
功能：控制会话有效期、令牌缓存和过期清理策略
*/
type SessionConfig struct {
	ExpiryDays      int `yaml:"expiry_days"`       /* 会话有效期（天），默认 30 */
	TokenCacheTTL   int `yaml:"token_cache_ttl"`   /* Redis 令牌缓存有效期（秒），默认 300 */
	CleanupInterval int `yaml:"cleanup_interval"`  /* 过期会话清理间隔（分钟），默认 60 */
	TenantCacheSize int `yaml:"tenant_cache_size"` /* 租户安全配置内存缓存容量，默认 256 */
	TenantCacheTTL  int `yaml:"tenant_cache_ttl"`  /* 租户安全配置缓存有效期（秒），默认 60 */
}

/*
SecurityConfig 安全响应头与租户防护默认值
功能：定义全局安全响应头策略，租户级配置在其上做浅覆盖
*/
type SecurityConfig struct {
	ContentSecurityPolicy string `yaml:"content_security_policy"` /* 为空时使用内置默认 CSP */
	FrameOptions          string `yaml:"frame_options"`           /* DENY / SAMEORIGIN */
	ReferrerPolicy        string `yaml:"referrer_policy"`
	PermissionsPolicy     string `yaml:"permissions_policy"`
	EnableHSTS            bool   `yaml:"enable_hsts"`           /* Strict-Transport-Security，仅 HTTPS 部署启用 */
	HSTSMaxAge            int    `yaml:"hsts_max_age"`          /* HSTS 有效期（秒），默认 63072000（2年） */
	CrossOriginEmbedder   string `yaml:"cross_origin_embedder"` /* Cross-Origin-Embedder-Policy */
	CrossOriginOpener     string `yaml:"cross_origin_opener"`   /* Cross-Origin-Opener-Policy */
	CrossOriginResource   string `yaml:"cross_origin_resource"` /* Cross-Origin-Resource-Policy */
	DefaultMaxPayloadSize int64  `yaml:"default_max_payload"`   /* 租户未配置时的请求体上限（字节），默认 2MB */
	CSRFCookieName        string `yaml:"csrf_cookie_name"`      /* CSRF 双提交 cookie 名，默认 csrf-token */
	CSRFHeaderName        string `yaml:"csrf_header_name"`      /* CSRF 请求头名，默认 X-CSRF-Token */
}

/*
MonitorConfig 性能监控配置
功能：控制指标保留窗口、单端点样本上限和慢端点阈值
*/
type MonitorConfig struct {
	RetentionMinutes      int   `yaml:"retention_minutes"`        /* 样本保留窗口（分钟），默认 60 */
	MaxMetricsPerEndpoint int   `yaml:"max_metrics_per_endpoint"` /* 单个 org:endpoint 键最大样本数，默认 1000 */
	SlowThresholdMs       int64 `yaml:"slow_threshold_ms"`        /* 慢端点判定阈值（毫秒），默认 1000 */
	CleanupInterval       int   `yaml:"cleanup_interval"`         /* 过期样本清理间隔（分钟），默认 10 */
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level"`       // debug, info, warn, error
	Format     string `yaml:"format"`      // json, console
	OutputPath string `yaml:"output_path"` // 日志文件路径
	MaxSize    int    `yaml:"max_size"`    // 单个日志文件大小(MB)
	MaxBackups int    `yaml:"max_backups"` // 保留的旧日志文件数量
	MaxAge     int    `yaml:"max_age"`     // 保留天数
	Compress   bool   `yaml:"compress"`    // 是否压缩
}

// LoadConfig 从文件加载配置
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.warnInsecureDefaults()
	return config, nil
}

/*
warnInsecureDefaults 检查生产环境下是否使用了不安全的默认值
功能：在 release 模式下对 JWT 默认密钥、CORS 通配符等输出警告，
提醒运维人员及时修改，避免上线后被利用。
*/
func (c *Config) warnInsecureDefaults() {
	if c.Server.Mode != "release" {
		return
	}

	if c.Auth.JWTSecret == "change-this-secret-in-production" || len(c.Auth.JWTSecret) < 16 {
		fmt.Println("[SECURITY WARNING] 生产环境使用了默认或过短的 JWT 密钥，请立即修改 auth.jwt_secret")
	}
	if !c.Security.EnableHSTS {
		fmt.Println("[SECURITY WARNING] 生产环境未启用 HSTS，HTTPS 部署请开启 security.enable_hsts")
	}
	for _, o := range c.Server.CORSAllowedOrigins {
		if o == "*" {
			fmt.Println("[SECURITY WARNING] 生产环境 CORS 允许所有来源（*），请配置具体域名白名单 server.cors_allowed_origins")
			break
		}
	}
}

// LoadConfigOrDefault 加载配置或使用默认值
func LoadConfigOrDefault(path string) *Config {
	if path == "" {
		return DefaultConfig()
	}

	config, err := LoadConfig(path)
	if err != nil {
		fmt.Printf("Failed to load config: %v, using defaults\n", err)
		return DefaultConfig()
	}

	return config
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			Mode:               "debug",
			ReadTimeout:        30,
			WriteTimeout:       30,
			CORSAllowedOrigins: []string{"*"}, /* 开发模式默认允许所有，生产环境应改为具体域名 */
		},
		Database: DatabaseConfig{
			Type:         "sqlite",
			SQLitePath:   "./data/tenantbase.db",
			Host:         "localhost",
			Port:         5432,
			User:         "postgres",
			Password:     "",
			DBName:       "tenantbase",
			SSLMode:      "disable",
			Charset:      "utf8mb4",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
			LogLevel:     "warn",
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			Password:     "",
			DB:           0,
			PoolSize:     10,
			MinIdleConns: 3,
			MaxRetries:   3,
		},
		Auth: AuthConfig{
			JWTSecret:     "change-this-secret-in-production",
			JWTExpiration: 24,
		},
		Session: SessionConfig{
			ExpiryDays:      30,
			TokenCacheTTL:   300,
			CleanupInterval: 60,
			TenantCacheSize: 256,
			TenantCacheTTL:  60,
		},
		Security: SecurityConfig{
			ContentSecurityPolicy: "", /* 空值使用内置默认 CSP */
			FrameOptions:          "DENY",
			ReferrerPolicy:        "strict-origin-when-cross-origin",
			PermissionsPolicy:     "camera=(), microphone=(), geolocation=()",
			EnableHSTS:            false,
			HSTSMaxAge:            63072000,
			CrossOriginEmbedder:   "require-corp",
			CrossOriginOpener:     "same-origin",
			CrossOriginResource:   "same-origin",
			DefaultMaxPayloadSize: 2 << 20,
			CSRFCookieName:        "csrf-token",
			CSRFHeaderName:        "X-CSRF-Token",
		},
		Monitor: MonitorConfig{
			RetentionMinutes:      60,
			MaxMetricsPerEndpoint: 1000,
			SlowThresholdMs:       1000,
			CleanupInterval:       10,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "./logs/tenantbase.log",
			MaxSize:    100,
			MaxBackups: 10,
			MaxAge:     30,
			Compress:   true,
		},
	}
}

// SaveConfig 保存配置到文件
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	/* 0600：仅所有者可读写，配置文件含敏感信息（密钥/密码） */
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
