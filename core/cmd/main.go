package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tenantbase/core/internal/api"
	"tenantbase/core/internal/config"
	"tenantbase/core/internal/db/dao"
	"tenantbase/core/internal/db/database"
	"tenantbase/core/internal/monitor"
	"tenantbase/core/internal/pkg/logger"
	"tenantbase/core/internal/service"
	"tenantbase/core/internal/types"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	configPath = flag.String("config", "./config.yaml", "配置文件路径")
	port       = flag.Int("port", 0, "覆盖服务器端口")
)

/*
main 程序入口
启动流程：
 1. 初始化引导日志（配置加载前使用临时 console 日志）
 2. 加载配置文件 → 用配置重新初始化日志
 3. 初始化数据库（SQLite/MySQL/Postgres + 可选 Redis）+ 自动迁移
 4. 构造监控器与领域服务（认证/用户/会话/租户策略/审计）
 5. 组装路由 → 启动 HTTP 服务器
 6. 等待 SIGINT/SIGTERM → 优雅关闭
*/
func main() {
	startupBegin := time.Now()
	flag.Parse()

	/* 阶段 1：引导日志 */
	if err := logger.Init(&logger.Config{
		Level:  "info",
		Format: "console",
	}); err != nil {
		log.Fatalf("初始化日志系统失败: %v", err)
	}
	defer logger.Sync()

	printBanner()

	/* 阶段 2：加载配置 → 用配置重新初始化日志系统 */
	cfg := config.LoadConfigOrDefault(*configPath)
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if err := logger.Init(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: cfg.Log.OutputPath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		logger.Fatal("重新初始化日志系统失败", zap.Error(err))
	}

	/* 阶段 3：初始化数据库（必须串行，后续服务依赖它） */
	dbStart := time.Now()
	dbManager, err := database.NewManager(&database.ManagerConfig{
		Database: &database.Config{
			Type:         database.DBType(cfg.Database.Type),
			SQLitePath:   cfg.Database.SQLitePath,
			Host:         cfg.Database.Host,
			Port:         cfg.Database.Port,
			User:         cfg.Database.User,
			Password:     cfg.Database.Password,
			DBName:       cfg.Database.DBName,
			SSLMode:      cfg.Database.SSLMode,
			Charset:      cfg.Database.Charset,
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
			LogLevel:     cfg.Database.LogLevel,
		},
		Redis: &database.RedisConfig{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
		},
	})
	if err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	defer dbManager.Close()
	logger.Info("✓ 数据库初始化完成", zap.Duration("耗时", time.Since(dbStart)))

	gormDAO := dao.New(dbManager.DB)

	/* 阶段 4：监控器与领域服务 */
	mon := monitor.New(monitor.Config{
		Retention:      time.Duration(cfg.Monitor.RetentionMinutes) * time.Minute,
		MaxPerEndpoint: cfg.Monitor.MaxMetricsPerEndpoint,
		SlowThreshold:  time.Duration(cfg.Monitor.SlowThresholdMs) * time.Millisecond,
	}, prometheus.DefaultRegisterer)

	activity := service.NewActivityRecorder(gormDAO)
	defer activity.Stop()

	authService, err := service.NewAuthService(dbManager, cfg.Auth.JWTSecret, cfg.Auth.JWTExpiration)
	if err != nil {
		logger.Fatal("初始化认证服务失败", zap.Error(err))
	}
	defer authService.Stop()

	sessions := service.NewSessionService(
		gormDAO, dbManager.Redis, activity,
		cfg.Session.ExpiryDays,
		time.Duration(cfg.Session.TokenCacheTTL)*time.Second,
	)
	users := service.NewUserService(gormDAO, activity)
	tenants := service.NewTenantPolicyResolver(
		gormDAO,
		cfg.Session.TenantCacheSize,
		time.Duration(cfg.Session.TenantCacheTTL)*time.Second,
		cfg.Security.DefaultMaxPayloadSize,
		mon,
	)

	/* 定时清理：过期会话 + 监控样本 */
	cleanup := service.NewCleanupService(sessions, mon,
		time.Duration(cfg.Monitor.CleanupInterval)*time.Minute)
	go cleanup.Start()
	defer cleanup.Stop()

	logger.Info("✓ 领域服务初始化完成")

	/* 阶段 5：组装路由 + 启动 HTTP 服务器 */
	app := &types.App{
		Config:   cfg,
		DB:       dbManager,
		DAO:      gormDAO,
		Monitor:  mon,
		Auth:     authService,
		Users:    users,
		Sessions: sessions,
		Tenants:  tenants,
		Activity: activity,
	}
	router := api.SetupRouter(app)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("✓ HTTP 服务器启动", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常退出", zap.Error(err))
		}
	}()

	logger.Info("✓ TenantBase 启动完成",
		zap.Duration("总耗时", time.Since(startupBegin)),
		zap.String("监听地址", addr))

	/* 阶段 6：等待退出信号 → 优雅关闭 */
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("收到退出信号，正在优雅关闭...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("关闭 HTTP 服务器失败", zap.Error(err))
	}

	logger.Info("✓ 所有服务器已停止")
}

func printBanner() {
	fmt.Print(`
  _____                      _   ____
 |_   _|__ _ __   __ _ _ __ | |_| __ )  __ _ ___  ___
   | |/ _ \ '_ \ / _' | '_ \| __|  _ \ / _' / __|/ _ \
   | |  __/ | | | (_| | | | | |_| |_) | (_| \__ \  __/
   |_|\___|_| |_|\__,_|_| |_|\__|____/ \__,_|___/\___|

        Multi-tenant SaaS Starter - Core Services
`)
}
