package service

import (
	"time"

	"tenantbase/core/internal/monitor"
	"tenantbase/core/internal/pkg/logger"

	"go.uber.org/zap"
)

/*
CleanupService 清理服务（定时任务）
功能：定期标记过期会话、裁剪性能监控的历史样本
*/
type CleanupService struct {
	sessions *SessionService
	monitor  *monitor.Monitor
	interval time.Duration
	stopChan chan struct{}
}

/*
NewCleanupService 创建清理服务
参数：interval <= 0 时取 10 分钟
*/
func NewCleanupService(sessions *SessionService, mon *monitor.Monitor, interval time.Duration) *CleanupService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &CleanupService{
		sessions: sessions,
		monitor:  mon,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start 启动清理服务（阻塞，调用方负责起协程）
func (s *CleanupService) Start() {
	s.runCleanup()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runCleanup()
		case <-s.stopChan:
			return
		}
	}
}

// Stop 停止清理服务
func (s *CleanupService) Stop() {
	close(s.stopChan)
}

// runCleanup 执行清理
func (s *CleanupService) runCleanup() {
	logger.Debug("执行定时清理任务")

	if s.sessions != nil {
		if _, err := s.sessions.CleanupExpiredSessions(); err != nil {
			logger.Error("清扫过期会话失败", zap.Error(err))
		}
	}

	if s.monitor != nil {
		s.monitor.Cleanup()
	}
}
