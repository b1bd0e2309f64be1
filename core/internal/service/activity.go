package service

import (
	"sync"
	"sync/atomic"

	"tenantbase/core/internal/db/dao"
	"tenantbase/core/internal/db/models"

	"go.uber.org/zap"
)

/*
ActivityRecorder 异步活动日志记录器
功能：会话等资源的审计事件通过内存队列异步落库，写入失败或队列
打满只累加计数并告警，绝不反向影响触发它的业务操作。
Dropped / Failed 计数对外可见，日志通道故障在监控上可观测。
*/
type ActivityRecorder struct {
	dao    *dao.DAO
	logger *zap.Logger

	queue   chan models.ActivityLog
	dropped atomic.Int64 /* 队列满被丢弃的事件数 */
	failed  atomic.Int64 /* 落库失败的事件数 */

	wg       sync.WaitGroup
	stopOnce sync.Once
}

/* activityQueueSize 队列容量，打满说明数据库写入长期落后 */
const activityQueueSize = 1024

/*
NewActivityRecorder 创建活动日志记录器并启动后台写入协程
*/
func NewActivityRecorder(d *dao.DAO) *ActivityRecorder {
	r := &ActivityRecorder{
		dao:    d,
		logger: zap.L().Named("activity-recorder"),
		queue:  make(chan models.ActivityLog, activityQueueSize),
	}

	r.wg.Add(1)
	go r.drain()

	return r
}

/*
Record 投递一条活动日志（尽力而为）
功能：非阻塞投递；队列满时丢弃并累加 Dropped 计数。
调用方永远不会因为审计日志阻塞或失败。
*/
func (r *ActivityRecorder) Record(log models.ActivityLog) {
	if log.Status == "" {
		log.Status = models.ActivityStatusSuccess
	}

	select {
	case r.queue <- log:
	default:
		n := r.dropped.Add(1)
		if n%100 == 1 {
			r.logger.Warn("活动日志队列已满，事件被丢弃",
				zap.Int64("total_dropped", n),
				zap.String("action", log.Action))
		}
	}
}

/* drain 后台写入循环，队列关闭后把剩余事件刷完再退出 */
func (r *ActivityRecorder) drain() {
	defer r.wg.Done()
	for log := range r.queue {
		if err := r.dao.CreateActivityLog(&log); err != nil {
			r.failed.Add(1)
			r.logger.Warn("活动日志落库失败",
				zap.String("action", log.Action),
				zap.String("user_id", log.UserID),
				zap.Error(err))
		}
	}
}

/*
Stop 停止记录器
功能：关闭队列并等待剩余事件落库，进程退出前调用
*/
func (r *ActivityRecorder) Stop() {
	r.stopOnce.Do(func() {
		close(r.queue)
		r.wg.Wait()
	})
}

/* DroppedCount 返回被丢弃的事件总数 */
func (r *ActivityRecorder) DroppedCount() int64 {
	return r.dropped.Load()
}

/* FailedCount 返回落库失败的事件总数 */
func (r *ActivityRecorder) FailedCount() int64 {
	return r.failed.Load()
}
