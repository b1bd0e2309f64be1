package middleware

import (
	"fmt"
	"time"

	"tenantbase/core/internal/monitor"

	"github.com/gin-gonic/gin"
)

/*
timingWriter 包装 ResponseWriter，在首次写入响应头前注入 X-Response-Time。
响应头在首次 Write/WriteHeader 时冻结，事后设置无效。
*/
type timingWriter struct {
	gin.ResponseWriter
	start time.Time
}

func (w *timingWriter) setTiming() {
	if !w.Written() {
		elapsed := float64(time.Since(w.start).Microseconds()) / 1000.0
		w.Header().Set("X-Response-Time", fmt.Sprintf("%.2fms", elapsed))
	}
}

func (w *timingWriter) WriteHeader(code int) {
	w.setTiming()
	w.ResponseWriter.WriteHeader(code)
}

func (w *timingWriter) Write(data []byte) (int, error) {
	w.setTiming()
	return w.ResponseWriter.Write(data)
}

func (w *timingWriter) WriteString(s string) (int, error) {
	w.setTiming()
	return w.ResponseWriter.WriteString(s)
}

/*
Performance 性能监控中间件
功能：按组织+端点维度记录每个请求的耗时样本，
响应附带 X-Response-Time 头。
采样在 defer 中执行，handler panic 时样本仍会记录。
*/
func Performance(mon *monitor.Monitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Writer = &timingWriter{ResponseWriter: c.Writer, start: start}

		defer func() {
			endpoint := c.FullPath()
			if endpoint == "" {
				/* 未匹配路由（404）统一归并，避免高基数键 */
				endpoint = "unmatched"
			}
			mon.Record(endpoint, GetOrganizationID(c), GetUserID(c), start, time.Now())
		}()

		c.Next()
	}
}
