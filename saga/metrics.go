package saga

import (
	"time"

	"github.com/Tsukikage7/sagakit/metrics"
)

// sagaMetrics 编排器指标记录器.
//
// 封装 metrics.PrometheusCollector，所有方法对 nil 接收者安全，
// 未配置指标时调用点无需判空.
type sagaMetrics struct {
	collector *metrics.PrometheusCollector
}

// newSagaMetrics 创建编排器指标记录器.
func newSagaMetrics(collector *metrics.PrometheusCollector) *sagaMetrics {
	if collector == nil {
		return nil
	}
	return &sagaMetrics{collector: collector}
}

// RecordRun 记录一次运行的终态和耗时.
func (m *sagaMetrics) RecordRun(sagaType string, status Status, duration time.Duration) {
	if m == nil {
		return
	}
	m.collector.Counter("saga_runs_total", map[string]string{
		"saga_type": sagaType,
		"status":    string(status),
	})
	m.collector.Histogram("saga_run_duration_seconds", duration.Seconds(),
		map[string]string{"saga_type": sagaType})
}

// RecordStep 记录一次步骤执行结果.
func (m *sagaMetrics) RecordStep(sagaType, step string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	labels := map[string]string{"saga_type": sagaType, "step": step, "result": "success"}
	if !success {
		labels["result"] = "failure"
	}
	m.collector.Counter("saga_steps_total", labels)
	m.collector.Histogram("saga_step_duration_seconds", duration.Seconds(),
		map[string]string{"saga_type": sagaType, "step": step})
}

// RecordRetry 记录一次步骤重试.
func (m *sagaMetrics) RecordRetry(sagaType, step string) {
	if m == nil {
		return
	}
	m.collector.Counter("saga_step_retries_total",
		map[string]string{"saga_type": sagaType, "step": step})
}

// RecordCompensation 记录一次补偿结果.
func (m *sagaMetrics) RecordCompensation(sagaType, step string, success bool) {
	if m == nil {
		return
	}
	labels := map[string]string{"saga_type": sagaType, "step": step, "result": "success"}
	if !success {
		labels["result"] = "failure"
	}
	m.collector.Counter("saga_compensations_total", labels)
}

// RecordPublishError 记录一次事件发布失败.
func (m *sagaMetrics) RecordPublishError(sagaType string) {
	if m == nil {
		return
	}
	m.collector.Counter("saga_event_publish_errors_total",
		map[string]string{"saga_type": sagaType})
}
