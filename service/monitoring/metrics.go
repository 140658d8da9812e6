/*
 * @module service/monitoring/metrics
 * @description Prometheus指标定义与采集埋点，通过/metrics暴露
 * @architecture 监控层 - 全局指标注册
 * @documentReference ai_docs/prodboard_req.md
 * @stateFlow 采集tick执行 -> 指标更新 -> Prometheus抓取
 * @rules 指标更新必须无阻塞，不参与业务控制流
 * @dependencies github.com/prometheus/client_golang
 * @refs main.go, service/dashboard/dashboard_service.go
 */

package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RefreshTicks 采集tick计数，按结果状态分类
	RefreshTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prodboard_refresh_ticks_total",
		Help: "看板采集tick总数，按结果状态分类",
	}, []string{"status"})

	// RowsSkipped 行级容错丢弃的行数
	RowsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prodboard_rows_skipped_total",
		Help: "规范化阶段因坏数据跳过的行总数",
	})

	// LinesByBucket 当前各过滤分级的产线数
	LinesByBucket = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "prodboard_lines",
		Help: "当前视图模型中各状态分级的产线数",
	}, []string{"bucket"})

	// TickDuration 采集tick耗时分布
	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prodboard_tick_duration_seconds",
		Help:    "采集tick端到端耗时",
		Buckets: prometheus.DefBuckets,
	})

	// OverallPercentage 全局完成率
	OverallPercentage = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prodboard_overall_percentage",
		Help: "全部产线汇总的周完成率",
	})
)
