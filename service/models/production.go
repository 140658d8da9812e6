/*
 * @module service/models/production
 * @description 生产看板核心数据模型：原始表、规范化记录、产线聚合、视图模型
 * @architecture 数据模型层
 * @documentReference ai_docs/prodboard_req.md
 * @stateFlow 原始表 -> 规范化记录 -> 产线聚合 -> 视图模型，单向流动，每次采集整体重建
 * @rules 规范化记录集在每次采集成功后整体替换，不做增量合并
 * @refs service/ingestion, service/aggregation, service/dashboard
 */

package models

import (
	"time"
)

// RawTable 解析后的原始表：有序列名加上按列名取值的行
// 单元格值未定型，可能是字符串、数字或空
type RawTable struct {
	Columns []string                 `json:"columns"`
	Rows    []map[string]interface{} `json:"rows"`
}

// HasColumn 判断表模式中是否存在指定列（精确匹配）
func (t *RawTable) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// LineTimestamp 产线级最近更新时间
// 优先取该产线所有行中可解析的最大时间；全部无法解析时退回最后一个非空原始值作为展示串
type LineTimestamp struct {
	Time *time.Time `json:"time,omitempty"`
	Raw  string     `json:"raw,omitempty"`
}

// Display 返回用于展示的时间串，无数据时为空串
func (lt LineTimestamp) Display() string {
	if lt.Time != nil {
		return lt.Time.Format("02/01/2006 15:04")
	}
	return lt.Raw
}

// CanonicalRecord 规范化后的一条 (产线, 产品) 记录
type CanonicalRecord struct {
	Line            string        `json:"line"`
	Product         string        `json:"product"`
	Sequence        int           `json:"sequence"`
	TodayTarget     float64       `json:"today_target"`      // 当天星期列的目标量，列缺失或无法解析时为0
	ProducedQty     float64       `json:"produced_qty"`      // 本周累计报工量
	WeeklyTarget    float64       `json:"weekly_target"`     // 周目标量
	WeeklyRemaining float64       `json:"weekly_remaining"`  // 周剩余量，超产时为负
	DayToken        string        `json:"day_token"`         // 解析出的规范星期标记
	DayColumn       string        `json:"day_column"`        // 实际匹配到的星期列名
	LastUpdate      LineTimestamp `json:"last_update"`       // 产线级时间，同产线所有记录共享
}

// NormalizeResult 一次规范化的完整产物
type NormalizeResult struct {
	Records     []CanonicalRecord `json:"records"`
	SkippedRows int               `json:"skipped_rows"` // 行级容错丢弃的行数
	Warnings    []string          `json:"warnings"`     // 非致命告警，如时间列缺失
}

// LineAggregate 单条产线的聚合指标
type LineAggregate struct {
	Line         string        `json:"line"`
	ProducedQty  float64       `json:"produced_qty"`
	WeeklyTarget float64       `json:"weekly_target"`
	Remaining    float64       `json:"remaining"`
	Percentage   float64       `json:"percentage"` // 目标为0时定义为0，避免除零
	Status       string        `json:"status"`
	Priority     int           `json:"priority"`
	Color        string        `json:"color"`
	ProductCount int           `json:"product_count"`
	LastUpdate   LineTimestamp `json:"last_update"`
}

// ProductView 产线当前轮播展示的产品
type ProductView struct {
	Product     string  `json:"product"`
	Sequence    int     `json:"sequence"`
	ProducedQty float64 `json:"produced_qty"`
	TodayTarget float64 `json:"today_target"` // 当天该产品的目标量
	Percentage  float64 `json:"percentage"`   // 按当天目标计算，目标为0时为0
	Index       int     `json:"index"`        // 轮播下标
	Total       int     `json:"total"`        // 该产线产品总数
}

// LineView 视图模型中一条可见产线
type LineView struct {
	Line      string        `json:"line"`
	Aggregate LineAggregate `json:"aggregate"`
	Product   *ProductView  `json:"product,omitempty"` // 产品列表为空时为nil，前端按"无数据"渲染
	Products  []string      `json:"products"`          // 该产线全部产品名，按SEQ升序
}

// GlobalSummary 全局汇总指标
type GlobalSummary struct {
	TotalProduced float64        `json:"total_produced"`
	TotalTarget   float64        `json:"total_target"`
	Percentage    float64        `json:"percentage"`
	BucketCounts  map[string]int `json:"bucket_counts"` // 按过滤分级统计的产线数
}

// DashboardView 交付给前端的完整视图模型
type DashboardView struct {
	Lines       []LineView    `json:"lines"`
	Summary     GlobalSummary `json:"summary"`
	DayToken    string        `json:"day_token"`
	RefreshedAt time.Time     `json:"refreshed_at"`
	TickID      string        `json:"tick_id"`
	Stale       bool          `json:"stale"`            // 最近一次采集失败、展示的是上一次有效数据时为true
	LastError   string        `json:"last_error,omitempty"`
}

// FilterOptions 产线可见性过滤配置
type FilterOptions struct {
	ShowOnTarget   bool   `json:"show_on_target"`
	ShowInProgress bool   `json:"show_in_progress"`
	ShowAttention  bool   `json:"show_attention"`
	Search         string `json:"search"` // 产线名子串，大小写不敏感
}

// DefaultFilterOptions 默认全部状态可见、无搜索词
func DefaultFilterOptions() FilterOptions {
	return FilterOptions{
		ShowOnTarget:   true,
		ShowInProgress: true,
		ShowAttention:  true,
	}
}
