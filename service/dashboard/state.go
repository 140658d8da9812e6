/*
 * @module service/dashboard/state
 * @description 看板会话状态：当前规范化记录集、产线分组、轮播计数、变更哈希与最近视图
 * @architecture 分层架构 - 状态持有层，由DashboardService独占读写
 * @documentReference ai_docs/prodboard_req.md
 * @stateFlow 采集成功整体替换记录集 -> 派生分组重建 -> 轮播计数按tick推进
 * @rules 状态不做全局单例，显式传引用；并发保护由持有方的tick互斥保证
 * @refs service/dashboard/dashboard_service.go
 */

package dashboard

import (
	"prodboard-service/service/aggregation"
	"prodboard-service/service/models"
)

// DashboardState 看板会话状态
// 规范化记录集在每次成功采集后整体替换；轮播计数跨数据集保留，
// 仍然存在的产线不因数据重载而回到第一个产品
type DashboardState struct {
	Records  []models.CanonicalRecord
	Groups   map[string]*aggregation.LineGroup
	Rotation map[string]int
	Filters  models.FilterOptions
	LastHash string
	LastView *models.DashboardView
	DayToken string
}

// NewDashboardState 创建初始状态，默认全部状态开关开启
func NewDashboardState() *DashboardState {
	return &DashboardState{
		Rotation: make(map[string]int),
		Filters:  models.DefaultFilterOptions(),
	}
}

// ReplaceRecords 整体替换记录集并重建产线分组
func (s *DashboardState) ReplaceRecords(records []models.CanonicalRecord, aggregator *aggregation.Aggregator) {
	s.Records = records
	s.Groups = aggregator.GroupByLine(records)

	// 清理已消失产线的轮播计数
	for line := range s.Rotation {
		if _, ok := s.Groups[line]; !ok {
			delete(s.Rotation, line)
		}
	}
}

// AdvanceRotation 推进可见产线的轮播计数，不可见产线的计数保持不变
func (s *DashboardState) AdvanceRotation(visible []string) {
	for _, line := range visible {
		s.Rotation[line]++
	}
}

// HasData 是否已有一次成功采集
func (s *DashboardState) HasData() bool {
	return s.Groups != nil
}
